// Package fault defines the error taxonomy shared by every valuator.
// All failures are synchronous and caller-visible; nothing is retried and
// no partial result is returned in place of an error.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a valuation failure.
type Kind int

const (
	// MissingCriticalField: a required nested field is absent from the
	// input record and no override was supplied.
	MissingCriticalField Kind = iota + 1
	// InvalidDomainValue: a supplied or derived quantity violates a
	// mathematical precondition.
	InvalidDomainValue
	// InsufficientSeries: a time series has too few points for the
	// requested computation.
	InsufficientSeries
)

func (k Kind) String() string {
	switch k {
	case MissingCriticalField:
		return "missing_critical_field"
	case InvalidDomainValue:
		return "invalid_domain_value"
	case InsufficientSeries:
		return "insufficient_series"
	}
	return "unknown"
}

// Error carries the failure kind, the symbol being valued, and a message
// naming the offending field or value.
type Error struct {
	Kind   Kind
	Symbol string
	Msg    string
}

func (e *Error) Error() string {
	if e.Symbol == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Symbol, e.Msg)
}

// Missing reports a required record field that is absent.
func Missing(symbol, field string) *Error {
	return &Error{
		Kind:   MissingCriticalField,
		Symbol: symbol,
		Msg:    fmt.Sprintf("critical field missing: %s", field),
	}
}

// Domainf reports a value outside its mathematical domain.
func Domainf(symbol, format string, args ...any) *Error {
	return &Error{Kind: InvalidDomainValue, Symbol: symbol, Msg: fmt.Sprintf(format, args...)}
}

// Seriesf reports a time series too short for the requested computation.
func Seriesf(symbol, format string, args ...any) *Error {
	return &Error{Kind: InsufficientSeries, Symbol: symbol, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is (or wraps) a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
