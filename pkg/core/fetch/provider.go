// Package fetch declares the contract of the external data-fetch
// collaborator. The valuation core never talks to a provider API itself;
// it calls a Provider exactly once per calculation and never caches or
// retries; retry, backoff and caching belong to the implementation.
package fetch

import (
	"context"
	"fmt"

	"intrinsic_valuation/pkg/core/record"
)

// Provider supplies the fundamental record for one symbol.
type Provider interface {
	Fetch(ctx context.Context, symbol string) (record.Record, error)
}

// Static serves fixed records from memory, for tests and offline fixtures.
type Static struct {
	Records map[string]record.Record
}

// Fetch returns the stored record for symbol.
func (s Static) Fetch(_ context.Context, symbol string) (record.Record, error) {
	rec, ok := s.Records[symbol]
	if !ok {
		return nil, fmt.Errorf("no record for symbol %q", symbol)
	}
	return rec, nil
}
