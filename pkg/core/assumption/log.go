// Package assumption records the branching decisions and overrides taken
// during a valuation. The log is the audit channel of the core: every result
// carries its ordered entries, and no valuator writes to a process-wide
// logger, which keeps calculations safe to run concurrently.
package assumption

import "fmt"

// Log is an ordered list of human-readable decision entries. One Log belongs
// to exactly one calculation; the zero value is not usable, construct with
// NewLog.
type Log struct {
	entries []string
}

// NewLog creates an empty assumption log.
func NewLog() *Log {
	return &Log{entries: make([]string, 0, 8)}
}

// Add appends one entry, preserving insertion order.
func (l *Log) Add(entry string) {
	l.entries = append(l.entries, entry)
}

// Addf appends one formatted entry.
func (l *Log) Addf(format string, args ...any) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the log in insertion order.
func (l *Log) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}
