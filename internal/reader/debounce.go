package reader

import "time"

// Debouncer coalesces bursts of triggers. Each trigger returns a token; the
// caller waits Quiet and then asks whether its token is still the latest.
type Debouncer struct {
	quiet time.Duration
	seq   uint64
}

// NewDebouncer creates a debouncer with the given quiet period
func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{quiet: quiet}
}

// Trigger records an event and returns its token
func (d *Debouncer) Trigger() uint64 {
	d.seq++
	return d.seq
}

// Settled reports whether no trigger happened after the token was issued
func (d *Debouncer) Settled(token uint64) bool {
	return token != 0 && token == d.seq
}

// Quiet returns the quiet period
func (d *Debouncer) Quiet() time.Duration {
	return d.quiet
}
