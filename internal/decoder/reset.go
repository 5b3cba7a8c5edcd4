package decoder

// ResetSequencer spreads a factory reset over successive poll ticks so
// that each tick performs at most one non-volatile write. Restores run
// from the highest schema index down to zero.
type ResetSequencer struct {
	remaining int
}

// Arm schedules a reset of n schema entries. A reset already in
// progress is restarted.
func (r *ResetSequencer) Arm(n int) {
	r.remaining = n
}

// Active reports whether a reset is still in progress.
func (r *ResetSequencer) Active() bool {
	return r.remaining > 0
}

// Next consumes one pending restore and returns its schema index.
// ok is false once the sequence is exhausted.
func (r *ResetSequencer) Next() (int, bool) {
	if r.remaining <= 0 {
		return 0, false
	}
	r.remaining--
	return r.remaining, true
}
