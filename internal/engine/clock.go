package engine

import "sync/atomic"

// Clock hands out the sequence numbers that order journal executions.
// The zero value starts at 0 and is safe to share between goroutines.
type Clock struct {
	seq atomic.Int64
}

func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt resumes numbering after start, the highest sequence number
// already in the journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next stamps one step.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current is the last number handed out, or the starting point.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
