package pipeline

import "sync/atomic"

// Counter counts messages handed to the receive channel. The retrieval
// strategy increments it, the service reads it for the final report, so it
// is shared by reference between both. There is no rollback; it counts
// messages received from the broker, not messages successfully written.
type Counter struct {
	n atomic.Int64
}

// Inc adds one and returns the new value.
func (c *Counter) Inc() int64 {
	return c.n.Add(1)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.n.Load()
}
