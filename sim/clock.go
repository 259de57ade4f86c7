package sim

import (
	"context"
	"math"
	"time"
)

// Clock is the simulation's monotonic virtual-seconds clock. It is anchored to
// a single start instant captured once, before any request is released, and is
// shared read-only by every worker.
type Clock struct {
	start time.Time
	tick  time.Duration
}

// NewClock anchors a clock at start. tick is the wall-clock length of one
// virtual second and must be positive.
func NewClock(start time.Time, tick time.Duration) *Clock {
	if tick <= 0 {
		panic("NewClock: tick must be positive")
	}
	return &Clock{start: start, tick: tick}
}

// Start returns the anchor instant.
func (c *Clock) Start() time.Time { return c.start }

// Tick returns the wall-clock length of one virtual second.
func (c *Clock) Tick() time.Duration { return c.tick }

// Now returns elapsed virtual seconds since start.
func (c *Clock) Now() float64 {
	return float64(time.Since(c.start)) / float64(c.tick)
}

// At returns the wall-clock instant corresponding to virtual time v.
func (c *Clock) At(v int64) time.Time {
	return c.start.Add(c.Span(v))
}

// Span converts a virtual-second interval to wall-clock time. Intervals too
// long to represent saturate at the largest time.Duration.
func (c *Clock) Span(v int64) time.Duration {
	if v > int64(math.MaxInt64)/int64(c.tick) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(v) * c.tick
}

// SleepUntil suspends the caller until virtual time v or until ctx ends.
// Returns immediately if v has already passed.
func (c *Clock) SleepUntil(ctx context.Context, v int64) error {
	wait := time.Until(c.At(v))
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Service blocks for d virtual seconds. It is not cancelable: an operation in
// service always runs to completion.
func (c *Clock) Service(d int64) {
	if d <= 0 {
		return
	}
	time.Sleep(c.Span(d))
}
