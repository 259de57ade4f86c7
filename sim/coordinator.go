// Implements the per-file access protocol: admission predicates, the waiting
// room, deadline cancellation and wakeup fan-out on release.

package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// admitsLocked reports whether op may occupy r right now. Caller holds r.mu.
//
//	READ   exists && !writing && occupants < cap
//	WRITE  exists && !writing && readers == 0 && occupants < cap
//	DELETE exists && !writing && readers == 0   (no cap headroom needed)
func (r *Resource) admitsLocked(op Operation, maxConcurrentUsers int) bool {
	if !r.exists || r.writing {
		return false
	}
	switch op {
	case OpRead:
		return r.activeOccupants < maxConcurrentUsers
	case OpWrite:
		return r.activeReaders == 0 && r.activeOccupants < maxConcurrentUsers
	case OpDelete:
		return r.activeReaders == 0
	default:
		panic(fmt.Sprintf("admitsLocked: unhandled operation %s", op))
	}
}

// occupyLocked marks op as inside r. Caller holds r.mu and has checked admitsLocked.
// A delete retires the file; its counters are left as they are.
func (r *Resource) occupyLocked(op Operation) {
	switch op {
	case OpRead:
		r.activeReaders++
		r.activeOccupants++
	case OpWrite:
		r.writing = true
		r.activeOccupants++
	case OpDelete:
		r.exists = false
	}
	r.peakReaders = max(r.peakReaders, r.activeReaders)
	r.peakOccupants = max(r.peakOccupants, r.activeOccupants)
}

// broadcastLocked wakes every goroutine currently waiting on r. Each waiter
// observes the close exactly once and re-checks its predicate. Caller holds r.mu.
func (r *Resource) broadcastLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// acquire runs the entry protocol for op on r. It returns nil once op
// occupies r, ErrInvalidTarget if r is (or becomes) deleted, ErrTimeoutExceeded
// if deadline passes first, and a context or shutdown error otherwise.
func (r *Resource) acquire(ctx context.Context, op Operation, maxConcurrentUsers int, deadline time.Time, shutdown <-chan struct{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.waiting++
	r.peakWaiting = max(r.peakWaiting, r.waiting)
	defer func() { r.waiting-- }()

	var timer *time.Timer
	waited := false
	for {
		expired := !time.Now().Before(deadline)
		// Once a request has been made to wait, an elapsed deadline wins over
		// everything else: it must not be served after giving up.
		if waited && expired {
			return ErrTimeoutExceeded
		}
		if !r.exists {
			return ErrInvalidTarget
		}
		if r.admitsLocked(op, maxConcurrentUsers) {
			r.occupyLocked(op)
			return nil
		}
		if expired {
			return ErrTimeoutExceeded
		}

		if timer == nil {
			timer = time.NewTimer(time.Until(deadline))
			defer timer.Stop()
		}
		changed := r.changed
		r.mu.Unlock()
		select {
		case <-changed:
		case <-timer.C:
		case <-ctx.Done():
		case <-shutdown:
		}
		r.mu.Lock()
		waited = true

		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-shutdown:
			return ErrCoordinatorClosed
		default:
		}
	}
}

// release clears op's occupancy and wakes all waiters.
func (r *Resource) release(op Operation, logger logrus.FieldLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch op {
	case OpRead:
		r.activeReaders--
		r.activeOccupants--
	case OpWrite:
		r.writing = false
		r.activeOccupants--
	case OpDelete:
		// exists stays false; nothing else was marked.
	}
	r.served++
	if tl, ok := logger.(logrus.Ext1FieldLogger); ok {
		tl.Tracef("file %d released by %s, waking %d waiter(s)", r.ID+1, op, r.waiting)
	}
	r.broadcastLocked()
}

// Result is the full record of one request's trip through the coordinator.
type Result struct {
	Request  Request
	Outcome  Outcome
	Err      error   // set only when the request could not reach a terminal outcome
	Admitted float64 // virtual time of admission; zero unless served
	Finished float64 // virtual time the outcome was reached
	Waited   float64 // virtual seconds between arrival and admission or abandonment
}

// Coordinator routes each request to its file's access protocol. Files never
// block one another: each has its own lock and waiting room.
type Coordinator struct {
	cfg      Config
	registry *Registry
	clock    *Clock
	observer Observer
	logger   logrus.FieldLogger

	closeOnce sync.Once
	shutdown  chan struct{}
}

// NewCoordinator creates a coordinator over registry. observer and logger may
// be nil; a nil logger means the logrus standard logger.
func NewCoordinator(cfg Config, registry *Registry, clock *Clock, observer Observer, logger logrus.FieldLogger) *Coordinator {
	if observer == nil {
		observer = multiObserver(nil)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Coordinator{
		cfg:      cfg,
		registry: registry,
		clock:    clock,
		observer: observer,
		logger:   logger,
		shutdown: make(chan struct{}),
	}
}

// Access performs req against its file and returns the terminal outcome.
// The error is non-nil only when ctx ends or the coordinator has been closed
// before the request could resolve.
func (c *Coordinator) Access(ctx context.Context, req Request) (Outcome, error) {
	res := c.Serve(ctx, req)
	return res.Outcome, res.Err
}

// Serve is Access with timing detail for metrics.
func (c *Coordinator) Serve(ctx context.Context, req Request) Result {
	result := Result{Request: req}
	select {
	case <-c.shutdown:
		result.Err = ErrCoordinatorClosed
		return result
	default:
	}

	arrival := float64(req.Arrival)
	r, ok := c.registry.Lookup(req.ResourceID)
	if !ok {
		return c.resolve(result, fmt.Errorf("file %d out of range [1, %d]: %w", req.ResourceID+1, c.registry.Len(), ErrInvalidTarget))
	}

	deadline := c.clock.At(req.Deadline(c.cfg.WaitTimeout))
	if err := r.acquire(ctx, req.Op, c.cfg.MaxConcurrentUsers, deadline, c.shutdown); err != nil {
		return c.resolve(result, err)
	}

	result.Admitted = c.clock.Now()
	result.Waited = max(0, result.Admitted-arrival)
	c.observer.Observe(Event{Kind: EventAdmitted, Request: req, At: result.Admitted})

	c.clock.Service(c.cfg.ServiceDuration(req.Op))

	result.Finished = c.clock.Now()
	c.observer.Observe(Event{Kind: EventCompleted, Request: req, At: result.Finished})
	r.release(req.Op, c.logger)

	result.Outcome = OutcomeServed
	return result
}

// resolve turns a non-admission error into a declined or canceled result, or
// records it as a failure when it is neither.
func (c *Coordinator) resolve(result Result, err error) Result {
	now := c.clock.Now()
	result.Finished = now
	result.Waited = max(0, now-float64(result.Request.Arrival))

	outcome, ok := OutcomeFor(err)
	if !ok {
		result.Err = fmt.Errorf("%s: %w", result.Request, err)
		return result
	}
	result.Outcome = outcome
	kind := EventDeclined
	if outcome == OutcomeCanceled {
		kind = EventCanceled
	}
	c.logger.Debugf("%s resolved as %s: %v", result.Request, outcome, err)
	c.observer.Observe(Event{Kind: kind, Request: result.Request, At: now})
	return result
}

// Close releases every waiter still blocked in a waiting room and rejects
// further accesses. Safe to call more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.shutdown)
	})
}
