package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Dispatcher releases one worker goroutine per request, in admission order.
// Each worker sleeps until its request's arrival time and then hands it to the
// coordinator.
type Dispatcher struct {
	queue       *AdmissionQueue
	coordinator *Coordinator
	clock       *Clock
	observer    Observer
	limiter     *rate.Limiter
	logger      logrus.FieldLogger
}

// NewDispatcher creates a dispatcher. stagger spaces consecutive launches and
// carries no scheduling meaning; zero launches back to back. A nil logger means
// the logrus standard logger.
func NewDispatcher(queue *AdmissionQueue, coordinator *Coordinator, clock *Clock, observer Observer, stagger time.Duration, logger logrus.FieldLogger) *Dispatcher {
	limit := rate.Inf
	if stagger > 0 {
		limit = rate.Every(stagger)
	}
	if observer == nil {
		observer = multiObserver(nil)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		queue:       queue,
		coordinator: coordinator,
		clock:       clock,
		observer:    observer,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
	}
}

// Run dispatches every queued request and blocks until each has a result.
// Results are indexed by admission order. A failed worker only affects its own
// request; the returned error is the first such failure, if any.
//
// After all workers finish, the queue is closed and the coordinator shut down.
func (d *Dispatcher) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, d.queue.Remaining())
	var g errgroup.Group

	for i := 0; ; i++ {
		req, ok := d.queue.Next()
		if !ok {
			break
		}
		if err := d.limiter.Wait(ctx); err != nil {
			// Launching stopped; every request not yet started fails with the context error.
			results[i] = Result{Request: req, Err: fmt.Errorf("%s not dispatched: %w", req, err)}
			for _, rest := range d.queue.Drain() {
				i++
				results[i] = Result{Request: rest, Err: fmt.Errorf("%s not dispatched: %w", rest, err)}
			}
			break
		}
		g.Go(func() error {
			results[i] = d.work(ctx, req)
			return results[i].Err
		})
	}

	err := g.Wait()
	d.queue.Close()
	d.coordinator.Close()
	if err == nil {
		for _, r := range results {
			if r.Err != nil {
				err = r.Err
				break
			}
		}
	}
	return results, err
}

// work is the body of one request's goroutine.
func (d *Dispatcher) work(ctx context.Context, req Request) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Errorf("worker for %s failed: %v", req, p)
			result = Result{Request: req, Err: fmt.Errorf("worker for %s failed: %v", req, p)}
		}
	}()

	if err := d.clock.SleepUntil(ctx, req.Arrival); err != nil {
		return Result{Request: req, Err: fmt.Errorf("%s interrupted before arrival: %w", req, err)}
	}
	d.observer.Observe(Event{Kind: EventArrived, Request: req, At: d.clock.Now()})
	return d.coordinator.Serve(ctx, req)
}
