// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lazy-sim/lazy-sim/sim/trace"
)

// Simulator is the root object of one run: it owns the file registry, the
// admission queue, metrics and the optional transition trace, and wires them
// into a coordinator and dispatcher when Run is called.
type Simulator struct {
	Config   Config
	RunID    uuid.UUID
	Registry *Registry
	Queue    *AdmissionQueue
	Metrics  *Metrics
	Trace    *trace.SimulationTrace
	// Clock is nil until Run anchors it.
	Clock *Clock

	logger    *logrus.Entry
	observers []Observer
	ran       bool
}

// NewSimulator validates cfg and builds a simulator for the fixed request set.
// traceLevel selects transition tracing ("" or "none" disables it).
func NewSimulator(cfg Config, requests []Request, traceLevel trace.TraceLevel) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !trace.IsValidTraceLevel(string(traceLevel)) {
		return nil, fmt.Errorf("unknown trace level %q", traceLevel)
	}
	for i, req := range requests {
		if !req.Op.Valid() {
			return nil, fmt.Errorf("request %d: invalid operation %d", i, int(req.Op))
		}
	}

	runID := uuid.New()
	s := &Simulator{
		Config:   cfg,
		RunID:    runID,
		Registry: NewRegistry(cfg.ResourceCount),
		Queue:    NewAdmissionQueue(requests),
		Metrics:  NewMetrics(),
		Trace:    trace.NewSimulationTrace(trace.TraceConfig{Level: traceLevel, RunID: runID.String()}),
		logger:   logrus.WithField("run", runID.String()),
	}
	s.observers = []Observer{NewLogObserver(s.logger)}
	if s.Trace.Enabled() {
		s.observers = append(s.observers, ObserverFunc(s.recordTransition))
	}
	return s, nil
}

// AddObserver registers an extra event consumer. Must be called before Run.
func (s *Simulator) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Simulator) recordTransition(ev Event) {
	if ev.Kind == EventStarted || ev.Kind == EventFinished {
		return
	}
	s.Trace.RecordTransition(trace.TransitionRecord{
		Kind:        string(ev.Kind),
		RequesterID: ev.Request.RequesterID,
		ResourceID:  ev.Request.ResourceID,
		Operation:   ev.Request.Op.String(),
		Clock:       ev.At,
	})
}

// Run anchors the clock, dispatches every request and blocks until each has a
// result. Results are in admission order. A simulator runs once.
func (s *Simulator) Run(ctx context.Context) ([]Result, error) {
	if s.ran {
		return nil, fmt.Errorf("simulation %s already ran", s.RunID)
	}
	s.ran = true

	observer := multiObserver(s.observers)
	s.Clock = NewClock(time.Now(), s.Config.Tick.Duration)
	s.Metrics.StartedAt = s.Clock.Start()
	s.logger.Infof("Starting simulation: %d requests, %d files, cap=%d, timeout=%ds, tick=%s",
		s.Queue.Len(), s.Config.ResourceCount, s.Config.MaxConcurrentUsers, s.Config.WaitTimeout, s.Clock.Tick())
	observer.Observe(Event{Kind: EventStarted, At: s.Clock.Now()})

	coordinator := NewCoordinator(s.Config, s.Registry, s.Clock, observer, s.logger)
	dispatcher := NewDispatcher(s.Queue, coordinator, s.Clock, observer, s.Config.Stagger.Duration, s.logger)
	results, err := dispatcher.Run(ctx)

	for _, r := range results {
		s.Metrics.Record(r)
	}
	s.Metrics.EndedAt = time.Now()
	observer.Observe(Event{Kind: EventFinished, At: s.Clock.Now()})

	if ierr := s.Registry.CheckInvariants(s.Config.MaxConcurrentUsers); ierr != nil {
		s.logger.Errorf("occupancy invariant violated after run: %v", ierr)
	}
	if err != nil {
		s.logger.Warnf("simulation finished with failed requests: %v", err)
	}
	return results, err
}
