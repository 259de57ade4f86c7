package sim

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// EventKind names a state transition reported by the simulation.
type EventKind string

const (
	EventStarted   EventKind = "started"   // simulation clock anchored, dispatch begins
	EventArrived   EventKind = "arrived"   // request reached its scheduled arrival time
	EventAdmitted  EventKind = "admitted"  // request passed its admission predicate and occupies the file
	EventCompleted EventKind = "completed" // service finished, occupancy about to be released
	EventDeclined  EventKind = "declined"  // invalid or deleted file
	EventCanceled  EventKind = "canceled"  // deadline elapsed while waiting
	EventFinished  EventKind = "finished"  // every request has a terminal outcome
)

// Event is one state transition. Request is the zero value for lifecycle
// events (EventStarted, EventFinished).
type Event struct {
	Kind    EventKind
	Request Request
	At      float64 // virtual seconds since simulation start
}

// Observer consumes simulation events. Implementations must be safe for
// concurrent use: every worker goroutine emits its own events.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// multiObserver fans one event out to several observers in order.
type multiObserver []Observer

func (m multiObserver) Observe(ev Event) {
	for _, o := range m {
		o.Observe(ev)
	}
}

// LogObserver writes each event as one structured logrus line.
// Declines and cancellations log at warn level, everything else at info.
type LogObserver struct {
	Logger logrus.FieldLogger
}

// NewLogObserver returns a LogObserver writing through logger. A nil logger
// means the logrus standard logger.
func NewLogObserver(logger logrus.FieldLogger) *LogObserver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogObserver{Logger: logger}
}

func (l *LogObserver) Observe(ev Event) {
	switch ev.Kind {
	case EventStarted:
		l.Logger.WithField("t", ev.At).Info("file server is up, accepting requests")
		return
	case EventFinished:
		l.Logger.WithField("t", ev.At).Info("no more pending requests, file server going idle")
		return
	}

	req := ev.Request
	entry := l.Logger.WithFields(logrus.Fields{
		"user": req.RequesterID,
		"file": req.ResourceID + 1,
		"op":   req.Op.String(),
		"t":    ev.At,
	})
	switch ev.Kind {
	case EventArrived:
		entry.Infof("user %d requests %s on file %d (scheduled at %ds)", req.RequesterID, req.Op, req.ResourceID+1, req.Arrival)
	case EventAdmitted:
		entry.Infof("took up %s for user %d at %.0fs", req.Op, req.RequesterID, ev.At)
	case EventCompleted:
		entry.Infof("%s for user %d completed at %.0fs", req.Op, req.RequesterID, ev.At)
	case EventDeclined:
		entry.Warnf("declined user %d at %.0fs: invalid or deleted file requested", req.RequesterID, ev.At)
	case EventCanceled:
		entry.Warnf("user %d canceled the request after no response by %.0fs", req.RequesterID, ev.At)
	default:
		entry.Debugf("unhandled event kind %q", ev.Kind)
	}
}

// EventLog is an in-memory Observer that keeps every event in emission order.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func (el *EventLog) Observe(ev Event) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.events = append(el.events, ev)
}

// Events returns a copy of the recorded events.
func (el *EventLog) Events() []Event {
	el.mu.Lock()
	defer el.mu.Unlock()
	return append([]Event(nil), el.events...)
}

// Filter returns the recorded events of the given kind.
func (el *EventLog) Filter(kind EventKind) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()
	var out []Event
	for _, ev := range el.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
