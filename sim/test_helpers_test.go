package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lazy-sim/lazy-sim/sim/trace"
)

// testTick is the wall-clock length of one virtual second in tests. Scenarios
// keep every decisive boundary at least one tick away from any other so
// scheduler jitter cannot flip an outcome.
const testTick = 30 * time.Millisecond

// testConfig returns a config with short service times: READ 2s, WRITE 2s, DELETE 1s.
func testConfig(files, maxUsers int, waitTimeout int64) Config {
	return Config{
		ReadDuration:       2,
		WriteDuration:      2,
		DeleteDuration:     1,
		ResourceCount:      files,
		MaxConcurrentUsers: maxUsers,
		WaitTimeout:        waitTimeout,
		Tick:               Duration{testTick},
	}
}

// newReq builds a request against a 0-based file id.
func newReq(seq, user, file int, op Operation, at int64) Request {
	return Request{Seq: seq, RequesterID: user, ResourceID: file, Op: op, Arrival: at}
}

// runScenario runs a traced simulation and returns it with its results and event log.
func runScenario(t *testing.T, cfg Config, reqs []Request) (*Simulator, []Result, *EventLog) {
	t.Helper()
	s, err := NewSimulator(cfg, reqs, trace.TraceLevelTransitions)
	require.NoError(t, err)
	events := &EventLog{}
	s.AddObserver(events)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	return s, results, events
}

// outcomesByUser indexes outcomes by requester id; test scripts use unique ids.
func outcomesByUser(results []Result) map[int]Outcome {
	out := make(map[int]Outcome, len(results))
	for _, r := range results {
		out[r.Request.RequesterID] = r.Outcome
	}
	return out
}

// firstEvent returns the first event of kind for user, or false.
func firstEvent(events []Event, kind EventKind, user int) (Event, bool) {
	for _, ev := range events {
		if ev.Kind == kind && ev.Request.RequesterID == user {
			return ev, true
		}
	}
	return Event{}, false
}

// eventIndex returns the position of the first event of kind for user, or -1.
func eventIndex(events []Event, kind EventKind, user int) int {
	for i, ev := range events {
		if ev.Kind == kind && ev.Request.RequesterID == user {
			return i
		}
	}
	return -1
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, timeout, time.Millisecond)
}
