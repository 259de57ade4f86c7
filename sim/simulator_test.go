package sim

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazy-sim/lazy-sim/sim/trace"
)

func TestNewSimulator_InvalidConfig(t *testing.T) {
	cfg := testConfig(0, 1, 5)
	_, err := NewSimulator(cfg, nil, trace.TraceLevelNone)
	assert.ErrorContains(t, err, "invalid config")
}

func TestNewSimulator_InvalidTraceLevel(t *testing.T) {
	_, err := NewSimulator(testConfig(1, 1, 5), nil, trace.TraceLevel("verbose"))
	assert.ErrorContains(t, err, "unknown trace level")
}

func TestNewSimulator_InvalidOperation(t *testing.T) {
	reqs := []Request{newReq(0, 1, 0, Operation(9), 0)}
	_, err := NewSimulator(testConfig(1, 1, 5), reqs, trace.TraceLevelNone)
	assert.ErrorContains(t, err, "invalid operation")
}

func TestSimulator_Run_Twice_Errors(t *testing.T) {
	s, _, _ := runScenario(t, testConfig(1, 1, 5), []Request{newReq(0, 1, 0, OpRead, 0)})

	_, err := s.Run(context.Background())

	assert.ErrorContains(t, err, "already ran")
}

func TestSimulator_EmptyScript_StartsAndFinishes(t *testing.T) {
	s, results, events := runScenario(t, testConfig(2, 1, 5), nil)

	assert.Empty(t, results)
	assert.Len(t, events.Filter(EventStarted), 1)
	assert.Len(t, events.Filter(EventFinished), 1)
	assert.Zero(t, s.Metrics.TotalRequests)
}

func TestSimulator_CapOne_TwoSimultaneousReads(t *testing.T) {
	tests := []struct {
		name         string
		waitTimeout  int64
		wantServed   int
		wantCanceled int
	}{
		// READ takes 2s: the second reader fits inside a 5s timeout but not a 1s one.
		{"second reader waits and is served", 5, 2, 0},
		{"second reader times out", 1, 1, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN one file with cap 1 and two readers arriving together
			cfg := testConfig(1, 1, tc.waitTimeout)
			reqs := []Request{newReq(0, 1, 0, OpRead, 0), newReq(1, 2, 0, OpRead, 0)}

			// WHEN the simulation runs
			s, results, _ := runScenario(t, cfg, reqs)

			// THEN one is served at once and the other follows or gives up
			assert.Equal(t, tc.wantServed, s.Metrics.Count(OutcomeServed))
			assert.Equal(t, tc.wantCanceled, s.Metrics.Count(OutcomeCanceled))
			for _, r := range results {
				if r.Outcome == OutcomeCanceled {
					assert.InDelta(t, float64(tc.waitTimeout), r.Finished, 0.5)
				}
			}
			snap := s.Registry.Snapshots()[0]
			assert.Equal(t, 1, snap.PeakReaders)
		})
	}
}

func TestSimulator_WriteDuringRead_NeverInterleaves(t *testing.T) {
	// GIVEN a read in service from 0 to 2 and a write arriving at 1
	cfg := testConfig(1, 5, 10)
	reqs := []Request{newReq(0, 1, 0, OpRead, 0), newReq(1, 2, 0, OpWrite, 1)}

	// WHEN the simulation runs
	s, results, events := runScenario(t, cfg, reqs)

	// THEN the write is served only after the read completed
	byUser := outcomesByUser(results)
	assert.Equal(t, OutcomeServed, byUser[1])
	assert.Equal(t, OutcomeServed, byUser[2])
	all := events.Events()
	assert.Greater(t, eventIndex(all, EventAdmitted, 2), eventIndex(all, EventCompleted, 1))
	admitted, ok := firstEvent(all, EventAdmitted, 2)
	require.True(t, ok)
	assert.GreaterOrEqual(t, admitted.At, 1.5)
	assert.Empty(t, trace.Summarize(s.Trace).ExclusionFaults)
}

func TestSimulator_DeleteThenAnyOp_Declined(t *testing.T) {
	// GIVEN file 3 (id 2) deleted at 0 and later requests for it and for file 1
	cfg := testConfig(4, 2, 5)
	reqs := []Request{
		newReq(0, 1, 2, OpDelete, 0),
		newReq(1, 2, 2, OpRead, 2),
		newReq(2, 3, 2, OpWrite, 3),
		newReq(3, 4, 2, OpDelete, 3),
		newReq(4, 5, 0, OpRead, 2),
	}

	// WHEN the simulation runs
	s, results, events := runScenario(t, cfg, reqs)

	// THEN the delete is served and every later access to file 3 is declined
	byUser := outcomesByUser(results)
	assert.Equal(t, OutcomeServed, byUser[1])
	assert.Equal(t, OutcomeDeclined, byUser[2])
	assert.Equal(t, OutcomeDeclined, byUser[3])
	assert.Equal(t, OutcomeDeclined, byUser[4])
	assert.Equal(t, OutcomeServed, byUser[5])
	assert.False(t, s.Registry.Snapshots()[2].Exists)
	assert.True(t, s.Registry.Snapshots()[0].Exists)
	assert.Len(t, events.Filter(EventDeclined), 3)
}

func TestSimulator_OutOfRange_DeclinedImmediately(t *testing.T) {
	cfg := testConfig(4, 1, 10)
	reqs := []Request{newReq(0, 1, 4, OpRead, 1), newReq(1, 2, 40, OpWrite, 1)}

	s, results, _ := runScenario(t, cfg, reqs)

	for _, r := range results {
		assert.Equal(t, OutcomeDeclined, r.Outcome)
		assert.Less(t, r.Waited, 1.0)
	}
	assert.Equal(t, 2, s.Metrics.Count(OutcomeDeclined))
	assert.Equal(t, 2, s.Metrics.ByOperation[OpRead][OutcomeDeclined]+s.Metrics.ByOperation[OpWrite][OutcomeDeclined])
}

func TestSimulator_SameScript_SameOutcomes(t *testing.T) {
	// GIVEN a script whose decisive instants are at least a second apart
	cfg := testConfig(3, 2, 3)
	reqs := []Request{
		newReq(0, 1, 0, OpRead, 0),
		newReq(1, 2, 0, OpRead, 0),
		newReq(2, 3, 0, OpRead, 0),
		newReq(3, 4, 1, OpWrite, 0),
		newReq(4, 5, 1, OpWrite, 1),
		newReq(5, 7, 2, OpDelete, 1),
		newReq(6, 8, 2, OpRead, 3),
		newReq(7, 10, 5, OpRead, 0),
	}
	want := map[int]Outcome{
		1: OutcomeServed, 2: OutcomeServed, 3: OutcomeServed,
		4: OutcomeServed, 5: OutcomeServed,
		7: OutcomeServed, 8: OutcomeDeclined,
		10: OutcomeDeclined,
	}

	// WHEN it is replayed twice with fresh simulators
	_, first, _ := runScenario(t, cfg, reqs)
	_, second, _ := runScenario(t, cfg, reqs)

	// THEN both runs agree on every request's outcome
	assert.Equal(t, want, outcomesByUser(first))
	assert.Equal(t, outcomesByUser(first), outcomesByUser(second))
}

func TestSimulator_RandomLoad_HoldsInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-heavy")
	}
	// GIVEN a seeded burst of mixed requests over three files
	const timeout = 3
	cfg := testConfig(3, 2, timeout)
	cfg.ReadDuration, cfg.WriteDuration, cfg.DeleteDuration = 1, 1, 1
	rng := rand.New(rand.NewSource(7))
	ops := []Operation{OpRead, OpRead, OpRead, OpWrite, OpWrite, OpDelete}
	var reqs []Request
	for i := 0; i < 60; i++ {
		reqs = append(reqs, newReq(i, i+1, rng.Intn(4), ops[rng.Intn(len(ops))], rng.Int63n(10)))
	}

	s, err := NewSimulator(cfg, reqs, trace.TraceLevelTransitions)
	require.NoError(t, err)
	events := &EventLog{}
	s.AddObserver(events)

	// WHEN it runs while a watcher samples every file's counters
	done := make(chan struct{})
	var violations []error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := s.Registry.CheckInvariants(cfg.MaxConcurrentUsers); err != nil {
				violations = append(violations, err)
			}
			time.Sleep(500 * time.Microsecond)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results, err := s.Run(ctx)
	close(done)
	wg.Wait()

	// THEN no sample broke the occupancy rules
	require.NoError(t, err)
	assert.Empty(t, violations)

	// AND replaying the trace finds no overlapping exclusive access
	summary := trace.Summarize(s.Trace)
	assert.Empty(t, summary.ExclusionFaults)
	assert.Equal(t, len(reqs), summary.TotalArrivals)
	assert.Equal(t, len(reqs), summary.ServedCount+summary.DeclinedCount+summary.CanceledCount)

	// AND every request reached exactly one terminal outcome within its deadline
	all := events.Events()
	for _, r := range results {
		user := r.Request.RequesterID
		require.True(t, r.Outcome.Terminal(), "user %d", user)
		switch r.Outcome {
		case OutcomeServed:
			assert.LessOrEqual(t, r.Waited, float64(timeout)+0.5, "user %d", user)
		case OutcomeCanceled:
			assert.Equal(t, -1, eventIndex(all, EventAdmitted, user), "canceled user %d was admitted", user)
		case OutcomeDeclined:
			assert.Equal(t, -1, eventIndex(all, EventAdmitted, user), "declined user %d was admitted", user)
		}
	}

	// AND nothing is admitted to a file after its delete was admitted
	for i, ev := range all {
		if ev.Kind != EventAdmitted || ev.Request.Op != OpDelete {
			continue
		}
		for _, later := range all[i+1:] {
			if later.Kind == EventAdmitted {
				assert.NotEqual(t, ev.Request.ResourceID, later.Request.ResourceID,
					"user %d admitted to file %d after its delete", later.Request.RequesterID, ev.Request.ResourceID+1)
			}
		}
	}
	assert.Equal(t, len(reqs), s.Metrics.TotalRequests)
	assert.Zero(t, s.Metrics.Failed)
}
