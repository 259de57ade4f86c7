package trace

import "sync"

// TraceLevel controls the verbosity of transition tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTransitions captures every per-request state transition.
	TraceLevelTransitions TraceLevel = "transitions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelTransitions: true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel `yaml:"level"`
	RunID string     `yaml:"run_id"`
}

// SimulationTrace collects transition records during a run. Unlike a
// single-threaded event loop, every request goroutine records concurrently,
// so appends are serialized and stamped with a global sequence number.
type SimulationTrace struct {
	Config      TraceConfig        `yaml:"config"`
	Transitions []TransitionRecord `yaml:"transitions"`

	mu  sync.Mutex
	seq int64
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:      config,
		Transitions: make([]TransitionRecord, 0),
	}
}

// Enabled reports whether records will be kept.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelTransitions
}

// RecordTransition appends a transition record and returns its sequence number.
// No-op (returning 0) when tracing is disabled.
func (st *SimulationTrace) RecordTransition(record TransitionRecord) int64 {
	if !st.Enabled() {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.seq++
	record.Seq = st.seq
	st.Transitions = append(st.Transitions, record)
	return record.Seq
}

// Records returns a copy of the transitions recorded so far, in sequence order.
func (st *SimulationTrace) Records() []TransitionRecord {
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]TransitionRecord(nil), st.Transitions...)
}
