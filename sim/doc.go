// Package sim provides the concurrent file-access simulation engine.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - request.go: Request, Operation and Outcome, the immutable inputs and terminal results
//   - coordinator.go: the per-file access protocol (admission predicates, waiting room, deadlines)
//   - dispatcher.go: one goroutine per request, released in admission order at its arrival time
//
// # Architecture
//
// A Simulator owns the Registry (one Resource per file), the AdmissionQueue
// (requests stably ordered by arrival, then READ < WRITE < DELETE), Metrics and
// an optional trace.SimulationTrace. Run anchors a Clock and hands everything to
// a Dispatcher, which launches workers into a Coordinator.
//
// Each Resource has its own mutex and waiting room; files never block each
// other. A waiter blocks on a notification channel that is closed on every
// release, together with a timer for its deadline (arrival + wait timeout), and
// re-checks its predicate on every wake.
//
// Sub-packages:
//   - sim/trace/: transition trace recording and summaries (no dependency on sim)
//   - sim/workload/: text scripts, YAML/TOML scenarios, seeded script generation
//
// # Key Interfaces
//
//   - Observer: consumes state-transition events (logging, tracing, tests)
package sim
