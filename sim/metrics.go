// Tracks simulation-wide outcome counts and wait/service time distributions.

package sim

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/docker/go-units"
)

// histogramMaxMillis bounds recorded values at one virtual day.
const histogramMaxMillis = int64(24 * time.Hour / time.Millisecond)

// Metrics aggregates per-request results for final reporting.
// Times are recorded in virtual milliseconds. Safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	TotalRequests int
	Outcomes      map[Outcome]int               // outcome → count
	ByOperation   map[Operation]map[Outcome]int // operation → outcome → count
	Failed        int                           // requests that never reached a terminal outcome

	waitHist    *hdrhistogram.Histogram // arrival → admission or abandonment
	serviceHist *hdrhistogram.Histogram // admission → completion, served only

	StartedAt time.Time
	EndedAt   time.Time
}

// NewMetrics returns an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Outcomes:    make(map[Outcome]int),
		ByOperation: make(map[Operation]map[Outcome]int),
		waitHist:    hdrhistogram.New(0, histogramMaxMillis, 3),
		serviceHist: hdrhistogram.New(0, histogramMaxMillis, 3),
	}
}

func virtualMillis(seconds float64) int64 {
	ms := int64(seconds * 1000)
	return min(max(ms, 0), histogramMaxMillis)
}

// Record adds one request's result.
func (m *Metrics) Record(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	if r.Err != nil || !r.Outcome.Terminal() {
		m.Failed++
		return
	}
	m.Outcomes[r.Outcome]++
	byOp, ok := m.ByOperation[r.Request.Op]
	if !ok {
		byOp = make(map[Outcome]int)
		m.ByOperation[r.Request.Op] = byOp
	}
	byOp[r.Outcome]++

	// virtualMillis clamps to the histogram range, so RecordValue cannot fail.
	_ = m.waitHist.RecordValue(virtualMillis(r.Waited))
	if r.Outcome == OutcomeServed {
		_ = m.serviceHist.RecordValue(virtualMillis(r.Finished - r.Admitted))
	}
}

// Count returns how many requests ended with outcome o.
func (m *Metrics) Count(o Outcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Outcomes[o]
}

// WaitQuantile returns the q-th percentile (0-100) of recorded waits, in virtual seconds.
func (m *Metrics) WaitQuantile(q float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.waitHist.ValueAtQuantile(q)) / 1000
}

// MaxWait returns the longest recorded wait, in virtual seconds.
func (m *Metrics) MaxWait() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.waitHist.Max()) / 1000
}

// Print writes the end-of-run report to w.
func (m *Metrics) Print(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Total Requests       : %d\n", m.TotalRequests)
	fmt.Fprintf(w, "Served               : %d\n", m.Outcomes[OutcomeServed])
	fmt.Fprintf(w, "Declined (invalid)   : %d\n", m.Outcomes[OutcomeDeclined])
	fmt.Fprintf(w, "Canceled (timeout)   : %d\n", m.Outcomes[OutcomeCanceled])
	if m.Failed > 0 {
		fmt.Fprintf(w, "Failed               : %d\n", m.Failed)
	}
	for _, op := range []Operation{OpRead, OpWrite, OpDelete} {
		byOp := m.ByOperation[op]
		if len(byOp) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-6s served=%d declined=%d canceled=%d\n",
			op, byOp[OutcomeServed], byOp[OutcomeDeclined], byOp[OutcomeCanceled])
	}
	if m.waitHist.TotalCount() > 0 {
		fmt.Fprintf(w, "Wait (virtual s)     : mean=%.2f p50=%.2f p99=%.2f max=%.2f\n",
			m.waitHist.Mean()/1000,
			float64(m.waitHist.ValueAtQuantile(50))/1000,
			float64(m.waitHist.ValueAtQuantile(99))/1000,
			float64(m.waitHist.Max())/1000)
	}
	if m.serviceHist.TotalCount() > 0 {
		fmt.Fprintf(w, "Service (virtual s)  : mean=%.2f max=%.2f\n",
			m.serviceHist.Mean()/1000, float64(m.serviceHist.Max())/1000)
	}
	if !m.StartedAt.IsZero() && !m.EndedAt.IsZero() {
		fmt.Fprintf(w, "Wall Time            : %s\n", units.HumanDuration(m.EndedAt.Sub(m.StartedAt)))
	}
}
