// Implements the AdmissionQueue, which fixes the order in which requests are
// released to contend for files. Built once from the whole script.

package sim

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AdmissionQueue is the one-shot, ordered release sequence of all requests.
// Order: arrival time ascending, then READ < WRITE < DELETE, then input order.
// Safe for concurrent use; each request is handed out exactly once.
type AdmissionQueue struct {
	mu     sync.Mutex
	queue  []Request
	next   int
	closed bool
}

// NewAdmissionQueue copies requests and orders them for release.
func NewAdmissionQueue(requests []Request) *AdmissionQueue {
	q := &AdmissionQueue{queue: append([]Request(nil), requests...)}
	OrderForAdmission(q.queue)
	return q
}

// OrderForAdmission sorts reqs in place into admission order. The sort is
// stable, so requests with equal arrival time and operation keep input order.
func OrderForAdmission(reqs []Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].Arrival != reqs[j].Arrival {
			return reqs[i].Arrival < reqs[j].Arrival
		}
		return reqs[i].Op < reqs[j].Op
	})
}

// Len returns the total number of requests the queue was built with.
func (q *AdmissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Remaining returns how many requests have not been handed out yet.
func (q *AdmissionQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue) - q.next
}

// Next hands out the next request in order. Returns false once the queue is
// exhausted or closed; an exhausted queue never yields again.
func (q *AdmissionQueue) Next() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.next >= len(q.queue) {
		return Request{}, false
	}
	req := q.queue[q.next]
	q.next++
	return req, true
}

// Drain hands out every remaining request at once.
func (q *AdmissionQueue) Drain() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	rest := append([]Request(nil), q.queue[q.next:]...)
	q.next = len(q.queue)
	return rest
}

// items returns a copy of the full release order, including requests already handed out.
func (q *AdmissionQueue) items() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Request(nil), q.queue...)
}

// Close signals that no further requests will be released.
func (q *AdmissionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Closed reports whether Close has been called.
func (q *AdmissionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *AdmissionQueue) String() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
