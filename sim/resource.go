package sim

import (
	"fmt"
	"sync"
)

// Resource is one simulated file. Every field below mu is guarded by mu and
// mutated only by the coordinator protocol in coordinator.go.
type Resource struct {
	ID int

	mu sync.Mutex
	// changed is closed and replaced whenever occupancy is released, waking
	// every waiter so each re-evaluates its admission predicate once.
	changed chan struct{}

	exists          bool
	activeReaders   int
	writing         bool
	activeOccupants int
	waiting         int

	// Observed high-water marks, reported in snapshots.
	peakReaders   int
	peakOccupants int
	peakWaiting   int
	served        int
}

func newResource(id int) *Resource {
	return &Resource{
		ID:      id,
		changed: make(chan struct{}),
		exists:  true,
	}
}

// ResourceSnapshot is a point-in-time copy of a Resource's counters.
type ResourceSnapshot struct {
	ID              int
	Exists          bool
	ActiveReaders   int
	Writing         bool
	ActiveOccupants int
	Waiting         int
	PeakReaders     int
	PeakOccupants   int
	PeakWaiting     int
	Served          int
}

// Snapshot copies the resource's counters under its lock.
func (r *Resource) Snapshot() ResourceSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resource) snapshotLocked() ResourceSnapshot {
	return ResourceSnapshot{
		ID:              r.ID,
		Exists:          r.exists,
		ActiveReaders:   r.activeReaders,
		Writing:         r.writing,
		ActiveOccupants: r.activeOccupants,
		Waiting:         r.waiting,
		PeakReaders:     r.peakReaders,
		PeakOccupants:   r.peakOccupants,
		PeakWaiting:     r.peakWaiting,
		Served:          r.served,
	}
}

// CheckInvariants verifies the occupancy rules for a snapshot:
// occupants == readers + writer, occupants <= cap, and no reader alongside a writer.
func (s ResourceSnapshot) CheckInvariants(maxConcurrentUsers int) error {
	writer := 0
	if s.Writing {
		writer = 1
	}
	if s.ActiveOccupants != s.ActiveReaders+writer {
		return fmt.Errorf("file %d: occupants=%d, want readers(%d)+writer(%d)", s.ID, s.ActiveOccupants, s.ActiveReaders, writer)
	}
	if s.ActiveOccupants > maxConcurrentUsers {
		return fmt.Errorf("file %d: occupants=%d exceeds cap %d", s.ID, s.ActiveOccupants, maxConcurrentUsers)
	}
	if s.Writing && s.ActiveReaders > 0 {
		return fmt.Errorf("file %d: writer present with %d readers", s.ID, s.ActiveReaders)
	}
	if s.ActiveReaders < 0 || s.Waiting < 0 {
		return fmt.Errorf("file %d: negative counter (readers=%d, waiting=%d)", s.ID, s.ActiveReaders, s.Waiting)
	}
	return nil
}

// Registry holds the fixed table of files, indexed by id. It is created once
// by the simulation root and injected into the coordinator.
type Registry struct {
	resources []*Resource
}

// NewRegistry creates n existing, idle files with ids [0, n).
func NewRegistry(n int) *Registry {
	if n < 0 {
		panic(fmt.Sprintf("NewRegistry: negative resource count %d", n))
	}
	reg := &Registry{resources: make([]*Resource, n)}
	for i := range reg.resources {
		reg.resources[i] = newResource(i)
	}
	return reg
}

// Len returns the number of files.
func (reg *Registry) Len() int {
	return len(reg.resources)
}

// Lookup returns the file with the given id, or false when the id is outside [0, N).
// Deleted files are still returned: their id stays a valid, always-declining target.
func (reg *Registry) Lookup(id int) (*Resource, bool) {
	if id < 0 || id >= len(reg.resources) {
		return nil, false
	}
	return reg.resources[id], true
}

// Snapshots returns a snapshot of every file in id order.
func (reg *Registry) Snapshots() []ResourceSnapshot {
	out := make([]ResourceSnapshot, len(reg.resources))
	for i, r := range reg.resources {
		out[i] = r.Snapshot()
	}
	return out
}

// CheckInvariants snapshots every file and returns the first violation found.
func (reg *Registry) CheckInvariants(maxConcurrentUsers int) error {
	for _, s := range reg.Snapshots() {
		if err := s.CheckInvariants(maxConcurrentUsers); err != nil {
			return err
		}
	}
	return nil
}
