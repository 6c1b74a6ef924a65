package core

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is an immutable point-in-time view of all VM states. The map is
// never mutated after publication; writers build a fresh one.
type Snapshot struct {
	version     uint64
	vms         map[string]VM
	publishedAt time.Time
}

// Version returns the snapshot's monotonically increasing version.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// PublishedAt returns when the snapshot was swapped in.
func (s *Snapshot) PublishedAt() time.Time {
	return s.publishedAt
}

// Get returns the record for a VM id.
func (s *Snapshot) Get(vmID string) (VM, bool) {
	vm, ok := s.vms[vmID]
	return vm, ok
}

// Len returns the number of VMs in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.vms)
}

// VMs returns the records ordered by name, then id for stable display.
func (s *Snapshot) VMs() []VM {
	vms := make([]VM, 0, len(s.vms))
	for _, vm := range s.vms {
		vms = append(vms, vm)
	}

	sort.Slice(vms, func(i, j int) bool {
		if vms[i].Name != vms[j].Name {
			return vms[i].Name < vms[j].Name
		}
		return vms[i].ID < vms[j].ID
	})

	return vms
}

// Store holds the current snapshot behind an atomic pointer. Readers never
// block writers: Current is a single pointer load, and every mutation builds
// a new snapshot under the writer mutex before one atomic swap.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]

	subMu sync.Mutex
	subs  []chan struct{}
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{
		vms:         map[string]VM{},
		publishedAt: time.Now(),
	})

	return s
}

// Current returns the latest snapshot without blocking.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Subscribe returns a channel that signals when a newer snapshot is
// available. The signal is coalesced: rapid publishes collapse into one
// pending notification, so a slow consumer sees "there is a newer version"
// rather than a backlog.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()

	return ch
}

// Replace atomically swaps in a snapshot containing exactly the given
// records, incrementing the version.
func (s *Store) Replace(records map[string]VM) *Snapshot {
	return s.swap(func(map[string]VM) map[string]VM {
		return copyRecords(records)
	})
}

// Update builds the next snapshot by applying mutate to a copy of the
// current records. Because the writer mutex serializes all publications, a
// command resolution always applies on top of the latest snapshot, never a
// stale copy.
func (s *Store) Update(mutate func(map[string]VM)) *Snapshot {
	return s.swap(func(current map[string]VM) map[string]VM {
		next := copyRecords(current)
		mutate(next)
		return next
	})
}

func (s *Store) swap(build func(map[string]VM) map[string]VM) *Snapshot {
	s.mu.Lock()
	prev := s.current.Load()
	next := &Snapshot{
		version:     prev.version + 1,
		vms:         build(prev.vms),
		publishedAt: time.Now(),
	}
	s.current.Store(next)
	s.mu.Unlock()

	s.notify()

	return next
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default: // a notification is already pending
		}
	}
}

func copyRecords(records map[string]VM) map[string]VM {
	next := make(map[string]VM, len(records))
	for id, vm := range records {
		next[id] = vm
	}

	return next
}
