package capsule

import (
	"sync"

	"github.com/tock/tock-sub011/kernel"
)

// Mux serializes access to a single shared resource of type T across
// several processes that each believe they have exclusive use of it
// (spec §5: a capsule multiplexing one piece of hardware across
// processes must queue and serialize requests rather than letting one
// process's Command starve another's). The queueing discipline —
// grant ownership to whoever is waiting longest once the current owner
// releases — mirrors the fairness eventloop's registry gives ring
// slots on reuse, adapted here from "reclaim a GC-dead slot" to
// "reclaim a released resource".
type Mux[T any] struct {
	mu      sync.Mutex
	res     T
	owner   kernel.ProcessID
	busy    bool
	waiters []kernel.ProcessID
}

// NewMux wraps resource in a Mux, initially unowned.
func NewMux[T any](resource T) *Mux[T] {
	return &Mux[T]{res: resource}
}

// TryAcquire grants exclusive ownership to id if the resource is free;
// otherwise it enqueues id as a waiter (if not already queued) and
// returns false.
func (m *Mux[T]) TryAcquire(id kernel.ProcessID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.busy {
		m.busy = true
		m.owner = id
		return true
	}
	if m.owner == id {
		return true
	}
	for _, w := range m.waiters {
		if w == id {
			return false
		}
	}
	m.waiters = append(m.waiters, id)
	return false
}

// Release gives up ownership, if currently held by id, and hands it to
// the longest-waiting queued process, if any.
func (m *Mux[T]) Release(id kernel.ProcessID) (next kernel.ProcessID, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.busy || m.owner != id {
		return kernel.ProcessID{}, false
	}
	if len(m.waiters) == 0 {
		m.busy = false
		m.owner = kernel.ProcessID{}
		return kernel.ProcessID{}, false
	}
	next = m.waiters[0]
	m.waiters = m.waiters[1:]
	m.owner = next
	return next, true
}

// Owner reports the current owner, if the resource is held by anyone.
func (m *Mux[T]) Owner() (kernel.ProcessID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner, m.busy
}

// Waiting reports how many processes are queued behind the current owner.
func (m *Mux[T]) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

// Resource returns a pointer to the underlying shared value. Callers
// must only dereference it while TryAcquire has granted them ownership
// — the Mux itself does not gate access to the value, only bookkeep
// who currently may use it.
func (m *Mux[T]) Resource() *T {
	return &m.res
}
