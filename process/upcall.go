package process

import "github.com/tock/tock-sub011/klog"

// UpcallKey identifies one Subscribe slot, scoped per-process.
type UpcallKey struct {
	Driver    uint32
	Subscribe uint32
}

// UpcallFn is the callback a process registered via Subscribe. args are
// the three upcall arguments and appdata the opaque value Subscribe was
// called with; a nil UpcallFn is the "unsubscribed" default.
type UpcallFn func(arg0, arg1, arg2 uint32, appdata uint32)

// Upcall is one queued, not-yet-delivered invocation.
type Upcall struct {
	Key        UpcallKey
	Fn         UpcallFn
	Arg0, Arg1, Arg2 uint32
	Appdata    uint32
}

// UpcallQueueCapacity is the fixed number of slots TRD104 requires a
// process's pending-upcall queue to have (spec §4.4). Once full,
// enqueuing a new upcall drops the oldest entry with the same key (or
// the oldest entry overall, if none shares it) rather than growing or
// blocking the capsule that scheduled it.
const UpcallQueueCapacity = 16

// UpcallQueue is a fixed-capacity ring buffer FIFO of pending upcalls,
// delivered to the process one per Yield. Unlike eventloop's
// MicrotaskRing (which grows without bound), TRD104 requires that a
// process's pending-upcall ring never exceed a fixed size; the
// constraint this type enforces is "coalesce by dropping the oldest
// queued entry of the same key" rather than "never drop".
type UpcallQueue struct {
	buf        [UpcallQueueCapacity]Upcall
	head, size int
	dropped    uint64
	logger     klog.Logger
}

// NewUpcallQueue creates an empty queue that logs coalesce events
// through logger (klog.NoOp() is fine if the caller doesn't care).
func NewUpcallQueue(logger klog.Logger) *UpcallQueue {
	if logger == nil {
		logger = klog.NoOp()
	}
	return &UpcallQueue{logger: logger}
}

// Push enqueues an upcall at the tail. If the queue is already at
// capacity it first removes the oldest pending entry with u's key (the
// oldest entry overall when no entry shares the key), so the new
// arguments win and FIFO order within each key is kept.
func (q *UpcallQueue) Push(u Upcall) {
	if q.size == UpcallQueueCapacity {
		q.dropped++
		q.logger.Log(klog.Entry{
			Level:   klog.LevelWarn,
			Message: "upcall queue full, dropping oldest",
			Fields: []klog.Field{
				klog.F("driver", u.Key.Driver),
				klog.F("subscribe", u.Key.Subscribe),
				klog.F("dropped", q.dropped),
			},
		})
		victim := 0
		for i := 0; i < q.size; i++ {
			if q.buf[(q.head+i)%UpcallQueueCapacity].Key == u.Key {
				victim = i
				break
			}
		}
		for i := victim; i < q.size-1; i++ {
			q.buf[(q.head+i)%UpcallQueueCapacity] = q.buf[(q.head+i+1)%UpcallQueueCapacity]
		}
		q.size--
	}
	tail := (q.head + q.size) % UpcallQueueCapacity
	q.buf[tail] = u
	q.size++
}

// Pop removes and returns the oldest pending upcall, if any.
func (q *UpcallQueue) Pop() (Upcall, bool) {
	if q.size == 0 {
		return Upcall{}, false
	}
	u := q.buf[q.head]
	q.head = (q.head + 1) % UpcallQueueCapacity
	q.size--
	return u, true
}

// Len reports the number of pending upcalls.
func (q *UpcallQueue) Len() int { return q.size }

// Dropped reports the number of upcalls ever coalesced away by
// overwrite, for diagnostics.
func (q *UpcallQueue) Dropped() uint64 { return q.dropped }

// Clear empties the queue without affecting the Dropped counter (spec
// §4.2 Restart: pending upcalls are discarded).
func (q *UpcallQueue) Clear() {
	q.head, q.size = 0, 0
}

// UpcallTable tracks the currently subscribed callback per key,
// separately from the pending-delivery queue: Subscribe swaps the
// callback (returning the old one per TRD104), independent of whatever
// is already queued under that key.
type UpcallTable struct {
	subscriptions map[UpcallKey]UpcallFn
}

// NewUpcallTable creates an empty subscription table.
func NewUpcallTable() *UpcallTable {
	return &UpcallTable{subscriptions: make(map[UpcallKey]UpcallFn)}
}

// Subscribe installs fn for key, returning the previously subscribed
// callback (nil if none).
func (t *UpcallTable) Subscribe(key UpcallKey, fn UpcallFn) UpcallFn {
	prev := t.subscriptions[key]
	if fn == nil {
		delete(t.subscriptions, key)
	} else {
		t.subscriptions[key] = fn
	}
	return prev
}

// Lookup returns the callback currently subscribed for key, if any.
func (t *UpcallTable) Lookup(key UpcallKey) (UpcallFn, bool) {
	fn, ok := t.subscriptions[key]
	return fn, ok
}

// Clear removes every subscription (spec §4.2 Restart).
func (t *UpcallTable) Clear() {
	for k := range t.subscriptions {
		delete(t.subscriptions, k)
	}
}
