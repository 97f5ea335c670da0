package process

import "errors"

// BufferPermission is the access a process granted the kernel over an
// Allow'd buffer (spec §4.4): read-write buffers back ReadWriteAllow,
// read-only buffers back ReadOnlyAllow.
type BufferPermission uint8

const (
	BufferReadWrite BufferPermission = iota
	BufferReadOnly
)

// BufferKey identifies one Allow slot: a (driver number, buffer number)
// pair, scoped per-process.
type BufferKey struct {
	Driver uint32
	Buffer uint32
}

// BufferDescriptor is the kernel's record of one Allow'd region: the
// address range a capsule may touch, stamped with the process epoch it
// was issued under. A capsule must check Epoch against the process's
// current epoch before every access — not just at Allow time — because
// a restart between the Allow and the access revokes it (spec §4.4,
// §8: "a stale descriptor must be rejected").
type BufferDescriptor struct {
	Base       uintptr
	Length     uintptr
	Permission BufferPermission
	Epoch      uint32
}

// Empty reports whether this descriptor represents the null buffer
// (Allow(NULL, 0)), the default and the value that revokes a prior Allow.
func (d BufferDescriptor) Empty() bool { return d.Length == 0 }

// ErrStaleDescriptor is returned by BufferTable.Check when a descriptor's
// epoch no longer matches the process's current one.
var ErrStaleDescriptor = errors.New("process: buffer descriptor is stale")

// ErrNoSuchBuffer is returned when a capsule looks up a buffer key the
// process has never Allow'd.
var ErrNoSuchBuffer = errors.New("process: no such allowed buffer")

// BufferTable holds every outstanding Allow for a process, keyed by
// (driver, buffer). Swapping in a new descriptor for a key is exactly
// TRD104's Allow semantics: the syscall returns the previous (pointer,
// length) pair.
type BufferTable struct {
	entries map[BufferKey]BufferDescriptor
}

// NewBufferTable creates an empty buffer table.
func NewBufferTable() *BufferTable {
	return &BufferTable{entries: make(map[BufferKey]BufferDescriptor)}
}

// Allow installs descriptor for key, returning whatever descriptor
// previously occupied that slot (the zero value if none).
func (t *BufferTable) Allow(key BufferKey, descriptor BufferDescriptor) BufferDescriptor {
	prev := t.entries[key]
	if descriptor.Empty() {
		delete(t.entries, key)
	} else {
		t.entries[key] = descriptor
	}
	return prev
}

// Check looks up key and validates it against the process's current
// epoch, returning ErrNoSuchBuffer or ErrStaleDescriptor as appropriate.
// Capsules must call this immediately before every access, not cache
// the result across scheduler ticks.
func (t *BufferTable) Check(key BufferKey, currentEpoch uint32) (BufferDescriptor, error) {
	d, ok := t.entries[key]
	if !ok {
		return BufferDescriptor{}, ErrNoSuchBuffer
	}
	if d.Epoch != currentEpoch {
		return BufferDescriptor{}, ErrStaleDescriptor
	}
	return d, nil
}

// Clear drops every entry (spec §4.2 Restart: Allow'd buffers revert to
// unallowed). Called alongside GrantAllocator.Reset.
func (t *BufferTable) Clear() {
	for k := range t.entries {
		delete(t.entries, k)
	}
}

// Len reports the number of outstanding Allow'd buffers.
func (t *BufferTable) Len() int { return len(t.entries) }
