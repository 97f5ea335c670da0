// Package process implements the per-process record, memory layout,
// grant allocator, buffer/upcall descriptors, and restart policy of the
// core's process model (spec §3, §4.2).
package process

import "sync/atomic"

// RunState is a process's role in the scheduler's state machine (spec
// §3): {Unstarted, Running, Yielded, StoppedYielded, StoppedRunning,
// Faulted, Terminated}.
type RunState uint32

const (
	// Unstarted means the process has been loaded but never run.
	Unstarted RunState = iota
	// Running means the process currently holds the CPU.
	Running
	// Yielded means the process called Yield and is eligible to be
	// scheduled again once an upcall is ready (or immediately, for
	// no-wait Yield).
	Yielded
	// StoppedYielded means the process was stopped (by a capsule or
	// kernel request) while in Yielded; it will not run again until
	// explicitly resumed.
	StoppedYielded
	// StoppedRunning means the process was stopped while Running.
	StoppedRunning
	// Faulted means the process trapped (bus/usage fault, MPU violation)
	// and its restart policy has been consulted.
	Faulted
	// Terminated means the process exited and its slot may be reused.
	Terminated
)

func (s RunState) String() string {
	switch s {
	case Unstarted:
		return "Unstarted"
	case Running:
		return "Running"
	case Yielded:
		return "Yielded"
	case StoppedYielded:
		return "StoppedYielded"
	case StoppedRunning:
		return "StoppedRunning"
	case Faulted:
		return "Faulted"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Runnable reports whether a process in this state is eligible for the
// scheduler to select (spec §4.1 step 3: "if at least one process is
// runnable"). A freshly loaded or restarted (Unstarted) process counts.
func (s RunState) Runnable() bool {
	return s == Unstarted || s == Yielded || s == StoppedRunning
}

// atomicRunState is a lock-free CAS wrapper, the same shape as
// kernel.atomicState: both are "which of a small fixed set of mutually
// exclusive states is this in, read and written from more than one
// calling context" problems (here: the scheduler's dispatch path and the
// process console's inspection path).
type atomicRunState struct {
	v atomic.Uint32
}

func newAtomicRunState(initial RunState) *atomicRunState {
	s := &atomicRunState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *atomicRunState) Load() RunState { return RunState(s.v.Load()) }

func (s *atomicRunState) Store(state RunState) { s.v.Store(uint32(state)) }

func (s *atomicRunState) TryTransition(from, to RunState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
