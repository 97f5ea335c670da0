package kernel

import "sync/atomic"

// State is the run state of the kernel's main loop.
//
// State Machine:
//
//	StateAwake (0) → StateRunning (1)       [Run()]
//	StateRunning → StateSleeping            [idle: no interrupt/deferred-call/runnable process]
//	StateRunning → StateTerminating         [Shutdown()]
//	StateSleeping → StateRunning            [wake: interrupt, submit, or process becomes runnable]
//	StateSleeping → StateTerminating        [Shutdown()]
//	StateTerminating → StateTerminated      [drain complete]
//	StateTerminated → (terminal)
//
// Use TryTransition (CAS) for the reversible Running/Sleeping states. Use
// Store only for the one-way move into StateTerminated.
type State uint32

const (
	// StateAwake indicates the kernel has been constructed but Run has not been called.
	StateAwake State = iota
	// StateRunning indicates the main loop is actively dispatching interrupts,
	// deferred calls, or running a process.
	StateRunning
	// StateSleeping indicates the main loop is blocked in the idle wait
	// (the simulated chip "sleep until interrupt" primitive).
	StateSleeping
	// StateTerminating indicates Shutdown has been requested but draining is not complete.
	StateTerminating
	// StateTerminated indicates the kernel has fully stopped.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// atomicState is a lock-free CAS state machine, shared in shape with
// process.RunState: both model "which of a small fixed set of mutually
// exclusive states is this in, read/written from more than one calling
// context" (the kernel's own state is read from the interrupt-injection
// side; a process's RunState is read from fault-decode and console-inspect
// paths).
type atomicState struct {
	v atomic.Uint32
}

func newAtomicState(initial State) *atomicState {
	s := &atomicState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *atomicState) Load() State { return State(s.v.Load()) }

func (s *atomicState) Store(state State) { s.v.Store(uint32(state)) }

func (s *atomicState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
