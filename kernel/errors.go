package kernel

import "errors"

// Standard kernel errors.
var (
	// ErrAlreadyRunning is returned when Run is called on a kernel that is already running.
	ErrAlreadyRunning = errors.New("kernel: already running")

	// ErrTerminated is returned when operations are attempted on a kernel that has fully stopped.
	ErrTerminated = errors.New("kernel: terminated")

	// ErrNotRunning names the "kernel not running" condition. No function
	// in this package currently returns it.
	ErrNotRunning = errors.New("kernel: not running")

	// ErrReentrantRun names the "Run called from the main loop" condition.
	// No function in this package currently returns it; any Run call made
	// while the kernel is running returns ErrAlreadyRunning.
	ErrReentrantRun = errors.New("kernel: cannot call Run from within the main loop")

	// ErrNoSuchProcess names an unknown or stale process slot/identifier.
	// No function in this package currently returns it.
	ErrNoSuchProcess = errors.New("kernel: no such process")

	// ErrOverloaded names deferred-call or interrupt draining exceeding its
	// per-tick budget. The kernel does not return it: overflow is logged
	// through the kernel's logger and the excess stays queued.
	ErrOverloaded = errors.New("kernel: deferred-call/interrupt budget exceeded")
)

// InvariantViolation is panicked (never returned) when a kernel invariant is
// broken by a bug rather than by untrusted process behavior — see spec §7
// "Kernel invariants ... trigger a panic that dumps process state and
// halts." Examples: MPU cannot be programmed for a region the kernel itself
// computed, the grant bump allocator underflows, an upcall function pointer
// lands outside the owning process's flash.
type InvariantViolation struct {
	Reason string
}

func (e InvariantViolation) Error() string {
	return "kernel invariant violated: " + e.Reason
}

// PanicInvariant panics with an InvariantViolation. Capsule and syscall code
// must never call this for conditions an untrusted process can trigger;
// those are ErrorCode returns or process faults instead.
func PanicInvariant(reason string) {
	panic(InvariantViolation{Reason: reason})
}
