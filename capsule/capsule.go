// Package capsule defines the driver-facing substrate untrusted
// processes' syscalls are routed into (spec §5): the Driver interface
// every capsule implements, plus the shared virtualizer (Mux),
// deferred-call, and leasable-buffer building blocks capsules compose
// from rather than reimplementing.
//
// Capsules are single-threaded and non-reentrant by construction here:
// nothing in this package spawns a goroutine on a capsule's behalf, and
// the dispatcher that calls into a Driver only ever does so from the
// scheduler's single run loop.
package capsule

import (
	"errors"

	"github.com/tock/tock-sub011/process"
)

// Sentinel errors a Driver's Command/Allow hooks return; the syscall
// dispatcher maps these to TRD104 ErrorCodes rather than capsules
// needing to depend on the ABI package directly.
var (
	ErrFail      = errors.New("capsule: generic failure")
	ErrBusy      = errors.New("capsule: busy")
	ErrInvalid   = errors.New("capsule: invalid argument")
	ErrNoSupport = errors.New("capsule: command not supported")
	ErrOff       = errors.New("capsule: device powered off")
	ErrNoMem     = errors.New("capsule: no memory")
	ErrAlready   = errors.New("capsule: already in the requested state")
)

// CommandResult is a Driver's Command outcome.
type CommandResult struct {
	Value, Value2 uint32
	Err           error
	Wide          bool // Value2 is meaningful only when Wide
}

// Ok builds a single-value success result.
func Ok(value uint32) CommandResult { return CommandResult{Value: value} }

// OkPair builds a two-value success result.
func OkPair(v0, v1 uint32) CommandResult { return CommandResult{Value: v0, Value2: v1, Wide: true} }

// Fail builds a failure result from a sentinel (or wrapped sentinel) error.
func Fail(err error) CommandResult { return CommandResult{Err: err} }

// Driver is a capsule's syscall-facing surface. The dispatcher routes a
// trapping driver number to the Driver registered for it and calls the
// method matching the trap's class.
type Driver interface {
	// Command executes command number cmd with the given arguments on
	// behalf of proc. Command 0 is reserved by convention for
	// "is this driver present", which every Driver should answer with Ok(0).
	Command(proc *process.Record, cmd uint32, arg0, arg1 uint32) CommandResult

	// AllowReadWrite is consulted after the dispatcher has already done
	// MPU bounds checking and installed desc in proc's buffer table; it
	// exists for capsule-specific admission policy (e.g. "reject a
	// second concurrent buffer"). Returning an error makes the dispatcher
	// restore the previous descriptor in the table and fail the Allow.
	AllowReadWrite(proc *process.Record, buf uint32, desc process.BufferDescriptor) error

	// AllowReadOnly is AllowReadWrite's read-only-buffer counterpart.
	AllowReadOnly(proc *process.Record, buf uint32, desc process.BufferDescriptor) error

	// Subscribe notifies the capsule that proc's subscription for
	// subscribe number sub changed; subscribed reports whether a
	// non-nil callback is now installed.
	Subscribe(proc *process.Record, sub uint32, subscribed bool)
}

// BaseDriver provides no-op implementations of AllowReadWrite,
// AllowReadOnly, and Subscribe so a capsule that only needs Command can
// embed BaseDriver instead of writing three empty methods — the same
// "embed a no-op base, override what you need" shape the teacher's
// interfaces favor over requiring every implementer to restate
// boilerplate.
type BaseDriver struct{}

func (BaseDriver) AllowReadWrite(*process.Record, uint32, process.BufferDescriptor) error { return nil }
func (BaseDriver) AllowReadOnly(*process.Record, uint32, process.BufferDescriptor) error   { return nil }
func (BaseDriver) Subscribe(*process.Record, uint32, bool)                                {}
