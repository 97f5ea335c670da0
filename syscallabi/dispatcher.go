package syscallabi

import (
	"errors"

	"github.com/tock/tock-sub011/capsule"
	"github.com/tock/tock-sub011/mpu"
	"github.com/tock/tock-sub011/process"
)

// Memop operation numbers (spec §4.3's Memop class).
const (
	MemopBreak      = 0
	MemopSetBreak   = 1
	MemopFlashStart = 2
	MemopFlashEnd   = 3
	MemopRAMStart   = 4
	MemopRAMEnd     = 5
)

// Exit reason numbers (spec §4.3's Exit class).
const (
	ExitTerminate = 0
	ExitRestart   = 1
)

// Dispatcher routes a trapping driver number to the capsule.Driver
// registered for it and translates between the process model's Go-level
// types and the wire-level Return envelope (spec §4.3, §5: "the
// dispatcher consults a board-provided lookup table mapping driver
// numbers to capsules").
//
// Subscribe does not go through a Registers-encoded envelope the way
// Command/Allow/Memop do: TRD104's real ABI passes a code pointer and
// the kernel trusts user code not to hand it garbage, but this
// simulator represents upcalls as Go closures, which cannot be
// marshaled into a uint32 register. Subscribe is exposed as a
// dedicated method taking the callback directly instead of forcing an
// artificial pointer encoding on a value that was never going to cross
// a real wire here.
type Dispatcher struct {
	drivers map[uint32]capsule.Driver
	mpu     mpu.MPU
}

// NewDispatcher builds a Dispatcher checking buffer bounds through m (a
// mpu.NewSimMPU() if m is nil).
func NewDispatcher(m mpu.MPU) *Dispatcher {
	if m == nil {
		m = mpu.NewSimMPU()
	}
	return &Dispatcher{drivers: make(map[uint32]capsule.Driver), mpu: m}
}

// Register installs drv as the capsule handling driverNum.
func (d *Dispatcher) Register(driverNum uint32, drv capsule.Driver) {
	d.drivers[driverNum] = drv
}

// Command dispatches a Command-class trap.
func (d *Dispatcher) Command(proc *process.Record, driverNum, cmd, arg0, arg1 uint32) Return {
	drv, ok := d.drivers[driverNum]
	if !ok {
		return Failure(ErrNoDevice)
	}
	res := drv.Command(proc, cmd, arg0, arg1)
	if res.Err != nil {
		return Failure(errToCode(res.Err))
	}
	if res.Wide {
		return SuccessWithU32U32(res.Value, res.Value2)
	}
	return SuccessWithU32(res.Value)
}

// Subscribe dispatches a Subscribe-class trap, installing fn as the
// callback for (driverNum, subNum). TRD104 returns the old pointer;
// this simulator has nothing numeric to return in its place, so
// Subscribe reports only success/failure of the driver number lookup
// and discards the previous callback. Callers that need it can read it
// with process.UpcallTable.Lookup before subscribing.
func (d *Dispatcher) Subscribe(proc *process.Record, driverNum, subNum uint32, fn process.UpcallFn) Return {
	drv, ok := d.drivers[driverNum]
	if !ok {
		return Failure(ErrNoDevice)
	}
	proc.Upcalls().Subscribe(process.UpcallKey{Driver: driverNum, Subscribe: subNum}, fn)
	drv.Subscribe(proc, subNum, fn != nil)
	return Success()
}

// Allow dispatches a ReadWriteAllow- or ReadOnlyAllow-class trap: it
// validates the requested (ptr, length) range against the process's
// MPU configuration, installs the descriptor (or revokes one, if
// length is zero), and returns the previous (ptr, length) pair per
// TRD104's Allow semantics.
func (d *Dispatcher) Allow(proc *process.Record, driverNum, bufNum uint32, ptr uintptr, length uintptr, readOnly bool) Return {
	key := process.BufferKey{Driver: driverNum, Buffer: bufNum}
	perm := process.BufferReadWrite
	if readOnly {
		perm = process.BufferReadOnly
	}

	if length == 0 {
		prev := proc.Buffers().Allow(key, process.BufferDescriptor{})
		return SuccessWithU32U32(uint32(prev.Base), uint32(prev.Length))
	}

	mpuPerm := mpu.PermRead
	if !readOnly {
		mpuPerm |= mpu.PermWrite
	}
	if err := d.mpu.CheckAccess(proc.MPU, ptr, length, mpuPerm); err != nil {
		return FailureWithU32(ErrInvalid, uint32(ptr))
	}

	drv, ok := d.drivers[driverNum]
	if !ok {
		return Failure(ErrNoDevice)
	}

	desc := process.BufferDescriptor{Base: ptr, Length: length, Permission: perm, Epoch: proc.Epoch()}
	prev := proc.Buffers().Allow(key, desc)

	var hookErr error
	if readOnly {
		hookErr = drv.AllowReadOnly(proc, bufNum, desc)
	} else {
		hookErr = drv.AllowReadWrite(proc, bufNum, desc)
	}
	if hookErr != nil {
		proc.Buffers().Allow(key, prev)
		return Failure(errToCode(hookErr))
	}
	return SuccessWithU32U32(uint32(prev.Base), uint32(prev.Length))
}

// Yield delivers at most one pending upcall to proc, returning whether
// one was delivered (spec §4.3: "Yield-WaitFor/Yield-NoWait deliver at
// most one pending upcall per call").
func (d *Dispatcher) Yield(proc *process.Record) bool {
	u, ok := proc.Pending().Pop()
	if !ok {
		return false
	}
	if u.Fn != nil {
		u.Fn(u.Arg0, u.Arg1, u.Arg2, u.Appdata)
	}
	return true
}

// Memop dispatches a Memop-class trap.
func (d *Dispatcher) Memop(proc *process.Record, op uint32, arg uintptr) Return {
	switch op {
	case MemopBreak:
		return SuccessWithU32(uint32(proc.Layout.MemoryBreak))
	case MemopSetBreak:
		if arg > proc.Grants().Floor() || arg < proc.Layout.RAM.Base {
			return Failure(ErrInvalid)
		}
		proc.Layout.MemoryBreak = arg
		return Success()
	case MemopFlashStart:
		return SuccessWithU32(uint32(proc.Layout.Flash.Base))
	case MemopFlashEnd:
		return SuccessWithU32(uint32(proc.Layout.Flash.End()))
	case MemopRAMStart:
		return SuccessWithU32(uint32(proc.Layout.RAM.Base))
	case MemopRAMEnd:
		return SuccessWithU32(uint32(proc.Layout.RAM.End()))
	default:
		return Failure(ErrNoSupport)
	}
}

// Exit dispatches an Exit-class trap, terminating proc and optionally
// restarting it immediately.
func (d *Dispatcher) Exit(proc *process.Record, reason uint32) {
	proc.Exit(reason == ExitRestart)
}

// errToCode maps a capsule.Driver's sentinel (or process package)
// errors to TRD104's ErrorCode taxonomy.
func errToCode(err error) ErrorCode {
	switch {
	case errors.Is(err, capsule.ErrBusy):
		return ErrBusy
	case errors.Is(err, capsule.ErrInvalid):
		return ErrInvalid
	case errors.Is(err, capsule.ErrNoSupport):
		return ErrNoSupport
	case errors.Is(err, capsule.ErrOff):
		return ErrOff
	case errors.Is(err, capsule.ErrNoMem):
		return ErrNoMem
	case errors.Is(err, capsule.ErrAlready):
		return ErrAlready
	case errors.Is(err, process.ErrStaleDescriptor), errors.Is(err, process.ErrNoSuchBuffer):
		return ErrInvalid
	default:
		return ErrFail
	}
}
