package syscallabi

import (
	"testing"

	"github.com/tock/tock-sub011/capsule"
	"github.com/tock/tock-sub011/klog"
	"github.com/tock/tock-sub011/mpu"
	"github.com/tock/tock-sub011/process"
)

type echoDriver struct {
	capsule.BaseDriver
}

func (echoDriver) Command(proc *process.Record, cmd, arg0, arg1 uint32) capsule.CommandResult {
	if cmd == 99 {
		return capsule.Fail(capsule.ErrBusy)
	}
	return capsule.Ok(arg0 + arg1)
}

func newTestRecord() *process.Record {
	layout := process.Layout{
		Flash:       mpu.Region{Base: 0x08000000, Length: 0x4000, Permissions: mpu.PermRead | mpu.PermExecute},
		RAM:         mpu.Region{Base: 0x20000000, Length: 0x1000, Permissions: mpu.PermRead | mpu.PermWrite},
		MemoryBreak: 0x20000000 + 0x200,
	}
	return process.NewRecord(0, "test", layout, process.AlwaysRestart{}, klog.NoOp())
}

func TestDispatcherCommand(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(1, echoDriver{})
	proc := newTestRecord()

	ret := d.Command(proc, 1, 5, 10, 20)
	if ret.Variant != VariantSuccessU32 || ret.Values[0] != 30 {
		t.Fatalf("Command() = %+v, want success with 30", ret)
	}
}

func TestDispatcherCommandUnknownDriver(t *testing.T) {
	d := NewDispatcher(nil)
	proc := newTestRecord()
	ret := d.Command(proc, 99, 1, 0, 0)
	if ret.Variant != VariantFailure || ret.Error != ErrNoDevice {
		t.Fatalf("Command() = %+v, want Failure(ErrNoDevice)", ret)
	}
}

func TestDispatcherCommandPropagatesDriverError(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(1, echoDriver{})
	proc := newTestRecord()
	ret := d.Command(proc, 1, 99, 0, 0)
	if ret.Variant != VariantFailure || ret.Error != ErrBusy {
		t.Fatalf("Command() = %+v, want Failure(ErrBusy)", ret)
	}
}

func TestDispatcherAllowReadWriteRoundTrip(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(1, echoDriver{})
	proc := newTestRecord()

	ret := d.Allow(proc, 1, 0, proc.Layout.RAM.Base+0x10, 32, false)
	if ret.Variant != VariantSuccessU32U32 {
		t.Fatalf("Allow() = %+v, want success pair (previous buffer)", ret)
	}
	if ret.Values[0] != 0 || ret.Values[1] != 0 {
		t.Errorf("Allow() previous = %+v, want zero (no prior buffer)", ret.Values)
	}

	// Revoke with length 0; should return the just-installed descriptor.
	ret = d.Allow(proc, 1, 0, 0, 0, false)
	if ret.Values[0] != uint32(proc.Layout.RAM.Base+0x10) || ret.Values[1] != 32 {
		t.Errorf("Allow() revoke returned %+v, want previous descriptor", ret.Values)
	}
}

func TestDispatcherAllowRejectsOutOfBounds(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(1, echoDriver{})
	proc := newTestRecord()

	ret := d.Allow(proc, 1, 0, 0xDEADBEEF, 32, false)
	if ret.Variant != VariantFailureU32 || ret.Error != ErrInvalid {
		t.Fatalf("Allow() = %+v, want Failure(ErrInvalid)", ret)
	}
}

func TestDispatcherYieldDeliversOneUpcall(t *testing.T) {
	d := NewDispatcher(nil)
	proc := newTestRecord()

	delivered := false
	proc.Pending().Push(process.Upcall{
		Fn: func(a0, a1, a2, appdata uint32) { delivered = true },
	})

	if !d.Yield(proc) {
		t.Fatal("expected Yield to deliver the pending upcall")
	}
	if !delivered {
		t.Error("expected the upcall callback to have run")
	}
	if d.Yield(proc) {
		t.Error("expected a second Yield with nothing pending to return false")
	}
}

func TestDispatcherMemopBreak(t *testing.T) {
	d := NewDispatcher(nil)
	proc := newTestRecord()

	ret := d.Memop(proc, MemopBreak, 0)
	if ret.Values[0] != uint32(proc.Layout.MemoryBreak) {
		t.Fatalf("Memop(Break) = %+v, want current break", ret)
	}

	newBreak := proc.Layout.MemoryBreak + 0x10
	ret = d.Memop(proc, MemopSetBreak, newBreak)
	if ret.Variant != VariantSuccess {
		t.Fatalf("Memop(SetBreak) = %+v, want success", ret)
	}
	if proc.Layout.MemoryBreak != newBreak {
		t.Errorf("MemoryBreak = %#x, want %#x", proc.Layout.MemoryBreak, newBreak)
	}
}
