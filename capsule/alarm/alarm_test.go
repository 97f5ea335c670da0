package alarm

import (
	"testing"

	"github.com/tock/tock-sub011/klog"
	"github.com/tock/tock-sub011/mpu"
	"github.com/tock/tock-sub011/process"
)

func newTestProc(slot uint8) *process.Record {
	layout := process.Layout{
		Flash:       mpu.Region{Base: 0x08000000, Length: 0x4000, Permissions: mpu.PermRead | mpu.PermExecute},
		RAM:         mpu.Region{Base: 0x20000000, Length: 0x1000, Permissions: mpu.PermRead | mpu.PermWrite},
		MemoryBreak: 0x20000000 + 0x200,
	}
	return process.NewRecord(slot, "timer-user", layout, process.AlwaysRestart{}, klog.NoOp())
}

func TestAlarmNowAdvancesWithTick(t *testing.T) {
	c := New()
	proc := newTestProc(0)

	if res := c.Command(proc, CmdNow, 0, 0); res.Value != 0 {
		t.Fatalf("CmdNow = %d, want 0", res.Value)
	}
	c.Tick()
	c.Tick()
	if res := c.Command(proc, CmdNow, 0, 0); res.Value != 2 {
		t.Fatalf("CmdNow = %d, want 2", res.Value)
	}
}

func TestAlarmFiresAtArmedTick(t *testing.T) {
	c := New()
	proc := newTestProc(0)

	c.Command(proc, CmdSetAt, 3, 0)

	for i := 0; i < 2; i++ {
		if expired := c.Tick(); len(expired) != 0 {
			t.Fatalf("tick %d: expired = %v, want none yet", i+1, expired)
		}
	}
	expired := c.Tick()
	if len(expired) != 1 || expired[0] != proc.ID() {
		t.Fatalf("expired = %v, want [%v]", expired, proc.ID())
	}
	// One-shot: should not fire again.
	if expired := c.Tick(); len(expired) != 0 {
		t.Fatalf("expired after firing = %v, want none (one-shot)", expired)
	}
}

func TestAlarmDisarm(t *testing.T) {
	c := New()
	proc := newTestProc(0)
	c.Command(proc, CmdSetAt, 1, 0)
	c.Command(proc, CmdDisarm, 0, 0)

	for i := 0; i < 5; i++ {
		if expired := c.Tick(); len(expired) != 0 {
			t.Fatalf("tick %d: expired = %v, want none after disarm", i+1, expired)
		}
	}
}
