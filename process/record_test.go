package process

import (
	"testing"

	"github.com/tock/tock-sub011/klog"
	"github.com/tock/tock-sub011/mpu"
)

func testLayout() Layout {
	return Layout{
		Flash:       mpu.Region{Base: 0x08000000, Length: 0x4000, Permissions: mpu.PermRead | mpu.PermExecute},
		RAM:         mpu.Region{Base: 0x20000000, Length: 0x1000, Permissions: mpu.PermRead | mpu.PermWrite},
		MemoryBreak: 0x20000000 + 0x200,
	}
}

func TestRecordInitialState(t *testing.T) {
	r := NewRecord(0, "blink", testLayout(), AlwaysRestart{}, klog.NoOp())
	if r.State() != Unstarted {
		t.Fatalf("State() = %v, want Unstarted", r.State())
	}
	if r.ID().Slot != 0 || r.ID().Generation != 1 {
		t.Fatalf("ID() = %+v, want slot 0 generation 1", r.ID())
	}
}

func TestRecordFaultRestartsAndRotatesGeneration(t *testing.T) {
	r := NewRecord(2, "led", testLayout(), AlwaysRestart{}, klog.NoOp())
	r.ForceState(Running)

	if _, err := r.Grants().Allocate(16, 4, r.Layout.MemoryBreak); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	r.Buffers().Allow(BufferKey{Driver: 1, Buffer: 0}, BufferDescriptor{Base: 1, Length: 1, Epoch: r.Epoch()})

	gen := r.ID().Generation
	action := r.Fault()
	if action != ActionRestart {
		t.Fatalf("Fault() action = %v, want ActionRestart", action)
	}
	if r.State() != Unstarted {
		t.Fatalf("State() after restart = %v, want Unstarted", r.State())
	}
	if r.ID().Generation != gen+1 {
		t.Fatalf("Generation = %d, want %d", r.ID().Generation, gen+1)
	}
	if r.Buffers().Len() != 0 {
		t.Errorf("Buffers().Len() after restart = %d, want 0", r.Buffers().Len())
	}
	if r.Grants().Count() != 0 {
		t.Errorf("Grants().Count() after restart = %d, want 0", r.Grants().Count())
	}
}

func TestRecordFaultStopsWhenPolicyDeclines(t *testing.T) {
	r := NewRecord(1, "greedy", testLayout(), NeverRestart{}, klog.NoOp())
	r.ForceState(Running)

	action := r.Fault()
	if action != ActionStop {
		t.Fatalf("Fault() action = %v, want ActionStop", action)
	}
	if r.State() != Faulted {
		t.Fatalf("State() = %v, want Faulted (left for process console inspection)", r.State())
	}
}

func TestRecordExitTerminatesOrRestarts(t *testing.T) {
	r := NewRecord(0, "oneshot", testLayout(), AlwaysRestart{}, klog.NoOp())
	r.ForceState(Running)

	r.Exit(false)
	if r.State() != Terminated {
		t.Fatalf("State() after Exit(false) = %v, want Terminated", r.State())
	}

	r2 := NewRecord(0, "respawn", testLayout(), AlwaysRestart{}, klog.NoOp())
	r2.ForceState(Running)
	gen := r2.ID().Generation
	r2.Exit(true)
	if r2.State() != Unstarted {
		t.Fatalf("State() after Exit(true) = %v, want Unstarted", r2.State())
	}
	if r2.ID().Generation != gen+1 {
		t.Fatalf("Generation after Exit(true) = %d, want %d", r2.ID().Generation, gen+1)
	}
}
