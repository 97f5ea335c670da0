package tbf

import (
	"testing"

	"github.com/tock/tock-sub011/klog"
	"github.com/tock/tock-sub011/mpu"
	"github.com/tock/tock-sub011/process"
)

// TestLoadTwoProcessesIntoRAMPool exercises end-to-end scenario 1: two
// TBF-packed processes (2 KiB and 4 KiB minimum RAM) loaded into a
// 16 KiB RAM pool both reach Unstarted with live process.Records, and
// the pool's remainder reflects both carves.
func TestLoadTwoProcessesIntoRAMPool(t *testing.T) {
	const poolSize = 16 * 1024

	var flash []byte
	flash = appendHeader(t, flash, 2048)
	flash = appendHeader(t, flash, 4096)

	result := ScanFlash(flash, poolSize)
	if result.Count() != 2 {
		t.Fatalf("ScanFlash Count() = %d, want 2; errors=%v", result.Count(), result.Errors)
	}

	ramPool := mpu.Region{Base: 0x20000000, Length: poolSize, Permissions: mpu.PermRead | mpu.PermWrite}
	loaded, remaining, errs := Load(result, 0x08000000, ramPool, nil, klog.NoOp())

	if len(errs) != 0 {
		t.Fatalf("Load() errors = %v, want none", errs)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load() loaded %d processes, want 2", len(loaded))
	}
	for i, lp := range loaded {
		if lp.Record.State() != process.Unstarted {
			t.Errorf("loaded[%d] state = %v, want Unstarted", i, lp.Record.State())
		}
	}

	// remaining pool >= 16 - 2 - 4 KiB minus whatever alignment overhead
	// Load's ramAlignment rounding added (both sizes are already
	// 8-byte aligned here, so there is none).
	wantMin := uintptr(poolSize - 2048 - 4096)
	if remaining < wantMin {
		t.Errorf("remaining pool = %d, want >= %d", remaining, wantMin)
	}

	// The two processes' carved RAM regions must not overlap.
	first, second := loaded[0].Record, loaded[1].Record
	if first.Layout.RAM.Overlaps(second.Layout.RAM) {
		t.Errorf("process RAM regions overlap: %+v vs %+v", first.Layout.RAM, second.Layout.RAM)
	}
}

// TestLoadSkipsSlotThatExhaustsRunningRAMRemainder verifies Load tracks
// a running RAM remainder across slots in one call (rather than
// checking each header against the pool's original size, as
// ScanFlash's own courtesy check does), and that a later slot failing
// to fit does not stop earlier slots from loading.
func TestLoadSkipsSlotThatExhaustsRunningRAMRemainder(t *testing.T) {
	var flash []byte
	flash = appendHeader(t, flash, 3072)
	flash = appendHeader(t, flash, 3072)

	// Individually both fit within 4096, but together they do not —
	// ScanFlash's per-header check (against the static pool size) would
	// admit both; Load must still catch the cumulative overrun.
	result := ScanFlash(flash, 4096)
	if result.Count() != 2 {
		t.Fatalf("ScanFlash Count() = %d, want 2; errors=%v", result.Count(), result.Errors)
	}

	ramPool := mpu.Region{Base: 0x20000000, Length: 4096, Permissions: mpu.PermRead | mpu.PermWrite}
	loaded, _, errs := Load(result, 0x08000000, ramPool, nil, klog.NoOp())

	if len(loaded) != 1 {
		t.Fatalf("Load() loaded %d processes, want 1", len(loaded))
	}
	if len(errs) != 1 {
		t.Fatalf("Load() errors = %v, want exactly one", errs)
	}
}
