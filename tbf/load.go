package tbf

import (
	"errors"
	"fmt"

	"github.com/tock/tock-sub011/klog"
	"github.com/tock/tock-sub011/mpu"
	"github.com/tock/tock-sub011/process"
)

// ErrRAMPoolExhausted is appended as a SlotError when a header passed
// ScanFlash's per-header check but the RAM pool's running remainder
// (after earlier slots in the same Load call carved their own share)
// can no longer satisfy it.
var ErrRAMPoolExhausted = errors.New("tbf: RAM pool exhausted")

// ramAlignment is the granularity RAM regions are carved on, matching
// the common Cortex-M MPU subregion size.
const ramAlignment = 8

// LoadedProcess pairs a parsed header with the live process.Record the
// loader built from it.
type LoadedProcess struct {
	Header *Header
	Offset int
	Record *process.Record
}

// Load turns a ScanFlash result into live, Unstarted process.Records
// (spec §4.2's Loader contract): for each header, in flash order, it
// carves a RAM region of the header's declared MinimumRAMSize from
// ramPool, builds the process's flash/RAM/memory-break Layout, and
// constructs a process.Record via process.NewRecord — which itself
// registers the process's flash image and initial user RAM as
// MPU-accessible regions (mpu.AllocateRegion) and leaves the process in
// Unstarted, ready for the scheduler to pick up.
//
// flashBase is the address result's Offsets are relative to. A header
// whose RAM request the pool's remaining space can no longer satisfy is
// skipped and recorded as a SlotError rather than aborting the rest of
// the load, the same accumulate-and-continue discipline ScanFlash itself
// uses. policyFor, if non-nil, is consulted per process (by package
// name) to choose a restart policy; a nil return falls back to
// process.NewRecord's own default.
func Load(result LoadResult, flashBase uintptr, ramPool mpu.Region, policyFor func(name string) process.RestartPolicy, logger klog.Logger) ([]LoadedProcess, uintptr, []SlotError) {
	var (
		loaded []LoadedProcess
		errs   []SlotError
	)

	ramCursor := ramPool.Base
	ramEnd := ramPool.End()

	for i, h := range result.Headers {
		offset := result.Offsets[i]

		if h.Main == nil {
			errs = append(errs, SlotError{Offset: offset, Err: ErrNoMainTLV})
			continue
		}

		ramSize := (uintptr(h.Main.MinimumRAMSize) + ramAlignment - 1) &^ (ramAlignment - 1)
		if ramCursor+ramSize > ramEnd || ramCursor+ramSize < ramCursor {
			errs = append(errs, SlotError{
				Offset: offset,
				Err:    fmt.Errorf("%w: wants %d, pool has %d remaining", ErrRAMPoolExhausted, ramSize, ramEnd-ramCursor),
			})
			continue
		}

		ramRegion := mpu.Region{Base: ramCursor, Length: ramSize, Permissions: mpu.PermRead | mpu.PermWrite}
		ramCursor += ramSize

		flashRegion := mpu.Region{
			Base:        flashBase + uintptr(offset),
			Length:      uintptr(h.TotalSize),
			Permissions: mpu.PermRead | mpu.PermExecute,
		}

		name := h.PackageName
		if name == "" {
			name = fmt.Sprintf("slot@0x%x", offset)
		}

		var policy process.RestartPolicy
		if policyFor != nil {
			policy = policyFor(name)
		}

		layout := process.Layout{
			Flash: flashRegion,
			RAM:   ramRegion,
			// A freshly loaded process starts with half its carved RAM
			// available below the break for its own stack/heap, and
			// grows that upward via Memop-SetBreak as it needs more; the
			// other half is left for the kernel's grant allocations,
			// which grow down from the top of the region instead.
			MemoryBreak: ramRegion.Base + ramRegion.Length/2,
		}

		rec := process.NewRecord(uint8(len(loaded)), name, layout, policy, logger)
		loaded = append(loaded, LoadedProcess{Header: h, Offset: offset, Record: rec})
	}

	return loaded, ramEnd - ramCursor, errs
}
