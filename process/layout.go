package process

import "github.com/tock/tock-sub011/mpu"

// Layout is a process's memory geometry (spec §4.2): flash image,
// RAM pool slice, and the memory break dividing user-visible heap from
// the kernel-owned grant area that grows down from RAM's top.
//
//	[ app heap (grows up) | unallocated | grant area (grows down, kernel-only) ]
//	RAM.Base                                                         RAM.End()
//	              ^-- MemoryBreak --^
type Layout struct {
	Flash mpu.Region // read/execute
	RAM   mpu.Region // read/write(/execute-denied)

	// MemoryBreak separates user-visible RAM (below) from the grant area
	// (at or above). Starts just above .data/.bss at process creation.
	// The grant area's current high-water mark is tracked separately by
	// the process's GrantAllocator, not duplicated here.
	MemoryBreak uintptr
}

// Bounds returns the mpu.Bounds this layout implies, with no IPC window
// set; callers that need one set the returned value's IPCWindow field
// themselves.
func (l Layout) Bounds() mpu.Bounds {
	return mpu.Bounds{Flash: l.Flash, RAM: l.RAM, MemoryBreak: l.MemoryBreak}
}
