package process

import (
	"time"

	"github.com/tock/tock-sub011/kernel"
	"github.com/tock/tock-sub011/klog"
	"github.com/tock/tock-sub011/mpu"
)

// Registers is the saved CPU context a process resumes into: general
// purpose registers plus stack/program counters. The simulator does not
// execute real machine code, so these are bookkeeping the process's
// Program callback may read or write to simulate a context switch, not
// values a real trap frame restores from.
type Registers struct {
	R       [8]uint32
	SP, PC  uint32
}

// Record is the kernel's per-process state: identity, role, memory
// layout, MPU configuration, grant/buffer/upcall tables, and restart
// policy (spec §3, §4.2).
type Record struct {
	id       kernel.ProcessID
	priority int
	name     string

	state *atomicRunState

	Layout    Layout
	MPU       *mpu.Config
	Registers Registers

	grants  *GrantAllocator
	buffers *BufferTable
	upcalls *UpcallTable
	pending *UpcallQueue

	restartPolicy RestartPolicy
	restartCount  int

	logger klog.Logger
}

// NewRecord constructs a freshly loaded, Unstarted process occupying
// slot with the given memory layout. name is cosmetic (process console
// display, log fields).
func NewRecord(slot uint8, name string, layout Layout, policy RestartPolicy, logger klog.Logger) *Record {
	if policy == nil {
		policy = NewRestartLimiter(10*time.Second, 3)
	}
	if logger == nil {
		logger = klog.NoOp()
	}
	bounds := layout.Bounds()
	cfg := mpu.NewConfig(bounds)
	registerInitialRegions(cfg, layout, logger, slot)
	return &Record{
		id:            kernel.ProcessID{Slot: slot, Generation: 1},
		name:          name,
		state:         newAtomicRunState(Unstarted),
		Layout:        layout,
		MPU:           cfg,
		grants:        NewGrantAllocator(layout.RAM.End()),
		buffers:       NewBufferTable(),
		upcalls:       NewUpcallTable(),
		pending:       NewUpcallQueue(logger),
		restartPolicy: policy,
		logger:        logger,
	}
}

// registerInitialRegions grants a freshly loaded process access to its own
// flash image and the user-RAM portion of its layout (RAM below the
// initial memory break), the two regions every process needs mapped
// before it can execute a single instruction. The grant area above the
// break is deliberately left unmapped here: it only becomes accessible
// to the process indirectly, through capsules operating on grants the
// process itself requested.
func registerInitialRegions(cfg *mpu.Config, layout Layout, logger klog.Logger, slot uint8) {
	m := mpu.NewSimMPU()
	if _, err := m.AllocateRegion(cfg, layout.Flash.Base, layout.Flash.Length, layout.Flash.Permissions); err != nil {
		logger.Log(klog.Entry{
			Level:   klog.LevelWarn,
			Message: "process: flash region rejected by MPU",
			Fields:  []klog.Field{klog.F("slot", slot), klog.F("error", err.Error())},
		})
	}
	if userRAMLen := layout.MemoryBreak - layout.RAM.Base; userRAMLen > 0 {
		if _, err := m.AllocateRegion(cfg, layout.RAM.Base, userRAMLen, layout.RAM.Permissions); err != nil {
			logger.Log(klog.Entry{
				Level:   klog.LevelWarn,
				Message: "process: RAM region rejected by MPU",
				Fields:  []klog.Field{klog.F("slot", slot), klog.F("error", err.Error())},
			})
		}
	}
}

// ID implements kernel.Runnable.
func (r *Record) ID() kernel.ProcessID { return r.id }

// StaticPriority implements kernel.Runnable.
func (r *Record) StaticPriority() int { return r.priority }

// SetStaticPriority sets the priority kernel.Priority consults.
func (r *Record) SetStaticPriority(p int) { r.priority = p }

// Name returns the process's cosmetic name.
func (r *Record) Name() string { return r.name }

// State returns the process's current role.
func (r *Record) State() RunState { return r.state.Load() }

// Epoch returns the process's current restart generation, matching
// r.ID().Generation and r.grants.Epoch(): all three are bumped together
// on restart.
func (r *Record) Epoch() uint32 { return r.id.Generation }

// Grants returns the process's grant allocator.
func (r *Record) Grants() *GrantAllocator { return r.grants }

// UserHeapFree reports how many bytes remain between the memory break
// and the lowest grant allocated so far.
func (r *Record) UserHeapFree() uintptr {
	floor := r.grants.Floor()
	if floor < r.Layout.MemoryBreak {
		return 0
	}
	return floor - r.Layout.MemoryBreak
}

// Buffers returns the process's outstanding-Allow table.
func (r *Record) Buffers() *BufferTable { return r.buffers }

// Upcalls returns the process's subscription table.
func (r *Record) Upcalls() *UpcallTable { return r.upcalls }

// Pending returns the process's fixed-capacity pending-upcall queue.
func (r *Record) Pending() *UpcallQueue { return r.pending }

// TryTransition attempts a role change, returning whether it succeeded.
func (r *Record) TryTransition(from, to RunState) bool {
	return r.state.TryTransition(from, to)
}

// ForceState unconditionally sets the role, for restart/fault handling
// where the prior state may be any of several values.
func (r *Record) ForceState(to RunState) { r.state.Store(to) }

// Fault handles a trapped process: consults the restart policy and
// either restarts the process in place or leaves it Faulted for
// inspection via the process console (spec §4.2, §7). Returns the
// action taken.
func (r *Record) Fault() FaultAction {
	r.state.Store(Faulted)
	action := r.restartPolicy.Decide(r.id.Slot)
	if action == ActionRestart {
		r.restart()
	}
	return action
}

// restart reinitializes the process in place: RAM above .data/.bss is
// conceptually re-initialized by the caller (the simulator does not
// model flash-to-RAM copy itself), grants are dropped, upcalls and
// pending deliveries are cleared, the memory break resets to its
// initial value, and the process identifier's generation rotates so
// every outstanding ProcessID, Grant, and BufferDescriptor referencing
// the old generation is immediately stale (spec §4.2 Restart).
func (r *Record) restart() {
	r.grants.Reset()
	r.buffers.Clear()
	r.upcalls.Clear()
	r.pending.Clear()
	r.id.Generation++
	r.restartCount++
	r.state.Store(Unstarted)
	r.logger.Log(klog.Entry{
		Level:   klog.LevelInfo,
		Message: "process restarted",
		Fields: []klog.Field{
			klog.F("slot", r.id.Slot),
			klog.F("generation", r.id.Generation),
			klog.F("restarts", r.restartCount),
		},
	})
}

// Exit transitions the process to Terminated (spec §4.3 Exit class:
// EXIT-TERMINATE leaves the slot eligible for reload; EXIT-RESTART asks
// the kernel to reload it immediately, modeled here by Exit itself
// calling restart when restartRequested is true, which leaves the
// process Unstarted under a new generation).
func (r *Record) Exit(restartRequested bool) {
	r.state.Store(Terminated)
	if restartRequested {
		r.restart()
	}
}
