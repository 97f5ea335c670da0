// Package kernel implements the scheduler and main loop: interrupt
// dispatch, deferred-call draining, and cooperative process scheduling
// under a pluggable Policy, per the core's §4.1 state machine.
package kernel

import (
	"context"
	"fmt"
	"sync"
)

// RunOutcome is the reason a process returned control to the kernel.
type RunOutcome uint8

const (
	// OutcomeYielded means the process invoked the Yield syscall.
	OutcomeYielded RunOutcome = iota
	// OutcomeSyscall means the process made a syscall other than Yield and
	// the dispatcher chose to reschedule (spec §4.1 preemption cause (b)).
	OutcomeSyscall
	// OutcomeTimerPreempted means the scheduler timer fired.
	OutcomeTimerPreempted
	// OutcomeFaulted means the process faulted; it has already been moved
	// to process.Faulted and its restart policy applied by the table.
	OutcomeFaulted
	// OutcomeExited means the process called Exit and has been removed
	// from (or reset within) the process table.
	OutcomeExited
	// OutcomeStillRunnable means the process had no reason to return yet
	// but the caller's quantum budget requires checking again. The kernel
	// itself never produces it; syscallabi.Runner returns it only when a
	// Program reports it, since Runner passes the Program's outcome
	// through unchanged.
	OutcomeStillRunnable
)

// ProcessTable is the board-provided view of the loaded processes. The
// kernel package never imports the process package directly — Record
// satisfies Runnable and a thin table adapter satisfies ProcessTable —
// keeping the scheduler's dependency on the process model one-directional,
// per SPEC_FULL §4.1 ("kernel.Kernel is the single explicit value threaded
// through board composition ... no package globals").
type ProcessTable interface {
	// RunnableProcesses returns every process currently eligible to run
	// (role Unstarted, Yielded or StoppedRunning in process-model terms). The slice
	// order is stable across calls that don't change membership, since
	// RoundRobin and Cooperative rotate relative to it.
	RunnableProcesses() []Runnable

	// RunProcess transfers the CPU to id for up to quantumTicks (0 means
	// unbounded) and returns once the process yields, faults, exits, is
	// timer-preempted, or makes a rescheduling syscall.
	RunProcess(id ProcessID, quantumTicks uint32) RunOutcome
}

// Kernel is the scheduler and main loop. One value per board; it holds no
// package-level state.
type Kernel struct {
	cfg *config

	state *atomicState

	mu       sync.Mutex // guards events below; external synchronization, same discipline as eventloop.ChunkedIngress
	events   eventQueue
	handlers map[InterruptSource]InterruptHandler

	wake chan struct{} // idle-wait wakeup, standing in for WFI

	table ProcessTable

	overload    *overloadCoalescer
	interruptFD int // -1 unless WithInterruptEventFD was supplied

	runMu sync.Mutex

	done chan struct{}

	tickCount uint64
}

// New constructs a Kernel bound to table. table may be nil if the board
// only wants interrupt/deferred-call processing (e.g. a unit test of the
// event-draining path in isolation); in that case step 3 of the tick never
// finds a runnable process and the loop falls straight to idle.
func New(table ProcessTable, opts ...Option) (*Kernel, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		cfg:          cfg,
		state:        newAtomicState(StateAwake),
		handlers:     make(map[InterruptSource]InterruptHandler),
		wake:         make(chan struct{}, 1),
		table:        table,
		overload:     newOverloadCoalescer(cfg.logger),
		done:         make(chan struct{}),
		interruptFD:  -1,
	}
	if cfg.useInterruptFD {
		fd, err := createInterruptEventFD()
		if err != nil {
			return nil, fmt.Errorf("kernel: enabling interrupt eventfd: %w", err)
		}
		k.interruptFD = fd
	}
	return k, nil
}

// InterruptFD returns the eventfd mirroring pending interrupts, and true,
// if WithInterruptEventFD was supplied to New. Otherwise returns (-1,
// false).
func (k *Kernel) InterruptFD() (int, bool) {
	if k.interruptFD < 0 {
		return -1, false
	}
	return k.interruptFD, true
}

// Close releases background resources (the overload-notice coalescer and,
// if enabled, the interrupt eventfd). Call after Run has returned.
func (k *Kernel) Close() error {
	err := k.overload.Close()
	if k.interruptFD >= 0 {
		if cerr := closeInterruptEventFD(k.interruptFD); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// RegisterInterruptHandler installs the bottom-half handler for source.
// Must be called before Run; the handler table is not safe to mutate
// concurrently with dispatch.
func (k *Kernel) RegisterInterruptHandler(source InterruptSource, h InterruptHandler) {
	k.handlers[source] = h
}

// InjectInterrupt marks source pending and wakes the main loop if it is
// sleeping. Safe to call from any goroutine — this is the simulator's
// stand-in for a real NVIC pending-bit write, which can happen from an
// actual interrupt context at any time.
func (k *Kernel) InjectInterrupt(source InterruptSource) {
	k.mu.Lock()
	k.events.Push(Event{Kind: EventInterrupt, InterruptSource: source})
	k.mu.Unlock()
	if k.interruptFD >= 0 {
		_ = signalInterruptEventFD(k.interruptFD)
	}
	k.wakeup()
}

// SubmitDeferredCall enqueues fn to run once, outside the caller's current
// stack frame, before the kernel next returns to user space (spec §4.5).
// fn must not block.
func (k *Kernel) SubmitDeferredCall(fn func()) {
	k.mu.Lock()
	k.events.Push(Event{Kind: EventDeferredCall, Deferred: fn})
	k.mu.Unlock()
	k.wakeup()
}

func (k *Kernel) wakeup() {
	select {
	case k.wake <- struct{}{}:
	default:
	}
}

// State reports the kernel's current run state.
func (k *Kernel) State() State { return k.state.Load() }

// Run drives the main loop until ctx is cancelled or Shutdown completes.
// It blocks in the calling goroutine, so boards typically call it from
// their own dedicated goroutine.
func (k *Kernel) Run(ctx context.Context) error {
	k.runMu.Lock()
	if !k.state.TryTransition(StateAwake, StateRunning) {
		k.runMu.Unlock()
		switch k.state.Load() {
		case StateTerminated, StateTerminating:
			return ErrTerminated
		default:
			return ErrAlreadyRunning
		}
	}
	k.runMu.Unlock()

	defer close(k.done)

	for {
		select {
		case <-ctx.Done():
			k.state.Store(StateTerminated)
			return ctx.Err()
		default:
		}

		if k.state.Load() == StateTerminating {
			k.state.Store(StateTerminated)
			return nil
		}

		progressed := k.tick()
		k.tickCount++

		if !progressed {
			if !k.state.TryTransition(StateRunning, StateSleeping) {
				continue
			}
			select {
			case <-k.wake:
			case <-ctx.Done():
				k.state.Store(StateTerminated)
				return ctx.Err()
			}
			k.state.TryTransition(StateSleeping, StateRunning)
		}
	}
}

// Shutdown requests termination and blocks until the main loop observes it
// and returns from Run, or ctx expires first.
func (k *Kernel) Shutdown(ctx context.Context) error {
	for {
		cur := k.state.Load()
		if cur == StateTerminated {
			return nil
		}
		if cur == StateTerminating {
			break
		}
		if k.state.TryTransition(cur, StateTerminating) {
			k.wakeup()
			break
		}
	}
	select {
	case <-k.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick executes one pass of the §4.1 state machine and reports whether any
// work was done (an interrupt or deferred call drained, or a process ran).
// When it reports false, Run enters the idle wait.
func (k *Kernel) tick() bool {
	didWork := false

	if k.drainInterrupts() {
		didWork = true
	}
	if k.drainDeferredCalls() {
		didWork = true
	}

	if k.table != nil {
		if candidates := k.table.RunnableProcesses(); len(candidates) > 0 {
			id := k.cfg.policy.Select(candidates)
			quantum := k.cfg.policy.Quantum(id)
			k.cfg.policy.OnScheduled(id)
			k.table.RunProcess(id, quantum)
			didWork = true
		}
	}

	return didWork
}

// drainInterrupts services pending interrupts up to the configured budget,
// oldest first. Anything left over remains queued for the next tick — an
// interrupt is never dropped (spec §8: "An interrupt arriving during a
// system call is never lost").
func (k *Kernel) drainInterrupts() bool {
	if k.interruptFD >= 0 {
		_ = drainInterruptEventFD(k.interruptFD)
	}
	drained := false
	for i := 0; i < k.cfg.interruptBudget; i++ {
		k.mu.Lock()
		ev, ok := k.popKind(EventInterrupt)
		k.mu.Unlock()
		if !ok {
			break
		}
		h := k.handlers[ev.InterruptSource]
		if h != nil {
			h()
		}
		drained = true
	}
	if !drained {
		return false
	}
	if k.pendingCount(EventInterrupt) > 0 {
		k.overload.Notify(EventInterrupt)
	}
	return true
}

// drainDeferredCalls runs queued deferred calls up to the configured
// budget. Overflow is reported via the kernel's logger, never dropped.
func (k *Kernel) drainDeferredCalls() bool {
	drained := false
	for i := 0; i < k.cfg.deferredBudget; i++ {
		k.mu.Lock()
		ev, ok := k.popKind(EventDeferredCall)
		k.mu.Unlock()
		if !ok {
			break
		}
		ev.Deferred()
		drained = true
	}
	if !drained {
		return false
	}
	if k.pendingCount(EventDeferredCall) > 0 {
		k.overload.Notify(EventDeferredCall)
	}
	return true
}

// popKind pops the first queued event of the given kind, re-queuing any
// events of a different kind it has to skip past. The event queue is a
// single FIFO shared by interrupts and deferred calls; spec §4.1 only
// requires interrupts fully drain before deferred calls within one tick,
// not a strict single combined FIFO, so preserving relative order within
// each kind (not across kinds) satisfies the contract.
//
// mu must be held by the caller.
func (k *Kernel) popKind(kind EventKind) (Event, bool) {
	var deferredAside []Event
	for {
		ev, ok := k.events.Pop()
		if !ok {
			break
		}
		if ev.Kind == kind {
			for i := len(deferredAside) - 1; i >= 0; i-- {
				k.events.pushFront(deferredAside[i])
			}
			return ev, true
		}
		deferredAside = append(deferredAside, ev)
	}
	for i := len(deferredAside) - 1; i >= 0; i-- {
		k.events.pushFront(deferredAside[i])
	}
	return Event{}, false
}

// pendingCount reports how many queued events of the given kind remain.
// mu must be held by neither caller nor callee persistently; it is only
// used for a diagnostic log line so an approximate, briefly-locked count
// is acceptable.
func (k *Kernel) pendingCount(kind EventKind) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for c := k.events.head; c != nil; c = c.next {
		for i := c.readPos; i < c.pos; i++ {
			if c.events[i].Kind == kind {
				n++
			}
		}
	}
	return n
}
