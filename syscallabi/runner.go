package syscallabi

import (
	"github.com/tock/tock-sub011/kernel"
	"github.com/tock/tock-sub011/process"
)

// Program models a process's compiled instruction stream as a single
// callback invoked once per scheduler dispatch: it performs whatever
// work and syscalls the process does (through dispatcher) until it
// next gives up the CPU, and reports why. This simulator has no
// byte-code interpreter standing in for a real instruction set — the
// behavior under test is the kernel's process model and syscall ABI,
// not an ISA, so a process's "program" is simply the Go closure
// supplied when it's loaded.
type Program func(dispatcher *Dispatcher, proc *process.Record) kernel.RunOutcome

// Runner adapts a process table plus a Dispatcher into a
// kernel.ProcessTable, so kernel.Kernel can drive process execution
// without ever importing the process package itself (spec's
// one-directional kernel -> process dependency goal).
type Runner struct {
	dispatcher *Dispatcher
	records    map[kernel.ProcessID]*process.Record
	programs   map[kernel.ProcessID]Program
	order      []kernel.ProcessID
}

// NewRunner builds a Runner dispatching syscalls through dispatcher.
func NewRunner(dispatcher *Dispatcher) *Runner {
	return &Runner{
		dispatcher: dispatcher,
		records:    make(map[kernel.ProcessID]*process.Record),
		programs:   make(map[kernel.ProcessID]Program),
	}
}

// Load registers rec with prog as its program under rec's current ID.
// Callers must re-Load after a restart changes rec's generation so the
// runner's bookkeeping stays keyed to the live ID.
func (r *Runner) Load(rec *process.Record, prog Program) {
	id := rec.ID()
	if _, exists := r.records[id]; !exists {
		r.order = append(r.order, id)
	}
	r.records[id] = rec
	r.programs[id] = prog
}

// Record returns the process.Record registered for id, if any.
func (r *Runner) Record(id kernel.ProcessID) (*process.Record, bool) {
	rec, ok := r.records[id]
	return rec, ok
}

// RunnableProcesses implements kernel.ProcessTable.
func (r *Runner) RunnableProcesses() []kernel.Runnable {
	var out []kernel.Runnable
	for _, id := range r.order {
		rec, ok := r.records[id]
		if !ok || rec.ID() != id {
			continue // stale entry: a restart rotated the generation
		}
		if rec.State().Runnable() {
			out = append(out, rec)
		}
	}
	return out
}

// RunProcess implements kernel.ProcessTable: it transfers rec to
// Running, invokes its Program, and normalizes whatever role the
// program left it in before returning the reported outcome.
// quantumTicks is not consulted: each call invokes the Program exactly
// once, and no scheduler timer preempts it.
func (r *Runner) RunProcess(id kernel.ProcessID, quantumTicks uint32) kernel.RunOutcome {
	rec, ok := r.records[id]
	if !ok || rec.ID() != id {
		return kernel.OutcomeFaulted
	}
	prog, ok := r.programs[id]
	if !ok {
		return kernel.OutcomeFaulted
	}

	switch rec.State() {
	case process.Yielded:
		rec.TryTransition(process.Yielded, process.Running)
	case process.StoppedRunning:
		rec.TryTransition(process.StoppedRunning, process.Running)
	case process.Unstarted:
		rec.TryTransition(process.Unstarted, process.Running)
	}

	outcome := prog(r.dispatcher, rec)

	if rec.State() == process.Running {
		// The program returned without transitioning out of Running: the
		// scheduler contract is that a dispatched process never remains
		// Running once RunProcess returns, so treat this as an implicit
		// cooperative yield.
		rec.ForceState(process.Yielded)
	}
	if outcome == kernel.OutcomeFaulted && rec.State() != process.Faulted {
		rec.Fault()
	}
	return outcome
}
