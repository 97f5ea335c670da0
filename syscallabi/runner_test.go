package syscallabi

import (
	"testing"

	"github.com/tock/tock-sub011/kernel"
	"github.com/tock/tock-sub011/process"
)

func TestRunnerRunsUnstartedToYielded(t *testing.T) {
	d := NewDispatcher(nil)
	r := NewRunner(d)
	rec := newTestRecord()

	ran := false
	r.Load(rec, func(d *Dispatcher, p *process.Record) kernel.RunOutcome {
		ran = true
		return kernel.OutcomeYielded
	})

	outcome := r.RunProcess(rec.ID(), 10)
	if !ran {
		t.Fatal("expected program to run")
	}
	if outcome != kernel.OutcomeYielded {
		t.Fatalf("RunProcess() outcome = %v, want OutcomeYielded", outcome)
	}
	if rec.State() != process.Yielded {
		t.Fatalf("State() = %v, want Yielded", rec.State())
	}
}

func TestRunnerNormalizesImplicitYield(t *testing.T) {
	d := NewDispatcher(nil)
	r := NewRunner(d)
	rec := newTestRecord()

	r.Load(rec, func(d *Dispatcher, p *process.Record) kernel.RunOutcome {
		// Program forgets to leave Running; runner should normalize.
		return kernel.OutcomeStillRunnable
	})

	r.RunProcess(rec.ID(), 10)
	if rec.State() != process.Yielded {
		t.Fatalf("State() = %v, want Yielded after implicit-yield normalization", rec.State())
	}
}

func TestRunnerFaultsOnOutcomeFaulted(t *testing.T) {
	d := NewDispatcher(nil)
	r := NewRunner(d)
	rec := newTestRecord()
	rec.ForceState(process.Running)
	r.Load(rec, func(d *Dispatcher, p *process.Record) kernel.RunOutcome {
		return kernel.OutcomeFaulted
	})

	outcome := r.RunProcess(rec.ID(), 10)
	if outcome != kernel.OutcomeFaulted {
		t.Fatalf("RunProcess() outcome = %v, want OutcomeFaulted", outcome)
	}
	// AlwaysRestart policy means the process should be back to Unstarted.
	if rec.State() != process.Unstarted {
		t.Fatalf("State() after fault = %v, want Unstarted (restarted)", rec.State())
	}
}

func TestRunnerRunnableProcessesSkipsStale(t *testing.T) {
	d := NewDispatcher(nil)
	r := NewRunner(d)
	rec := newTestRecord()
	r.Load(rec, func(d *Dispatcher, p *process.Record) kernel.RunOutcome { return kernel.OutcomeYielded })

	rec.ForceState(process.Yielded)
	runnables := r.RunnableProcesses()
	if len(runnables) != 1 {
		t.Fatalf("RunnableProcesses() = %d, want 1", len(runnables))
	}

	// Simulate a restart rotating the generation without re-Load.
	rec.ForceState(process.Running)
	rec.Fault()
	runnables = r.RunnableProcesses()
	if len(runnables) != 0 {
		t.Fatalf("RunnableProcesses() after stale generation = %d, want 0", len(runnables))
	}
}
