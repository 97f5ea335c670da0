package kernel

// ProcessID is the stable-until-restart identifier for a loaded process: a
// fixed process-table slot plus a generation counter that rotates on every
// restart, invalidating outstanding references (spec §3, §4.2). It is a
// small, comparable value usable as a map key or embedded in an upcall
// descriptor — the reason spec.md rejects an opaque 128-bit identifier (see
// DESIGN.md).
type ProcessID struct {
	Slot       uint8
	Generation uint32
}

// Runnable is the minimal view of a process the scheduler needs. The
// process package's Record satisfies this without the kernel package
// importing process, keeping the dependency one-directional.
type Runnable interface {
	ID() ProcessID
	// StaticPriority is consulted only by Priority; other policies ignore it.
	StaticPriority() int
}

// Policy selects which runnable process receives the CPU next and whether
// that slice is bounded by a quantum. Spec §4.1: "Policies are pluggable
// (round-robin, priority, cooperative); the default is round-robin with
// per-process time quanta."
type Policy interface {
	// Select picks one of candidates to run next. candidates is never
	// empty when Select is called. Returns the chosen process's ID.
	Select(candidates []Runnable) ProcessID

	// Quantum returns the number of ticks the chosen process may run
	// before the scheduler timer preempts it. Zero means no quantum: the
	// process keeps the CPU until it yields, faults, or exits.
	Quantum(id ProcessID) uint32

	// OnScheduled is called once the chosen process has actually been
	// transferred to, so stateful policies (Priority's aging, RoundRobin's
	// rotation) can update their bookkeeping.
	OnScheduled(id ProcessID)
}

// RoundRobin is the default policy: it rotates through candidates in the
// order Select receives them, each for up to quantumTicks. A zero
// quantumTicks falls back to defaultQuantumTicks rather than becoming
// quantum-less, since an unbounded round-robin slice would defeat the
// "bounded CPU time" half of spec §4.1's contract.
type RoundRobin struct {
	quantumTicks uint32
	lastChosen   ProcessID
	haveLast     bool
}

const defaultQuantumTicks = 10

// NewRoundRobin constructs a RoundRobin policy with the given per-process
// quantum, in ticks. A quantumTicks of 0 selects defaultQuantumTicks.
func NewRoundRobin(quantumTicks uint32) *RoundRobin {
	if quantumTicks == 0 {
		quantumTicks = defaultQuantumTicks
	}
	return &RoundRobin{quantumTicks: quantumTicks}
}

func (p *RoundRobin) Select(candidates []Runnable) ProcessID {
	if !p.haveLast {
		return candidates[0].ID()
	}
	idx := indexOfID(candidates, p.lastChosen)
	if idx < 0 {
		return candidates[0].ID()
	}
	return candidates[(idx+1)%len(candidates)].ID()
}

func (p *RoundRobin) Quantum(ProcessID) uint32 { return p.quantumTicks }

func (p *RoundRobin) OnScheduled(id ProcessID) {
	p.lastChosen = id
	p.haveLast = true
}

func indexOfID(candidates []Runnable, id ProcessID) int {
	for i, c := range candidates {
		if c.ID() == id {
			return i
		}
	}
	return -1
}

// Priority picks the candidate with the numerically highest StaticPriority,
// breaking ties by insertion order, and ages waiting processes so a
// persistently busy high-priority process cannot starve lower ones
// indefinitely: every tick a candidate is passed over, its effective
// priority is bumped by one until it is chosen, at which point the bump
// resets to zero.
type Priority struct {
	quantumTicks uint32
	aging        map[ProcessID]int
}

// NewPriority constructs a Priority policy with the given per-process
// quantum, in ticks. A quantumTicks of 0 selects defaultQuantumTicks.
func NewPriority(quantumTicks uint32) *Priority {
	if quantumTicks == 0 {
		quantumTicks = defaultQuantumTicks
	}
	return &Priority{quantumTicks: quantumTicks, aging: make(map[ProcessID]int)}
}

func (p *Priority) Select(candidates []Runnable) ProcessID {
	best := 0
	bestEff := candidates[0].StaticPriority() + p.aging[candidates[0].ID()]
	for i := 1; i < len(candidates); i++ {
		eff := candidates[i].StaticPriority() + p.aging[candidates[i].ID()]
		if eff > bestEff {
			best = i
			bestEff = eff
		}
	}
	for i, c := range candidates {
		if i == best {
			continue
		}
		p.aging[c.ID()]++
	}
	return candidates[best].ID()
}

func (p *Priority) Quantum(ProcessID) uint32 { return p.quantumTicks }

func (p *Priority) OnScheduled(id ProcessID) {
	delete(p.aging, id)
}

// Cooperative never preempts via quantum: a process keeps the CPU until it
// yields, faults, or exits (spec §4.1's third preemption cause, (c), simply
// never fires under this policy). Selection order is FIFO over candidates.
type Cooperative struct {
	lastChosen ProcessID
	haveLast   bool
}

// NewCooperative constructs a Cooperative policy.
func NewCooperative() *Cooperative { return &Cooperative{} }

func (p *Cooperative) Select(candidates []Runnable) ProcessID {
	if !p.haveLast {
		return candidates[0].ID()
	}
	idx := indexOfID(candidates, p.lastChosen)
	if idx < 0 {
		return candidates[0].ID()
	}
	return candidates[(idx+1)%len(candidates)].ID()
}

func (p *Cooperative) Quantum(ProcessID) uint32 { return 0 }

func (p *Cooperative) OnScheduled(id ProcessID) {
	p.lastChosen = id
	p.haveLast = true
}
