package process

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// FaultAction is the decision a RestartPolicy renders after a process
// faults (spec §4.2).
type FaultAction uint8

const (
	// ActionRestart reloads the process fresh (RAM re-initialized, grants
	// dropped, upcalls cleared, generation incremented, role -> Unstarted).
	ActionRestart FaultAction = iota
	// ActionStop leaves the process in Faulted, which the scheduler never
	// selects; it will not run again without external intervention.
	ActionStop
	// ActionPanicBoard indicates the fault policy has given up on this
	// process entirely and the board should treat it as un-restartable
	// for the remainder of this boot.
	ActionPanicBoard
)

func (a FaultAction) String() string {
	switch a {
	case ActionRestart:
		return "Restart"
	case ActionStop:
		return "Stop"
	case ActionPanicBoard:
		return "PanicBoard"
	default:
		return "Unknown"
	}
}

// RestartPolicy decides what happens after a process faults. The
// default, RestartLimiter, restarts up to a bounded rate and gives up
// (ActionStop) once a process is faulting too quickly to be making
// useful progress — the same "don't let a tight failure loop consume
// unbounded resources" judgment catrate.Limiter exists to make, applied
// here to process restarts instead of outbound requests.
type RestartPolicy interface {
	// Decide is called once per fault, keyed by the process's stable
	// slot identity (restarts keep the slot, only the generation changes).
	Decide(slot uint8) FaultAction
}

// RestartLimiter restarts a faulted process up to a bounded rate within
// a sliding window, falling back to ActionStop once that rate is
// exceeded, so a process stuck in a fault-restart-fault cycle cannot
// monopolize the scheduler.
type RestartLimiter struct {
	limiter *catrate.Limiter
}

// NewRestartLimiter builds a RestartLimiter allowing at most maxRestarts
// restarts per window for any single process slot.
func NewRestartLimiter(window time.Duration, maxRestarts int) *RestartLimiter {
	return &RestartLimiter{
		limiter: catrate.NewLimiter(map[time.Duration]int{window: maxRestarts}),
	}
}

// Decide implements RestartPolicy.
func (r *RestartLimiter) Decide(slot uint8) FaultAction {
	if _, ok := r.limiter.Allow(slot); ok {
		return ActionRestart
	}
	return ActionStop
}

// AlwaysRestart is a RestartPolicy with no rate limit at all, useful in
// tests and for processes whose faults are known to be benign.
type AlwaysRestart struct{}

// Decide implements RestartPolicy.
func (AlwaysRestart) Decide(uint8) FaultAction { return ActionRestart }

// NeverRestart is a RestartPolicy that always stops a faulted process.
type NeverRestart struct{}

// Decide implements RestartPolicy.
func (NeverRestart) Decide(uint8) FaultAction { return ActionStop }
