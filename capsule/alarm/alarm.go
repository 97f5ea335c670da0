// Package alarm implements a reference timer capsule: Command 1 reads
// the current tick count, Command 2 arms a one-shot alarm at an
// absolute tick, and Command 3 disarms it. Subscribe 0 registers the
// callback delivered when an armed alarm expires (spec §5, §6 example
// driver).
package alarm

import (
	"sync"

	"github.com/tock/tock-sub011/capsule"
	"github.com/tock/tock-sub011/kernel"
	"github.com/tock/tock-sub011/process"
)

const (
	CmdExists  = 0
	CmdNow     = 1
	CmdSetAt   = 2
	CmdDisarm  = 3
	SubExpired = 0
)

type armedAlarm struct {
	at     uint32
	armed  bool
}

// Capsule is the alarm driver. One Capsule instance is shared (via the
// dispatcher's driver-number table) across every process that opens it;
// per-process state lives in the alarms map, keyed by ProcessID, not in
// the process.Record itself, since the alarm capsule owns the
// scheduling policy for its own hardware.
type Capsule struct {
	capsule.BaseDriver

	mu     sync.Mutex
	ticks  uint32
	alarms map[kernel.ProcessID]*armedAlarm
}

// New constructs an alarm capsule with its tick counter at zero.
func New() *Capsule {
	return &Capsule{alarms: make(map[kernel.ProcessID]*armedAlarm)}
}

// Tick advances the capsule's notion of elapsed time by one and
// returns the set of processes whose armed alarm has just expired, for
// the board's timer interrupt handler to deliver upcalls to. The
// capsule disarms each expired alarm as it reports it — TRD104 alarms
// are one-shot until rearmed.
func (c *Capsule) Tick() []kernel.ProcessID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	var expired []kernel.ProcessID
	for id, a := range c.alarms {
		if a.armed && c.ticks >= a.at {
			a.armed = false
			expired = append(expired, id)
		}
	}
	return expired
}

// Now returns the capsule's current tick count.
func (c *Capsule) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Command implements capsule.Driver.
func (c *Capsule) Command(proc *process.Record, cmd uint32, arg0, arg1 uint32) capsule.CommandResult {
	switch cmd {
	case CmdExists:
		return capsule.Ok(0)
	case CmdNow:
		return capsule.Ok(c.Now())
	case CmdSetAt:
		c.mu.Lock()
		a, ok := c.alarms[proc.ID()]
		if !ok {
			a = &armedAlarm{}
			c.alarms[proc.ID()] = a
		}
		a.at = arg0
		a.armed = true
		c.mu.Unlock()
		return capsule.Ok(arg0)
	case CmdDisarm:
		c.mu.Lock()
		if a, ok := c.alarms[proc.ID()]; ok {
			a.armed = false
		}
		c.mu.Unlock()
		return capsule.Ok(0)
	default:
		return capsule.Fail(capsule.ErrNoSupport)
	}
}
