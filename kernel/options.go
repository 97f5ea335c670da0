package kernel

import "github.com/tock/tock-sub011/klog"

// config holds construction-time configuration for a Kernel.
type config struct {
	policy           Policy
	quantumTicks     uint32
	logger           klog.Logger
	deferredBudget   int
	interruptBudget  int
	useInterruptFD   bool
}

// Option configures a Kernel at construction time.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithPolicy selects the scheduler policy. Defaults to RoundRobin.
func WithPolicy(p Policy) Option {
	return optionFunc(func(c *config) error {
		c.policy = p
		return nil
	})
}

// WithQuantum sets the per-process scheduler-timer quantum, in ticks, of
// the default RoundRobin policy. A policy passed to WithPolicy keeps the
// quantum it was constructed with. A value of 0 means the policy's own
// default.
func WithQuantum(ticks uint32) Option {
	return optionFunc(func(c *config) error {
		c.quantumTicks = ticks
		return nil
	})
}

// WithLogger installs a klog.Logger used for this Kernel's own diagnostic
// output (overload signals, fault dispatch, restart throttling). Process
// and capsule logging is independent and goes through klog's package-level
// default unless a component is wired with its own logger explicitly.
func WithLogger(l klog.Logger) Option {
	return optionFunc(func(c *config) error {
		c.logger = l
		return nil
	})
}

// WithDeferredCallBudget caps how many deferred calls are drained per tick
// before the remainder are deferred to the next tick and the overflow is
// logged through the kernel's logger.
// Defaults to 64.
func WithDeferredCallBudget(n int) Option {
	return optionFunc(func(c *config) error {
		c.deferredBudget = n
		return nil
	})
}

// WithInterruptBudget caps how many pending interrupts are drained per tick.
// Defaults to 64. Interrupts beyond the budget remain pending and are
// serviced on the next tick — they are never lost (spec §8).
func WithInterruptBudget(n int) Option {
	return optionFunc(func(c *config) error {
		c.interruptBudget = n
		return nil
	})
}

// WithInterruptEventFD enables mirroring pending interrupts onto a real
// file descriptor (see InterruptFD), for boards that want to multiplex the
// kernel's wakeup into an external select/poll loop instead of blocking a
// dedicated goroutine on Run. Unsupported on non-Linux platforms; New
// returns an error in that case rather than silently ignoring the option.
func WithInterruptEventFD() Option {
	return optionFunc(func(c *config) error {
		c.useInterruptFD = true
		return nil
	})
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{
		logger:          klog.NoOp(),
		deferredBudget:  64,
		interruptBudget: 64,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o.apply(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.policy == nil {
		cfg.policy = NewRoundRobin(cfg.quantumTicks)
	}
	return cfg, nil
}
