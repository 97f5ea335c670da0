package kernel

// EventKind distinguishes the origin of an Event so the main loop can apply
// spec §4.1's ordering: interrupts drain before deferred calls, deferred
// calls drain before process selection.
type EventKind uint8

const (
	// EventInterrupt is a hardware interrupt made pending by InjectInterrupt.
	EventInterrupt EventKind = iota
	// EventDeferredCall is a capsule-requested "run me once, not
	// re-entrantly" callback (spec §4.5).
	EventDeferredCall
	// EventWake is an internal signal used only to break the idle wait; it
	// carries no payload and is never handed to a capsule.
	EventWake
)

func (k EventKind) String() string {
	switch k {
	case EventInterrupt:
		return "interrupt"
	case EventDeferredCall:
		return "deferred_call"
	case EventWake:
		return "wake"
	default:
		return "unknown"
	}
}

// Event is a unit of work queued for the main loop: either a hardware
// interrupt to decode and dispatch, or a deferred call a capsule asked to
// run outside its own call stack.
type Event struct {
	Kind EventKind

	// InterruptSource identifies the interrupt for EventInterrupt; board
	// wiring maps sources to handlers via RegisterInterruptHandler.
	InterruptSource InterruptSource

	// Deferred is the callback to invoke for EventDeferredCall. It must
	// never block and must not itself enqueue events synchronously into the
	// same frame — SubmitDeferredCall is the only re-entrant-safe path.
	Deferred func()
}

// InterruptSource identifies the origin of a hardware interrupt. Boards
// define their own small enumerations; the kernel only needs it as an
// opaque, comparable key to look up the registered handler.
type InterruptSource uint32

// InterruptHandler services a pending interrupt. It must return quickly —
// spec §4.1/§5: "their handlers are expected to set a pending flag and wake
// the main loop, not call capsule code directly" is the discipline boards
// must follow above this layer; the handler registered here is already the
// "bottom half" that runs on the kernel's single thread of execution.
type InterruptHandler func()
