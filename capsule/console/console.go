// Package console implements a reference console capsule: Command 1
// writes the process's currently Allow'd read-only buffer to an
// io.Writer (the simulated UART), synchronously, then queues the
// write-complete upcall (spec §5, §6 example driver).
package console

import (
	"io"

	"github.com/tock/tock-sub011/capsule"
	"github.com/tock/tock-sub011/process"
)

const (
	CmdExists = 0
	CmdWrite  = 1

	BufTX = 0 // ReadOnlyAllow buffer number for the transmit buffer

	SubWriteDone = 0
)

// Capsule is the console driver, writing to a shared sink. The sink is
// wrapped in a capsule.Mux so that only one process may hold the
// console line at a time: a second process's write while the first is
// in progress gets Busy rather than interleaving output, the same
// virtualization contract every shared-hardware capsule in this
// package gives its callers.
type Capsule struct {
	mux *capsule.Mux[io.Writer]

	// read is injected so tests and the simulator don't need a real
	// process address space: it returns a copy of length bytes starting
	// at base from proc's RAM, or an error if the range isn't backed.
	read func(proc *process.Record, base, length uintptr) ([]byte, error)

	// driverNumber is the number the board registered this capsule
	// under, needed to address a process's (driver, buffer)-keyed
	// tables; the board sets it via SetDriverNumber once known.
	driverNumber uint32
}

// New constructs a console capsule writing to sink. read abstracts
// "dereference this process's memory", since the simulator does not
// give every process a real flat address space to slice directly; the
// board wires a read function backed by whatever per-process memory
// representation it uses.
func New(sink io.Writer, read func(proc *process.Record, base, length uintptr) ([]byte, error)) *Capsule {
	return &Capsule{mux: capsule.NewMux[io.Writer](sink), read: read}
}

// Command implements capsule.Driver.
func (c *Capsule) Command(proc *process.Record, cmd uint32, arg0, arg1 uint32) capsule.CommandResult {
	switch cmd {
	case CmdExists:
		return capsule.Ok(0)
	case CmdWrite:
		if !c.mux.TryAcquire(proc.ID()) {
			return capsule.Fail(capsule.ErrBusy)
		}
		defer c.mux.Release(proc.ID())

		desc, err := proc.Buffers().Check(process.BufferKey{Driver: c.driverNumber, Buffer: BufTX}, proc.Epoch())
		if err != nil {
			return capsule.Fail(err)
		}
		data, err := c.read(proc, desc.Base, desc.Length)
		if err != nil {
			return capsule.Fail(err)
		}
		if _, werr := (*c.mux.Resource()).Write(data); werr != nil {
			return capsule.Fail(capsule.ErrFail)
		}
		if fn, ok := proc.Upcalls().Lookup(process.UpcallKey{Driver: c.driverNumber, Subscribe: SubWriteDone}); ok && fn != nil {
			proc.Pending().Push(process.Upcall{
				Key:  process.UpcallKey{Driver: c.driverNumber, Subscribe: SubWriteDone},
				Fn:   fn,
				Arg0: uint32(len(data)),
			})
		}
		return capsule.Ok(uint32(len(data)))
	default:
		return capsule.Fail(capsule.ErrNoSupport)
	}
}

// AllowReadWrite implements capsule.Driver; the console has no
// read-write buffers.
func (c *Capsule) AllowReadWrite(*process.Record, uint32, process.BufferDescriptor) error {
	return capsule.ErrNoSupport
}

// AllowReadOnly implements capsule.Driver.
func (c *Capsule) AllowReadOnly(*process.Record, uint32, process.BufferDescriptor) error {
	return nil
}

// Subscribe implements capsule.Driver.
func (c *Capsule) Subscribe(*process.Record, uint32, bool) {}

// SetDriverNumber records the driver number this capsule was registered
// under, so Command can address proc's (driver, buffer)-keyed tables.
func (c *Capsule) SetDriverNumber(n uint32) { c.driverNumber = n }
