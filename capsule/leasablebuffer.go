package capsule

import "github.com/tock/tock-sub011/process"

// ErrBufferLeased is returned by Take when a sub-range is already out.
var ErrBufferLeased = errLeased

// ErrBufferNotLeased is returned by Return when nothing is currently leased.
var ErrBufferNotLeased = errNotLeased

var (
	errLeased    = &leaseError{"buffer already leased"}
	errNotLeased = &leaseError{"buffer not currently leased"}
)

type leaseError struct{ msg string }

func (e *leaseError) Error() string { return "capsule: " + e.msg }

// LeasableBuffer wraps an Allow'd buffer with the "take a sub-range,
// hand it to a peripheral driver, get it back" protocol capsules that
// do chunked DMA need (spec §5's leasable-buffer pattern): a UART
// capsule, for example, leases one DMA-sized chunk of a larger
// transmit buffer at a time rather than handing the whole buffer to
// hardware at once.
type LeasableBuffer struct {
	full           process.BufferDescriptor
	leased         bool
	offset, length uintptr
}

// NewLeasableBuffer wraps desc, initially with nothing leased.
func NewLeasableBuffer(desc process.BufferDescriptor) *LeasableBuffer {
	return &LeasableBuffer{full: desc}
}

// Take reserves [offset, offset+length) of the underlying buffer,
// failing if a range is already leased or the requested range falls
// outside the buffer's declared length.
func (b *LeasableBuffer) Take(offset, length uintptr) (process.BufferDescriptor, error) {
	if b.leased {
		return process.BufferDescriptor{}, ErrBufferLeased
	}
	if offset+length > b.full.Length || offset+length < offset {
		return process.BufferDescriptor{}, ErrInvalid
	}
	b.leased = true
	b.offset, b.length = offset, length
	return process.BufferDescriptor{
		Base:       b.full.Base + offset,
		Length:     length,
		Permission: b.full.Permission,
		Epoch:      b.full.Epoch,
	}, nil
}

// Return releases the current lease, making the full buffer available
// for a future Take.
func (b *LeasableBuffer) Return() error {
	if !b.leased {
		return ErrBufferNotLeased
	}
	b.leased = false
	return nil
}

// Leased reports whether a sub-range is currently taken.
func (b *LeasableBuffer) Leased() bool { return b.leased }

// Active returns the currently leased sub-range. Valid only while
// Leased reports true.
func (b *LeasableBuffer) Active() (offset, length uintptr) { return b.offset, b.length }
