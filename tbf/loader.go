package tbf

import (
	"errors"
	"fmt"
)

// SlotError records why one flash slot failed to load, without aborting
// the scan of the rest of flash (spec §4.2).
type SlotError struct {
	// Offset is the byte offset into flash where this slot's header starts.
	Offset int
	Err    error
}

func (e SlotError) Error() string {
	return fmt.Sprintf("tbf: slot at offset 0x%x: %v", e.Offset, e.Err)
}

func (e SlotError) Unwrap() error { return e.Err }

// LoadResult is the outcome of scanning a flash region for process images.
type LoadResult struct {
	// Headers holds one parsed Header per successfully loaded slot, in
	// flash order.
	Headers []*Header
	// Offsets[i] is the flash offset Headers[i] was parsed from.
	Offsets []int
	// Errors accumulates every slot the scan could not load.
	Errors []SlotError
}

// ErrRAMExhausted is appended as a SlotError when a header is otherwise
// valid but ramAvailable is less than its declared minimum RAM size.
var ErrRAMExhausted = errors.New("tbf: insufficient RAM remaining in pool")

// ScanFlash walks flash starting at offset 0, parsing one TBF header per
// slot and advancing by that header's TotalSize, until it sees the
// end-of-list sentinel, an unparseable header, or runs out of bytes.
// ramAvailable is checked against each header's Main.MinimumRAMSize as a
// courtesy to callers that want the scan itself to reject slots that could
// never be carved from the pool; it does not actually reserve RAM — that
// is the loader's (process-table construction's) job once headers are
// known.
func ScanFlash(flash []byte, ramAvailable int) LoadResult {
	var result LoadResult

	offset := 0
	for offset < len(flash) {
		remaining := flash[offset:]
		h, err := ParseHeader(remaining)
		if err != nil {
			if errors.Is(err, ErrEndOfList) {
				break
			}
			result.Errors = append(result.Errors, SlotError{Offset: offset, Err: err})
			// A malformed header at this offset means we cannot trust
			// TotalSize to find the next slot boundary either; stop
			// scanning rather than guess.
			break
		}

		if h.Main != nil && int(h.Main.MinimumRAMSize) > ramAvailable {
			result.Errors = append(result.Errors, SlotError{Offset: offset, Err: fmt.Errorf("%w: wants %d, pool has %d", ErrRAMExhausted, h.Main.MinimumRAMSize, ramAvailable)})
		} else {
			result.Headers = append(result.Headers, h)
			result.Offsets = append(result.Offsets, offset)
		}

		if h.TotalSize == 0 {
			// Defensive: a zero TotalSize would loop forever advancing by 0.
			result.Errors = append(result.Errors, SlotError{Offset: offset, Err: errors.New("tbf: header declares zero total_size")})
			break
		}
		offset += int(h.TotalSize)
	}

	return result
}

// Count returns the number of successfully loaded headers.
func (r LoadResult) Count() int { return len(r.Headers) }
