// Package syscallabi defines the wire-level process/kernel calling
// convention (spec §4.3): syscall classes, the ErrorCode taxonomy, and
// the register-based call/return envelopes TRD104 specifies. The ABI
// types in this file depend on nothing but fmt; the Dispatcher and
// Runner in the same package bind them to the process, capsule and
// kernel packages.
package syscallabi

import "fmt"

// SyscallClass identifies which of the six syscall classes a trap is
// (spec §4.3).
type SyscallClass uint8

const (
	ClassYield SyscallClass = iota
	ClassSubscribe
	ClassCommand
	ClassReadWriteAllow
	ClassReadOnlyAllow
	ClassMemop
	ClassExit
)

func (c SyscallClass) String() string {
	switch c {
	case ClassYield:
		return "Yield"
	case ClassSubscribe:
		return "Subscribe"
	case ClassCommand:
		return "Command"
	case ClassReadWriteAllow:
		return "ReadWriteAllow"
	case ClassReadOnlyAllow:
		return "ReadOnlyAllow"
	case ClassMemop:
		return "Memop"
	case ClassExit:
		return "Exit"
	default:
		return fmt.Sprintf("SyscallClass(%d)", uint8(c))
	}
}

// ErrorCode is TRD104's wire-level failure taxonomy. Zero is reserved
// (a Failure return always carries a non-zero code).
type ErrorCode uint32

const (
	ErrFail ErrorCode = iota + 1
	ErrBusy
	ErrAlready
	ErrOff
	ErrReserve
	ErrInvalid
	ErrSize
	ErrCancel
	ErrNoMem
	ErrNoSupport
	ErrNoDevice
	ErrUninstall
	ErrNoAck
)

func (e ErrorCode) String() string {
	switch e {
	case ErrFail:
		return "FAIL"
	case ErrBusy:
		return "BUSY"
	case ErrAlready:
		return "ALREADY"
	case ErrOff:
		return "OFF"
	case ErrReserve:
		return "RESERVE"
	case ErrInvalid:
		return "INVAL"
	case ErrSize:
		return "SIZE"
	case ErrCancel:
		return "CANCEL"
	case ErrNoMem:
		return "NOMEM"
	case ErrNoSupport:
		return "NOSUPPORT"
	case ErrNoDevice:
		return "NODEVICE"
	case ErrUninstall:
		return "UNINSTALL"
	case ErrNoAck:
		return "NOACK"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint32(e))
	}
}

// Error implements the error interface so an ErrorCode can be returned
// and compared directly with errors.Is against the sentinels below.
func (e ErrorCode) Error() string { return "syscallabi: " + e.String() }

// Registers is the four general-purpose argument/return registers
// TRD104's calling convention passes a syscall in and its result back
// in (ARM's r0-r3, conceptually): on entry R0 carries the class-specific
// selector (driver number, etc.) and R1-R3 the arguments; on return R0
// carries the variant tag and R1-R3 the results (see Encode).
type Registers struct {
	R0, R1, R2, R3 uint32
}

// ReturnVariant is the tag TRD104 prefixes a syscall's return envelope
// with, distinguishing success/failure and how many result values
// follow.
type ReturnVariant uint8

const (
	VariantFailure ReturnVariant = iota
	VariantFailureU32
	VariantFailureU32U32
	VariantFailureU64
	VariantSuccess
	VariantSuccessU32
	VariantSuccessU32U32
	VariantSuccessU64
	VariantSuccessU32U32U32
	VariantSuccessU32U64
)

// Return is a decoded syscall return envelope.
type Return struct {
	Variant ReturnVariant
	Error   ErrorCode // valid only when Variant is one of the Failure* variants
	Values  [3]uint32 // interpretation depends on Variant
}

// Failure builds a single-code failure return envelope.
func Failure(code ErrorCode) Return {
	return Return{Variant: VariantFailure, Error: code}
}

// FailureWithU32 builds a failure return envelope carrying one extra
// value (used by e.g. ReadWriteAllow failures that still report the
// buffer that was rejected).
func FailureWithU32(code ErrorCode, v0 uint32) Return {
	return Return{Variant: VariantFailureU32, Error: code, Values: [3]uint32{v0}}
}

// Success builds a bare success return envelope.
func Success() Return {
	return Return{Variant: VariantSuccess}
}

// SuccessWithU32 builds a success return envelope carrying one value.
func SuccessWithU32(v0 uint32) Return {
	return Return{Variant: VariantSuccessU32, Values: [3]uint32{v0}}
}

// SuccessWithU32U32 builds a success return envelope carrying two
// values (e.g. the (pointer, length) pair Allow returns).
func SuccessWithU32U32(v0, v1 uint32) Return {
	return Return{Variant: VariantSuccessU32U32, Values: [3]uint32{v0, v1}}
}

// Encode packs a Return into the four-register envelope a process
// observes after a trap resumes: R0 carries the variant tag, R1 the
// error code or first value, R2/R3 further values depending on Variant.
func (r Return) Encode() Registers {
	switch r.Variant {
	case VariantFailure:
		return Registers{R0: uint32(r.Variant), R1: uint32(r.Error)}
	case VariantFailureU32:
		return Registers{R0: uint32(r.Variant), R1: uint32(r.Error), R2: r.Values[0]}
	case VariantFailureU32U32, VariantFailureU64:
		return Registers{R0: uint32(r.Variant), R1: uint32(r.Error), R2: r.Values[0], R3: r.Values[1]}
	case VariantSuccess:
		return Registers{R0: uint32(r.Variant)}
	case VariantSuccessU32:
		return Registers{R0: uint32(r.Variant), R1: r.Values[0]}
	case VariantSuccessU32U32, VariantSuccessU64:
		return Registers{R0: uint32(r.Variant), R1: r.Values[0], R2: r.Values[1]}
	case VariantSuccessU32U32U32, VariantSuccessU32U64:
		return Registers{R0: uint32(r.Variant), R1: r.Values[0], R2: r.Values[1], R3: r.Values[2]}
	default:
		return Registers{R0: uint32(VariantFailure), R1: uint32(ErrFail)}
	}
}

// Decode unpacks a Registers envelope produced by Encode back into a
// Return, for test code and the process console that want to inspect
// what a dispatch produced without re-deriving the switch above.
func Decode(regs Registers) Return {
	variant := ReturnVariant(regs.R0)
	switch variant {
	case VariantFailure:
		return Return{Variant: variant, Error: ErrorCode(regs.R1)}
	case VariantFailureU32:
		return Return{Variant: variant, Error: ErrorCode(regs.R1), Values: [3]uint32{regs.R2}}
	case VariantFailureU32U32, VariantFailureU64:
		return Return{Variant: variant, Error: ErrorCode(regs.R1), Values: [3]uint32{regs.R2, regs.R3}}
	case VariantSuccess:
		return Return{Variant: variant}
	case VariantSuccessU32:
		return Return{Variant: variant, Values: [3]uint32{regs.R1}}
	case VariantSuccessU32U32, VariantSuccessU64:
		return Return{Variant: variant, Values: [3]uint32{regs.R1, regs.R2}}
	case VariantSuccessU32U32U32, VariantSuccessU32U64:
		return Return{Variant: variant, Values: [3]uint32{regs.R1, regs.R2, regs.R3}}
	default:
		return Return{Variant: VariantFailure, Error: ErrFail}
	}
}
