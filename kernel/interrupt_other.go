//go:build !linux

package kernel

import "errors"

// errInterruptEventFDUnsupported is returned by WithInterruptEventFD on
// platforms without an eventfd-equivalent wired up. The channel-based
// wakeup path (always available) is unaffected.
var errInterruptEventFDUnsupported = errors.New("kernel: interrupt eventfd not supported on this platform")

func createInterruptEventFD() (int, error) { return -1, errInterruptEventFDUnsupported }

func signalInterruptEventFD(int) error { return errInterruptEventFDUnsupported }

func drainInterruptEventFD(int) error { return errInterruptEventFDUnsupported }

func closeInterruptEventFD(int) error { return errInterruptEventFDUnsupported }
