//go:build linux

package kernel

import "golang.org/x/sys/unix"

// createInterruptEventFD allocates a Linux eventfd used to mirror pending
// interrupts onto a real file descriptor, so a board embedding Kernel
// inside a larger poll/select loop (e.g. one also watching real UART/SPI
// host-side fds) can block on InjectInterrupt without a dedicated
// goroutine. It is this simulator's closest analogue to an NVIC pending
// bit: a word-sized counter the "interrupt controller" increments and the
// "core" can wait on.
func createInterruptEventFD() (int, error) {
	return unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
}

func signalInterruptEventFD(fd int) error {
	var buf [8]byte
	buf[7] = 1
	_, err := unix.Write(fd, buf[:])
	if err == unix.EAGAIN {
		// The write would push the counter past its maximum (2^64-2); it
		// is already non-zero, so the reader will observe it regardless,
		// same as a saturating pending bit.
		return nil
	}
	return err
}

func drainInterruptEventFD(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func closeInterruptEventFD(fd int) error {
	return unix.Close(fd)
}
