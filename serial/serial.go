// serial is the kernel's byte-oriented I/O channel. Every human-readable line
// the kernel emits, and every byte the shell reads, goes through a [Sink].
// On real hardware this would be a UART; here the console implementation
// fronts stdin/stdout and the buffer implementation backs tests.
package serial

import (
	"strconv"
)

// Sink is the byte-level logging and input collaborator the kernel core
// writes to. Implementations must be usable from a single goroutine; the
// kernel serializes access itself.
type Sink interface {
	// Putc emits a single byte.
	Putc(c byte)
	// Puts emits a string, byte for byte.
	Puts(s string)
	// Getc reads one byte, blocking until one is available. An error is
	// returned when the underlying input is closed or exhausted.
	Getc() (byte, error)
	// PutNum emits the decimal rendering of an unsigned 32-bit integer.
	PutNum(n uint32)
}

// formatNum renders n in decimal. Shared by the Sink implementations so the
// rendering stays identical across them.
func formatNum(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}
