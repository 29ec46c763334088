package serial

import (
	"bytes"
	"io"
)

// Buffer is an in-memory [Sink]. Output accumulates in a byte buffer and
// input is served from a queue filled with [Buffer.Feed]. It is the sink used
// throughout the kernel's tests.
type Buffer struct {
	out   bytes.Buffer
	input []byte
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Putc(c byte) {
	b.out.WriteByte(c)
}

func (b *Buffer) Puts(s string) {
	b.out.WriteString(s)
}

// Getc pops the next queued input byte. When the queue is empty, io.EOF is
// returned; a Buffer cannot block.
func (b *Buffer) Getc() (byte, error) {
	if len(b.input) == 0 {
		return 0, io.EOF
	}
	c := b.input[0]
	b.input = b.input[1:]
	return c, nil
}

func (b *Buffer) PutNum(n uint32) {
	b.out.WriteString(formatNum(n))
}

// Feed appends bytes to the input queue for later Getc calls.
func (b *Buffer) Feed(s string) {
	b.input = append(b.input, s...)
}

// String returns everything written to the buffer so far.
func (b *Buffer) String() string {
	return b.out.String()
}

// Reset clears accumulated output. Queued input is kept.
func (b *Buffer) Reset() {
	b.out.Reset()
}

// Discard is a [Sink] that drops all output and has no input. It is the
// default sink for components constructed without one.
type Discard struct{}

func (Discard) Putc(byte)     {}
func (Discard) Puts(string)   {}
func (Discard) PutNum(uint32) {}

func (Discard) Getc() (byte, error) {
	return 0, io.EOF
}
