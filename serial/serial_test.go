package serial

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestBufferOutput(t *testing.T) {
	b := NewBuffer()

	b.Puts("ticks=")
	b.PutNum(4294967295)
	b.Putc('\n')

	if b.String() != "ticks=4294967295\n" {
		t.Logf("buffer output was wrong. actual: %q", b.String())
		t.Fail()
	}

	b.Reset()
	if b.String() != "" {
		t.Logf("buffer was not cleared by reset. actual: %q", b.String())
		t.Fail()
	}
}

func TestBufferInput(t *testing.T) {
	b := NewBuffer()
	b.Feed("ab")

	c, err := b.Getc()
	if err != nil || c != 'a' {
		t.Logf("first byte was wrong. actual: %q, err: %v", c, err)
		t.Fail()
	}
	c, err = b.Getc()
	if err != nil || c != 'b' {
		t.Logf("second byte was wrong. actual: %q, err: %v", c, err)
		t.Fail()
	}

	if _, err = b.Getc(); err != io.EOF {
		t.Logf("expected EOF on drained input, got: %v", err)
		t.Fail()
	}
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(ConsoleConfig{
		In:  strings.NewReader("x"),
		Out: &out,
	})

	c.Puts("pid=")
	c.PutNum(7)
	c.Putc('\n')

	if out.String() != "pid=7\n" {
		t.Logf("console output was wrong. actual: %q", out.String())
		t.Fail()
	}

	b, err := c.Getc()
	if err != nil || b != 'x' {
		t.Logf("console input was wrong. actual: %q, err: %v", b, err)
		t.Fail()
	}
	if _, err := c.Getc(); err == nil {
		t.Logf("expected an error on exhausted console input")
		t.Fail()
	}
}

func TestDiscard(t *testing.T) {
	var d Discard

	d.Puts("dropped")
	d.Putc('x')
	d.PutNum(1)

	if _, err := d.Getc(); err == nil {
		t.Logf("expected an error reading from the discard sink")
		t.Fail()
	}
}
