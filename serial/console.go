package serial

import (
	"bufio"
	"io"
	"os"
)

// Console is a [Sink] backed by a reader and writer pair, typically stdin and
// stdout. Writes are flushed per call so interactive prompts appear
// immediately.
type Console struct {
	in  *bufio.Reader
	out *bufio.Writer
}

// ConsoleConfig can be used to redirect a console's streams. For any stream
// left nil, the process's standard streams are used.
type ConsoleConfig struct {
	In  io.Reader
	Out io.Writer
}

// NewConsole returns a configured Console. The config argument is optional;
// when omitted the console fronts stdin and stdout.
//
// The variadic nature of config is only present to make the argument
// optional. Do not pass multiple config arguments to this function. If you
// do, the last one passed will be used.
func NewConsole(config ...ConsoleConfig) *Console {
	var conf ConsoleConfig
	if len(config) > 0 {
		conf = config[len(config)-1]
	}
	if conf.In == nil {
		conf.In = os.Stdin
	}
	if conf.Out == nil {
		conf.Out = os.Stdout
	}
	return &Console{
		in:  bufio.NewReader(conf.In),
		out: bufio.NewWriter(conf.Out),
	}
}

func (c *Console) Putc(b byte) {
	c.out.WriteByte(b)
	c.out.Flush()
}

func (c *Console) Puts(s string) {
	c.out.WriteString(s)
	c.out.Flush()
}

func (c *Console) Getc() (byte, error) {
	return c.in.ReadByte()
}

func (c *Console) PutNum(n uint32) {
	c.Puts(formatNum(n))
}
