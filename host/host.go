// The host package is responsible for gathering details about the machine
// the kernel simulation runs on. The CLI prints a host report ahead of the
// boot banner so logs can be tied back to the environment that produced
// them.
package host

import (
	"bytes"
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

const UnknownKey = "UNKNOWN"

// Report holds the details gathered about the host.
type Report struct {
	OS           string
	Kernel       string
	Architecture string
	CPUCount     int
}

// Reader defines the actions available for retrieving information about a
// host.
type Reader interface {
	// Describe retrieves the host report.
	Describe() (*Report, error)
}

// UnixReader is the uname-backed implementation of [Reader].
type UnixReader struct{}

func NewUnixReader() UnixReader {
	return UnixReader{}
}

// Describe calls the equivalent of uname to fill a [Report]. Fields that
// cannot be resolved are set to UnknownKey rather than failing the whole
// report.
func (r UnixReader) Describe() (*Report, error) {
	rep := &Report{
		OS:           UnknownKey,
		Kernel:       UnknownKey,
		Architecture: UnknownKey,
		CPUCount:     runtime.NumCPU(),
	}

	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return rep, fmt.Errorf("failed resolving host details via uname. Error was: %s", err)
	}

	rep.OS = utsString(utsname.Sysname[:])
	rep.Kernel = utsString(utsname.Release[:])
	rep.Architecture = utsString(utsname.Machine[:])

	return rep, nil
}

func (rep *Report) String() string {
	return fmt.Sprintf("host: %s %s (%s, %d cpus)",
		rep.OS, rep.Kernel, rep.Architecture, rep.CPUCount)
}

// utsString converts a fixed-size utsname field into a string, dropping the
// trailing NUL padding.
func utsString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if len(b) == 0 {
		return UnknownKey
	}
	return string(b)
}
