package host

import (
	"runtime"
	"testing"
)

func TestDescribe(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skipf("uname is not available on %s", runtime.GOOS)
	}

	rep, err := NewUnixReader().Describe()
	if err != nil {
		t.Fatalf("failed describing host: %s", err)
	}

	if rep.OS == UnknownKey || rep.OS == "" {
		t.Logf("host OS was not resolved. actual: %q", rep.OS)
		t.Fail()
	}
	if rep.Architecture == UnknownKey || rep.Architecture == "" {
		t.Logf("host architecture was not resolved. actual: %q", rep.Architecture)
		t.Fail()
	}
	if rep.CPUCount < 1 {
		t.Logf("CPU count was wrong. actual: %d", rep.CPUCount)
		t.Fail()
	}
}

func TestUtsString(t *testing.T) {
	in := make([]byte, 65)
	copy(in, "Linux")

	if got := utsString(in); got != "Linux" {
		t.Logf("NUL padding was not dropped. actual: %q", got)
		t.Fail()
	}
	if got := utsString(make([]byte, 65)); got != UnknownKey {
		t.Logf("empty field did not map to the unknown key. actual: %q", got)
		t.Fail()
	}
}
