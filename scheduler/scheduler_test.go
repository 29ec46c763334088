package scheduler

import (
	"testing"

	"github.com/kacchios/kacchi/mem"
	"github.com/kacchios/kacchi/process"
)

func newTestScheduler() (*Scheduler, *process.Table, *CPU) {
	m := mem.NewManager(mem.ManagerConfig{})
	t := process.NewTable(process.TableConfig{Memory: m})
	cpu := NewCPU(m)
	s := New(Config{Table: t, CPU: cpu})
	return s, t, cpu
}

func idle() {}

func TestNextPicksHighestPriority(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	if _, err := tbl.Create(idle, 10); err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	want, err := tbl.Create(idle, 3)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	if _, err := tbl.Create(idle, 7); err != nil {
		t.Fatalf("failed creating process: %s", err)
	}

	next := s.Next()
	if next == nil {
		t.Fatalf("failed selecting a ready process")
	}
	if next.PID != want {
		t.Logf("selection was wrong. expected PID: %d, actual: %d", want, next.PID)
		t.Fail()
	}
}

func TestNextTieBreaksByTableOrder(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	first, err := tbl.Create(idle, 5)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	if _, err := tbl.Create(idle, 5); err != nil {
		t.Fatalf("failed creating process: %s", err)
	}

	next := s.Next()
	if next == nil || next.PID != first {
		t.Logf("tie break was wrong. expected PID: %d", first)
		t.Fail()
	}
}

func TestNextWithNothingReady(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	if s.Next() != nil {
		t.Logf("selection on an empty table was not nil")
		t.Fail()
	}

	pid, err := tbl.Create(idle, 5)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	tbl.SetState(pid, process.Blocked)

	if s.Next() != nil {
		t.Logf("selection with only blocked processes was not nil")
		t.Fail()
	}
}

func TestFirstDispatch(t *testing.T) {
	s, tbl, cpu := newTestScheduler()

	pid, err := tbl.Create(idle, 5)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}

	s.ContextSwitch()

	p := tbl.Get(pid)
	if tbl.Current() != p {
		t.Fatalf("dispatched process is not current")
	}
	if p.State != process.Running {
		t.Logf("dispatched process state was wrong. expected: %s, actual: %s", process.Running, p.State)
		t.Fail()
	}
	if s.Switches() != 1 {
		t.Logf("switch count was wrong. expected: %d, actual: %d", 1, s.Switches())
		t.Fail()
	}

	// restoring a freshly primed frame consumes all eight slots and
	// leaves the resume target in PC
	if cpu.SP != p.StackBase {
		t.Logf("stack pointer after first restore was wrong. expected: %#x, actual: %#x", p.StackBase, cpu.SP)
		t.Fail()
	}
	if _, ok := tbl.EntryAt(cpu.PC); !ok {
		t.Logf("PC after first restore does not name the entry function: %#x", cpu.PC)
		t.Fail()
	}
	for i, r := range cpu.Regs {
		if r != 0 {
			t.Logf("register %d was not zero after first restore: %#x", i, r)
			t.Fail()
		}
	}
}

func TestContextSwitchWithNothingReady(t *testing.T) {
	s, _, _ := newTestScheduler()

	// no READY peer: the switch is a logged no-op
	s.ContextSwitch()

	if s.Switches() != 0 {
		t.Logf("switch count changed with nothing ready. actual: %d", s.Switches())
		t.Fail()
	}
}

func TestContextSwitchSavesAndRestores(t *testing.T) {
	s, tbl, cpu := newTestScheduler()

	a, err := tbl.Create(idle, 3)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	b, err := tbl.Create(idle, 5)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}

	s.ContextSwitch() // dispatches a
	if tbl.CurrentPID() != int(a) {
		t.Fatalf("expected PID %d to run first, current is %d", a, tbl.CurrentPID())
	}

	// give a recognizable register state to the outgoing process
	cpu.Regs = [7]uint32{1, 2, 3, 4, 5, 6, 7}
	savedPC := cpu.PC

	// block a so selection falls through to b; the outgoing context is
	// still saved through a's stack-pointer slot
	tbl.Get(a).State = process.Blocked
	s.ContextSwitch() // a -> b
	if tbl.CurrentPID() != int(b) {
		t.Fatalf("expected PID %d after switch, current is %d", b, tbl.CurrentPID())
	}

	// b starts from a primed frame: zero registers
	for i, r := range cpu.Regs {
		if r != 0 {
			t.Logf("incoming register %d was not zero: %#x", i, r)
			t.Fail()
		}
	}

	tbl.Get(a).State = process.Ready
	s.ContextSwitch() // b -> a
	if tbl.CurrentPID() != int(a) {
		t.Fatalf("expected PID %d after switch back, current is %d", a, tbl.CurrentPID())
	}

	if cpu.Regs != [7]uint32{1, 2, 3, 4, 5, 6, 7} {
		t.Logf("restored registers were wrong. actual: %v", cpu.Regs)
		t.Fail()
	}
	if cpu.PC != savedPC {
		t.Logf("restored PC was wrong. expected: %#x, actual: %#x", savedPC, cpu.PC)
		t.Fail()
	}
}

func TestQuantumExpiry(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	pid, err := tbl.Create(idle, 5)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	s.ContextSwitch()
	if tbl.CurrentPID() != int(pid) {
		t.Fatalf("failed dispatching PID %d", pid)
	}

	s.SetQuantum(2)
	switchesBefore := s.Switches()

	s.Tick()
	if s.RemainingQuantum() != 1 {
		t.Logf("remaining quantum after one tick was wrong. expected: %d, actual: %d", 1, s.RemainingQuantum())
		t.Fail()
	}
	if tbl.Get(pid).State != process.Running {
		t.Logf("process was preempted before its quantum expired")
		t.Fail()
	}

	s.Tick()
	if s.Switches() != switchesBefore+1 {
		t.Logf("switch count after expiry was wrong. expected: %d, actual: %d", switchesBefore+1, s.Switches())
		t.Fail()
	}
	// sole READY candidate: the same process is dispatched again
	if tbl.Get(pid).State != process.Running {
		t.Logf("state after expiry was wrong. expected: %s, actual: %s", process.Running, tbl.Get(pid).State)
		t.Fail()
	}
	if s.RemainingQuantum() != 2 {
		t.Logf("quantum was not reset after the switch. actual: %d", s.RemainingQuantum())
		t.Fail()
	}
	if s.Ticks() != 2 {
		t.Logf("tick counter was wrong. expected: %d, actual: %d", 2, s.Ticks())
		t.Fail()
	}
}

func TestAgingPromotes(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	pid, err := tbl.Create(idle, 15)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	p := tbl.Get(pid)

	for i := 0; i < 9; i++ {
		s.ApplyAging()
	}
	if p.Age != 9 {
		t.Logf("age after nine cycles was wrong. expected: %d, actual: %d", 9, p.Age)
		t.Fail()
	}
	if p.Priority != 15 {
		t.Logf("priority changed before the promotion interval. actual: %d", p.Priority)
		t.Fail()
	}

	s.ApplyAging()
	if p.Age != 10 {
		t.Logf("age after ten cycles was wrong. expected: %d, actual: %d", 10, p.Age)
		t.Fail()
	}
	if p.Priority != 14 {
		t.Logf("priority after promotion was wrong. expected: %d, actual: %d", 14, p.Priority)
		t.Fail()
	}
}

func TestAgingFloorsAtMinPriority(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	pid, err := tbl.Create(idle, 1)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	p := tbl.Get(pid)

	for i := 0; i < 100; i++ {
		s.ApplyAging()
	}
	if p.Priority != process.MinPriority {
		t.Logf("priority was promoted past the floor. actual: %d", p.Priority)
		t.Fail()
	}
}

func TestAgingSkipsNonReady(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	pid, err := tbl.Create(idle, 15)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}
	tbl.SetState(pid, process.Blocked)

	s.ApplyAging()
	if tbl.Get(pid).Age != 0 {
		t.Logf("blocked process aged. actual age: %d", tbl.Get(pid).Age)
		t.Fail()
	}
}

func TestTickRunsAgingAtThreshold(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	pid, err := tbl.Create(idle, 15)
	if err != nil {
		t.Fatalf("failed creating process: %s", err)
	}

	for i := 0; i < AgingThreshold-1; i++ {
		s.Tick()
	}
	if tbl.Get(pid).Age != 0 {
		t.Logf("aging ran before the threshold. actual age: %d", tbl.Get(pid).Age)
		t.Fail()
	}

	s.Tick()
	if tbl.Get(pid).Age != 1 {
		t.Logf("aging did not run at the threshold. actual age: %d", tbl.Get(pid).Age)
		t.Fail()
	}
}

func TestSetQuantumBounds(t *testing.T) {
	s, _, _ := newTestScheduler()

	s.SetQuantum(0)
	if s.Quantum() != DefaultTimeQuantum {
		t.Logf("quantum changed on a rejected value. actual: %d", s.Quantum())
		t.Fail()
	}

	s.SetQuantum(MaxQuantum + 1)
	if s.Quantum() != DefaultTimeQuantum {
		t.Logf("quantum changed on a rejected value. actual: %d", s.Quantum())
		t.Fail()
	}

	s.SetQuantum(1)
	if s.Quantum() != 1 {
		t.Logf("quantum was not accepted. expected: %d, actual: %d", 1, s.Quantum())
		t.Fail()
	}

	s.SetQuantum(MaxQuantum)
	if s.Quantum() != MaxQuantum {
		t.Logf("quantum was not accepted. expected: %d, actual: %d", MaxQuantum, s.Quantum())
		t.Fail()
	}
}

func TestInitIsIdempotent(t *testing.T) {
	s, _, _ := newTestScheduler()

	s.SetQuantum(42)
	s.Tick()
	s.Tick()

	s.Init()
	s.Init()

	if s.Quantum() != DefaultTimeQuantum || s.Ticks() != 0 || s.Switches() != 0 {
		t.Logf("init did not reset scheduler state: quantum=%d ticks=%d switches=%d",
			s.Quantum(), s.Ticks(), s.Switches())
		t.Fail()
	}
}

func TestOnlyOneRunningProcess(t *testing.T) {
	s, tbl, _ := newTestScheduler()

	for i := 0; i < 4; i++ {
		if _, err := tbl.Create(idle, uint32(5+i)); err != nil {
			t.Fatalf("failed creating process %d: %s", i, err)
		}
	}

	s.SetQuantum(1)
	for i := 0; i < 25; i++ {
		s.Tick()
		if i == 0 {
			// the first expiry has no current process yet
			s.ContextSwitch()
		}

		running := 0
		for j := 0; j < process.MaxProcesses; j++ {
			if tbl.At(j).State == process.Running {
				running++
			}
		}
		if running > 1 {
			t.Fatalf("found %d RUNNING processes after tick %d", running, i+1)
		}
	}
}
