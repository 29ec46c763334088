// kernel wires the core subsystems together: the memory manager, the process
// table, the CPU, and the scheduler. It carries the boot sequence, the
// built-in self test, the timer hook, and the interactive shell that doubles
// as the null process.
package kernel

import (
	"sync"
	"time"

	"github.com/kacchios/kacchi/mem"
	"github.com/kacchios/kacchi/process"
	"github.com/kacchios/kacchi/scheduler"
	"github.com/kacchios/kacchi/serial"
)

// Kernel is the assembled system. All state is reachable from here; nothing
// survives across boots.
type Kernel struct {
	Mem   *mem.Manager
	Procs *process.Table
	CPU   *scheduler.CPU
	Sched *scheduler.Scheduler

	out    serial.Sink
	halted bool

	// mask serializes the tick handler against shell dispatch and
	// Step, standing in for interrupt masking at critical sections.
	mask sync.Mutex

	started map[uint32]bool
}

// Config configures a Kernel. When Output is nil the kernel talks to the
// process's standard streams.
type Config struct {
	Output serial.Sink
}

// Boot initializes every subsystem in dependency order and prints the boot
// banner. Each subsystem logs its own init line through the sink.
func Boot(config Config) *Kernel {
	out := config.Output
	if out == nil {
		out = serial.NewConsole()
	}

	m := mem.NewManager(mem.ManagerConfig{Output: out})
	t := process.NewTable(process.TableConfig{Memory: m, Output: out})
	cpu := scheduler.NewCPU(m)
	s := scheduler.New(scheduler.Config{Table: t, CPU: cpu, Output: out})

	k := &Kernel{
		Mem:     m,
		Procs:   t,
		CPU:     cpu,
		Sched:   s,
		out:     out,
		started: map[uint32]bool{},
	}

	out.Puts("\n")
	out.Puts("========================================\n")
	out.Puts("    kacchi - minimal kernel core\n")
	out.Puts("========================================\n")

	return k
}

// Tick is the timer collaborator's entry point into the kernel. It masks
// the critical section so a tick cannot interleave with shell dispatch.
func (k *Kernel) Tick() {
	k.mask.Lock()
	defer k.mask.Unlock()
	k.Sched.Tick()
}

// StartTimer drives Tick at the given cadence from a background goroutine
// and returns a stop function.
func (k *Kernel) StartTimer(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				k.Tick()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// Step performs one explicit scheduling decision. When the dispatched
// process has never run, its entry function is invoked on the spot; entry
// functions run to completion here, where a hardware port would instead
// return through the restored stack frame.
func (k *Kernel) Step() {
	k.mask.Lock()
	k.Sched.ContextSwitch()
	cur := k.Procs.Current()
	var fn process.EntryFunc
	if cur != nil && !k.started[cur.PID] {
		k.started[cur.PID] = true
		fn, _ = k.Procs.EntryAt(k.CPU.PC)
	}
	k.mask.Unlock()

	if fn != nil {
		fn()
	}
}

// Halt stops the shell loop on its next iteration.
func (k *Kernel) Halt() {
	k.halted = true
}

// Halted reports whether the kernel has been halted.
func (k *Kernel) Halted() bool {
	return k.halted
}

// SelfTest boots a scratch copy of the core on the same sink and exercises
// process creation, state transitions, termination, scheduling order, IPC,
// and the memory manager. It reports each check as an [OK] or [FAIL] line
// and returns whether all checks passed. The live kernel's state is not
// touched.
func (k *Kernel) SelfTest() bool {
	out := k.out
	ok := true

	check := func(name string, passed bool) {
		if passed {
			out.Puts("[OK] ")
		} else {
			out.Puts("[FAIL] ")
			ok = false
		}
		out.Puts(name)
		out.Puts("\n")
	}

	out.Puts("\n[TEST] Kernel Self Test Start\n")

	m := mem.NewManager(mem.ManagerConfig{Output: out})
	t := process.NewTable(process.TableConfig{Memory: m, Output: out})
	cpu := scheduler.NewCPU(m)
	s := scheduler.New(scheduler.Config{Table: t, CPU: cpu, Output: out})

	idle := func() {}

	p1, err1 := t.Create(idle, 3)
	p2, err2 := t.Create(idle, 5)
	check("Process creation", err1 == nil && err2 == nil)
	if err1 != nil || err2 != nil {
		out.Puts("[TEST] Kernel Self Test End\n\n")
		return false
	}

	proc1 := t.Get(p1)
	check("Initial state READY", proc1 != nil && proc1.State == process.Ready)

	t.SetState(p1, process.Blocked)
	check("State transition BLOCKED", proc1.State == process.Blocked)

	// p2 is the only Ready process while p1 is blocked.
	check("Scheduler selection", s.Next() != nil && s.Next().PID == p2)

	t.SetCurrent(proc1)
	t.Exit()
	check("Process termination", proc1.State == process.Terminated)

	t.SetCurrent(t.Get(p2))
	sendErr := t.Send(p2, 42)
	val, recvErr := t.Receive()
	check("IPC round trip", sendErr == nil && recvErr == nil && val == 42)

	a, errA := m.Kmalloc(100)
	b, errB := m.Kmalloc(200)
	st, errS := m.AllocStack()
	check("Memory manager", errA == nil && errB == nil && errS == nil &&
		a != 0 && b != 0 && st != 0)

	out.Puts("[TEST] Kernel Self Test End\n\n")
	return ok
}
