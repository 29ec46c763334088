// scheduler implements the kernel's priority scheduler: selection of the
// highest-priority Ready process (ties go to the lowest table index, so equal
// priorities do not rotate), time-quantum accounting driven by
// the timer collaborator's ticks, priority aging to prevent starvation, and
// the context switch that swaps register state across per-process stacks.
package scheduler

import (
	"github.com/kacchios/kacchi/process"
	"github.com/kacchios/kacchi/serial"
)

const (
	// DefaultTimeQuantum is the default time slice, in ticks.
	DefaultTimeQuantum = 10

	// AgingThreshold is the tick interval between aging passes.
	AgingThreshold = 50

	// MaxQuantum bounds the configurable time quantum.
	MaxQuantum = 100

	// agePromotionInterval is how many aging cycles a Ready process waits
	// between priority promotions.
	agePromotionInterval = 10
)

// Scheduler owns the quantum accounting and the tick and switch counters. It
// reads and mutates PCB state owned by the process table and drives the CPU's
// context-switch primitive. Like the rest of the core it relies on the
// single-core, interrupts-masked discipline: Tick must not be reentered.
type Scheduler struct {
	timeQuantum     uint32
	currentQuantum  uint32
	ticks           uint32
	contextSwitches uint32

	table *process.Table
	cpu   *CPU
	out   serial.Sink
}

// Config configures a Scheduler. Table and CPU are required; when Output is
// nil, log lines are dropped.
type Config struct {
	Table  *process.Table
	CPU    *CPU
	Output serial.Sink
}

// New returns an initialized Scheduler.
func New(config Config) *Scheduler {
	if config.Output == nil {
		config.Output = serial.Discard{}
	}
	s := &Scheduler{
		table: config.Table,
		cpu:   config.CPU,
		out:   config.Output,
	}
	s.Init()
	return s
}

// Init resets the quantum to the default and zeroes the tick and switch
// counters.
func (s *Scheduler) Init() {
	s.timeQuantum = DefaultTimeQuantum
	s.currentQuantum = DefaultTimeQuantum
	s.ticks = 0
	s.contextSwitches = 0

	s.out.Puts("[scheduler] initialized with quantum=")
	s.out.PutNum(DefaultTimeQuantum)
	s.out.Puts(" ticks\n")
}

// Next selects the Ready process with the numerically smallest priority
// value. Ties go to the lowest table index. It returns nil when no process
// is Ready.
func (s *Scheduler) Next() *process.PCB {
	var best *process.PCB
	bestPriority := uint32(process.MaxPriority + 1)

	for i := 0; i < process.MaxProcesses; i++ {
		p := s.table.At(i)
		if p.State != process.Ready {
			continue
		}
		if p.Priority < bestPriority {
			bestPriority = p.Priority
			best = p
		}
	}

	return best
}

// Tick is the timer collaborator's entry point. It advances the tick
// counter, charges the running process's quantum, preempts it on expiry, and
// runs an aging pass every AgingThreshold ticks.
func (s *Scheduler) Tick() {
	s.ticks++

	if cur := s.table.Current(); cur != nil {
		if s.currentQuantum > 0 {
			s.currentQuantum--
		}

		if s.currentQuantum == 0 && cur.State == process.Running {
			cur.State = process.Ready
			s.ContextSwitch()
		}
	}

	if s.ticks%AgingThreshold == 0 {
		s.ApplyAging()
	}
}

// ContextSwitch dispatches the next Ready process. When none exists the
// current process keeps running and the caller falls back to the null
// process. Otherwise the outgoing context is saved through its PCB's
// stack-pointer slot (skipped on first dispatch) and the incoming context is
// restored, after which the incoming process is current and Running with a
// fresh quantum.
func (s *Scheduler) ContextSwitch() {
	next := s.Next()
	if next == nil {
		s.out.Puts("[scheduler] no READY process available\n")
		return
	}

	cur := s.table.Current()
	if cur != nil {
		s.out.Puts("[scheduler] switch from PID ")
		s.out.PutNum(cur.PID)
		s.out.Puts(" to PID ")
		s.out.PutNum(next.PID)
		s.out.Puts("\n")

		if err := s.cpu.Switch(&cur.StackPtr, &next.StackPtr); err != nil {
			s.out.Puts("[scheduler] ERROR: context switch failed\n")
			return
		}
	} else {
		s.out.Puts("[scheduler] starting first process PID ")
		s.out.PutNum(next.PID)
		s.out.Puts("\n")

		if err := s.cpu.Switch(nil, &next.StackPtr); err != nil {
			s.out.Puts("[scheduler] ERROR: context switch failed\n")
			return
		}
	}

	s.table.SetCurrent(next)
	next.State = process.Running
	s.currentQuantum = s.timeQuantum
	s.contextSwitches++
}

// ApplyAging increments the age of every Ready process and promotes (lowers
// the priority value of) each one whose age has reached another promotion
// interval, down to the floor of MinPriority.
func (s *Scheduler) ApplyAging() {
	var promoted uint32

	for i := 0; i < process.MaxProcesses; i++ {
		p := s.table.At(i)
		if p.State != process.Ready || p.PID == 0 {
			continue
		}

		p.Age++
		if p.Age%agePromotionInterval == 0 && p.Priority > process.MinPriority {
			p.Priority--
			promoted++
		}
	}

	if promoted > 0 {
		s.out.Puts("[scheduler] aging applied, ")
		s.out.PutNum(promoted)
		s.out.Puts(" processes promoted\n")
	}
}

// SetQuantum updates the time quantum. Values outside (0, MaxQuantum] are
// rejected and leave the quantum unchanged. Accepted values also reset the
// running process's remaining slice.
func (s *Scheduler) SetQuantum(quantum uint32) {
	if quantum > 0 && quantum <= MaxQuantum {
		s.timeQuantum = quantum
		s.currentQuantum = quantum

		s.out.Puts("[scheduler] time quantum set to ")
		s.out.PutNum(quantum)
		s.out.Puts(" ticks\n")
	} else {
		s.out.Puts("[scheduler] invalid quantum value\n")
	}
}

// Quantum returns the configured time quantum.
func (s *Scheduler) Quantum() uint32 {
	return s.timeQuantum
}

// RemainingQuantum returns the running process's remaining ticks.
func (s *Scheduler) RemainingQuantum() uint32 {
	return s.currentQuantum
}

// Switches returns the total number of context switches.
func (s *Scheduler) Switches() uint32 {
	return s.contextSwitches
}

// Ticks returns the monotonic tick counter.
func (s *Scheduler) Ticks() uint32 {
	return s.ticks
}

// PrintStats emits the scheduler counters and a snapshot of the Ready queue
// to the sink.
func (s *Scheduler) PrintStats() {
	s.out.Puts("\n========== SCHEDULER STATISTICS ==========\n")
	s.out.Puts("System ticks: ")
	s.out.PutNum(s.ticks)
	s.out.Puts("\n")

	s.out.Puts("Context switches: ")
	s.out.PutNum(s.contextSwitches)
	s.out.Puts("\n")

	s.out.Puts("Current quantum: ")
	s.out.PutNum(s.timeQuantum)
	s.out.Puts(" ticks\n")

	s.out.Puts("Current process PID: ")
	if cur := s.table.Current(); cur != nil {
		s.out.PutNum(cur.PID)
	} else {
		s.out.Puts("none")
	}
	s.out.Puts("\n")

	s.out.Puts("\nReady processes:\n")
	for i := 0; i < process.MaxProcesses; i++ {
		p := s.table.At(i)
		if p.State != process.Ready || p.PID == 0 {
			continue
		}
		s.out.Puts("  PID ")
		s.out.PutNum(p.PID)
		s.out.Puts(": priority=")
		s.out.PutNum(p.Priority)
		s.out.Puts(", age=")
		s.out.PutNum(p.Age)
		s.out.Puts("\n")
	}
	s.out.Puts("=========================================\n\n")
}
