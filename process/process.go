// process owns the kernel's process table: a fixed array of lightweight
// process control blocks, the monotonic PID counter, and the per-process
// message queues. Creating a process allocates and primes a stack so that the
// first context restore transfers control into the task's entry function.
package process

import (
	"errors"

	"github.com/kacchios/kacchi/mem"
	"github.com/kacchios/kacchi/serial"
)

const (
	// MaxProcesses caps the process table.
	MaxProcesses = 16

	// MaxMessages bounds each process's message queue.
	MaxMessages = 8

	// DefaultPriority is assigned to table slots at init.
	DefaultPriority = 10

	// MinPriority and MaxPriority bound a process's priority value. Lower
	// value means higher scheduling priority.
	MinPriority = 1
	MaxPriority = 20

	// EntryVectorBase is the synthetic address space occupied by task
	// entry points. The address pushed during stack priming is
	// EntryVectorBase + 4*slot and is handed back by the context-switch
	// restore path as the resume target.
	EntryVectorBase = 0xF0000000
)

var (
	ErrTableFull        = errors.New("process table full")
	ErrNotFound         = errors.New("no process with that PID")
	ErrNoCurrentProcess = errors.New("no current process")
	ErrMailboxFull      = errors.New("message queue full")
	ErrMailboxEmpty     = errors.New("no message available")
)

// State is the lifecycle state of a process table slot.
type State uint8

const (
	Unused State = iota
	Ready
	Running
	Blocked
	Sleeping
	Terminated
)

func (s State) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Sleeping:
		return "SLEEPING"
	case Terminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// Message is one mailbox entry: a 32-bit value tagged with the sender's PID.
type Message struct {
	SenderPID uint32
	Value     uint32
}

// EntryFunc is a task's entry point.
type EntryFunc func()

// PCB is a process control block. StackBase is the arithmetic top of the
// owned stack region (the high address where the initial push begins);
// StackPtr is the saved stack pointer a context restore resumes from, and for
// any non-Unused slot it points inside the owned region.
type PCB struct {
	PID       uint32
	State     State
	StackBase uint32
	StackPtr  uint32
	Priority  uint32
	Age       uint32

	msgQueue [MaxMessages]Message
	msgCount uint32
}

// MsgCount reports the current mailbox depth.
func (p *PCB) MsgCount() uint32 {
	return p.msgCount
}

// Info is a snapshot row describing one occupied table slot, for table and
// JSON rendering outside the kernel core.
type Info struct {
	PID      uint32 `json:"pid"`
	State    string `json:"state"`
	Priority uint32 `json:"priority"`
	Age      uint32 `json:"age"`
	Messages uint32 `json:"messages"`
}

// Table is the process table singleton. It owns every PCB, the current
// process pointer, and the entry vector. Mutation is serialized by the
// kernel's single-core discipline; the Table itself takes no locks.
type Table struct {
	procs   [MaxProcesses]PCB
	current *PCB
	nextPID uint32
	entries []EntryFunc

	mem *mem.Manager
	out serial.Sink
}

// TableConfig configures a Table. Memory is required; when Output is nil,
// log lines are dropped.
type TableConfig struct {
	Memory *mem.Manager
	Output serial.Sink
}

// NewTable returns an initialized process table backed by the given memory
// manager.
func NewTable(config TableConfig) *Table {
	if config.Output == nil {
		config.Output = serial.Discard{}
	}
	t := &Table{
		mem: config.Memory,
		out: config.Output,
	}
	t.Init()
	return t
}

// Init marks every slot Unused and resets the PID counter to 1. The entry
// vector and the current pointer are cleared as well.
func (t *Table) Init() {
	for i := range t.procs {
		t.procs[i] = PCB{
			Priority: DefaultPriority,
		}
	}
	t.current = nil
	t.nextPID = 1
	t.entries = nil

	t.out.Puts("[process] initialized (max=")
	t.out.PutNum(MaxProcesses)
	t.out.Puts(" processes)\n")
}

// findFreeSlot returns the index of the first Unused slot, or -1.
func (t *Table) findFreeSlot() int {
	for i := range t.procs {
		if t.procs[i].State == Unused {
			return i
		}
	}
	return -1
}

// registerEntry appends fn to the entry vector and returns its synthetic
// address.
func (t *Table) registerEntry(fn EntryFunc) uint32 {
	t.entries = append(t.entries, fn)
	return EntryVectorBase + uint32(len(t.entries)-1)*4
}

// EntryAt resolves a synthetic entry address back to the registered entry
// function. It reports false for addresses outside the vector.
func (t *Table) EntryAt(addr uint32) (EntryFunc, bool) {
	if addr < EntryVectorBase || (addr-EntryVectorBase)%4 != 0 {
		return nil, false
	}
	idx := int((addr - EntryVectorBase) / 4)
	if idx >= len(t.entries) {
		return nil, false
	}
	return t.entries[idx], true
}

// primeStack lays out a fresh stack so the first context restore resumes at
// entryAddr: from the top downward, the entry address (the return target of
// the restore sequence), then seven zeroed general-purpose register slots.
// The returned stack pointer is the low end of this frame. The layout must
// stay in lockstep with the context-switch primitive's pop sequence.
func (t *Table) primeStack(stackTop, entryAddr uint32) (uint32, error) {
	sp := stackTop

	sp -= 4
	if err := t.mem.WriteWord(sp, entryAddr); err != nil {
		return 0, err
	}
	for i := 0; i < 7; i++ {
		sp -= 4
		if err := t.mem.WriteWord(sp, 0); err != nil {
			return 0, err
		}
	}

	return sp, nil
}

// Create allocates a table slot and a stack for a new process, primes the
// stack, and returns the assigned PID. Priorities outside [MinPriority,
// MaxPriority] are clamped. The new process starts Ready with an empty
// mailbox.
func (t *Table) Create(entry EntryFunc, priority uint32) (uint32, error) {
	slot := t.findFreeSlot()
	if slot < 0 {
		t.out.Puts("[process] FAIL: process table full\n")
		return 0, ErrTableFull
	}

	stack, err := t.mem.AllocStack()
	if err != nil {
		t.out.Puts("[process] FAIL: no memory for stack\n")
		return 0, err
	}

	if priority < MinPriority {
		priority = MinPriority
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}

	p := &t.procs[slot]
	p.PID = t.nextPID
	t.nextPID++

	p.State = Ready
	p.Priority = priority
	p.Age = 0

	p.StackBase = stack + mem.StackSize
	p.StackPtr, err = t.primeStack(p.StackBase, t.registerEntry(entry))
	if err != nil {
		return 0, err
	}

	p.msgCount = 0
	p.msgQueue = [MaxMessages]Message{}

	t.out.Puts("[process] created PID ")
	t.out.PutNum(p.PID)
	t.out.Puts(" (priority=")
	t.out.PutNum(p.Priority)
	t.out.Puts(")\n")

	return p.PID, nil
}

// Exit terminates the current process: its state becomes Terminated and its
// stack is released. Exit does not yield; the scheduler picks a new current
// process on the next tick or explicit switch. The slot is never reclaimed,
// so a PID is never reused within a run.
func (t *Table) Exit() error {
	if t.current == nil {
		t.out.Puts("[process] ERROR: no current process\n")
		return ErrNoCurrentProcess
	}

	t.out.Puts("[process] exit PID ")
	t.out.PutNum(t.current.PID)
	t.out.Puts(" (state=TERMINATED)\n")

	t.current.State = Terminated
	t.mem.FreeStack(t.current.StackBase - mem.StackSize)

	return nil
}

// SetState assigns a new state to the process with the given PID. Transition
// validity is not checked.
func (t *Table) SetState(pid uint32, state State) error {
	p := t.Get(pid)
	if p == nil {
		t.out.Puts("[process] ERROR: invalid PID\n")
		return ErrNotFound
	}

	p.State = state

	t.out.Puts("[process] PID ")
	t.out.PutNum(pid)
	t.out.Puts(" state=")
	t.out.Puts(state.String())
	t.out.Puts("\n")
	return nil
}

// GetState returns the state of the process with the given PID, or Unused
// when no such process exists.
func (t *Table) GetState(pid uint32) State {
	p := t.Get(pid)
	if p == nil {
		return Unused
	}
	return p.State
}

// Get returns the PCB with the given PID, or nil.
func (t *Table) Get(pid uint32) *PCB {
	for i := range t.procs {
		if t.procs[i].PID == pid && t.procs[i].State != Unused {
			return &t.procs[i]
		}
	}
	return nil
}

// At returns the PCB in table slot i. The scheduler iterates the table with
// it when selecting the next process.
func (t *Table) At(i int) *PCB {
	return &t.procs[i]
}

// Current returns the current process, or nil before the first dispatch.
func (t *Table) Current() *PCB {
	return t.current
}

// SetCurrent designates p as the current process. Only the scheduler's
// dispatch path and tests should call this; p may be nil to clear the
// designation.
func (t *Table) SetCurrent(p *PCB) {
	t.current = p
}

// CurrentPID returns the PID of the current process, or -1 when unset.
func (t *Table) CurrentPID() int {
	if t.current == nil {
		return -1
	}
	return int(t.current.PID)
}

// CountActive counts live processes. Terminated slots stay occupied in the
// table but no longer count as active, so a create/exit pair leaves the
// count where it started.
func (t *Table) CountActive() uint32 {
	var count uint32
	for i := range t.procs {
		if t.procs[i].State != Unused && t.procs[i].State != Terminated {
			count++
		}
	}
	return count
}

// Snapshot returns an Info row for every non-Unused slot, Terminated ones
// included, in table order.
func (t *Table) Snapshot() []Info {
	infos := []Info{}
	for i := range t.procs {
		p := &t.procs[i]
		if p.State == Unused {
			continue
		}
		infos = append(infos, Info{
			PID:      p.PID,
			State:    p.State.String(),
			Priority: p.Priority,
			Age:      p.Age,
			Messages: p.msgCount,
		})
	}
	return infos
}

// List emits the process table to the sink.
func (t *Table) List() {
	t.out.Puts("\n========== PROCESS TABLE ==========\n")

	var count uint32
	for i := range t.procs {
		p := &t.procs[i]
		if p.State == Unused {
			continue
		}
		count++

		t.out.Puts("PID ")
		t.out.PutNum(p.PID)
		t.out.Puts(": state=")
		t.out.Puts(p.State.String())
		t.out.Puts(", priority=")
		t.out.PutNum(p.Priority)
		t.out.Puts("\n")
	}

	t.out.Puts("Total processes: ")
	t.out.PutNum(count)
	t.out.Puts("\n")
	t.out.Puts("===================================\n\n")
}
