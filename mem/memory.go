// mem implements the kernel's memory manager: a single fixed-size byte arena
// carved into a heap growing up from the bottom and a stack arena growing
// down from the top. Allocation is bump-style and deliberately irreversible;
// freeing releases the metadata record and updates accounting, but arena
// bytes are never returned. The kernel's task set is fixed at boot, so
// reclamation is a non-goal.
package mem

import (
	"encoding/binary"
	"errors"

	"github.com/kacchios/kacchi/serial"
)

const (
	// HeapSize is the size of the kernel memory pool (64 KB).
	HeapSize = 64 * 1024

	// StackSize is the stack size handed to each process (4 KB).
	StackSize = 4096

	// MaxAllocs caps the allocation metadata table.
	MaxAllocs = 64

	// ArenaBase offsets every address the manager hands out, so that 0
	// stays the null sentinel even for the first heap allocation.
	ArenaBase = 0x00100000
)

var (
	ErrOutOfMemory = errors.New("out of memory")
	ErrInvalidSize = errors.New("invalid allocation size")
	ErrDoubleFree  = errors.New("double free or invalid address")
	ErrBadAddress  = errors.New("address outside arena")
)

type blockKind uint8

const (
	heapBlock blockKind = iota
	stackBlock
)

// memBlock is one entry in the allocation metadata table. Records are keyed
// by the base address of the allocation they track, so frees of unknown
// addresses can be rejected.
type memBlock struct {
	addr      uint32
	size      uint32
	allocated bool
	kind      blockKind
}

// Stats holds the manager's cumulative counters. TotalAllocated minus
// TotalFreed is the currently live byte count; it says nothing about arena
// headroom because freed bytes are never reused.
type Stats struct {
	TotalAllocated    uint32
	TotalFreed        uint32
	HeapAllocations   uint32
	StackAllocations  uint32
	FailedAllocations uint32
}

// Manager owns the arena, the metadata table, and the statistics counters.
// It is not safe for concurrent use; the kernel's single-core discipline
// serializes callers.
type Manager struct {
	arena    [HeapSize]byte
	metadata [MaxAllocs]memBlock

	heapOffset  uint32
	stackOffset uint32

	stats Stats
	out   serial.Sink
}

// ManagerConfig configures a Manager. When Output is nil, log lines are
// dropped.
type ManagerConfig struct {
	Output serial.Sink
}

// NewManager returns an initialized Manager ready for allocation.
func NewManager(config ManagerConfig) *Manager {
	if config.Output == nil {
		config.Output = serial.Discard{}
	}
	m := &Manager{out: config.Output}
	m.Init()
	return m
}

// Init resets the manager: both bump offsets, every metadata slot, and all
// counters. Calling Init on an in-use manager abandons its allocations.
func (m *Manager) Init() {
	m.heapOffset = 0
	m.stackOffset = HeapSize

	for i := range m.metadata {
		m.metadata[i] = memBlock{}
	}
	m.stats = Stats{}

	m.out.Puts("[memory] initialized (heap=")
	m.out.PutNum(HeapSize / 1024)
	m.out.Puts("KB)\n")
}

// align4 rounds size up to a multiple of 4.
func align4(size uint32) uint32 {
	return (size + 3) &^ 3
}

// findMetadataSlot returns the index of the first free metadata record, or -1
// when the table is full.
func (m *Manager) findMetadataSlot() int {
	for i := range m.metadata {
		if !m.metadata[i].allocated {
			return i
		}
	}
	return -1
}

// Kmalloc allocates size bytes from the heap region and returns the address.
// Sizes are rounded up to a multiple of 4. A zero size is rejected without
// touching the counters; exhaustion of the arena or the metadata table counts
// as a failed allocation.
func (m *Manager) Kmalloc(size uint32) (uint32, error) {
	if size == 0 {
		return 0, ErrInvalidSize
	}

	size = align4(size)

	if uint64(m.heapOffset)+uint64(size) >= uint64(m.stackOffset) {
		m.out.Puts("[memory] FAIL: heap exhausted (need ")
		m.out.PutNum(size)
		m.out.Puts("B)\n")
		m.stats.FailedAllocations++
		return 0, ErrOutOfMemory
	}

	slot := m.findMetadataSlot()
	if slot < 0 {
		m.out.Puts("[memory] FAIL: metadata table full\n")
		m.stats.FailedAllocations++
		return 0, ErrOutOfMemory
	}

	addr := ArenaBase + m.heapOffset

	m.metadata[slot] = memBlock{
		addr:      addr,
		size:      size,
		allocated: true,
		kind:      heapBlock,
	}

	m.stats.TotalAllocated += size
	m.stats.HeapAllocations++
	m.heapOffset += size

	m.out.Puts("[memory] kmalloc ")
	m.out.PutNum(size)
	m.out.Puts("B at ")
	m.out.PutNum(addr)
	m.out.Puts("\n")

	return addr, nil
}

// Kfree releases the heap allocation that starts at addr. Address 0 is a
// no-op. Freeing an address with no in-use heap record logs a warning and
// returns ErrDoubleFree; the arena itself is never reclaimed.
func (m *Manager) Kfree(addr uint32) error {
	if addr == 0 {
		return nil
	}

	for i := range m.metadata {
		b := &m.metadata[i]
		if b.allocated && b.kind == heapBlock && b.addr == addr {
			b.allocated = false
			m.stats.TotalFreed += b.size

			m.out.Puts("[memory] kfree ")
			m.out.PutNum(b.size)
			m.out.Puts("B\n")
			return nil
		}
	}

	m.out.Puts("[memory] WARNING: double free or invalid ptr\n")
	return ErrDoubleFree
}

// AllocStack carves one fixed-size process stack off the top of the arena and
// returns its base (lowest) address. The stack region grows downward toward
// the heap; when the two would cross, the allocation fails.
func (m *Manager) AllocStack() (uint32, error) {
	if m.stackOffset < m.heapOffset+StackSize {
		m.out.Puts("[memory] FAIL: stack exhausted\n")
		m.stats.FailedAllocations++
		return 0, ErrOutOfMemory
	}

	slot := m.findMetadataSlot()
	if slot < 0 {
		m.out.Puts("[memory] FAIL: metadata table full for stack\n")
		m.stats.FailedAllocations++
		return 0, ErrOutOfMemory
	}

	m.stackOffset -= StackSize
	addr := ArenaBase + m.stackOffset

	m.metadata[slot] = memBlock{
		addr:      addr,
		size:      StackSize,
		allocated: true,
		kind:      stackBlock,
	}

	m.stats.TotalAllocated += StackSize
	m.stats.StackAllocations++

	m.out.Puts("[memory] alloc_stack ")
	m.out.PutNum(StackSize / 1024)
	m.out.Puts("KB at ")
	m.out.PutNum(addr)
	m.out.Puts("\n")

	return addr, nil
}

// FreeStack releases the stack whose base address is addr. As with Kfree the
// arena bytes stay consumed; only the record and the counters change.
func (m *Manager) FreeStack(addr uint32) error {
	if addr == 0 {
		return nil
	}

	for i := range m.metadata {
		b := &m.metadata[i]
		if b.allocated && b.kind == stackBlock && b.addr == addr {
			b.allocated = false
			m.stats.TotalFreed += b.size

			m.out.Puts("[memory] free_stack ")
			m.out.PutNum(b.size / 1024)
			m.out.Puts("KB\n")
			return nil
		}
	}

	m.out.Puts("[memory] WARNING: double free or invalid stack ptr\n")
	return ErrDoubleFree
}

// Stats returns a copy of the manager's counters.
func (m *Manager) Stats() Stats {
	return m.stats
}

// HeapUsed reports how many heap bytes have been bumped so far.
func (m *Manager) HeapUsed() uint32 {
	return m.heapOffset
}

// StackBottom reports the current lower bound of the stack arena as an arena
// address. Heap allocations must stay below it.
func (m *Manager) StackBottom() uint32 {
	return ArenaBase + m.stackOffset
}

// PrintStats emits the counters and heap usage to the configured sink.
func (m *Manager) PrintStats() {
	m.out.Puts("\n========== MEMORY STATISTICS ==========\n")
	m.out.Puts("Total allocated: ")
	m.out.PutNum(m.stats.TotalAllocated)
	m.out.Puts("B\n")

	m.out.Puts("Total freed: ")
	m.out.PutNum(m.stats.TotalFreed)
	m.out.Puts("B\n")

	m.out.Puts("Heap allocations: ")
	m.out.PutNum(m.stats.HeapAllocations)
	m.out.Puts("\n")

	m.out.Puts("Stack allocations: ")
	m.out.PutNum(m.stats.StackAllocations)
	m.out.Puts("\n")

	m.out.Puts("Failed allocations: ")
	m.out.PutNum(m.stats.FailedAllocations)
	m.out.Puts("\n")

	m.out.Puts("Heap used: ")
	m.out.PutNum(m.heapOffset)
	m.out.Puts("B / ")
	m.out.PutNum(HeapSize)
	m.out.Puts("B\n")

	m.out.Puts("======================================\n\n")
}

// checkRange validates that [addr, addr+n) lies inside the arena.
func (m *Manager) checkRange(addr, n uint32) (uint32, error) {
	if addr < ArenaBase || addr+n > ArenaBase+HeapSize {
		return 0, ErrBadAddress
	}
	return addr - ArenaBase, nil
}

// WriteWord stores a 32-bit little-endian word at the given arena address.
// Used by the process manager's stack priming and the scheduler's context
// save path.
func (m *Manager) WriteWord(addr, val uint32) error {
	off, err := m.checkRange(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.arena[off:off+4], val)
	return nil
}

// ReadWord loads the 32-bit little-endian word at the given arena address.
func (m *Manager) ReadWord(addr uint32) (uint32, error) {
	off, err := m.checkRange(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.arena[off : off+4]), nil
}
