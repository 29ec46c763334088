package scheduler

import (
	"github.com/kacchios/kacchi/mem"
)

// CPU models the reference machine's execution context: seven general-purpose
// registers, a stack pointer, and a program counter, with the stacks living
// in the kernel arena as 32-bit little-endian words. There is exactly one CPU
// in the system; interleaving between tasks arises solely from [CPU.Switch]
// swapping the stack pointer.
type CPU struct {
	// PC names where execution resumes after a restore. For a freshly
	// primed task this is the entry-vector address the process manager
	// pushed; for a preempted task it is the value saved on its stack.
	PC uint32
	// SP is the current stack pointer, always an arena address while a
	// task is dispatched.
	SP uint32
	// Regs holds the callee-preserved general-purpose registers in save
	// order: EAX, EBX, ECX, EDX, ESI, EDI, EBP.
	Regs [7]uint32

	mem *mem.Manager
}

// NewCPU returns a CPU whose stacks live in the given arena.
func NewCPU(m *mem.Manager) *CPU {
	return &CPU{mem: m}
}

func (c *CPU) push(v uint32) error {
	c.SP -= 4
	return c.mem.WriteWord(c.SP, v)
}

func (c *CPU) pop() (uint32, error) {
	v, err := c.mem.ReadWord(c.SP)
	if err != nil {
		return 0, err
	}
	c.SP += 4
	return v, nil
}

// Switch is the context-switch primitive. Either slot may be nil, meaning
// "no save" or "no restore".
//
// With a non-nil old slot it pushes the return target and the seven
// general-purpose registers onto the current stack and stores the resulting
// stack pointer through the slot. With a non-nil next slot it loads the
// stack pointer from the slot, pops the registers in reverse order, and pops
// the return target into PC. The pop sequence consumes exactly the frame
// stack priming produces, so the first restore of a fresh task "returns"
// into its entry function.
func (c *CPU) Switch(old, next *uint32) error {
	if old != nil {
		if err := c.push(c.PC); err != nil {
			return err
		}
		for i := 0; i < len(c.Regs); i++ {
			if err := c.push(c.Regs[i]); err != nil {
				return err
			}
		}
		*old = c.SP
	}

	if next != nil {
		c.SP = *next
		for i := len(c.Regs) - 1; i >= 0; i-- {
			v, err := c.pop()
			if err != nil {
				return err
			}
			c.Regs[i] = v
		}
		pc, err := c.pop()
		if err != nil {
			return err
		}
		c.PC = pc
	}

	return nil
}
