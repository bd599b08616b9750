// Package cpu models the single processor the kernel runs on. Exactly one
// goroutine owns the CPU at any time (the running thread); every other thread
// is parked on a Context. Interrupts raised by external devices are only
// delivered when the running thread polls for them, pauses in a compute loop
// or halts in Wait.
package cpu

import "sync"

// IRQ identifies a hardware interrupt line.
type IRQ uint8

const (
	// TimerIRQ is raised by the periodic timer that drives the scheduler.
	TimerIRQ = IRQ(0)

	// KeyboardIRQ is raised for each key press. The interrupt data carries
	// the decoded key.
	KeyboardIRQ = IRQ(1)

	// RTCIRQ is raised by the real-time clock at its hardware frequency.
	RTCIRQ = IRQ(8)

	numIRQs = 16
)

// Interrupt is a pending interrupt request.
type Interrupt struct {
	Line IRQ
	Data uint32
}

// IRQHandler services a hardware interrupt. It runs on the thread that owned
// the CPU when the interrupt was delivered, with interrupts disabled.
type IRQHandler func(data uint32)

// TaskState holds the subset of the x86 task state segment used by the
// kernel: the stack selector and pointer loaded on a privilege change.
type TaskState struct {
	SS0  uint16
	ESP0 uint32
}

// CPU is a simulated single-core processor.
type CPU struct {
	// interrupt flag (EFLAGS.IF) of the running thread.
	ifFlag bool

	irqHandlers    [numIRQs]IRQHandler
	excHandlers    [numExceptions]ExceptionHandler
	syscallHandler SyscallHandler

	irqs     chan Interrupt
	idle     chan struct{}
	halted   chan struct{}
	haltOnce sync.Once

	cur  *thread
	tss  TaskState
	tlb  TLB
	cr2  uint32
	mmu  MMU
	code CodeRegistry
}

// New returns a CPU that executes user programs looked up in code.
func New(code CodeRegistry) *CPU {
	return &CPU{
		irqs:   make(chan Interrupt),
		idle:   make(chan struct{}),
		halted: make(chan struct{}),
		code:   code,
	}
}

// AttachMMU connects the memory management unit used for user-mode accesses.
func (c *CPU) AttachMMU(mmu MMU) {
	c.mmu = mmu
}

// EnableInterrupts sets the interrupt flag.
func (c *CPU) EnableInterrupts() {
	c.ifFlag = true
}

// DisableInterrupts clears the interrupt flag and returns its previous value
// so it can be handed back to RestoreInterrupts.
func (c *CPU) DisableInterrupts() bool {
	prev := c.ifFlag
	c.ifFlag = false
	return prev
}

// RestoreInterrupts sets the interrupt flag to a value previously returned by
// DisableInterrupts.
func (c *CPU) RestoreInterrupts(prev bool) {
	c.ifFlag = prev
}

// InterruptsEnabled returns the current value of the interrupt flag.
func (c *CPU) InterruptsEnabled() bool {
	return c.ifFlag
}

// HandleIRQ installs the handler for an interrupt line.
func (c *CPU) HandleIRQ(line IRQ, handler IRQHandler) {
	if int(line) < len(c.irqHandlers) {
		c.irqHandlers[line] = handler
	}
}

// Raise delivers an interrupt to the CPU and blocks until the CPU settles
// again or the machine halts. The CPU is settled when the running thread
// halts in Wait or reaches a Pause with nothing pending, so a thread that
// only computes still receives every interrupt. Raise is the entry point for
// external devices and must never be called by the running thread.
func (c *CPU) Raise(line IRQ, data uint32) {
	select {
	case c.irqs <- Interrupt{Line: line, Data: data}:
	case <-c.halted:
		return
	}

	c.WaitIdle()
}

// WaitIdle blocks until the running thread halts in Wait, reaches a Pause or
// the machine halts.
func (c *CPU) WaitIdle() {
	select {
	case <-c.idle:
	case <-c.halted:
	}
}

// Wait enables interrupts and halts the running thread until the next
// interrupt arrives (sti; hlt). The interrupt is serviced on the calling
// thread before Wait returns.
func (c *CPU) Wait() {
	c.ifFlag = true
	for {
		select {
		case in := <-c.irqs:
			c.dispatch(in)
			return
		case c.idle <- struct{}{}:
		}
	}
}

// Poll services a pending interrupt if interrupts are enabled. It models the
// interrupt window at an instruction boundary and never blocks.
func (c *CPU) Poll() {
	if !c.ifFlag {
		return
	}

	select {
	case in := <-c.irqs:
		c.dispatch(in)
	default:
	}
}

// Pause is an instruction boundary inside a compute loop. A pending interrupt
// is serviced like in Poll; otherwise a device blocked in Raise is told that
// the CPU has settled. Pause never blocks.
func (c *CPU) Pause() {
	if !c.ifFlag {
		return
	}

	select {
	case in := <-c.irqs:
		c.dispatch(in)
	case c.idle <- struct{}{}:
	default:
	}
}

// dispatch runs the handler for the interrupt with interrupts disabled and
// restores the interrupt flag on the way out, like an interrupt gate followed
// by iret. A handler may switch threads; the flag restored is the one saved
// by the thread that returns here.
func (c *CPU) dispatch(in Interrupt) {
	saved := c.ifFlag
	c.ifFlag = false
	if int(in.Line) < len(c.irqHandlers) {
		if handler := c.irqHandlers[in.Line]; handler != nil {
			handler(in.Data)
		}
	}
	c.ifFlag = saved
}

// Halt stops instruction execution for good. The calling goroutine never
// returns and every pending or future Raise call returns immediately.
func (c *CPU) Halt() {
	c.haltOnce.Do(func() { close(c.halted) })
	select {}
}

// Halted returns true once Halt has been called.
func (c *CPU) Halted() bool {
	select {
	case <-c.halted:
		return true
	default:
		return false
	}
}

// SetKernelStack updates the task state segment with the kernel stack used
// when the running process traps into the kernel.
func (c *CPU) SetKernelStack(top uint32) {
	c.tss.SS0 = KernelDS
	c.tss.ESP0 = top
}

// TaskState returns a copy of the task state segment.
func (c *CPU) TaskState() TaskState {
	return c.tss
}

// TLB returns the translation cache of the CPU.
func (c *CPU) TLB() *TLB {
	return &c.tlb
}

// FlushTLB invalidates every cached translation (mov cr3, cr3).
func (c *CPU) FlushTLB() {
	c.tlb.Flush()
}

// ReadCR2 returns the address that caused the last page fault.
func (c *CPU) ReadCR2() uint32 {
	return c.cr2
}
