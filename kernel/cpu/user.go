package cpu

// Segment selectors loaded by the kernel.
const (
	KernelCS = uint16(0x0010)
	KernelDS = uint16(0x0018)
	UserCS   = uint16(0x0023)
	UserDS   = uint16(0x002B)
)

// FlagIF is the interrupt-enable bit of EFLAGS.
const FlagIF = uint32(1 << 9)

// haltSyscall is invoked by the program epilogue with the value returned by
// the program, mirroring a C runtime calling halt after main returns.
const haltSyscall = 1

// Frame is the frame consumed by iret when transferring control to user mode.
type Frame struct {
	EIP    uint32
	CS     uint32
	EFlags uint32
	ESP    uint32
	SS     uint32
}

// Regs holds the general purpose registers used by the syscall convention:
// EAX carries the syscall number in and the result out; EBX, ECX and EDX
// carry the arguments.
type Regs struct {
	EAX uint32
	EBX uint32
	ECX uint32
	EDX uint32
}

// SyscallHandler services a system call trap.
type SyscallHandler func(regs *Regs)

// Program is user-mode code. Its return value is passed to the halt syscall.
type Program func(u *UserContext) uint8

// CodeRegistry resolves entry point addresses to executable user code.
type CodeRegistry interface {
	Lookup(entry uint32) (Program, bool)
}

// Code is a map-backed CodeRegistry.
type Code map[uint32]Program

// Lookup implements CodeRegistry.
func (c Code) Lookup(entry uint32) (Program, bool) {
	prog, ok := c[entry]
	return prog, ok
}

// MMU performs user-privilege memory accesses. Both methods return the
// faulting address and false if any byte of the range is inaccessible.
type MMU interface {
	UserLoad(vaddr uint32, p []byte) (uint32, bool)
	UserStore(vaddr uint32, p []byte) (uint32, bool)
}

// HandleSyscall installs the syscall gate handler.
func (c *CPU) HandleSyscall(handler SyscallHandler) {
	c.syscallHandler = handler
}

// EnterUserMode performs the privilege transfer described by frame on a new
// thread. If save is nil the running thread exits and EnterUserMode never
// returns; otherwise the running thread parks on save and EnterUserMode
// returns the value passed when save is resumed.
func (c *CPU) EnterUserMode(frame Frame, save *Context) uint32 {
	run := func() { c.runUser(frame) }
	if save == nil {
		c.Exit(func() { c.spawn(run) })
	}

	savedIF := c.ifFlag
	c.spawn(run)
	return c.park(save, savedIF)
}

func (c *CPU) runUser(frame Frame) {
	c.ifFlag = frame.EFlags&FlagIF != 0
	u := &UserContext{cpu: c, frame: frame}

	if frame.CS&3 != 3 {
		u.Fault(GeneralProtectionFault)
		c.Halt()
	}

	prog, ok := c.code.Lookup(frame.EIP)
	if !ok {
		u.Fault(InvalidOpcode)
		c.Halt()
	}

	status := prog(u)
	u.Syscall(haltSyscall, uint32(status), 0, 0)

	// halt returned; there is nothing left to execute.
	c.Halt()
}

// UserContext is the view of the machine available to user-mode code.
type UserContext struct {
	cpu   *CPU
	frame Frame
}

// Frame returns the frame the program was entered with.
func (u *UserContext) Frame() Frame {
	return u.frame
}

// Syscall traps into the kernel (int $0x80) and returns the value left in
// EAX. Pending interrupts are serviced on the way back to user mode.
func (u *UserContext) Syscall(num, arg1, arg2, arg3 uint32) int32 {
	regs := Regs{EAX: num, EBX: arg1, ECX: arg2, EDX: arg3}
	if u.cpu.syscallHandler != nil {
		u.cpu.syscallHandler(&regs)
	} else {
		regs.EAX = ^uint32(0)
	}

	u.cpu.Poll()
	return int32(regs.EAX)
}

// Load reads len(p) bytes of virtual memory at vaddr. Inaccessible memory
// raises a page fault.
func (u *UserContext) Load(vaddr uint32, p []byte) {
	if u.cpu.mmu == nil {
		u.cpu.cr2 = vaddr
		u.Fault(PageFault)
		return
	}

	if addr, ok := u.cpu.mmu.UserLoad(vaddr, p); !ok {
		u.cpu.cr2 = addr
		u.Fault(PageFault)
	}
}

// Store writes p to virtual memory at vaddr. Inaccessible memory raises a
// page fault.
func (u *UserContext) Store(vaddr uint32, p []byte) {
	if u.cpu.mmu == nil {
		u.cpu.cr2 = vaddr
		u.Fault(PageFault)
		return
	}

	if addr, ok := u.cpu.mmu.UserStore(vaddr, p); !ok {
		u.cpu.cr2 = addr
		u.Fault(PageFault)
	}
}

// Step marks an instruction boundary of a compute loop. Pending interrupts
// are serviced and the timer can preempt the program here.
func (u *UserContext) Step() {
	u.cpu.Pause()
}

// Fault raises a processor exception on behalf of the running program. The
// kernel handlers for user faults terminate the process and never return; if
// no handler is installed the machine halts.
func (u *UserContext) Fault(e Exception) {
	var handler ExceptionHandler
	if int(e) < len(u.cpu.excHandlers) {
		handler = u.cpu.excHandlers[e]
	}

	if handler == nil {
		u.cpu.Halt()
	}

	handler(e, u)
}
