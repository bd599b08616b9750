package proc

import (
	"ttyos/kernel/cpu"
	"ttyos/kernel/fs"
	"ttyos/kernel/mm"
)

const (
	// MaxProcs is the size of the process pool.
	MaxProcs = 6

	// MaxFD is the size of a process descriptor table.
	MaxFD = 8

	// MaxArgLen is the size of the argument buffer of a process.
	MaxArgLen = 1024

	// NumSessions is the number of terminal sessions. Slots 0 to
	// NumSessions-1 belong to the session shells.
	NumSessions = mm.TerminalPages

	// NoParent is the parent id of the session shells.
	NoParent = -1

	// KernelStackSize is the size of the kernel stack of each slot.
	KernelStackSize = uint32(8 << 10)

	// Stdin and Stdout are the descriptors bound at process creation.
	Stdin  = 0
	Stdout = 1
)

// StackArena describes the kernel stack reserved for a slot. Stacks are
// carved downwards from the top of the kernel region.
type StackArena struct {
	// Top is the initial stack pointer loaded on a privilege change.
	Top uint32
}

// stackArenas is computed once; slots look their arena up by id.
var stackArenas = func() (arenas [MaxProcs]StackArena) {
	for i := range arenas {
		arenas[i].Top = mm.ProcessBase - uint32(i)*KernelStackSize - 4
	}
	return arenas
}()

// Slot is a process control block.
type Slot struct {
	ID      int
	Parent  int
	Session int
	Active  bool

	Files [MaxFD]fs.File

	// ResumeParent is the continuation of the caller that launched this
	// process. Halting the process resumes it with the exit status.
	ResumeParent *cpu.Context

	// Preempted is the continuation captured when the scheduler took the
	// CPU away from this process.
	Preempted *cpu.Context

	args   [MaxArgLen]byte
	argLen int
	stack  *StackArena
}

// IsShell returns true for the permanent session shell slots.
func (s *Slot) IsShell() bool {
	return s.ID < NumSessions
}

// KernelStack returns the top of the kernel stack of the slot.
func (s *Slot) KernelStack() uint32 {
	return s.stack.Top
}

// SetArgs replaces the argument buffer with arg, truncated to MaxArgLen.
// The rest of the buffer is zeroed.
func (s *Slot) SetArgs(arg []byte) {
	s.args = [MaxArgLen]byte{}
	s.argLen = copy(s.args[:], arg)
}

// Args returns the stored argument string.
func (s *Slot) Args() []byte {
	return s.args[:s.argLen]
}

// reset prepares the slot for a new process.
func (s *Slot) reset(id int) {
	*s = Slot{
		ID:     id,
		Parent: NoParent,
		stack:  &stackArenas[id],
	}
}
