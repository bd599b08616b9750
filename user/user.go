// Package user is the runtime library linked into user programs. It wraps
// the system calls and manages a scratch area below the user stack pointer
// for the buffers the kernel reads and writes.
package user

import (
	"encoding/binary"

	"ttyos/kernel/cpu"
)

// Standard descriptors.
const (
	Stdin  = int32(0)
	Stdout = int32(1)
)

// System call numbers.
const (
	sysHalt       = 1
	sysExecute    = 2
	sysRead       = 3
	sysWrite      = 4
	sysOpen       = 5
	sysClose      = 6
	sysGetArgs    = 7
	sysVidmap     = 8
	sysSetHandler = 9
	sysSigReturn  = 10
)

// Proc is the view a program has of itself.
type Proc struct {
	u  *cpu.UserContext
	sp uint32
}

// New returns the runtime of the program running on u.
func New(u *cpu.UserContext) *Proc {
	return &Proc{u: u, sp: u.Frame().ESP}
}

// Syscall traps into the kernel with raw arguments.
func (p *Proc) Syscall(num, arg1, arg2, arg3 uint32) int32 {
	return p.u.Syscall(num, arg1, arg2, arg3)
}

// Halt terminates the program with status.
func (p *Proc) Halt(status uint8) int32 {
	return p.Syscall(sysHalt, uint32(status), 0, 0)
}

// Execute runs command and returns its exit status, or -1 if it could not be
// started.
func (p *Proc) Execute(command string) int32 {
	mark := p.sp
	defer p.release(mark)

	addr := p.pushString(command)
	return p.Syscall(sysExecute, addr, 0, 0)
}

// Read reads up to len(buf) bytes from fd.
func (p *Proc) Read(fd int32, buf []byte) int32 {
	mark := p.sp
	defer p.release(mark)

	addr := p.reserve(len(buf))
	n := p.Syscall(sysRead, uint32(fd), addr, uint32(len(buf)))
	if n > 0 {
		p.u.Load(addr, buf[:n])
	}
	return n
}

// Write writes data to fd.
func (p *Proc) Write(fd int32, data []byte) int32 {
	mark := p.sp
	defer p.release(mark)

	addr := p.push(data)
	return p.Syscall(sysWrite, uint32(fd), addr, uint32(len(data)))
}

// Print writes s to standard output.
func (p *Proc) Print(s string) int32 {
	return p.Write(Stdout, []byte(s))
}

// Open opens the named file and returns its descriptor.
func (p *Proc) Open(name string) int32 {
	mark := p.sp
	defer p.release(mark)

	addr := p.pushString(name)
	return p.Syscall(sysOpen, addr, 0, 0)
}

// Close releases fd.
func (p *Proc) Close(fd int32) int32 {
	return p.Syscall(sysClose, uint32(fd), 0, 0)
}

// GetArgs copies the argument of the program into buf.
func (p *Proc) GetArgs(buf []byte) int32 {
	mark := p.sp
	defer p.release(mark)

	addr := p.reserve(len(buf))
	ret := p.Syscall(sysGetArgs, addr, uint32(len(buf)), 0)
	if ret == 0 {
		p.u.Load(addr, buf)
	}
	return ret
}

// Vidmap returns the user address of the video memory page.
func (p *Proc) Vidmap() (uint32, int32) {
	mark := p.sp
	defer p.release(mark)

	addr := p.reserve(4)
	if ret := p.Syscall(sysVidmap, addr, 0, 0); ret != 0 {
		return 0, ret
	}

	var raw [4]byte
	p.u.Load(addr, raw[:])
	return binary.LittleEndian.Uint32(raw[:]), 0
}

// SetHandler installs a signal handler.
func (p *Proc) SetHandler(signum, handler uint32) int32 {
	return p.Syscall(sysSetHandler, signum, handler, 0)
}

// SigReturn returns from a signal handler.
func (p *Proc) SigReturn() int32 {
	return p.Syscall(sysSigReturn, 0, 0, 0)
}

// Peek reads user memory at vaddr.
func (p *Proc) Peek(vaddr uint32, buf []byte) {
	p.u.Load(vaddr, buf)
}

// Poke writes user memory at vaddr.
func (p *Proc) Poke(vaddr uint32, data []byte) {
	p.u.Store(vaddr, data)
}

// Step executes a unit of computation.
func (p *Proc) Step() {
	p.u.Step()
}

// reserve carves n bytes out of the scratch area and returns their address.
func (p *Proc) reserve(n int) uint32 {
	p.sp = (p.sp - uint32(n)) &^ 3
	return p.sp
}

func (p *Proc) push(data []byte) uint32 {
	addr := p.reserve(len(data))
	p.u.Store(addr, data)
	return addr
}

func (p *Proc) pushString(s string) uint32 {
	return p.push(append([]byte(s), 0))
}

func (p *Proc) release(mark uint32) {
	p.sp = mark
}
