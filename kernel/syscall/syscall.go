// Package syscall implements the system call gate: the only entry point into
// the kernel available to user programs. Every failure is reported to the
// caller as -1.
package syscall

import (
	"encoding/binary"

	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/exec"
	"ttyos/kernel/fs"
	"ttyos/kernel/mm"
	"ttyos/kernel/mm/vmm"
	"ttyos/kernel/proc"
)

// System call numbers.
const (
	Halt       = 1
	Execute    = 2
	Read       = 3
	Write      = 4
	Open       = 5
	Close      = 6
	GetArgs    = 7
	Vidmap     = 8
	SetHandler = 9
	SigReturn  = 10

	numSyscalls = SigReturn + 1
)

// failed is the value returned by every failing system call.
const failed = -1

var (
	errBadLength    = &kernel.Error{Module: "syscall", Message: "negative length", Kind: kernel.InvalidArgument}
	errNullBuffer   = &kernel.Error{Module: "syscall", Message: "null buffer", Kind: kernel.InvalidArgument}
	errBadScreenPtr = &kernel.Error{Module: "syscall", Message: "screen pointer outside the user window", Kind: kernel.InvalidArgument}
)

// Executor is the part of the loader used by the gate.
type Executor interface {
	Execute(command []byte) (uint32, *kernel.Error)
	Halt(status uint32)
}

type handlerFn func(d *Dispatcher, a1, a2, a3 uint32) (int32, *kernel.Error)

var handlers = [numSyscalls]handlerFn{
	Halt:       (*Dispatcher).halt,
	Execute:    (*Dispatcher).execute,
	Read:       (*Dispatcher).read,
	Write:      (*Dispatcher).write,
	Open:       (*Dispatcher).open,
	Close:      (*Dispatcher).close,
	GetArgs:    (*Dispatcher).getArgs,
	Vidmap:     (*Dispatcher).vidmap,
	SetHandler: (*Dispatcher).nop,
	SigReturn:  (*Dispatcher).nop,
}

// Dispatcher decodes system call traps and routes them to the kernel.
type Dispatcher struct {
	as    *vmm.AddressSpace
	table *proc.Table
	exec  Executor

	counts [numSyscalls]uint64
}

// New returns a dispatcher operating on the current process of table.
func New(as *vmm.AddressSpace, table *proc.Table, executor Executor) *Dispatcher {
	return &Dispatcher{
		as:    as,
		table: table,
		exec:  executor,
	}
}

// Handle is the syscall gate handler. EAX holds the call number on entry and
// the result on return; EBX, ECX and EDX hold the arguments.
func (d *Dispatcher) Handle(regs *cpu.Regs) {
	ret := int32(failed)

	if num := regs.EAX; num < numSyscalls && handlers[num] != nil {
		d.counts[num]++
		if res, err := handlers[num](d, regs.EBX, regs.ECX, regs.EDX); err == nil {
			ret = res
		}
	}

	regs.EAX = uint32(ret)
}

// Count returns how many times system call num was invoked.
func (d *Dispatcher) Count(num int) uint64 {
	if num < 0 || num >= numSyscalls {
		return 0
	}
	return d.counts[num]
}

// halt never returns.
func (d *Dispatcher) halt(status, _, _ uint32) (int32, *kernel.Error) {
	d.exec.Halt(status & 0xFF)
	return 0, nil
}

func (d *Dispatcher) execute(cmdPtr, _, _ uint32) (int32, *kernel.Error) {
	cmd, err := d.as.ReadString(cmdPtr, exec.MaxCommandLen)
	if err != nil {
		return 0, err
	}

	status, err := d.exec.Execute(cmd)
	if err != nil {
		return 0, err
	}
	return int32(status), nil
}

func (d *Dispatcher) read(fd, buf, n uint32) (int32, *kernel.Error) {
	if int32(n) < 0 {
		return 0, errBadLength
	}

	if buf == 0 {
		return 0, errNullBuffer
	}

	if err := d.as.CheckUserRange(buf, n, true); err != nil {
		return 0, err
	}

	kbuf := make([]byte, n)
	count, err := d.table.Read(d.table.Current(), int(int32(fd)), kbuf)
	if err != nil {
		return 0, err
	}

	if err = d.as.CopyOut(buf, kbuf[:count]); err != nil {
		return 0, err
	}
	return int32(count), nil
}

func (d *Dispatcher) write(fd, buf, n uint32) (int32, *kernel.Error) {
	if int32(n) < 0 {
		return 0, errBadLength
	}

	if buf == 0 {
		return 0, errNullBuffer
	}

	if err := d.as.CheckUserRange(buf, n, false); err != nil {
		return 0, err
	}

	kbuf := make([]byte, n)
	if err := d.as.CopyIn(buf, kbuf); err != nil {
		return 0, err
	}

	count, err := d.table.Write(d.table.Current(), int(int32(fd)), kbuf)
	if err != nil {
		return 0, err
	}
	return int32(count), nil
}

func (d *Dispatcher) open(namePtr, _, _ uint32) (int32, *kernel.Error) {
	name, err := d.as.ReadString(namePtr, fs.MaxNameLen+1)
	if err != nil {
		return 0, err
	}

	fd, err := d.table.Open(d.table.Current(), string(name))
	if err != nil {
		return 0, err
	}
	return int32(fd), nil
}

func (d *Dispatcher) close(fd, _, _ uint32) (int32, *kernel.Error) {
	if err := d.table.Close(d.table.Current(), int(int32(fd))); err != nil {
		return 0, err
	}
	return 0, nil
}

func (d *Dispatcher) getArgs(buf, n, _ uint32) (int32, *kernel.Error) {
	args, err := d.table.GetArgs(d.table.Current(), int(int32(n)))
	if err != nil {
		return 0, err
	}

	if err = d.as.CopyOut(buf, args); err != nil {
		return 0, err
	}
	return 0, nil
}

func (d *Dispatcher) vidmap(out, _, _ uint32) (int32, *kernel.Error) {
	if out < mm.UserWindow || out > mm.UserWindowEnd-4 {
		return 0, errBadScreenPtr
	}

	var addr [4]byte
	binary.LittleEndian.PutUint32(addr[:], mm.VidmapAddress)
	if err := d.as.CopyOut(out, addr[:]); err != nil {
		return 0, err
	}
	return 0, nil
}

func (d *Dispatcher) nop(_, _, _ uint32) (int32, *kernel.Error) {
	return 0, nil
}
