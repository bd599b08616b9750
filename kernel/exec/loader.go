// Package exec implements program loading, process termination and the
// continuations that connect a process to the caller that launched it.
package exec

import (
	"encoding/binary"
	"io"

	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/fs"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm"
	"ttyos/kernel/mm/vmm"
	"ttyos/kernel/proc"
)

const (
	// FaultStatus is the status reported to the parent of a process killed
	// by a processor exception.
	FaultStatus = 256

	// DefaultShell is the program launched on every terminal session.
	DefaultShell = "shell"

	// MaxImageSize is the largest image that fits between the load
	// address and the end of the user window.
	MaxImageSize = mm.UserWindowEnd - mm.LoadAddress

	// entryOffset is the offset of the entry point in the image header.
	entryOffset = 24
	headerSize  = entryOffset + 4
)

var imageMagic = [4]byte{0x7F, 'E', 'L', 'F'}

var (
	errEmptyCommand  = &kernel.Error{Module: "exec", Message: "empty command", Kind: kernel.NotFound}
	errNotExecutable = &kernel.Error{Module: "exec", Message: "not a regular file", Kind: kernel.InvalidFormat}
	errBadMagic      = &kernel.Error{Module: "exec", Message: "bad executable magic", Kind: kernel.InvalidFormat}
	errShortImage    = &kernel.Error{Module: "exec", Message: "executable header truncated", Kind: kernel.InvalidFormat}
	errImageTooLarge = &kernel.Error{Module: "exec", Message: "executable does not fit in the user window", Kind: kernel.InvalidFormat}
	errCopyImage     = &kernel.Error{Module: "exec", Message: "unable to copy executable into the user window"}
)

// image is a validated executable.
type image struct {
	data  []byte
	entry uint32
}

// Loader launches and terminates processes.
type Loader struct {
	cpu        *cpu.CPU
	as         *vmm.AddressSpace
	table      *proc.Table
	fileSystem fs.FileSystem

	shell string

	// faultOut receives the report printed when a process is killed by an
	// exception.
	faultOut io.Writer

	log io.Writer
}

// NewLoader returns a loader that reads executables from fileSystem.
func NewLoader(c *cpu.CPU, as *vmm.AddressSpace, table *proc.Table, fileSystem fs.FileSystem) *Loader {
	return &Loader{
		cpu:        c,
		as:         as,
		table:      table,
		fileSystem: fileSystem,
		shell:      DefaultShell,
		faultOut:   kfmt.GetOutputSink(),
		log:        &kfmt.PrefixWriter{Sink: kfmt.GetOutputSink(), Prefix: []byte("[exec] ")},
	}
}

// SetShell selects the program launched on the terminal sessions.
func (l *Loader) SetShell(name string) {
	l.shell = name
}

// SetFaultOutput selects where exception reports are printed.
func (l *Loader) SetFaultOutput(w io.Writer) {
	l.faultOut = w
}

// SetLogOutput redirects the loader log. A nil w discards it.
func (l *Loader) SetLogOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.log = &kfmt.PrefixWriter{Sink: w, Prefix: []byte("[exec] ")}
}

// Execute runs the program named by command as a child of the current
// process of the active session. It returns when the child halts, yielding
// its exit status. Nothing is modified unless the executable is valid and a
// process slot is available.
func (l *Loader) Execute(command []byte) (uint32, *kernel.Error) {
	name, arg := ParseCommand(command)
	if name == "" {
		return 0, errEmptyCommand
	}

	img, err := l.load(name)
	if err != nil {
		return 0, err
	}

	parent := l.table.Current()
	child, err := l.table.Allocate()
	if err != nil {
		return 0, err
	}

	l.install(child, img)

	child.Parent = parent.ID
	child.Session = parent.Session
	l.table.BindStdStreams(child)
	child.SetArgs(arg)
	child.Active = true

	l.table.Session(child.Session).Current = child.ID
	l.cpu.SetKernelStack(child.KernelStack())

	child.ResumeParent = l.cpu.NewContext()
	kfmt.Fprintf(l.log, "%s: pid %d (parent %d, session %d)\n", name, child.ID, parent.ID, child.Session)

	return l.cpu.EnterUserMode(userFrame(img.entry), child.ResumeParent), nil
}

// LaunchShell starts the shell of session in its permanent slot. If save is
// nil the running thread is abandoned and LaunchShell never returns;
// otherwise the running thread parks on save and LaunchShell returns when it
// is resumed. A missing or invalid shell halts the machine.
func (l *Loader) LaunchShell(session int, save *cpu.Context) uint32 {
	img, err := l.load(l.shell)
	if err != nil {
		kfmt.Panic(err)
		return 0
	}

	s := l.table.Shell(session)
	s.Session = session
	l.install(s, img)
	l.table.BindStdStreams(s)
	s.Active = true

	l.table.Session(session).Current = s.ID
	l.cpu.SetKernelStack(s.KernelStack())

	kfmt.Fprintf(l.log, "%s: session %d\n", l.shell, session)
	return l.cpu.EnterUserMode(userFrame(img.entry), save)
}

// load resolves and validates an executable without side effects.
func (l *Loader) load(name string) (image, *kernel.Error) {
	d, err := l.fileSystem.LookupByName(name)
	if err != nil {
		return image{}, err
	}

	if d.Kind != fs.KindRegular {
		return image{}, errNotExecutable
	}

	size, err := l.fileSystem.Length(d.Inode)
	if err != nil {
		return image{}, err
	}

	var header [headerSize]byte
	n, err := l.fileSystem.ReadData(d.Inode, 0, header[:])
	if err != nil {
		return image{}, err
	}

	switch {
	case n < len(imageMagic) || [4]byte(header[:4]) != imageMagic:
		return image{}, errBadMagic
	case n < headerSize:
		return image{}, errShortImage
	case size > MaxImageSize:
		return image{}, errImageTooLarge
	}

	data := make([]byte, size)
	if _, err = l.fileSystem.ReadData(d.Inode, 0, data); err != nil {
		return image{}, err
	}

	return image{
		data:  data,
		entry: binary.LittleEndian.Uint32(header[entryOffset:]),
	}, nil
}

// install maps the frame of s into the user window and copies img to the
// load address.
func (l *Loader) install(s *proc.Slot, img image) {
	l.as.RemapUserWindow(s.ID)
	if err := l.as.CopyOut(mm.LoadAddress, img.data); err != nil {
		kfmt.Panic(errCopyImage)
	}
}

// userFrame builds the iret frame that starts a program at entry.
func userFrame(entry uint32) cpu.Frame {
	return cpu.Frame{
		EIP:    entry,
		CS:     uint32(cpu.UserCS),
		EFlags: cpu.FlagIF,
		ESP:    mm.UserStackTop,
		SS:     uint32(cpu.UserDS),
	}
}
