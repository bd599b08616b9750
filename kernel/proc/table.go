// Package proc implements the fixed-size process pool, the per-process
// descriptor tables and the terminal session records.
package proc

import (
	"ttyos/kernel"
	"ttyos/kernel/fs"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/sync"
)

var (
	errNoFreeSlot     = &kernel.Error{Module: "proc", Message: "no free process slot", Kind: kernel.ResourceExhausted}
	errNoFreeFD       = &kernel.Error{Module: "proc", Message: "no free file descriptor", Kind: kernel.ResourceExhausted}
	errBadFD          = &kernel.Error{Module: "proc", Message: "bad file descriptor", Kind: kernel.InvalidArgument}
	errCloseStdStream = &kernel.Error{Module: "proc", Message: "standard streams cannot be closed", Kind: kernel.PermissionDenied}
	errUnknownKind    = &kernel.Error{Module: "proc", Message: "no operations registered for file kind", Kind: kernel.InvalidFormat}
	errNoArgs         = &kernel.Error{Module: "proc", Message: "process has no arguments", Kind: kernel.InvalidArgument}
	errArgsTooLong    = &kernel.Error{Module: "proc", Message: "arguments do not fit in buffer", Kind: kernel.InvalidArgument}

	errDoubleFree    = &kernel.Error{Module: "proc", Message: "freeing a process slot that is not in use"}
	errNotShellSlot  = &kernel.Error{Module: "proc", Message: "slot does not belong to a session shell"}
	errUnknownParent = &kernel.Error{Module: "proc", Message: "process refers to an unknown parent"}
	errBadSession    = &kernel.Error{Module: "proc", Message: "no such terminal session"}
)

// Session is a terminal session record.
type Session struct {
	// Current is the id of the process running in the foreground of the
	// session's process chain.
	Current int
}

// Table is the process table. All mutations are performed with interrupts
// disabled.
type Table struct {
	guard *sync.Guard

	slots [MaxProcs]Slot
	used  [MaxProcs]bool

	sessions [NumSessions]Session
	active   int

	kindOps       [fs.KindRegular + 1]fs.FileOps
	stdin, stdout fs.FileOps
	fileSystem    fs.FileSystem
}

// NewTable returns a process table whose descriptors resolve names through
// fileSystem. The shell slots are reserved up front.
func NewTable(guard *sync.Guard, fileSystem fs.FileSystem) *Table {
	t := &Table{
		guard:      guard,
		fileSystem: fileSystem,
	}

	for id := range t.slots {
		t.slots[id].reset(id)
	}

	for i := range t.sessions {
		t.used[i] = true
		t.sessions[i].Current = i
	}

	return t
}

// RegisterOps installs the operation table bound to descriptors opened on
// files of the given kind.
func (t *Table) RegisterOps(kind fs.FileKind, ops fs.FileOps) {
	if int(kind) < len(t.kindOps) {
		t.kindOps[kind] = ops
	}
}

// RegisterStdStreams installs the operation tables of descriptors 0 and 1.
func (t *Table) RegisterStdStreams(stdin, stdout fs.FileOps) {
	t.stdin, t.stdout = stdin, stdout
}

// Allocate reserves the first free slot.
func (t *Table) Allocate() (*Slot, *kernel.Error) {
	prev := t.guard.Enter()
	defer t.guard.Leave(prev)

	for id := NumSessions; id < MaxProcs; id++ {
		if !t.used[id] {
			t.used[id] = true
			t.slots[id].reset(id)
			return &t.slots[id], nil
		}
	}

	return nil, errNoFreeSlot
}

// Shell returns the slot of the shell of session after resetting it.
func (t *Table) Shell(session int) *Slot {
	if session < 0 || session >= NumSessions {
		kfmt.Panic(errNotShellSlot)
		return nil
	}

	t.guard.Do(func() {
		t.slots[session].reset(session)
	})
	return &t.slots[session]
}

// Free marks the slot inactive and returns it to the pool. Shell slots stay
// reserved.
func (t *Table) Free(id int) {
	t.guard.Do(func() {
		if id < 0 || id >= MaxProcs || !t.used[id] {
			kfmt.Panic(errDoubleFree)
			return
		}

		t.slots[id].Active = false
		if id >= NumSessions {
			t.used[id] = false
		}
	})
}

// InUse returns true if the slot is reserved.
func (t *Table) InUse(id int) bool {
	return id >= 0 && id < MaxProcs && t.used[id]
}

// Get returns the slot with the given id or nil if id is out of range.
func (t *Table) Get(id int) *Slot {
	if id < 0 || id >= MaxProcs {
		return nil
	}
	return &t.slots[id]
}

// Parent returns the parent of s. An unknown parent halts the machine.
func (t *Table) Parent(s *Slot) *Slot {
	if !t.InUse(s.Parent) || !t.slots[s.Parent].Active {
		kfmt.Panic(errUnknownParent)
		return nil
	}
	return &t.slots[s.Parent]
}

// BindStdStreams binds descriptors 0 and 1 of s to the standard streams and
// clears the rest of the descriptor table.
func (t *Table) BindStdStreams(s *Slot) {
	t.guard.Do(func() {
		for fd := range s.Files {
			s.Files[fd].Reset()
		}

		s.Files[Stdin] = fs.File{Ops: t.stdin, InUse: true, Session: s.Session}
		s.Files[Stdout] = fs.File{Ops: t.stdout, InUse: true, Session: s.Session}
	})
}

// Open resolves name and binds it to the first free descriptor of s.
func (t *Table) Open(s *Slot, name string) (int, *kernel.Error) {
	d, err := t.fileSystem.LookupByName(name)
	if err != nil {
		return -1, err
	}

	if int(d.Kind) >= len(t.kindOps) || t.kindOps[d.Kind] == nil {
		return -1, errUnknownKind
	}
	ops := t.kindOps[d.Kind]

	prev := t.guard.Enter()
	defer t.guard.Leave(prev)

	for fd := Stdout + 1; fd < MaxFD; fd++ {
		f := &s.Files[fd]
		if f.InUse {
			continue
		}

		*f = fs.File{Ops: ops, Inode: d.Inode, InUse: true, Session: s.Session}
		if err = ops.Open(f, name); err != nil {
			f.Reset()
			return -1, err
		}
		return fd, nil
	}

	return -1, errNoFreeFD
}

// Close releases descriptor fd of s.
func (t *Table) Close(s *Slot, fd int) *kernel.Error {
	if fd < 0 || fd >= MaxFD {
		return errBadFD
	}

	if fd <= Stdout {
		return errCloseStdStream
	}

	prev := t.guard.Enter()
	defer t.guard.Leave(prev)

	f := &s.Files[fd]
	if !f.InUse {
		return errBadFD
	}

	err := f.Ops.Close(f)
	f.Reset()
	return err
}

// CloseAll closes every descriptor of s above the standard streams and
// clears the descriptor table.
func (t *Table) CloseAll(s *Slot) {
	t.guard.Do(func() {
		for fd := range s.Files {
			f := &s.Files[fd]
			if fd > Stdout && f.InUse {
				if err := f.Ops.Close(f); err != nil {
					kfmt.Printf("[proc] pid %d: close of fd %d failed: %s\n", s.ID, fd, err.Message)
				}
			}
			f.Reset()
		}
	})
}

// Read reads from descriptor fd of s into p.
func (t *Table) Read(s *Slot, fd int, p []byte) (int, *kernel.Error) {
	f, err := t.file(s, fd)
	if err != nil {
		return 0, err
	}
	return f.Ops.Read(f, p)
}

// Write writes p to descriptor fd of s.
func (t *Table) Write(s *Slot, fd int, p []byte) (int, *kernel.Error) {
	f, err := t.file(s, fd)
	if err != nil {
		return 0, err
	}
	return f.Ops.Write(f, p)
}

func (t *Table) file(s *Slot, fd int) (*fs.File, *kernel.Error) {
	if fd < 0 || fd >= MaxFD || !s.Files[fd].InUse {
		return nil, errBadFD
	}
	return &s.Files[fd], nil
}

// GetArgs returns exactly n bytes of the argument buffer of s. It fails if
// no argument was stored, if the argument is longer than n or if n exceeds
// the buffer.
func (t *Table) GetArgs(s *Slot, n int) ([]byte, *kernel.Error) {
	switch {
	case n < 0 || n > MaxArgLen:
		return nil, errArgsTooLong
	case s.argLen == 0:
		return nil, errNoArgs
	case s.argLen > n:
		return nil, errArgsTooLong
	}

	out := make([]byte, n)
	copy(out, s.args[:n])
	return out, nil
}

// Session returns the record of terminal session i.
func (t *Table) Session(i int) *Session {
	if i < 0 || i >= NumSessions {
		kfmt.Panic(errBadSession)
		return nil
	}
	return &t.sessions[i]
}

// Active returns the session that owns the CPU.
func (t *Table) Active() int {
	return t.active
}

// SetActive records the session that owns the CPU.
func (t *Table) SetActive(i int) {
	if i < 0 || i >= NumSessions {
		kfmt.Panic(errBadSession)
		return
	}
	t.active = i
}

// Current returns the current process of the active session.
func (t *Table) Current() *Slot {
	return &t.slots[t.sessions[t.active].Current]
}

// Used returns the number of reserved slots, shells included.
func (t *Table) Used() int {
	n := 0
	for _, used := range t.used {
		if used {
			n++
		}
	}
	return n
}
