package tty

import (
	"ttyos/kernel"
	"ttyos/kernel/fs"
)

var (
	errBadSession  = &kernel.Error{Module: "tty", Message: "terminal session out of range", Kind: kernel.InvalidArgument}
	errWriteStdin  = &kernel.Error{Module: "tty", Message: "stdin is not writable", Kind: kernel.InvalidArgument}
	errReadStdout  = &kernel.Error{Module: "tty", Message: "stdout is not readable", Kind: kernel.InvalidArgument}
	errEmptyBuffer = &kernel.Error{Module: "tty", Message: "empty buffer", Kind: kernel.InvalidArgument}
)

// StdinOps serves descriptor 0 from the keyboard line buffer of the
// descriptor's session.
type StdinOps struct {
	Manager *Manager
}

// Open is a no-op.
func (StdinOps) Open(*fs.File, string) *kernel.Error { return nil }

// Close is a no-op.
func (StdinOps) Close(*fs.File) *kernel.Error { return nil }

// Read blocks until a line is entered on the descriptor's terminal.
func (ops StdinOps) Read(f *fs.File, p []byte) (int, *kernel.Error) {
	if len(p) == 0 {
		return 0, errEmptyBuffer
	}
	return ops.Manager.Terminal(f.Session).Read(p), nil
}

// Write always fails.
func (StdinOps) Write(*fs.File, []byte) (int, *kernel.Error) { return 0, errWriteStdin }

// StdoutOps serves descriptor 1 by printing to the terminal of the
// descriptor's session, whether or not it is in the foreground.
type StdoutOps struct {
	Manager *Manager
}

// Open is a no-op.
func (StdoutOps) Open(*fs.File, string) *kernel.Error { return nil }

// Close is a no-op.
func (StdoutOps) Close(*fs.File) *kernel.Error { return nil }

// Read always fails.
func (StdoutOps) Read(*fs.File, []byte) (int, *kernel.Error) { return 0, errReadStdout }

// Write prints p and returns len(p).
func (ops StdoutOps) Write(f *fs.File, p []byte) (int, *kernel.Error) {
	n, _ := ops.Manager.Terminal(f.Session).Write(p)
	return n, nil
}
