package exec

import (
	"ttyos/kernel/cpu"
	"ttyos/kernel/kfmt"
)

// Halt terminates the current process of the active session and never
// returns. A shell is relaunched in place; any other process hands status to
// the continuation of the caller that launched it, with the session, the
// kernel stack and the user window pointing back at the parent.
func (l *Loader) Halt(status uint32) {
	p := l.table.Current()

	if p.IsShell() {
		l.table.CloseAll(p)
		kfmt.Fprintf(l.log, "shell of session %d exited (%d); restarting\n", p.Session, status)
		l.LaunchShell(p.Session, nil)
		return
	}

	var (
		parent = l.table.Parent(p)
		resume = p.ResumeParent
	)

	l.table.Session(p.Session).Current = parent.ID
	l.cpu.SetKernelStack(parent.KernelStack())
	l.as.RemapUserWindow(parent.ID)

	l.table.CloseAll(p)
	l.table.Free(p.ID)
	p.ResumeParent = nil

	kfmt.Fprintf(l.log, "pid %d exited (%d)\n", p.ID, status)
	l.cpu.Exit(func() { l.cpu.Resume(resume, status) })
}

// HandleFault is the handler for exceptions raised by user code. It reports
// the exception on the terminal of the active session and halts the faulting
// process with FaultStatus.
func (l *Loader) HandleFault(e cpu.Exception, _ *cpu.UserContext) {
	if e == cpu.PageFault {
		kfmt.Fprintf(l.faultOut, "%s at 0x%x\n", e, l.cpu.ReadCR2())
	} else {
		kfmt.Fprintf(l.faultOut, "%s\n", e)
	}

	l.Halt(FaultStatus)
}

// Reset tears down every process of session except its shell: their threads
// are discarded, their descriptors closed and their slots freed. The shell
// slot becomes the current process of the session again and must be
// relaunched by the caller. The running thread is never discarded; if it
// belongs to session the caller must abandon it.
func (l *Loader) Reset(session int) {
	var (
		sess = l.table.Session(session)
		s    = l.table.Get(sess.Current)
	)

	l.cpu.Discard(s.Preempted)
	s.Preempted = nil

	for !s.IsShell() {
		parent := l.table.Parent(s)

		l.cpu.Discard(s.ResumeParent)
		s.ResumeParent = nil

		l.table.CloseAll(s)
		l.table.Free(s.ID)
		s = parent
	}

	l.table.CloseAll(s)
	s.Active = false
	sess.Current = s.ID
}
