// Package sched implements the round-robin scheduler that rotates the CPU
// between the terminal sessions on every timer tick.
package sched

import (
	"io"

	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm/vmm"
	"ttyos/kernel/proc"
)

var errNoContinuation = &kernel.Error{Module: "sched", Message: "running session has no preempted context"}

// State is the scheduling state of a terminal session.
type State uint8

const (
	// Uninitialized sessions have not been visited since scheduling was
	// (re-)enabled; their shell is launched on the next visit.
	Uninitialized State = iota

	// Running sessions have a process chain that can be resumed.
	Running
)

// String returns the name of the state.
func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "uninitialized"
}

// Launcher resets sessions and starts their shells.
type Launcher interface {
	Reset(session int)
	LaunchShell(session int, save *cpu.Context) uint32
}

// Scheduler rotates the CPU between sessions 0, 1 and 2 in a fixed order.
type Scheduler struct {
	cpu      *cpu.CPU
	as       *vmm.AddressSpace
	table    *proc.Table
	launcher Launcher

	// foregroundFn reports the session whose screen is visible.
	foregroundFn func() int

	enabled bool
	idx     int
	states  [proc.NumSessions]State
	visits  [proc.NumSessions]uint64

	log io.Writer
}

// New returns an enabled scheduler. Session 0 is expected to be started by
// the boot code and must be marked with MarkRunning.
func New(c *cpu.CPU, as *vmm.AddressSpace, table *proc.Table, launcher Launcher, foregroundFn func() int) *Scheduler {
	return &Scheduler{
		cpu:          c,
		as:           as,
		table:        table,
		launcher:     launcher,
		foregroundFn: foregroundFn,
		enabled:      true,
		log:          io.Discard,
	}
}

// SetLogOutput redirects the scheduler log. A nil w discards it.
func (s *Scheduler) SetLogOutput(w io.Writer) {
	if w == nil {
		s.log = io.Discard
		return
	}
	s.log = &kfmt.PrefixWriter{Sink: w, Prefix: []byte("[sched] ")}
}

// SetEnabled turns scheduling on or off. The change takes effect on the next
// tick.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// Enabled returns true if ticks rotate sessions.
func (s *Scheduler) Enabled() bool {
	return s.enabled
}

// MarkRunning records that session has been started outside the scheduler
// and makes it the position of the rotation.
func (s *Scheduler) MarkRunning(session int) {
	s.states[session] = Running
	s.idx = session
}

// State returns the scheduling state of session.
func (s *Scheduler) State(session int) State {
	return s.states[session]
}

// Visits returns the number of ticks that handed the CPU to session.
func (s *Scheduler) Visits(session int) uint64 {
	return s.visits[session]
}

// Tick is the timer interrupt handler. It runs on the thread of the
// outgoing process and returns when that process is scheduled again.
func (s *Scheduler) Tick(uint32) {
	if !s.enabled {
		if s.idx != -1 {
			kfmt.Fprintf(s.log, "scheduling disabled\n")
		}
		s.idx = -1
		for i := range s.states {
			s.states[i] = Uninitialized
		}
		return
	}

	var (
		outSession = s.table.Active()
		out        = s.table.Current()
	)

	s.idx = (s.idx + 1) % proc.NumSessions
	next := s.idx
	s.visits[next]++

	if s.states[next] == Uninitialized {
		kfmt.Fprintf(s.log, "starting session %d\n", next)
		s.states[next] = Running
		s.table.SetActive(next)
		s.as.RemapVideoWindow(next, next == s.foregroundFn())
		s.launcher.Reset(next)

		// the outgoing thread is torn down with its session
		if next == outSession {
			s.launcher.LaunchShell(next, nil)
			return
		}

		out.Preempted = s.cpu.NewContext()
		s.launcher.LaunchShell(next, out.Preempted)
		out.Preempted = nil
		return
	}

	if next == outSession {
		return
	}

	in := s.table.Get(s.table.Session(next).Current)
	if in.Preempted == nil {
		kfmt.Panic(errNoContinuation)
		return
	}

	s.table.SetActive(next)
	s.as.RemapUserWindow(in.ID)
	s.as.RemapVideoWindow(next, next == s.foregroundFn())
	s.cpu.SetKernelStack(in.KernelStack())

	out.Preempted = s.cpu.NewContext()
	s.cpu.Switch(out.Preempted, in.Preempted)
	out.Preempted = nil
}
