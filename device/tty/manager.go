// Package tty implements the terminals of the three sessions, keyboard
// input handling and foreground switching.
package tty

import (
	"ttyos/device/video/console"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm"
	"ttyos/kernel/mm/pmm"
)

// Key codes delivered as keyboard interrupt data. Printable keys use their
// ASCII code.
const (
	KeyBackspace = uint32('\b')
	KeyEnter     = uint32('\n')

	// KeyClear (Ctrl+L) clears the foreground screen.
	KeyClear = uint32(0x0C)

	// KeyAltF1 to KeyAltF3 bring the matching session to the foreground.
	KeyAltF1 = uint32(0x100) + iota
	KeyAltF2
	KeyAltF3
)

// NumTerminals is the number of terminal sessions.
const NumTerminals = mm.TerminalPages

// Waiter halts the CPU until the next interrupt.
type Waiter interface {
	Wait()
}

// Manager owns the terminals and decides which one is visible.
type Manager struct {
	cpu Waiter
	mem *pmm.Memory

	fb      *console.Text
	backing [NumTerminals]*console.Text
	terms   [NumTerminals]Terminal

	foreground int

	// activeFn returns the session that owns the CPU.
	activeFn func() int

	// switchFns are invoked after the foreground session changed.
	switchFns []func(foreground int)
}

// NewManager returns a manager whose screens live in mem: the framebuffer at
// mm.VideoMemory and one backing page per session after it.
func NewManager(mem *pmm.Memory, cpu Waiter) *Manager {
	m := &Manager{
		cpu:      cpu,
		mem:      mem,
		fb:       console.NewText(mem, mm.VideoMemory),
		activeFn: func() int { return 0 },
	}

	for i := range m.backing {
		m.backing[i] = console.NewText(mem, mm.TerminalFrame(i).Address())
		m.backing[i].Clear()
		m.terms[i].init(m, i)
	}
	m.fb.Clear()

	return m
}

// SetActiveFn installs the function reporting which session owns the CPU.
// Kernel messages written through the manager go to that session.
func (m *Manager) SetActiveFn(fn func() int) {
	m.activeFn = fn
}

// OnForegroundChange registers fn to be called after each foreground switch.
func (m *Manager) OnForegroundChange(fn func(foreground int)) {
	m.switchFns = append(m.switchFns, fn)
}

// Terminal returns the terminal of a session.
func (m *Manager) Terminal(session int) *Terminal {
	if session < 0 || session >= NumTerminals {
		kfmt.Panic(errBadSession)
		return nil
	}
	return &m.terms[session]
}

// Screen returns the console page a session currently renders into.
func (m *Manager) Screen(session int) *console.Text {
	if session == m.foreground {
		return m.fb
	}
	return m.backing[session]
}

// Framebuffer returns the visible console.
func (m *Manager) Framebuffer() *console.Text {
	return m.fb
}

// Foreground returns the visible session.
func (m *Manager) Foreground() int {
	return m.foreground
}

// SetForeground makes session the visible one. The screen of the old
// foreground session is saved to its backing page and the screen of the new
// one is restored from its backing page. The session owning the CPU is not
// affected.
func (m *Manager) SetForeground(session int) {
	if session < 0 || session >= NumTerminals || session == m.foreground {
		return
	}

	fb := m.fb.Base()
	if err := m.mem.Copy(m.backing[m.foreground].Base(), fb, console.Size); err != nil {
		kfmt.Panic(err)
	}
	if err := m.mem.Copy(fb, m.backing[session].Base(), console.Size); err != nil {
		kfmt.Panic(err)
	}
	m.foreground = session

	for _, fn := range m.switchFns {
		fn(session)
	}
}

// HandleKey is the keyboard interrupt handler.
func (m *Manager) HandleKey(key uint32) {
	switch key {
	case KeyAltF1, KeyAltF2, KeyAltF3:
		m.SetForeground(int(key - KeyAltF1))
	default:
		m.terms[m.foreground].handleKey(key)
	}
}

// Write implements io.Writer by writing to the terminal of the session that
// owns the CPU.
func (m *Manager) Write(p []byte) (int, error) {
	return m.terms[m.activeFn()].Write(p)
}
