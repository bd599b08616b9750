package tty

import "ttyos/device/video/console"

// LineBufferSize is the size of the keyboard line buffer of a terminal.
// One byte is reserved for the newline appended by Read.
const LineBufferSize = 128

// Terminal is the per-session terminal: a cursor over the session's screen
// page and a keyboard line buffer. The terminal interprets the following
// special characters on output:
//   - \n (line-feed with carriage return)
//   - \r (carriage-return)
//   - \b (backspace)
type Terminal struct {
	mgr     *Manager
	session int

	line    [LineBufferSize]byte
	lineLen int
	enter   bool

	cursorX, cursorY uint32
	fg, bg           uint8
}

func (t *Terminal) init(mgr *Manager, session int) {
	t.mgr = mgr
	t.session = session
	t.cursorX, t.cursorY = 1, 1
	t.fg, t.bg = mgr.fb.DefaultColors()
}

// Screen returns the console page the terminal currently renders into: the
// framebuffer for the foreground session, the backing page otherwise.
func (t *Terminal) Screen() *console.Text {
	return t.mgr.Screen(t.session)
}

// CursorPosition returns the 1-based cursor coordinates.
func (t *Terminal) CursorPosition() (uint32, uint32) {
	return t.cursorX, t.cursorY
}

// Clear blanks the screen and moves the cursor to the top-left corner.
func (t *Terminal) Clear() {
	t.Screen().Clear()
	t.cursorX, t.cursorY = 1, 1
}

// Write implements io.Writer. NUL bytes are skipped but counted.
func (t *Terminal) Write(p []byte) (int, error) {
	for _, b := range p {
		if b != 0 {
			t.putc(b)
		}
	}
	return len(p), nil
}

// Read blocks until a line is entered and copies it, followed by a newline,
// into p. The line is truncated to len(p) bytes. The CPU is halted between
// keystrokes.
func (t *Terminal) Read(p []byte) int {
	for !t.enter {
		t.mgr.cpu.Wait()
	}

	t.line[t.lineLen] = '\n'
	n := copy(p, t.line[:t.lineLen+1])

	t.lineLen = 0
	t.enter = false
	return n
}

// Pending returns the contents of the line buffer.
func (t *Terminal) Pending() []byte {
	return t.line[:t.lineLen]
}

// handleKey processes a key press delivered to the foreground terminal.
func (t *Terminal) handleKey(key uint32) {
	switch {
	case t.enter:
		// the previous line has not been consumed yet
	case key == KeyEnter || key == '\r':
		t.enter = true
		t.putc('\n')
	case key == KeyBackspace:
		if t.lineLen > 0 {
			t.lineLen--
			t.putc('\b')
		}
	case key == KeyClear:
		t.Clear()
		t.Write(t.line[:t.lineLen])
	case key >= ' ' && key <= '~':
		if t.lineLen < LineBufferSize-1 {
			t.line[t.lineLen] = byte(key)
			t.lineLen++
			t.putc(byte(key))
		}
	}
}

func (t *Terminal) putc(b byte) {
	screen := t.Screen()

	switch b {
	case '\n':
		t.lf(screen)
	case '\r':
		t.cursorX = 1
	case '\b':
		switch {
		case t.cursorX > 1:
			t.cursorX--
		case t.cursorY > 1:
			t.cursorX, t.cursorY = console.Width, t.cursorY-1
		}
		screen.Write(' ', t.fg, t.bg, t.cursorX, t.cursorY)
	default:
		screen.Write(b, t.fg, t.bg, t.cursorX, t.cursorY)
		t.cursorX++
		if t.cursorX > console.Width {
			t.lf(screen)
		}
	}
}

// lf moves the cursor to the start of the next line, scrolling the screen
// once the last line is reached.
func (t *Terminal) lf(screen *console.Text) {
	t.cursorX = 1
	if t.cursorY < console.Height {
		t.cursorY++
		return
	}

	screen.Scroll(console.ScrollDirUp, 1)
	screen.Fill(1, console.Height, console.Width, 1, t.fg, t.bg)
}
