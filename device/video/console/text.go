// Package console implements the 80x25 text-mode console whose cells live in
// a page of physical memory.
package console

import (
	"image/color"
	"strings"

	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm/pmm"
)

const (
	// Width and Height are the console dimensions in characters.
	Width  = 80
	Height = 25

	// Size is the number of framebuffer bytes used by a console.
	Size = Width * Height * 2
)

// ScrollDir defines a scroll direction.
type ScrollDir uint8

// The supported list of scroll directions for the console Scroll() calls.
const (
	ScrollDirUp ScrollDir = iota
	ScrollDirDown
)

// Text is an EGA-compatible text console. Each character is stored as two
// bytes: the ASCII code followed by an attribute byte holding the background
// (high nibble) and foreground (low nibble) colors.
//
// Coordinates are 1-based; the top-left corner is (1,1).
type Text struct {
	mem  *pmm.Memory
	base uint32

	palette   color.Palette
	defaultFg uint8
	defaultBg uint8
	clearChar byte
}

// NewText returns a console whose cells start at physical address base.
func NewText(mem *pmm.Memory, base uint32) *Text {
	return &Text{
		mem:       mem,
		base:      base,
		clearChar: ' ',
		palette: color.Palette{
			color.RGBA{R: 0, G: 0, B: 0, A: 255},       /* black */
			color.RGBA{R: 0, G: 0, B: 170, A: 255},     /* blue */
			color.RGBA{R: 0, G: 170, B: 0, A: 255},     /* green */
			color.RGBA{R: 0, G: 170, B: 170, A: 255},   /* cyan */
			color.RGBA{R: 170, G: 0, B: 0, A: 255},     /* red */
			color.RGBA{R: 170, G: 0, B: 170, A: 255},   /* magenta */
			color.RGBA{R: 170, G: 85, B: 0, A: 255},    /* brown */
			color.RGBA{R: 170, G: 170, B: 170, A: 255}, /* light gray */
			color.RGBA{R: 85, G: 85, B: 85, A: 255},    /* dark gray */
			color.RGBA{R: 85, G: 85, B: 255, A: 255},   /* light blue */
			color.RGBA{R: 85, G: 255, B: 85, A: 255},   /* light green */
			color.RGBA{R: 85, G: 255, B: 255, A: 255},  /* light cyan */
			color.RGBA{R: 255, G: 85, B: 85, A: 255},   /* light red */
			color.RGBA{R: 255, G: 85, B: 255, A: 255},  /* light magenta */
			color.RGBA{R: 255, G: 255, B: 85, A: 255},  /* yellow */
			color.RGBA{R: 255, G: 255, B: 255, A: 255}, /* white */
		},
		// light gray text on black background
		defaultFg: 7,
		defaultBg: 0,
	}
}

// Base returns the physical address of the first cell.
func (cons *Text) Base() uint32 {
	return cons.base
}

// DefaultColors returns the default foreground and background colors.
func (cons *Text) DefaultColors() (fg, bg uint8) {
	return cons.defaultFg, cons.defaultBg
}

// Palette returns the color palette of the console.
func (cons *Text) Palette() color.Palette {
	return cons.palette
}

// Write a char to the specified location. Colors outside the palette are
// replaced by the defaults.
func (cons *Text) Write(ch byte, fg, bg uint8, x, y uint32) {
	if x < 1 || x > Width || y < 1 || y > Height {
		return
	}

	maxColorIndex := uint8(len(cons.palette) - 1)
	if fg > maxColorIndex {
		fg = cons.defaultFg
	}
	if bg > maxColorIndex {
		bg = cons.defaultBg
	}

	cons.store(cons.offset(x, y), []byte{ch, bg<<4 | fg})
}

// Read returns the character and colors stored at the specified location.
func (cons *Text) Read(x, y uint32) (ch byte, fg, bg uint8) {
	if x < 1 || x > Width || y < 1 || y > Height {
		return 0, 0, 0
	}

	cell := make([]byte, 2)
	cons.load(cons.offset(x, y), cell)
	return cell[0], cell[1] & 0xF, cell[1] >> 4
}

// Fill sets the contents of the specified rectangular region to the clear
// character with the requested colors. The region is clipped to the console.
func (cons *Text) Fill(x, y, width, height uint32, fg, bg uint8) {
	if x == 0 {
		x = 1
	} else if x > Width {
		x = Width
	}

	if y == 0 {
		y = 1
	} else if y > Height {
		y = Height
	}

	if x+width-1 > Width {
		width = Width - x + 1
	}

	if y+height-1 > Height {
		height = Height - y + 1
	}

	row := make([]byte, width*2)
	for i := 0; i < len(row); i += 2 {
		row[i], row[i+1] = cons.clearChar, bg<<4|fg
	}

	for ; height > 0; height, y = height-1, y+1 {
		cons.store(cons.offset(x, y), row)
	}
}

// Clear fills the whole console with the default colors.
func (cons *Text) Clear() {
	cons.Fill(1, 1, Width, Height, cons.defaultFg, cons.defaultBg)
}

// Scroll the console contents to the specified direction. The caller is
// responsible for updating the contents of the region that was scrolled.
func (cons *Text) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > Height {
		return
	}

	var (
		span   = (Height - lines) * Width * 2
		offset = lines * Width * 2
	)

	switch dir {
	case ScrollDirUp:
		cons.mem.Copy(cons.base, cons.base+offset, span)
	case ScrollDirDown:
		cons.mem.Copy(cons.base+offset, cons.base, span)
	}
}

// Lines returns the console contents as text, one string per row with
// trailing blanks removed.
func (cons *Text) Lines() []string {
	var (
		raw   = make([]byte, Size)
		lines = make([]string, Height)
		row   = make([]byte, Width)
	)

	cons.load(0, raw)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			ch := raw[(y*Width+x)*2]
			if ch == 0 {
				ch = ' '
			}
			row[x] = ch
		}
		lines[y] = strings.TrimRight(string(row), " ")
	}

	return lines
}

// String returns the console contents without trailing empty rows.
func (cons *Text) String() string {
	lines := cons.Lines()
	for len(lines) != 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func (cons *Text) offset(x, y uint32) uint32 {
	return ((y-1)*Width + (x - 1)) * 2
}

func (cons *Text) store(offset uint32, p []byte) {
	if err := cons.mem.Write(cons.base+offset, p); err != nil {
		kfmt.Panic(err)
	}
}

func (cons *Text) load(offset uint32, p []byte) {
	if err := cons.mem.Read(cons.base+offset, p); err != nil {
		kfmt.Panic(err)
	}
}
