// Package pmm models the physical memory of the machine. Frames are allocated
// lazily the first time they are written; untouched memory reads as zero.
package pmm

import (
	"ttyos/kernel"
	"ttyos/kernel/mm"
)

var errOutOfRange = &kernel.Error{Module: "pmm", Message: "physical address out of range", Kind: kernel.InvalidArgument}

// Memory is a flat physical address space of a fixed size.
type Memory struct {
	size   uint32
	frames map[mm.Frame]*[mm.PageSize]byte
}

// New returns a zeroed physical memory of size bytes.
func New(size uint32) *Memory {
	return &Memory{
		size:   size,
		frames: make(map[mm.Frame]*[mm.PageSize]byte),
	}
}

// Size returns the size of the physical address space.
func (m *Memory) Size() uint32 {
	return m.size
}

// Read copies len(p) bytes starting at physical address addr into p.
func (m *Memory) Read(addr uint32, p []byte) *kernel.Error {
	if !m.inRange(addr, len(p)) {
		return errOutOfRange
	}

	for len(p) != 0 {
		offset := addr & (mm.PageSize - 1)
		chunk := p[:chunkLen(offset, len(p))]
		if frame := m.frames[mm.FrameFromAddress(addr)]; frame != nil {
			copy(chunk, frame[offset:])
		} else {
			for i := range chunk {
				chunk[i] = 0
			}
		}

		addr += uint32(len(chunk))
		p = p[len(chunk):]
	}

	return nil
}

// Write copies p to physical memory starting at addr.
func (m *Memory) Write(addr uint32, p []byte) *kernel.Error {
	if !m.inRange(addr, len(p)) {
		return errOutOfRange
	}

	for len(p) != 0 {
		offset := addr & (mm.PageSize - 1)
		n := copy(m.frame(mm.FrameFromAddress(addr))[offset:], p)
		addr += uint32(n)
		p = p[n:]
	}

	return nil
}

// Copy moves n bytes from physical address src to dst.
func (m *Memory) Copy(dst, src, n uint32) *kernel.Error {
	buf := make([]byte, n)
	if err := m.Read(src, buf); err != nil {
		return err
	}
	return m.Write(dst, buf)
}

// Frames returns the number of frames backed by host memory.
func (m *Memory) Frames() int {
	return len(m.frames)
}

func (m *Memory) frame(f mm.Frame) *[mm.PageSize]byte {
	page := m.frames[f]
	if page == nil {
		page = new([mm.PageSize]byte)
		m.frames[f] = page
	}
	return page
}

func (m *Memory) inRange(addr uint32, n int) bool {
	return uint64(addr)+uint64(n) <= uint64(m.size)
}

func chunkLen(offset uint32, remaining int) int {
	if n := int(mm.PageSize - offset); n < remaining {
		return n
	}
	return remaining
}
