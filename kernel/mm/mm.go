// Package mm defines the physical and virtual memory layout of the machine.
package mm

const (
	// PageShift is equal to log2(PageSize).
	PageShift = 12

	// PageSize defines the size of a small page in bytes.
	PageSize = uint32(1 << PageShift)

	// LargePageShift is equal to log2(LargePageSize).
	LargePageShift = 22

	// LargePageSize defines the size of a large (4MB) page in bytes.
	LargePageSize = uint32(1 << LargePageShift)
)

// Physical layout.
const (
	// VideoMemory is the physical address of the text-mode framebuffer.
	VideoMemory = uint32(0xB8000)

	// TerminalPages is the number of per-terminal framebuffer backing
	// pages placed right after VideoMemory.
	TerminalPages = 3

	// KernelBase is the start of the 4MB region holding the kernel image,
	// the kernel tables and the per-process kernel stacks.
	KernelBase = uint32(4 << 20)

	// ProcessBase is the physical address of the first process frame. Each
	// process owns one LargePageSize frame after it.
	ProcessBase = uint32(8 << 20)
)

// Virtual layout seen by user processes.
const (
	// UserWindow is the virtual address where the frame of the scheduled
	// process is mapped.
	UserWindow = uint32(0x08000000)

	// UserWindowEnd is the first address past the user window.
	UserWindowEnd = UserWindow + LargePageSize

	// LoadAddress is where executable images are copied.
	LoadAddress = uint32(0x08048000)

	// UserStackTop is the initial user stack pointer.
	UserStackTop = UserWindowEnd - 4

	// VideoWindow is the virtual base of the small page table used to expose
	// video memory to user programs.
	VideoWindow = UserWindowEnd

	// VidmapAddress is the user-visible alias of the video memory page.
	VidmapAddress = VideoWindow + VideoMemory
)

// Frame describes a physical memory page index.
type Frame uint32

// Address returns the physical address of the frame.
func (f Frame) Address() uint32 {
	return uint32(f) << PageShift
}

// FrameFromAddress returns the frame that contains physAddr.
func FrameFromAddress(physAddr uint32) Frame {
	return Frame(physAddr >> PageShift)
}

// Page describes a virtual memory page index.
type Page uint32

// Address returns the virtual address of the page.
func (p Page) Address() uint32 {
	return uint32(p) << PageShift
}

// PageFromAddress returns the page that contains virtAddr.
func PageFromAddress(virtAddr uint32) Page {
	return Page(virtAddr >> PageShift)
}

// ProcessFrame returns the first frame of the memory owned by process slot.
func ProcessFrame(slot int) Frame {
	return FrameFromAddress(ProcessBase + uint32(slot)*LargePageSize)
}

// TerminalFrame returns the backing page of a terminal session.
func TerminalFrame(session int) Frame {
	return FrameFromAddress(VideoMemory) + Frame(1+session)
}
