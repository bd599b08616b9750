// Package vmm manages the single page directory shared by every process.
//
// The directory maps the low 4MB through a small-page table exposing only the
// framebuffer and the terminal backing pages, the kernel region as one
// supervisor large page, a relocatable 4MB user window and a small-page table
// for the video window handed out by vidmap. Switching between processes
// only changes the frame behind the user window.
package vmm

import (
	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm"
	"ttyos/kernel/mm/pmm"
)

const (
	entriesPerTable = 1024

	pdIndexShift = mm.LargePageShift
	ptIndexShift = mm.PageShift
	ptIndexMask  = entriesPerTable - 1

	lowTableIndex    = 0
	kernelIndex      = mm.KernelBase >> pdIndexShift
	userWindowIndex  = mm.UserWindow >> pdIndexShift
	videoWindowIndex = mm.VideoWindow >> pdIndexShift

	// videoPageIndex is the entry of the video table aliasing video memory.
	videoPageIndex = (mm.VideoMemory >> ptIndexShift) & ptIndexMask
)

var (
	// Notional frames inside the kernel region holding the two small-page
	// tables.
	lowTableFrame   = mm.FrameFromAddress(mm.KernelBase + 0x1000)
	videoTableFrame = mm.FrameFromAddress(mm.KernelBase + 0x2000)

	// flushTLBFn is used by tests to observe translation cache flushes.
	flushTLBFn = func(tlb *cpu.TLB) { tlb.Flush() }

	errPageNotPresent   = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page", Kind: kernel.InvalidArgument}
	errPageProtection   = &kernel.Error{Module: "vmm", Message: "page protection violation", Kind: kernel.InvalidArgument}
	errAddressOverflow  = &kernel.Error{Module: "vmm", Message: "address range wraps around", Kind: kernel.InvalidArgument}
	errMissingPageTable = &kernel.Error{Module: "vmm", Message: "page directory entry points to an unknown page table"}
	errWindowOutOfRange = &kernel.Error{Module: "vmm", Message: "user window frame lies outside physical memory"}
	errBadSession       = &kernel.Error{Module: "vmm", Message: "no backing page for terminal session"}
)

// AddressSpace owns the page directory and its page tables.
type AddressSpace struct {
	mem *pmm.Memory
	tlb *cpu.TLB

	pd     pageTable
	tables map[mm.Frame]*pageTable
}

// New returns an address space backed by mem whose translations are cached
// in tlb. Init must be called before use.
func New(mem *pmm.Memory, tlb *cpu.TLB) *AddressSpace {
	return &AddressSpace{mem: mem, tlb: tlb}
}

// Init builds the page directory. The user window stays absent until the
// first call to RemapUserWindow.
func (as *AddressSpace) Init() {
	var (
		lowTable   = new(pageTable)
		videoTable = new(pageTable)
	)

	as.pd = pageTable{}
	as.tables = map[mm.Frame]*pageTable{
		lowTableFrame:   lowTable,
		videoTableFrame: videoTable,
	}

	// framebuffer followed by the terminal backing pages
	for page := mm.PageFromAddress(mm.VideoMemory); page <= mm.PageFromAddress(mm.TerminalFrame(mm.TerminalPages-1).Address()); page++ {
		pte := &lowTable[page]
		pte.SetFrame(mm.FrameFromAddress(page.Address()))
		pte.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)
	}

	pde := &as.pd[lowTableIndex]
	pde.SetFrame(lowTableFrame)
	pde.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)

	pde = &as.pd[kernelIndex]
	pde.SetFrame(mm.FrameFromAddress(mm.KernelBase))
	pde.SetFlags(FlagPresent | FlagRW | FlagHugePage | FlagGlobal)

	pte := &videoTable[videoPageIndex]
	pte.SetFrame(mm.FrameFromAddress(mm.VideoMemory))
	pte.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)

	pde = &as.pd[videoWindowIndex]
	pde.SetFrame(videoTableFrame)
	pde.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)

	flushTLBFn(as.tlb)
}

// RemapUserWindow points the user window at the frame of process slot and
// flushes the translation cache.
func (as *AddressSpace) RemapUserWindow(slot int) {
	frame := mm.ProcessFrame(slot)
	if slot < 0 || uint64(frame.Address())+uint64(mm.LargePageSize) > uint64(as.mem.Size()) {
		kfmt.Panic(errWindowOutOfRange)
		return
	}

	pde := &as.pd[userWindowIndex]
	*pde = 0
	pde.SetFrame(frame)
	pde.SetFlags(FlagPresent | FlagRW | FlagUserAccessible | FlagHugePage)

	flushTLBFn(as.tlb)
}

// RemapVideoWindow points the video window page at video memory when the
// session is in the foreground, or at the session's backing page otherwise,
// and flushes the translation cache.
func (as *AddressSpace) RemapVideoWindow(session int, foreground bool) {
	if session < 0 || session >= mm.TerminalPages {
		kfmt.Panic(errBadSession)
		return
	}

	frame := mm.FrameFromAddress(mm.VideoMemory)
	if !foreground {
		frame = mm.TerminalFrame(session)
	}

	pte := &as.tables[videoTableFrame][videoPageIndex]
	*pte = 0
	pte.SetFrame(frame)
	pte.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)

	flushTLBFn(as.tlb)
}

// UserWindowFrame returns the frame currently mapped into the user window.
// The second return value is false before the first remap.
func (as *AddressSpace) UserWindowFrame() (mm.Frame, bool) {
	pde := as.pd[userWindowIndex]
	if !pde.HasFlags(FlagPresent) {
		return 0, false
	}
	return pde.Frame(), true
}

// VideoWindowFrame returns the frame currently aliased by the video window.
func (as *AddressSpace) VideoWindowFrame() mm.Frame {
	return as.tables[videoTableFrame][videoPageIndex].Frame()
}
