package vmm

import "ttyos/kernel/mm"

// ptePhysPageMask extracts the physical frame address from a page directory
// or page table entry (bits 12-31).
const ptePhysPageMask = uint32(0xFFFFF000)

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uint32

const (
	// FlagPresent is set when the page is available in memory.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode code can access this page. If
	// not set only kernel code can access this page.
	FlagUserAccessible

	// FlagWriteThroughCaching implies write-through caching when set and
	// write-back caching if cleared.
	FlagWriteThroughCaching

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the MMU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the MMU when this page is modified.
	FlagDirty

	// FlagHugePage is set on directory entries that map a 4MB page
	// directly instead of pointing to a page table.
	FlagHugePage

	// FlagGlobal prevents the translation of this page from being flushed
	// when the page directory is reloaded.
	FlagGlobal
)

// pageTableEntry is a 32-bit x86 page directory or page table entry.
type pageTableEntry uint32

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) == uint32(flags)
}

// HasAnyFlag returns true if this entry has at least one of the input flags set.
func (pte pageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) != 0
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = pageTableEntry(uint32(*pte) | uint32(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = pageTableEntry(uint32(*pte) &^ uint32(flags))
}

// Frame returns the physical frame that this entry points to.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.FrameFromAddress(uint32(pte) & ptePhysPageMask)
}

// SetFrame updates the entry to point to the given physical frame.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = pageTableEntry((uint32(*pte) &^ ptePhysPageMask) | frame.Address())
}

// pageTable is a page directory or a page table.
type pageTable [entriesPerTable]pageTableEntry
