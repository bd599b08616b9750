package cpu

// TLBEntry caches the translation of one 4KB virtual page.
type TLBEntry struct {
	// PhysPage is the physical address of the page frame.
	PhysPage uint32

	// Writable and User mirror the effective permissions of the mapping.
	Writable bool
	User     bool
}

// TLB is a fully associative translation cache keyed by virtual page
// address. It is only invalidated by a full flush.
type TLB struct {
	entries map[uint32]TLBEntry
	flushes uint64
}

// Lookup returns the cached translation for a page-aligned virtual address.
func (t *TLB) Lookup(page uint32) (TLBEntry, bool) {
	entry, ok := t.entries[page]
	return entry, ok
}

// Insert caches the translation for a page-aligned virtual address.
func (t *TLB) Insert(page uint32, entry TLBEntry) {
	if t.entries == nil {
		t.entries = make(map[uint32]TLBEntry)
	}
	t.entries[page] = entry
}

// Flush drops all cached translations.
func (t *TLB) Flush() {
	t.entries = nil
	t.flushes++
}

// Flushes returns the number of full flushes performed so far.
func (t *TLB) Flushes() uint64 {
	return t.flushes
}

// Len returns the number of cached translations.
func (t *TLB) Len() int {
	return len(t.entries)
}
