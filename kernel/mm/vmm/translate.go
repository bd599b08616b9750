package vmm

import (
	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm"
)

// Translate returns the physical address that vaddr maps to. Cached
// translations are served from the TLB; misses walk the page directory,
// update the accessed and dirty bits and fill the TLB. user and write select
// the privilege level and kind of access to check.
func (as *AddressSpace) Translate(vaddr uint32, write, user bool) (uint32, *kernel.Error) {
	var (
		page   = uint32(mm.PageFromAddress(vaddr))
		offset = vaddr & (mm.PageSize - 1)
	)

	if entry, ok := as.tlb.Lookup(page); ok {
		if err := checkAccess(entry.Writable, entry.User, write, user); err != nil {
			return 0, err
		}
		return entry.PhysPage<<mm.PageShift | offset, nil
	}

	pde := &as.pd[vaddr>>pdIndexShift]
	if !pde.HasFlags(FlagPresent) {
		return 0, errPageNotPresent
	}

	var (
		writable   = pde.HasFlags(FlagRW)
		userAccess = pde.HasFlags(FlagUserAccessible)
		pte        = pde
		physAddr   uint32
	)

	if pde.HasFlags(FlagHugePage) {
		physAddr = pde.Frame().Address() + vaddr&(mm.LargePageSize-1)
	} else {
		table := as.tables[pde.Frame()]
		if table == nil {
			kfmt.Panic(errMissingPageTable)
			return 0, errMissingPageTable
		}

		pte = &table[(vaddr>>ptIndexShift)&ptIndexMask]
		if !pte.HasFlags(FlagPresent) {
			return 0, errPageNotPresent
		}

		writable = writable && pte.HasFlags(FlagRW)
		userAccess = userAccess && pte.HasFlags(FlagUserAccessible)
		physAddr = pte.Frame().Address() | offset
	}

	if err := checkAccess(writable, userAccess, write, user); err != nil {
		return 0, err
	}

	pte.SetFlags(FlagAccessed)
	if write {
		pte.SetFlags(FlagDirty)
	}

	as.tlb.Insert(page, cpu.TLBEntry{
		PhysPage: physAddr >> mm.PageShift,
		Writable: writable,
		User:     userAccess,
	})

	return physAddr, nil
}

// checkAccess applies the protection rules of a translation. Supervisor
// writes ignore the RW bit (CR0.WP is clear).
func checkAccess(writable, userAccess, write, user bool) *kernel.Error {
	switch {
	case user && !userAccess:
		return errPageProtection
	case user && write && !writable:
		return errPageProtection
	}
	return nil
}
