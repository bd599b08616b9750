package vmm

import (
	"ttyos/kernel"
	"ttyos/kernel/mm"
)

// access copies between p and the virtual range starting at vaddr one page
// at a time. On failure it returns the first inaccessible address.
func (as *AddressSpace) access(vaddr uint32, p []byte, write, user bool) (uint32, *kernel.Error) {
	if uint64(vaddr)+uint64(len(p)) > 1<<32 {
		return vaddr, errAddressOverflow
	}

	for len(p) != 0 {
		n := int(mm.PageSize - vaddr&(mm.PageSize-1))
		if n > len(p) {
			n = len(p)
		}

		physAddr, err := as.Translate(vaddr, write, user)
		if err != nil {
			return vaddr, err
		}

		if write {
			err = as.mem.Write(physAddr, p[:n])
		} else {
			err = as.mem.Read(physAddr, p[:n])
		}
		if err != nil {
			return vaddr, err
		}

		vaddr += uint32(n)
		p = p[n:]
	}

	return 0, nil
}

// UserLoad reads user memory with user privileges on behalf of the CPU.
func (as *AddressSpace) UserLoad(vaddr uint32, p []byte) (uint32, bool) {
	addr, err := as.access(vaddr, p, false, true)
	return addr, err == nil
}

// UserStore writes user memory with user privileges on behalf of the CPU.
func (as *AddressSpace) UserStore(vaddr uint32, p []byte) (uint32, bool) {
	addr, err := as.access(vaddr, p, true, true)
	return addr, err == nil
}

// CopyIn copies len(p) bytes of user memory at vaddr into p. The range must
// be accessible to user code.
func (as *AddressSpace) CopyIn(vaddr uint32, p []byte) *kernel.Error {
	_, err := as.access(vaddr, p, false, true)
	return err
}

// CopyOut copies p into user memory at vaddr. The range must be writable by
// user code.
func (as *AddressSpace) CopyOut(vaddr uint32, p []byte) *kernel.Error {
	_, err := as.access(vaddr, p, true, true)
	return err
}

// CheckUserRange verifies that n bytes starting at vaddr are mapped and
// accessible to user code, without touching them.
func (as *AddressSpace) CheckUserRange(vaddr, n uint32, write bool) *kernel.Error {
	if uint64(vaddr)+uint64(n) > 1<<32 {
		return errAddressOverflow
	}

	if n == 0 {
		return nil
	}

	last := mm.PageFromAddress(vaddr + n - 1)
	for page := mm.PageFromAddress(vaddr); ; page++ {
		addr := page.Address()
		if page == mm.PageFromAddress(vaddr) {
			addr = vaddr
		}

		if _, err := as.Translate(addr, write, true); err != nil {
			return err
		}

		if page == last {
			return nil
		}
	}
}

// ReadString copies a NUL-terminated string from user memory. At most max
// bytes are read; a string without a terminator within that limit is
// truncated.
func (as *AddressSpace) ReadString(vaddr uint32, max int) ([]byte, *kernel.Error) {
	var (
		out = make([]byte, 0, 64)
		ch  = make([]byte, 1)
	)

	for len(out) < max {
		if err := as.CopyIn(vaddr, ch); err != nil {
			return nil, err
		}

		if ch[0] == 0 {
			break
		}

		out = append(out, ch[0])
		vaddr++
	}

	return out, nil
}
