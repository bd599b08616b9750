package vmm

import (
	"bytes"
	"testing"

	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm"
	"ttyos/kernel/mm/pmm"
)

const testMemSize = mm.ProcessBase + 6*mm.LargePageSize

func newTestAddressSpace() (*AddressSpace, *pmm.Memory, *cpu.TLB) {
	var (
		mem = pmm.New(testMemSize)
		tlb = new(cpu.TLB)
		as  = New(mem, tlb)
	)
	as.Init()
	return as, mem, tlb
}

func TestInit(t *testing.T) {
	as, _, _ := newTestAddressSpace()

	if _, ok := as.UserWindowFrame(); ok {
		t.Fatal("expected user window to be absent before the first remap")
	}

	specs := []struct {
		vaddr  uint32
		user   bool
		exp    uint32
		expErr *kernel.Error
	}{
		// framebuffer and terminal backing pages are user accessible
		{mm.VideoMemory + 10, true, mm.VideoMemory + 10, nil},
		{mm.TerminalFrame(0).Address(), true, mm.TerminalFrame(0).Address(), nil},
		{mm.TerminalFrame(2).Address() + 0xFFF, true, mm.TerminalFrame(2).Address() + 0xFFF, nil},
		// everything else in the low 4MB is absent
		{0, false, 0, errPageNotPresent},
		{mm.TerminalFrame(2).Address() + mm.PageSize, false, 0, errPageNotPresent},
		// kernel region is supervisor only
		{mm.KernelBase + 0x1234, false, mm.KernelBase + 0x1234, nil},
		{mm.KernelBase + 0x1234, true, 0, errPageProtection},
		// video window aliases the framebuffer
		{mm.VidmapAddress + 4, true, mm.VideoMemory + 4, nil},
		{mm.VideoWindow, true, 0, errPageNotPresent},
		// user window
		{mm.LoadAddress, true, 0, errPageNotPresent},
	}

	for specIndex, spec := range specs {
		got, err := as.Translate(spec.vaddr, false, spec.user)
		if err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
			continue
		}

		if got != spec.exp {
			t.Errorf("[spec %d] expected 0x%x to translate to 0x%x; got 0x%x", specIndex, spec.vaddr, spec.exp, got)
		}
	}
}

func TestRemapUserWindow(t *testing.T) {
	defer func(orig func(*cpu.TLB)) { flushTLBFn = orig }(flushTLBFn)

	var flushCount int
	flushTLBFn = func(tlb *cpu.TLB) {
		flushCount++
		tlb.Flush()
	}

	as, _, _ := newTestAddressSpace()
	flushCount = 0

	for slot := 0; slot < 6; slot++ {
		as.RemapUserWindow(slot)

		frame, ok := as.UserWindowFrame()
		if !ok || frame != mm.ProcessFrame(slot) {
			t.Fatalf("expected user window to map frame %x; got %x (present: %t)", mm.ProcessFrame(slot), frame, ok)
		}

		got, err := as.Translate(mm.LoadAddress, true, true)
		if err != nil {
			t.Fatal(err)
		}

		if exp := mm.ProcessFrame(slot).Address() + (mm.LoadAddress - mm.UserWindow); got != exp {
			t.Fatalf("expected load address to translate to 0x%x; got 0x%x", exp, got)
		}
	}

	if flushCount != 6 {
		t.Fatalf("expected a full flush after each remap; got %d flushes", flushCount)
	}
}

func TestStaleTranslationWithoutFlush(t *testing.T) {
	defer func(orig func(*cpu.TLB)) { flushTLBFn = orig }(flushTLBFn)

	as, _, _ := newTestAddressSpace()
	as.RemapUserWindow(1)
	if _, err := as.Translate(mm.LoadAddress, false, true); err != nil {
		t.Fatal(err)
	}

	flushTLBFn = func(*cpu.TLB) {}
	as.RemapUserWindow(2)

	got, _ := as.Translate(mm.LoadAddress, false, true)
	if exp := mm.ProcessFrame(1).Address() + 0x48000; got != exp {
		t.Fatalf("expected cached translation 0x%x to survive a remap without flush; got 0x%x", exp, got)
	}
}

func TestRemapUserWindowOutOfRange(t *testing.T) {
	defer kfmt.SetHaltFn(func() { select {} })

	var halted bool
	kfmt.SetHaltFn(func() { halted = true })
	kfmt.SetOutputSink(&bytes.Buffer{})
	defer kfmt.SetOutputSink(nil)

	as, _, _ := newTestAddressSpace()
	as.RemapUserWindow(6)

	if !halted {
		t.Fatal("expected remapping outside physical memory to halt the machine")
	}

	if _, ok := as.UserWindowFrame(); ok {
		t.Fatal("expected user window to stay unmapped")
	}
}

func TestRemapVideoWindow(t *testing.T) {
	as, mem, _ := newTestAddressSpace()

	specs := []struct {
		session    int
		foreground bool
		expFrame   mm.Frame
	}{
		{0, true, mm.FrameFromAddress(mm.VideoMemory)},
		{1, false, mm.TerminalFrame(1)},
		{2, false, mm.TerminalFrame(2)},
		{2, true, mm.FrameFromAddress(mm.VideoMemory)},
	}

	for specIndex, spec := range specs {
		as.RemapVideoWindow(spec.session, spec.foreground)

		if got := as.VideoWindowFrame(); got != spec.expFrame {
			t.Errorf("[spec %d] expected video window frame %x; got %x", specIndex, spec.expFrame, got)
			continue
		}

		// writes through the alias land in the selected page
		msg := []byte{byte('0' + specIndex)}
		if err := as.CopyOut(mm.VidmapAddress+8, msg); err != nil {
			t.Fatal(err)
		}

		got := make([]byte, 1)
		mem.Read(spec.expFrame.Address()+8, got)
		if got[0] != msg[0] {
			t.Errorf("[spec %d] expected vidmap write to reach frame %x", specIndex, spec.expFrame)
		}
	}
}

func TestAccessedDirtyFlags(t *testing.T) {
	as, _, tlb := newTestAddressSpace()
	as.RemapUserWindow(0)

	pde := &as.pd[userWindowIndex]
	if pde.HasAnyFlag(FlagAccessed | FlagDirty) {
		t.Fatal("expected a fresh mapping to be clean")
	}

	as.Translate(mm.LoadAddress, false, true)
	if !pde.HasFlags(FlagAccessed) || pde.HasFlags(FlagDirty) {
		t.Fatal("expected read access to set only the accessed bit")
	}

	tlb.Flush()
	as.Translate(mm.LoadAddress, true, true)
	if !pde.HasFlags(FlagDirty) {
		t.Fatal("expected write access to set the dirty bit")
	}
}

func TestCopyInOut(t *testing.T) {
	as, mem, _ := newTestAddressSpace()
	as.RemapUserWindow(3)

	// straddles a small-page boundary inside the user window
	vaddr := mm.LoadAddress + mm.PageSize - 3
	data := []byte("user data")
	if err := as.CopyOut(vaddr, data); err != nil {
		t.Fatal(err)
	}

	raw := make([]byte, len(data))
	mem.Read(mm.ProcessFrame(3).Address()+(vaddr-mm.UserWindow), raw)
	if !bytes.Equal(raw, data) {
		t.Fatalf("expected physical frame to hold %q; got %q", data, raw)
	}

	got := make([]byte, len(data))
	if err := as.CopyIn(vaddr, got); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(got, data) {
		t.Fatalf("expected to copy in %q; got %q", data, got)
	}

	// running off the end of the user window
	if err := as.CopyOut(mm.UserWindowEnd-2, data); err != errPageNotPresent {
		t.Fatalf("expected errPageNotPresent; got %v", err)
	}

	if err := as.CopyIn(0xFFFFFFFE, got); err != errAddressOverflow {
		t.Fatalf("expected errAddressOverflow; got %v", err)
	}
}

func TestUserLoadStore(t *testing.T) {
	as, _, _ := newTestAddressSpace()
	as.RemapUserWindow(0)

	if _, ok := as.UserStore(mm.UserStackTop, []byte{1, 2, 3, 4}); !ok {
		t.Fatal("expected store to the top of the user stack to succeed")
	}

	addr, ok := as.UserLoad(mm.KernelBase+0x10, make([]byte, 4))
	if ok || addr != mm.KernelBase+0x10 {
		t.Fatalf("expected user load from the kernel region to fault at 0x%x; got 0x%x (ok: %t)", mm.KernelBase+0x10, addr, ok)
	}

	addr, ok = as.UserStore(mm.UserWindowEnd-2, make([]byte, 4))
	if ok || addr != mm.UserWindowEnd {
		t.Fatalf("expected store to fault at 0x%x; got 0x%x (ok: %t)", mm.UserWindowEnd, addr, ok)
	}
}

func TestCheckUserRange(t *testing.T) {
	as, _, _ := newTestAddressSpace()
	as.RemapUserWindow(0)

	specs := []struct {
		vaddr, n uint32
		expErr   *kernel.Error
	}{
		{mm.LoadAddress, 128, nil},
		{mm.UserWindow, mm.LargePageSize, nil},
		{mm.UserWindow, mm.LargePageSize + 1, errPageNotPresent},
		{mm.KernelBase, 4, errPageProtection},
		{0, 0, nil},
		{0xFFFFFFF0, 0x20, errAddressOverflow},
	}

	for specIndex, spec := range specs {
		if err := as.CheckUserRange(spec.vaddr, spec.n, true); err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestReadString(t *testing.T) {
	as, _, _ := newTestAddressSpace()
	as.RemapUserWindow(0)

	as.CopyOut(mm.LoadAddress, []byte("echo hi\x00junk"))

	got, err := as.ReadString(mm.LoadAddress, 64)
	if err != nil || string(got) != "echo hi" {
		t.Fatalf("expected %q; got %q (err: %v)", "echo hi", got, err)
	}

	got, _ = as.ReadString(mm.LoadAddress, 4)
	if string(got) != "echo" {
		t.Fatalf("expected truncated string %q; got %q", "echo", got)
	}

	if _, err = as.ReadString(mm.KernelBase, 4); err != errPageProtection {
		t.Fatalf("expected errPageProtection; got %v", err)
	}
}

func TestPageTableEntryFlags(t *testing.T) {
	var (
		pte   pageTableEntry
		flag1 = PageTableEntryFlag(1 << 10)
		flag2 = PageTableEntryFlag(1 << 11)
	)

	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return false")
	}

	pte.SetFlags(flag1 | flag2)

	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return true")
	}

	if !pte.HasFlags(flag1 | flag2) {
		t.Fatalf("expected HasFlags to return true")
	}

	pte.ClearFlags(flag1)

	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return true")
	}

	if pte.HasFlags(flag1 | flag2) {
		t.Fatalf("expected HasFlags to return false")
	}

	pte.ClearFlags(flag1 | flag2)

	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return false")
	}

	if pte.HasFlags(flag1 | flag2) {
		t.Fatalf("expected HasFlags to return false")
	}
}

func TestPageTableEntryFrameEncoding(t *testing.T) {
	var (
		pte       pageTableEntry
		physFrame = mm.ProcessFrame(5)
	)

	pte.SetFlags(FlagPresent | FlagHugePage)
	pte.SetFrame(physFrame)

	if got := pte.Frame(); got != physFrame {
		t.Fatalf("expected pte.Frame() to return %v; got %v", physFrame, got)
	}

	if !pte.HasFlags(FlagPresent | FlagHugePage) {
		t.Fatal("expected SetFrame to preserve the entry flags")
	}
}
