package exec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/fs"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm"
	"ttyos/kernel/mm/pmm"
	"ttyos/kernel/mm/vmm"
	"ttyos/kernel/proc"
	"ttyos/kernel/sync"
)

// oversizedFS reports a huge length for one inode.
type oversizedFS struct {
	*fs.Image
	inode uint32
}

func (m oversizedFS) Length(inode uint32) (uint32, *kernel.Error) {
	if inode == m.inode {
		return MaxImageSize + 1, nil
	}
	return m.Image.Length(inode)
}

func executable(entry uint32, size int) []byte {
	img := make([]byte, size)
	copy(img, imageMagic[:])
	binary.LittleEndian.PutUint32(img[entryOffset:], entry)
	return img
}

func newTestLoader(t *testing.T) (*Loader, *proc.Table, *vmm.AddressSpace) {
	t.Helper()

	raw, err := fs.NewBuilder().
		AddFile("prog", executable(0x08048100, 256)).
		AddFile("huge", executable(0x08048100, 64)).
		AddFile("notelf", []byte("#!/bin/sh\necho hi\n")).
		AddFile("short", []byte{0x7F, 'E', 'L', 'F', 0, 0}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	img, err := fs.ParseImage(raw)
	if err != nil {
		t.Fatal(err)
	}

	huge, err := img.LookupByName("huge")
	if err != nil {
		t.Fatal(err)
	}
	fileSystem := oversizedFS{Image: img, inode: huge.Inode}

	var (
		c     = cpu.New(cpu.Code{})
		mem   = pmm.New(mm.ProcessBase + proc.MaxProcs*mm.LargePageSize)
		as    = vmm.New(mem, c.TLB())
		table = proc.NewTable(sync.NewGuard(c), fileSystem)
	)
	as.Init()

	l := NewLoader(c, as, table, fileSystem)
	l.SetLogOutput(nil)
	return l, table, as
}

func TestParseCommand(t *testing.T) {
	specs := []struct {
		input   string
		expName string
		expArg  string
	}{
		{"ls", "ls", ""},
		{"cat frame0.txt", "cat", "frame0.txt"},
		{"   cat    frame0.txt   ", "cat", "frame0.txt"},
		{"echo hello   world", "echo", "hello   world"},
		{"echo hi\x00\x00", "echo", "hi"},
		{"ls\x00junk", "ls", ""},
		{"cat frame0.txt\x00 hello.txt", "cat", "frame0.txt"},
		{"", "", ""},
		{"     ", "", ""},
	}

	for specIndex, spec := range specs {
		name, arg := ParseCommand([]byte(spec.input))
		if name != spec.expName || string(arg) != spec.expArg {
			t.Errorf("[spec %d] expected (%q, %q); got (%q, %q)", specIndex, spec.expName, spec.expArg, name, arg)
		}
	}

	// the argument is capped to the argument buffer size
	long := append([]byte("echo "), bytes.Repeat([]byte{'x'}, proc.MaxArgLen+10)...)
	if _, arg := ParseCommand(long); len(arg) != proc.MaxArgLen {
		t.Fatalf("expected argument of %d bytes; got %d", proc.MaxArgLen, len(arg))
	}
}

func TestLoad(t *testing.T) {
	l, _, _ := newTestLoader(t)

	specs := []struct {
		name   string
		expErr *kernel.Error
	}{
		{"prog", nil},
		{"missing", nil},
		{".", errNotExecutable},
		{"rtc", errNotExecutable},
		{"notelf", errBadMagic},
		{"short", errShortImage},
		{"huge", errImageTooLarge},
	}

	for specIndex, spec := range specs {
		img, err := l.load(spec.name)

		switch {
		case spec.name == "missing":
			if err == nil || err.Kind != kernel.NotFound {
				t.Errorf("[spec %d] expected a NotFound error; got %v", specIndex, err)
			}
		case err != spec.expErr:
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		case err == nil:
			if img.entry != 0x08048100 || len(img.data) != 256 {
				t.Errorf("[spec %d] expected entry 0x08048100 and 256 bytes; got 0x%x and %d", specIndex, img.entry, len(img.data))
			}
		}
	}

	if errBadMagic.Kind != kernel.InvalidFormat || errImageTooLarge.Kind != kernel.InvalidFormat {
		t.Fatal("expected image validation errors to be InvalidFormat")
	}
}

func TestExecuteFailuresLeaveNoTrace(t *testing.T) {
	l, table, as := newTestLoader(t)

	for _, cmd := range []string{"", "   ", "missing", "notelf arg", "huge"} {
		if _, err := l.Execute([]byte(cmd)); err == nil {
			t.Errorf("expected execute(%q) to fail", cmd)
		}
	}

	// exhaust the pool
	for table.Used() < proc.MaxProcs {
		if _, err := table.Allocate(); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := l.Execute([]byte("prog")); err == nil || err.Kind != kernel.ResourceExhausted {
		t.Fatalf("expected a ResourceExhausted error; got %v", err)
	}

	if _, mapped := as.UserWindowFrame(); mapped {
		t.Fatal("expected the user window to remain unmapped")
	}
	if table.Session(0).Current != 0 {
		t.Fatal("expected the session to keep its current process")
	}
}

func TestLaunchShellWithoutShellHalts(t *testing.T) {
	defer kfmt.SetHaltFn(func() { select {} })

	var halted bool
	kfmt.SetHaltFn(func() { halted = true })

	l, _, _ := newTestLoader(t)
	l.SetShell("missing")
	l.LaunchShell(0, nil)

	if !halted {
		t.Fatal("expected a missing shell to halt the machine")
	}
}

func TestUserFrame(t *testing.T) {
	frame := userFrame(0x08048100)

	exp := cpu.Frame{
		EIP:    0x08048100,
		CS:     0x23,
		EFlags: 1 << 9,
		ESP:    0x083FFFFC,
		SS:     0x2B,
	}

	if frame != exp {
		t.Fatalf("expected %+v; got %+v", exp, frame)
	}
}
