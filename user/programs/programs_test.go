package programs

import (
	"encoding/binary"
	"testing"

	"ttyos/kernel/fs"
	"ttyos/kernel/mm"
)

func TestImage(t *testing.T) {
	for _, prog := range All {
		img := Image(prog)

		if string(img[:4]) != "\x7fELF" {
			t.Errorf("[%s] bad magic %v", prog.Name, img[:4])
		}

		if entry := binary.LittleEndian.Uint32(img[24:]); entry != prog.Entry {
			t.Errorf("[%s] expected entry 0x%x; got 0x%x", prog.Name, prog.Entry, entry)
		}

		if mm.LoadAddress+uint32(len(img)) <= prog.Entry {
			t.Errorf("[%s] expected the entry point to lie inside the image", prog.Name)
		}
	}
}

func TestCode(t *testing.T) {
	code := Code()
	if len(code) != len(All) {
		t.Fatalf("expected %d distinct entry points; got %d", len(All), len(code))
	}

	for _, prog := range All {
		if _, ok := code.Lookup(prog.Entry); !ok {
			t.Errorf("[%s] entry point not registered", prog.Name)
		}
	}
}

func TestFileSystem(t *testing.T) {
	img, err := FileSystem()
	if err != nil {
		t.Fatal(err)
	}

	if exp := 2 + len(All) + len(Files); img.Entries() != exp {
		t.Fatalf("expected %d entries; got %d", exp, img.Entries())
	}

	d, err := img.LookupByName("hello.txt")
	if err != nil || d.Kind != fs.KindRegular {
		t.Fatalf("expected hello.txt to be a regular file; got %+v, %v", d, err)
	}

	buf := make([]byte, 64)
	n, err := img.ReadData(d.Inode, 0, buf)
	if err != nil || string(buf[:n]) != Files["hello.txt"] {
		t.Fatalf("expected %q; got %q (%v)", Files["hello.txt"], buf[:n], err)
	}
}
