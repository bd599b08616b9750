// Package programs contains the user programs shipped on the boot image and
// the helpers that package them as executables.
package programs

import (
	"encoding/binary"

	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/fs"
	"ttyos/kernel/mm"
)

// Program is a user program and the entry point it is linked at.
type Program struct {
	Name  string
	Entry uint32
	Main  cpu.Program
}

// All lists the programs installed on the boot image.
var All = []Program{
	{Name: "shell", Entry: mm.LoadAddress + 0x0100, Main: Shell},
	{Name: "ls", Entry: mm.LoadAddress + 0x0200, Main: Ls},
	{Name: "cat", Entry: mm.LoadAddress + 0x0300, Main: Cat},
	{Name: "echo", Entry: mm.LoadAddress + 0x0400, Main: Echo},
	{Name: "counter", Entry: mm.LoadAddress + 0x0500, Main: Counter},
	{Name: "fault", Entry: mm.LoadAddress + 0x0600, Main: Fault},
	{Name: "testprog", Entry: mm.LoadAddress + 0x0700, Main: TestProg},
	{Name: "syserr", Entry: mm.LoadAddress + 0x0800, Main: SysErr},
	{Name: "vidtest", Entry: mm.LoadAddress + 0x0900, Main: VidTest},
}

// Files lists the data files installed on the boot image.
var Files = map[string]string{
	"frame0.txt": "    o\n   /|\\\n   / \\\n",
	"hello.txt":  "hello from the boot image\n",
}

// headerSize is the size of the executable header. The entry point is
// stored at offset 24.
const headerSize = 28

// Code returns the registry mapping each program's entry point to its code.
func Code() cpu.Code {
	code := make(cpu.Code, len(All))
	for _, prog := range All {
		code[prog.Entry] = prog.Main
	}
	return code
}

// Image returns the executable image of prog. The image extends past the
// entry point so the entry lies inside the loaded code.
func Image(prog Program) []byte {
	size := int(prog.Entry-mm.LoadAddress) + 16
	if size < headerSize {
		size = headerSize
	}

	img := make([]byte, size)
	copy(img, []byte{0x7F, 'E', 'L', 'F'})
	binary.LittleEndian.PutUint32(img[24:], prog.Entry)
	copy(img[headerSize:], prog.Name)
	return img
}

// NewBuilder returns a file system builder populated with every program and
// data file.
func NewBuilder() *fs.Builder {
	b := fs.NewBuilder()
	for _, prog := range All {
		b.AddFile(prog.Name, Image(prog))
	}

	for _, name := range []string{"frame0.txt", "hello.txt"} {
		b.AddFile(name, []byte(Files[name]))
	}
	return b
}

// FileSystem builds and parses the boot image.
func FileSystem() (*fs.Image, *kernel.Error) {
	raw, err := NewBuilder().Build()
	if err != nil {
		return nil, err
	}
	return fs.ParseImage(raw)
}
