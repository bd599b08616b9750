package programs

import (
	"bytes"
	"strconv"

	"ttyos/kernel/cpu"
	"ttyos/user"
)

const argBufSize = 1024

// args returns the argument of the program or nil if there is none.
func args(p *user.Proc) []byte {
	buf := make([]byte, argBufSize)
	if p.GetArgs(buf) != 0 {
		return nil
	}
	return bytes.TrimRight(buf, "\x00")
}

// Ls prints the name of every directory entry.
func Ls(u *cpu.UserContext) uint8 {
	p := user.New(u)

	fd := p.Open(".")
	if fd < 0 {
		p.Print("directory open failed\n")
		return 2
	}

	name := make([]byte, 33)
	for {
		n := p.Read(fd, name)
		if n == 0 {
			break
		}
		if n < 0 {
			p.Print("directory entry read failed\n")
			return 3
		}
		p.Write(user.Stdout, append(name[:n:n], '\n'))
	}

	p.Close(fd)
	return 0
}

// Cat prints the contents of the file named by its argument.
func Cat(u *cpu.UserContext) uint8 {
	p := user.New(u)

	name := args(p)
	if name == nil {
		p.Print("could not read arguments\n")
		return 3
	}

	fd := p.Open(string(name))
	if fd < 0 {
		p.Print("file open failed\n")
		return 2
	}

	buf := make([]byte, 1024)
	for {
		n := p.Read(fd, buf)
		if n <= 0 {
			break
		}
		p.Write(user.Stdout, buf[:n])
	}

	p.Close(fd)
	return 0
}

// Echo prints its argument.
func Echo(u *cpu.UserContext) uint8 {
	p := user.New(u)
	p.Write(user.Stdout, append(args(p), '\n'))
	return 0
}

// Counter prints a line on every RTC interrupt. The optional argument is the
// number of lines (default 3).
func Counter(u *cpu.UserContext) uint8 {
	p := user.New(u)

	count := 3
	if arg := args(p); arg != nil {
		n, err := strconv.Atoi(string(arg))
		if err != nil || n <= 0 {
			p.Print("usage: counter [lines]\n")
			return 1
		}
		count = n
	}

	fd := p.Open("rtc")
	if fd < 0 {
		p.Print("rtc open failed\n")
		return 2
	}

	freq := []byte{0x00, 0x04, 0x00, 0x00} // 1024Hz
	if p.Write(fd, freq) != 0 {
		p.Print("rtc write failed\n")
		return 3
	}

	for i := 1; i <= count; i++ {
		p.Read(fd, nil)
		p.Print("tick " + strconv.Itoa(i) + "\n")
	}

	p.Close(fd)
	return 0
}

// Fault dereferences a null pointer.
func Fault(u *cpu.UserContext) uint8 {
	p := user.New(u)

	var word [4]byte
	p.Peek(0, word[:])
	return 0
}

// TestProg exits right away.
func TestProg(u *cpu.UserContext) uint8 {
	return 0
}

// VidTest writes its name in the top-left corner of the screen through the
// video memory mapping.
func VidTest(u *cpu.UserContext) uint8 {
	p := user.New(u)

	addr, ret := p.Vidmap()
	if ret != 0 {
		p.Print("vidmap failed\n")
		return 2
	}

	var cells []byte
	for _, ch := range []byte("vidtest") {
		cells = append(cells, ch, 0x1F)
	}
	p.Poke(addr, cells)
	return 0
}
