package programs

import (
	"ttyos/kernel/cpu"
	"ttyos/user"
)

// SysErr checks that the kernel rejects invalid system calls. The exit status
// is the number of checks that failed.
func SysErr(u *cpu.UserContext) uint8 {
	var (
		p        = user.New(u)
		failures uint8
		buf      = make([]byte, 4)
	)

	expectFail := func(what string, ret int32) {
		if ret != -1 {
			p.Print("syserr: " + what + " did not fail\n")
			failures++
		}
	}

	expectFail("close(stdin)", p.Close(user.Stdin))
	expectFail("close(stdout)", p.Close(user.Stdout))
	expectFail("read(stdout)", p.Read(user.Stdout, buf))
	expectFail("write(stdin)", p.Write(user.Stdin, buf))
	expectFail("close(unused)", p.Close(2))
	expectFail("close(8)", p.Close(8))
	expectFail("read(-1)", p.Read(-1, buf))
	expectFail("open(missing)", p.Open("does-not-exist"))
	expectFail("read(null)", p.Syscall(3, uint32(user.Stdin), 0, 0))
	expectFail("write(null)", p.Syscall(4, uint32(user.Stdout), 0, 0))
	expectFail("vidmap(null)", p.Syscall(8, 0, 0, 0))
	expectFail("syscall(42)", p.Syscall(42, 0, 0, 0))
	expectFail("execute(empty)", p.Execute(""))
	expectFail("execute(missing)", p.Execute("does-not-exist"))
	expectFail("getargs(none)", p.GetArgs(buf))

	// six descriptors are available after the standard streams
	var fds []int32
	for i := 0; i < 6; i++ {
		fd := p.Open(".")
		if fd < 2 {
			p.Print("syserr: open(.) failed\n")
			failures++
			break
		}
		fds = append(fds, fd)
	}
	expectFail("open(full table)", p.Open("."))

	for _, fd := range fds {
		if p.Close(fd) != 0 {
			p.Print("syserr: close failed\n")
			failures++
		}
	}

	if failures == 0 {
		p.Print("syserr: ok\n")
	}
	return failures
}
