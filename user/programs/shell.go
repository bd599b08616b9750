package programs

import (
	"strings"

	"ttyos/kernel/cpu"
	"ttyos/user"
)

// Prompt is printed by the shell before reading a command.
const Prompt = "391OS> "

// faultStatus is the status of a program killed by an exception.
const faultStatus = 256

// Shell reads commands from the terminal and executes them until "exit" is
// entered.
func Shell(u *cpu.UserContext) uint8 {
	var (
		p   = user.New(u)
		buf = make([]byte, 128)
	)

	for {
		p.Print(Prompt)

		n := p.Read(user.Stdin, buf)
		if n < 0 {
			p.Print("read from keyboard failed\n")
			return 3
		}

		line := strings.TrimRight(string(buf[:n]), "\n")
		switch strings.TrimSpace(line) {
		case "exit":
			return 0
		case "":
			continue
		}

		switch ret := p.Execute(line); {
		case ret == -1:
			p.Print("no such command\n")
		case ret == faultStatus:
			p.Print("program terminated by exception\n")
		case ret != 0:
			p.Print("program terminated abnormally\n")
		}
	}
}
