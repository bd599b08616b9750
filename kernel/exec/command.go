package exec

import (
	"bytes"

	"ttyos/kernel/fs"
	"ttyos/kernel/proc"
)

// MaxCommandLen is the longest command line read from user memory: a file
// name, one separator and a full argument buffer.
const MaxCommandLen = fs.MaxNameLen + 1 + proc.MaxArgLen

// ParseCommand splits a command line into the program name and its
// argument. The line ends at the first NUL. Leading spaces are skipped and
// the name is the run of non-space characters that follows. The argument is
// the rest of the line with leading and trailing spaces removed; it is capped
// at proc.MaxArgLen bytes.
func ParseCommand(cmd []byte) (string, []byte) {
	if nul := bytes.IndexByte(cmd, 0); nul != -1 {
		cmd = cmd[:nul]
	}

	i := 0
	for i < len(cmd) && cmd[i] == ' ' {
		i++
	}

	start := i
	for i < len(cmd) && cmd[i] != ' ' {
		i++
	}
	name := string(cmd[start:i])

	for i < len(cmd) && cmd[i] == ' ' {
		i++
	}

	end := len(cmd)
	for end > i && cmd[end-1] == ' ' {
		end--
	}

	arg := cmd[i:end]
	if len(arg) > proc.MaxArgLen {
		arg = arg[:proc.MaxArgLen]
	}

	return name, arg
}
