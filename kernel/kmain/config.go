package kmain

import (
	"strconv"
	"strings"

	"ttyos/kernel"
	"ttyos/kernel/exec"
	"ttyos/kernel/proc"
)

var (
	errBadSchedValue = &kernel.Error{Module: "kmain", Message: "sched expects on or off", Kind: kernel.InvalidArgument}
	errBadForeground = &kernel.Error{Module: "kmain", Message: "fg expects a session between 0 and 2", Kind: kernel.InvalidArgument}
	errEmptyShell    = &kernel.Error{Module: "kmain", Message: "shell expects a program name", Kind: kernel.InvalidArgument}
)

// Config holds the boot options.
type Config struct {
	// Shell is the program launched on every terminal session.
	Shell string

	// Scheduling enables the rotation of sessions on timer ticks.
	Scheduling bool

	// Foreground is the session visible after boot.
	Foreground int

	// Quiet suppresses the boot log.
	Quiet bool

	// Verbose logs process creation and termination.
	Verbose bool
}

// DefaultConfig returns the options used when the command line is empty.
func DefaultConfig() Config {
	return Config{
		Shell:      exec.DefaultShell,
		Scheduling: true,
	}
}

// ParseCmdLine parses a boot command line made of space separated key=value
// pairs. Keys without a value act as flags. Unknown keys are ignored.
//
// Recognized options:
//   - shell=<program>
//   - sched=on|off
//   - fg=<session>
//   - quiet
//   - verbose
func ParseCmdLine(cmdLine string) (Config, *kernel.Error) {
	cfg := DefaultConfig()

	for key, value := range parseKV(cmdLine) {
		switch key {
		case "shell":
			if value == "" || value == key {
				return cfg, errEmptyShell
			}
			cfg.Shell = value
		case "sched":
			switch value {
			case "on":
				cfg.Scheduling = true
			case "off":
				cfg.Scheduling = false
			default:
				return cfg, errBadSchedValue
			}
		case "fg":
			fg, err := strconv.Atoi(value)
			if err != nil || fg < 0 || fg >= proc.NumSessions {
				return cfg, errBadForeground
			}
			cfg.Foreground = fg
		case "quiet":
			cfg.Quiet = true
		case "verbose":
			cfg.Verbose = true
		}
	}

	return cfg, nil
}

// parseKV splits the command line into key/value pairs; a bare key maps to
// itself.
func parseKV(cmdLine string) map[string]string {
	kv := make(map[string]string)
	for _, pair := range strings.Fields(cmdLine) {
		parts := strings.SplitN(pair, "=", 2)
		switch len(parts) {
		case 2: // foo=bar
			kv[parts[0]] = parts[1]
		case 1: // foo
			kv[parts[0]] = parts[0]
		}
	}
	return kv
}
