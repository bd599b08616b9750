// Command ttyos boots the kernel on a simulated machine and connects the
// foreground terminal to the host console.
//
// Every line typed on stdin is delivered to the foreground terminal as key
// presses. Lines starting with ':' are host commands:
//
//	:f1 :f2 :f3    switch to terminal 1, 2 or 3 (alt+F1..F3)
//	:clear         press ctrl+L
//	:snap <file>   write a PNG snapshot of the visible screen
//	:quit          stop the machine
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ttyos/device/tty"
	"ttyos/kernel/kmain"
	"ttyos/user/programs"
)

var (
	cmdLine  = flag.String("cmdline", "", "kernel boot command line, e.g. \"sched=off fg=1 verbose\"")
	tick     = flag.Duration("tick", 10*time.Millisecond, "timer interrupt period; 0 disables the timer")
	rtcTick  = flag.Duration("rtc", time.Second/1024, "real-time clock interrupt period; 0 disables the clock")
	snapshot = flag.String("snapshot", "", "write a PNG snapshot of the visible screen on exit")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ttyos: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fileSystem, kerr := programs.FileSystem()
	if kerr != nil {
		return kerr
	}

	k, kerr := kmain.Kmain(*cmdLine, fileSystem, programs.Code())
	if kerr != nil {
		return kerr
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	timer, stopTimer := ticker(*tick)
	defer stopTimer()
	clock, stopClock := ticker(*rtcTick)
	defer stopClock()

	var shown string
	redraw := func() {
		if screen := k.Terminals.Framebuffer().String(); screen != shown {
			shown = screen
			fmt.Print("\033[H\033[2J", screen, "\n")
		}
	}
	redraw()

	// Raise blocks until the CPU settles so the screen is only read between
	// interrupts.
	for !k.Halted() {
		select {
		case <-timer:
			k.Tick()
		case <-clock:
			k.RTCTick()
		case line, ok := <-lines:
			if !ok {
				return writeSnapshot(k)
			}

			if quit, err := hostCommand(k, line); err != nil {
				fmt.Fprintf(os.Stderr, "ttyos: %v\n", err)
			} else if quit {
				return writeSnapshot(k)
			}
		}
		redraw()
	}

	return writeSnapshot(k)
}

// hostCommand handles a line of host input and reports whether the demo
// should stop.
func hostCommand(k *kmain.Kernel, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		k.Type(line + "\n")
		return false, nil
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "f1", "f2", "f3":
		k.Key(tty.KeyAltF1 + uint32(fields[0][1]-'1'))
	case "clear":
		k.Key(tty.KeyClear)
	case "snap":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: :snap <file>")
		}
		return false, saveScreen(k, fields[1])
	case "quit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown host command %q", fields[0])
	}

	return false, nil
}

func writeSnapshot(k *kmain.Kernel) error {
	if *snapshot == "" {
		return nil
	}
	return saveScreen(k, *snapshot)
}

func saveScreen(k *kmain.Kernel, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err = k.Terminals.Framebuffer().Snapshot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ticker returns a channel that fires every period. A zero period returns a
// channel that never fires.
func ticker(period time.Duration) (<-chan time.Time, func()) {
	if period <= 0 {
		return nil, func() {}
	}

	t := time.NewTicker(period)
	return t.C, t.Stop
}
