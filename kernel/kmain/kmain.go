// Package kmain assembles the kernel: it creates the simulated machine,
// wires devices, tables and handlers together and boots the first session.
package kmain

import (
	"io"

	"ttyos/device/rtc"
	"ttyos/device/tty"
	"ttyos/device/video/console"
	"ttyos/kernel"
	"ttyos/kernel/cpu"
	"ttyos/kernel/exec"
	"ttyos/kernel/fs"
	"ttyos/kernel/kfmt"
	"ttyos/kernel/mm"
	"ttyos/kernel/mm/pmm"
	"ttyos/kernel/mm/vmm"
	"ttyos/kernel/proc"
	"ttyos/kernel/sched"
	"ttyos/kernel/sync"
	"ttyos/kernel/syscall"
)

// MemorySize is the amount of physical memory of the machine: the low
// memory, the kernel region and one frame per process slot.
const MemorySize = mm.ProcessBase + proc.MaxProcs*mm.LargePageSize

// Kernel is the kernel context. It owns every kernel table and device.
type Kernel struct {
	Config Config

	CPU          *cpu.CPU
	Memory       *pmm.Memory
	AddressSpace *vmm.AddressSpace
	Processes    *proc.Table
	Terminals    *tty.Manager
	RTC          *rtc.Device
	Loader       *exec.Loader
	Scheduler    *sched.Scheduler
	Syscalls     *syscall.Dispatcher

	log io.Writer
}

// Kmain parses the boot command line, builds the kernel and boots it. It
// returns once the first shell waits for input.
func Kmain(cmdLine string, fileSystem fs.FileSystem, code cpu.CodeRegistry) (*Kernel, *kernel.Error) {
	cfg, err := ParseCmdLine(cmdLine)
	if err != nil {
		return nil, err
	}

	k := New(cfg, fileSystem, code)
	k.Boot()
	return k, nil
}

// New builds a kernel that loads programs from fileSystem and runs the user
// code registered in code. The kernel is not started.
func New(cfg Config, fileSystem fs.FileSystem, code cpu.CodeRegistry) *Kernel {
	k := &Kernel{
		Config: cfg,
		CPU:    cpu.New(code),
		Memory: pmm.New(MemorySize),
	}

	kfmt.SetHaltFn(k.CPU.Halt)

	k.AddressSpace = vmm.New(k.Memory, k.CPU.TLB())
	k.AddressSpace.Init()
	k.CPU.AttachMMU(k.AddressSpace)

	k.Processes = proc.NewTable(sync.NewGuard(k.CPU), fileSystem)

	k.Terminals = tty.NewManager(k.Memory, k.CPU)
	k.Terminals.SetActiveFn(k.Processes.Active)
	k.Terminals.OnForegroundChange(k.remapVideoWindow)
	kfmt.SetOutputSink(k.Terminals)

	k.RTC = rtc.New(k.CPU)

	k.Processes.RegisterStdStreams(tty.StdinOps{Manager: k.Terminals}, tty.StdoutOps{Manager: k.Terminals})
	k.Processes.RegisterOps(fs.KindRTC, k.RTC)
	k.Processes.RegisterOps(fs.KindDirectory, fs.DirectoryOps{FS: fileSystem})
	k.Processes.RegisterOps(fs.KindRegular, fs.RegularOps{FS: fileSystem})

	k.Loader = exec.NewLoader(k.CPU, k.AddressSpace, k.Processes, fileSystem)
	k.Loader.SetShell(cfg.Shell)
	k.Loader.SetFaultOutput(k.Terminals)
	if !cfg.Verbose {
		k.Loader.SetLogOutput(nil)
	}

	k.Scheduler = sched.New(k.CPU, k.AddressSpace, k.Processes, k.Loader, k.Terminals.Foreground)
	k.Scheduler.SetEnabled(cfg.Scheduling)
	if cfg.Verbose {
		k.Scheduler.SetLogOutput(kfmt.GetOutputSink())
	}

	k.Syscalls = syscall.New(k.AddressSpace, k.Processes, k.Loader)

	k.CPU.HandleSyscall(k.Syscalls.Handle)
	k.CPU.HandleIRQ(cpu.TimerIRQ, k.Scheduler.Tick)
	k.CPU.HandleIRQ(cpu.KeyboardIRQ, k.Terminals.HandleKey)
	k.CPU.HandleIRQ(cpu.RTCIRQ, k.RTC.HandleIRQ)
	for e := cpu.DivideError; e <= cpu.SIMDError; e++ {
		k.CPU.HandleException(e, k.Loader.HandleFault)
	}

	k.log = io.Discard
	if !cfg.Quiet {
		k.log = &kfmt.PrefixWriter{Sink: kfmt.GetOutputSink(), Prefix: []byte("[boot] ")}
	}

	return k
}

// Boot starts session 0 and returns once the CPU settles.
func (k *Kernel) Boot() {
	k.Terminals.SetForeground(k.Config.Foreground)

	k.CPU.Start(func() {
		mode := "on"
		if !k.Config.Scheduling {
			mode = "off"
		}
		kfmt.Fprintf(k.log, "%d sessions, %d process slots, shell=%s, sched=%s\n",
			proc.NumSessions, proc.MaxProcs, k.Config.Shell, mode)

		k.Scheduler.MarkRunning(0)
		k.Processes.SetActive(0)
		k.remapVideoWindow(k.Terminals.Foreground())

		k.CPU.EnableInterrupts()
		k.Loader.LaunchShell(0, nil)
	})
}

// remapVideoWindow points the video window of the session owning the CPU at
// the framebuffer when it is visible and at its backing page otherwise.
func (k *Kernel) remapVideoWindow(foreground int) {
	active := k.Processes.Active()
	k.AddressSpace.RemapVideoWindow(active, active == foreground)
}

// Tick delivers a timer interrupt and waits for the CPU to settle.
func (k *Kernel) Tick() {
	k.CPU.Raise(cpu.TimerIRQ, 0)
}

// RTCTick delivers a real-time clock interrupt.
func (k *Kernel) RTCTick() {
	k.CPU.Raise(cpu.RTCIRQ, 0)
}

// Key delivers a key press.
func (k *Kernel) Key(key uint32) {
	k.CPU.Raise(cpu.KeyboardIRQ, key)
}

// Type delivers the key presses for s. A newline presses enter.
func (k *Kernel) Type(s string) {
	for _, ch := range []byte(s) {
		if ch == '\n' {
			k.Key(tty.KeyEnter)
			continue
		}
		k.Key(uint32(ch))
	}
}

// Screen returns the console page of a session.
func (k *Kernel) Screen(session int) *console.Text {
	return k.Terminals.Screen(session)
}

// Halted returns true once the machine has stopped.
func (k *Kernel) Halted() bool {
	return k.CPU.Halted()
}
