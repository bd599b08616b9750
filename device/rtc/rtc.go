// Package rtc implements the real-time clock character device. The clock
// interrupts at a fixed rate and every terminal session gets its own virtual
// frequency on top of it.
package rtc

import (
	"encoding/binary"

	"ttyos/kernel"
	"ttyos/kernel/fs"
	"ttyos/kernel/mm"
)

const (
	// BaseFrequency is the rate at which the clock raises interrupts.
	BaseFrequency = 1024

	// DefaultFrequency is the virtual frequency set when the device is
	// opened.
	DefaultFrequency = 2

	// MinFrequency and MaxFrequency bound the virtual frequency.
	MinFrequency = 2
	MaxFrequency = 1024

	numSessions = mm.TerminalPages
)

var (
	errBadFrequency = &kernel.Error{Module: "rtc", Message: "frequency must be a power of two between 2 and 1024", Kind: kernel.InvalidArgument}
	errBadLength    = &kernel.Error{Module: "rtc", Message: "frequency must be written as 4 bytes", Kind: kernel.InvalidArgument}
)

// Waiter halts the CPU until the next interrupt.
type Waiter interface {
	Wait()
}

// Device is the RTC driver. It implements fs.FileOps for descriptors opened
// on the "rtc" directory entry.
type Device struct {
	cpu Waiter

	freq      [numSessions]uint32
	countdown [numSessions]int32
	ticks     uint64
}

// New returns a device whose reads halt the CPU through cpu.
func New(cpu Waiter) *Device {
	d := &Device{cpu: cpu}
	for i := range d.freq {
		d.freq[i] = DefaultFrequency
	}
	return d
}

// HandleIRQ is the RTC interrupt handler.
func (d *Device) HandleIRQ(uint32) {
	d.ticks++
	for i := range d.countdown {
		if d.countdown[i] > 0 {
			d.countdown[i]--
		}
	}
}

// Ticks returns the number of interrupts serviced so far.
func (d *Device) Ticks() uint64 {
	return d.ticks
}

// Frequency returns the virtual frequency of a session.
func (d *Device) Frequency(session int) uint32 {
	return d.freq[session]
}

// Open resets the virtual frequency of the descriptor's session.
func (d *Device) Open(f *fs.File, _ string) *kernel.Error {
	d.freq[f.Session] = DefaultFrequency
	return nil
}

// Close is a no-op.
func (d *Device) Close(*fs.File) *kernel.Error {
	return nil
}

// Read blocks until the next virtual interrupt of the descriptor's session
// and returns 0.
func (d *Device) Read(f *fs.File, _ []byte) (int, *kernel.Error) {
	s := f.Session

	countdown := int32(BaseFrequency/4) / int32(d.freq[s])
	if countdown < 1 {
		countdown = 1
	}

	d.countdown[s] = countdown
	for d.countdown[s] > 0 {
		d.cpu.Wait()
	}

	return 0, nil
}

// Write sets the virtual frequency of the descriptor's session from a 4-byte
// little-endian value.
func (d *Device) Write(f *fs.File, p []byte) (int, *kernel.Error) {
	if len(p) != 4 {
		return 0, errBadLength
	}

	freq := binary.LittleEndian.Uint32(p)
	if freq < MinFrequency || freq > MaxFrequency || freq&(freq-1) != 0 {
		return 0, errBadFrequency
	}

	d.freq[f.Session] = freq
	return 0, nil
}
