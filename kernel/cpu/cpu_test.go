package cpu

import (
	"fmt"
	"reflect"
	"testing"
)

func TestRaise(t *testing.T) {
	var (
		c       = New(Code{})
		got     []uint32
		ifState []bool
	)

	c.HandleIRQ(KeyboardIRQ, func(data uint32) {
		got = append(got, data)
		ifState = append(ifState, c.InterruptsEnabled())
	})
	c.Start(func() {
		for {
			c.Wait()
			ifState = append(ifState, c.InterruptsEnabled())
		}
	})

	c.Raise(KeyboardIRQ, 'a')
	c.Raise(KeyboardIRQ, 'b')
	c.Raise(TimerIRQ, 0)

	if exp := []uint32{'a', 'b'}; !reflect.DeepEqual(got, exp) {
		t.Fatalf("expected handler to receive %v; got %v", exp, got)
	}

	// handler runs with IF cleared; IF is restored once it returns.
	if exp := []bool{false, true, false, true, true}; !reflect.DeepEqual(ifState, exp) {
		t.Fatalf("expected IF trace %v; got %v", exp, ifState)
	}
}

func TestRaiseWhileComputing(t *testing.T) {
	var (
		c   = New(Code{})
		got []uint32
	)

	c.HandleIRQ(KeyboardIRQ, func(data uint32) {
		got = append(got, data)
	})
	c.Start(func() {
		c.EnableInterrupts()
		for {
			c.Pause()
		}
	})

	for _, key := range []uint32{'a', 'b', 'c'} {
		c.Raise(KeyboardIRQ, key)
	}

	if exp := []uint32{'a', 'b', 'c'}; !reflect.DeepEqual(got, exp) {
		t.Fatalf("expected handler to receive %v; got %v", exp, got)
	}
}

func TestInterruptFlag(t *testing.T) {
	c := New(Code{})

	if c.InterruptsEnabled() {
		t.Fatal("expected interrupts to be disabled after reset")
	}

	c.EnableInterrupts()
	prev := c.DisableInterrupts()
	if !prev || c.InterruptsEnabled() {
		t.Fatalf("expected DisableInterrupts to clear IF and return true; got %t", prev)
	}

	if c.DisableInterrupts() {
		t.Fatal("expected nested DisableInterrupts to return false")
	}

	c.RestoreInterrupts(prev)
	if !c.InterruptsEnabled() {
		t.Fatal("expected RestoreInterrupts to set IF")
	}
}

func TestSwitch(t *testing.T) {
	var (
		c     = New(Code{})
		trace []string
		a, b  *Context
	)

	c.Start(func() {
		a = c.NewContext()
		saved := c.ifFlag
		c.spawn(func() {
			b = c.NewContext()
			trace = append(trace, "b:start")
			v := c.Switch(b, a)
			trace = append(trace, fmt.Sprintf("b:%d", v))
			c.Exit(func() { c.Resume(a, 42) })
		})

		v := c.park(a, saved)
		trace = append(trace, fmt.Sprintf("a:%d", v))
		v = c.Switch(a, b)
		trace = append(trace, fmt.Sprintf("a:%d", v))

		for {
			c.Wait()
		}
	})

	if exp := []string{"b:start", "a:0", "b:0", "a:42"}; !reflect.DeepEqual(trace, exp) {
		t.Fatalf("expected trace %v; got %v", exp, trace)
	}
}

func TestSwitchToSelf(t *testing.T) {
	var (
		c    = New(Code{})
		done bool
	)

	c.Start(func() {
		ctx := c.NewContext()
		c.Switch(ctx, ctx)
		done = true
		for {
			c.Wait()
		}
	})

	if !done {
		t.Fatal("expected switching to the running context to return")
	}
}

func TestDiscard(t *testing.T) {
	var (
		c                = New(Code{})
		unwound, resumed bool
		a, b             *Context
	)

	c.Start(func() {
		a = c.NewContext()
		saved := c.ifFlag
		c.spawn(func() {
			defer func() { unwound = true }()
			b = c.NewContext()
			c.Switch(b, a)
			resumed = true
		})
		c.park(a, saved)

		c.Discard(b)
		c.Discard(nil)
		c.Discard(a)

		for {
			c.Wait()
		}
	})

	if !unwound {
		t.Error("expected discarded thread to unwind")
	}

	if resumed {
		t.Error("expected discarded thread to never resume")
	}
}

func TestHalt(t *testing.T) {
	c := New(Code{})

	c.Start(func() {
		c.Halt()
	})

	if !c.Halted() {
		t.Fatal("expected CPU to be halted")
	}

	// Raise must not block once the machine is halted.
	c.Raise(TimerIRQ, 0)
}

func TestKernelStack(t *testing.T) {
	c := New(Code{})
	c.SetKernelStack(0x7FFFFC)

	if exp, got := (TaskState{SS0: KernelDS, ESP0: 0x7FFFFC}), c.TaskState(); got != exp {
		t.Fatalf("expected task state %+v; got %+v", exp, got)
	}
}

func TestTLB(t *testing.T) {
	var tlb TLB

	if _, ok := tlb.Lookup(0x8048); ok {
		t.Fatal("expected lookup on an empty TLB to miss")
	}

	tlb.Insert(0x8048, TLBEntry{PhysPage: 0x2048, Writable: true, User: true})
	entry, ok := tlb.Lookup(0x8048)
	if !ok || entry.PhysPage != 0x2048 {
		t.Fatalf("expected cached translation to page 0x2048; got %+v (hit: %t)", entry, ok)
	}

	tlb.Flush()
	if tlb.Len() != 0 || tlb.Flushes() != 1 {
		t.Fatalf("expected flush to drop %d entries; %d entries left after %d flushes", 1, tlb.Len(), tlb.Flushes())
	}
}

func TestExceptionString(t *testing.T) {
	specs := []struct {
		exc Exception
		exp string
	}{
		{DivideError, "divide error"},
		{PageFault, "page fault"},
		{GeneralProtectionFault, "general protection fault"},
		{Exception(99), "unknown exception"},
	}

	for specIndex, spec := range specs {
		if got := spec.exc.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
