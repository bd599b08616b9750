package sync

import (
	"reflect"
	"testing"
)

type mockCPU struct {
	ifFlag bool
	trace  []bool
}

func (c *mockCPU) DisableInterrupts() bool {
	prev := c.ifFlag
	c.ifFlag = false
	c.trace = append(c.trace, false)
	return prev
}

func (c *mockCPU) RestoreInterrupts(prev bool) {
	c.ifFlag = prev
	c.trace = append(c.trace, prev)
}

func TestGuard(t *testing.T) {
	cpu := &mockCPU{ifFlag: true}
	g := NewGuard(cpu)

	var inside []bool
	g.Do(func() {
		inside = append(inside, cpu.ifFlag)
		g.Do(func() {
			inside = append(inside, cpu.ifFlag)
		})
		inside = append(inside, cpu.ifFlag)
	})

	if !cpu.ifFlag {
		t.Fatal("expected interrupts to be re-enabled after the outermost section")
	}

	if exp := []bool{false, false, false}; !reflect.DeepEqual(inside, exp) {
		t.Fatalf("expected interrupts to stay disabled inside the section; got %v", inside)
	}

	// the nested Leave must not re-enable interrupts
	if exp := []bool{false, false, false, true}; !reflect.DeepEqual(cpu.trace, exp) {
		t.Fatalf("expected IF trace %v; got %v", exp, cpu.trace)
	}
}

func TestGuardKeepsDisabledState(t *testing.T) {
	cpu := &mockCPU{}
	g := NewGuard(cpu)

	prev := g.Enter()
	g.Leave(prev)

	if cpu.ifFlag {
		t.Fatal("expected Leave to restore the disabled state")
	}
}
