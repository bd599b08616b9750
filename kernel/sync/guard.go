// Package sync provides the critical section primitive used to protect the
// kernel tables on the single CPU.
package sync

// InterruptController is the part of the CPU a Guard needs.
type InterruptController interface {
	DisableInterrupts() bool
	RestoreInterrupts(prev bool)
}

// Guard protects shared kernel state by disabling interrupts for the duration
// of a critical section. With a single CPU and no kernel preemption other
// than interrupts this is enough to make the section atomic. Guards nest.
type Guard struct {
	cpu InterruptController
}

// NewGuard returns a Guard that masks interrupts on cpu.
func NewGuard(cpu InterruptController) *Guard {
	return &Guard{cpu: cpu}
}

// Enter starts a critical section. The returned value must be passed to the
// matching Leave call.
func (g *Guard) Enter() bool {
	return g.cpu.DisableInterrupts()
}

// Leave ends a critical section started by Enter.
func (g *Guard) Leave(prev bool) {
	g.cpu.RestoreInterrupts(prev)
}

// Do runs fn inside a critical section. fn must not switch threads.
func (g *Guard) Do(fn func()) {
	prev := g.Enter()
	fn()
	g.Leave(prev)
}
