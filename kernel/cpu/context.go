package cpu

import "runtime"

// thread is a kernel thread of control backed by a goroutine. Each process
// owns exactly one thread; its goroutine stack doubles as the per-process
// kernel stack.
type thread struct {
	done chan struct{}

	// onExit runs after the goroutine has unwound and is used to hand the
	// CPU over to the next thread.
	onExit func()
}

type resumeMsg struct {
	value uint32
	kill  bool
}

// Context is a suspended execution point. It is created by the thread that
// will park on it and can be resumed exactly once.
type Context struct {
	wake  chan resumeMsg
	owner *thread
}

// NewContext creates a continuation owned by the running thread.
func (c *CPU) NewContext() *Context {
	return &Context{
		wake:  make(chan resumeMsg, 1),
		owner: c.cur,
	}
}

// Start spawns the first thread of the machine and blocks until the CPU
// becomes idle. It is called once by the boot code.
func (c *CPU) Start(fn func()) {
	c.spawn(fn)
	c.WaitIdle()
}

// spawn starts a new thread that immediately owns the CPU. The caller must
// give up the CPU right after (park or exit).
func (c *CPU) spawn(fn func()) {
	t := &thread{done: make(chan struct{})}
	go func() {
		defer func() {
			next := t.onExit
			close(t.done)
			if next != nil {
				next()
			}
		}()

		c.cur = t
		fn()
	}()
}

// Suspend parks the running thread on ctx until another thread resumes it.
// It returns the value handed over by Resume.
func (c *CPU) Suspend(ctx *Context) uint32 {
	return c.park(ctx, c.ifFlag)
}

// Switch resumes the thread parked on to and parks the running thread on
// save. Passing the same context for both is allowed and returns right away.
func (c *CPU) Switch(save, to *Context) uint32 {
	savedIF := c.ifFlag
	to.wake <- resumeMsg{}
	return c.park(save, savedIF)
}

func (c *CPU) park(ctx *Context, savedIF bool) uint32 {
	msg := <-ctx.wake
	if msg.kill {
		runtime.Goexit()
	}

	c.cur = ctx.owner
	c.ifFlag = savedIF
	return msg.value
}

// Resume hands value to the thread parked on ctx. The caller must stop using
// the CPU right after; it is meant to be called from an Exit continuation.
func (c *CPU) Resume(ctx *Context, value uint32) {
	ctx.wake <- resumeMsg{value: value}
}

// Exit terminates the running thread. Once the thread has fully unwound,
// then is invoked to hand the CPU over (it may be nil). Exit never returns.
func (c *CPU) Exit(then func()) {
	c.cur.onExit = then
	runtime.Goexit()
}

// Discard terminates the thread parked on ctx and waits until it is gone.
// Discarding a context owned by the running thread is a no-op.
func (c *CPU) Discard(ctx *Context) {
	if ctx == nil || ctx.owner == nil || ctx.owner == c.cur {
		return
	}

	ctx.wake <- resumeMsg{kill: true}
	<-ctx.owner.done
}
