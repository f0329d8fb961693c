// Package cswitch models the "swtch" contract: saving and restoring the
// callee-saved registers that separate a process's kernel stack from its
// CPU's scheduler stack.
//
// There is no ARM64 assembly here — Go goroutines already have their own
// stacks, so the thing worth modeling faithfully is the *contract*, not the
// register shuffle: control passes from the scheduler into a slot only via
// SwitchTo, and back only via SwitchBack, and each resumes the other at the
// instruction after its own call. A Context is a goroutine parked on a pair
// of unbuffered channels that enforce exactly that ping-pong.
package cswitch

// Context is the per-slot "kernel context": the suspended state a process
// is in while it isn't RUNNING. The first SwitchTo on a fresh Context is the
// analogue of a saved link register pointing at forkret — the process's
// entry function runs for the first time.
type Context struct {
	resume chan struct{}
	done   chan struct{}
}

// NewContext constructs a context whose first SwitchTo begins running
// entry. entry is expected to call SwitchBack (directly or by way of
// sched) whenever it wants to yield control back to the scheduler, and to
// keep doing so for the lifetime of the process.
func NewContext(entry func()) *Context {
	c := &Context{
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		<-c.resume
		entry()
	}()
	return c
}

// SwitchTo is called by the scheduler loop to switch into this context. It
// blocks until the slot switches back out via SwitchBack — swtch into a
// slot is permitted only from the scheduler loop.
func (c *Context) SwitchTo() {
	c.resume <- struct{}{}
	<-c.done
}

// SwitchBack is called from within the slot's own goroutine (via sched) to
// return control to whichever scheduler called SwitchTo. It blocks until
// the scheduler switches back in — swtch out of a slot is permitted only
// when the caller holds the slot's lock and the slot isn't RUNNING.
func (c *Context) SwitchBack() {
	c.done <- struct{}{}
	<-c.resume
}
