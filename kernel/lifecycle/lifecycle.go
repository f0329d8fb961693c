// Package lifecycle implements process creation, termination, reaping and
// voluntary preemption: fork, exit, wait, reparent, yield, growproc and
// user_init.
package lifecycle

import (
	"fmt"

	"github.com/xv6go/xv6go/kernel/extiface"
	"github.com/xv6go/xv6go/kernel/proc"
	"github.com/xv6go/xv6go/kernel/rendezvous"
	"github.com/xv6go/xv6go/kernel/sched"
)

// Machine bundles the process table with the collaborators the lifecycle
// operations need: a page-table factory and the entry point every process
// runs.
// It plays the role xv6's global ptable/cpus/initproc
// singletons play, but as an explicit value instead of package-level
// globals, so more than one simulated kernel can run in a test binary at
// once.
type Machine struct {
	Table    *proc.Table
	NewVM    func() extiface.PageDir
	ProcBody func(*proc.Proc)
}

// NewMachine wires a fresh, empty process table to the collaborators
// needed to run it. procBody is the function every process's context runs
// from forkret onward — the simulated "kernel code that returns to user
// mode". Real xv6 tail-calls usertrapret; since there's no real user mode
// here, procBody plays that role directly: it's expected to loop, calling
// Yield/Sleep/Exit as directed, until the process exits.
func NewMachine(procBody func(*proc.Proc)) *Machine {
	t := proc.NewTable()
	return &Machine{
		Table:    t,
		NewVM:    extiface.NewFakePageDir,
		ProcBody: procBody,
	}
}

// Yield voluntarily gives up the CPU, returning it to the scheduler.
func Yield(p *proc.Proc) {
	p.Lock.Lock()
	p.State = proc.Runnable
	sched.Sched(p)
	p.Lock.Unlock()
}

// UserInit is called exactly once during boot. It allocates the first
// slot, maps the embedded bootstrap image at address 0, points
// the trap frame's saved PC/SP at the image entry and one page of stack,
// names the process init, sets its cwd to the filesystem root, and marks
// it RUNNABLE.
func (m *Machine) UserInit(bootstrapImage []byte, rootFS extiface.Inode) *proc.Proc {
	p, err := m.Table.Alloc(m.ProcBody)
	if err != nil {
		panic(fmt.Sprintf("lifecycle: user_init failed to allocate the first slot: %s", err))
	}

	pd := m.NewVM()
	if err := pd.Init(bootstrapImage); err != nil {
		panic(fmt.Sprintf("lifecycle: user_init failed mapping bootstrap image: %s", err))
	}
	p.PageDir = pd
	const pageSize = 4096
	p.Tf.ElrEl1 = 0
	p.Tf.StackPtr = pageSize
	p.Name = truncateName("init")
	p.Cwd = rootFS
	p.State = proc.Runnable
	m.Table.InitProc = p
	p.Lock.Unlock()
	return p
}

// Fork duplicates the calling process into a fresh slot. It returns the
// child's PID to the parent (0 is never returned to the parent; a failure
// returns -1).
func Fork(m *Machine, parent *proc.Proc) int {
	child, err := m.Table.Alloc(m.ProcBody)
	if err != nil {
		return -1
	}

	childVM, err := parent.PageDir.Copy(parent.Sz())
	if err != nil {
		m.Table.Free(child)
		child.Lock.Unlock()
		return -1
	}
	child.PageDir = childVM

	childTf := *parent.Tf
	childTf.X0 = 0 // fork() == 0 in the child
	child.Tf = &childTf

	for i, f := range parent.Files {
		if f != nil {
			child.Files[i] = f.Dup()
		}
	}
	if parent.Cwd != nil {
		child.Cwd = parent.Cwd.Dup()
	}
	child.Name = parent.Name

	pid := child.Pid
	child.Lock.Unlock()

	m.Table.WaitLock.Lock()
	child.Parent = parent
	m.Table.WaitLock.Unlock()

	child.Lock.Lock()
	child.State = proc.Runnable
	child.Lock.Unlock()

	return pid
}

// Exit tears down a process and hands it off to its parent. An explicit
// Wakeup(parent) is issued before sched, since without it a parent
// sleeping on itself in Wait would have no way to learn that a child
// became a ZOMBIE. See DESIGN.md.
func Exit(m *Machine, p *proc.Proc, status int) {
	if p == m.Table.InitProc {
		panic("lifecycle: initproc must never exit")
	}

	for i, f := range p.Files {
		if f != nil {
			f.Close()
			p.Files[i] = nil
		}
	}
	if p.Cwd != nil {
		p.Cwd.Put()
		p.Cwd = nil
	}

	m.Table.WaitLock.Lock()
	reparent(m, p)

	parent := p.Parent
	if parent != nil {
		rendezvous.Wakeup(m.Table, parent, p)
	}

	p.Lock.Lock()
	p.Xstate = status
	p.State = proc.Zombie
	m.Table.WaitLock.Unlock()

	// p.Lock is deliberately still held here. sched.Sched never returns: the
	// scheduler that swtch'd into this process releases the lock itself once
	// that swtch call returns to it, the same way it does for a yielding
	// process — there is no forkret-style resumption point in this
	// goroutine left to do it.
	sched.Sched(p)
	panic("lifecycle: exit returned from sched; this must never happen")
}

// reparent sets every child of p to initproc. Must be called with
// WaitLock held.
func reparent(m *Machine, p *proc.Proc) {
	m.Table.Each(func(c *proc.Proc) {
		if c.Parent == p {
			c.Parent = m.Table.InitProc
		}
	})
}

// Wait reaps a ZOMBIE child if one exists, sleeps until one appears
// otherwise, and fails if there are no children left (or the caller was
// killed).
func Wait(m *Machine, self *proc.Proc) int {
	m.Table.WaitLock.Lock()
	for {
		havekids := false
		var foundPid = -1
		var zombie *proc.Proc

		m.Table.Each(func(c *proc.Proc) {
			if c.Parent != self {
				return
			}
			havekids = true
			c.Lock.Lock()
			if c.State == proc.Zombie && zombie == nil {
				foundPid = c.Pid
				zombie = c
			}
			c.Lock.Unlock()
		})

		if zombie != nil {
			zombie.Lock.Lock()
			m.Table.Free(zombie)
			zombie.Lock.Unlock()
			m.Table.WaitLock.Unlock()
			return foundPid
		}

		self.Lock.Lock()
		killed := self.Killed
		self.Lock.Unlock()
		if !havekids || killed {
			m.Table.WaitLock.Unlock()
			return -1
		}

		rendezvous.Sleep(self, self, &m.Table.WaitLock)
	}
}

// Growproc grows or shrinks p's user memory by n bytes, returning the size
// before the change. On failure, Sz is left unchanged.
func Growproc(p *proc.Proc, n int64) (prevSz uint64, err error) {
	old := p.Sz()
	var newSz int64 = int64(old) + n
	if newSz < 0 {
		return old, fmt.Errorf("lifecycle: growproc(%d) would shrink size below zero", n)
	}

	if n >= 0 {
		_, err = p.PageDir.Alloc(old, uint64(newSz))
	} else {
		_, err = p.PageDir.Dealloc(old, uint64(newSz))
	}
	if err != nil {
		return old, err
	}
	return old, nil
}

func truncateName(name string) string {
	const maxNameLen = 16
	if len(name) > maxNameLen-1 {
		return name[:maxNameLen-1]
	}
	return name
}
