// Package sched implements the per-CPU scheduler loop and the sched()
// helper that is the only path from a running process back to it.
package sched

import (
	"fmt"
	"log"

	"github.com/xv6go/xv6go/kernel/proc"
)

// CPU is the per-CPU block: the slot currently RUNNING on this CPU, or nil.
type CPU struct {
	ID   int
	Proc *proc.Proc
}

// Sched is the only path from a running process back to its CPU's
// scheduler. Its preconditions are each fatal if violated: the caller must
// hold p.Lock, and p.State must not be Running — both are invariants a
// correct caller (Sleep, Yield, Exit) has already established before
// calling Sched. Other locks the caller may also hold are not checked.
func Sched(p *proc.Proc) {
	if p.State == proc.Running {
		panic("sched: called with p.State == Running")
	}
	if p.Ctx == nil {
		panic("sched: process has no context to switch back through")
	}
	if p.Lock.TryLock() {
		p.Lock.Unlock()
		panic("sched: called without holding p.Lock")
	}
	p.Ctx.SwitchBack()
}

// Scheduler is the per-CPU loop: it runs until stop is closed, and on each
// sweep of the table it visits every slot in index order and, for each
// RUNNABLE one, switches the simulated page tables, marks it RUNNING and
// switches into it. It is strictly round-robin by slot index — no priority,
// no aging.
func Scheduler(cpu *CPU, t *proc.Table, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		t.Each(func(p *proc.Proc) {
			select {
			case <-stop:
				return
			default:
			}

			p.Lock.Lock()
			if p.State != proc.Runnable {
				p.Lock.Unlock()
				return
			}

			cpu.Proc = p
			if p.PageDir != nil {
				p.PageDir.Switch()
			}
			p.State = proc.Running

			p.Ctx.SwitchTo()

			// Invariant enforced by Sched's contract: by the time control
			// returns here, p.Lock is still held and p.State != Running.
			if p.State == proc.Running {
				panic(fmt.Sprintf("scheduler: proc %d still RUNNING after swtch returned", p.Pid))
			}
			cpu.Proc = nil
			p.Lock.Unlock()
		})
	}
}

// Log reports the number of simulated CPUs this process was asked to
// schedule across.
func Log(n int) {
	log.Printf("sched: starting %d scheduler loop(s)", n)
}
