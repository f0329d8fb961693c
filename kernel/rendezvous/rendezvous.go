// Package rendezvous implements sleep/wakeup, the condition-variable-like
// primitive processes use to block until some event occurs.
package rendezvous

import (
	"sync"

	"github.com/xv6go/xv6go/kernel/proc"
	"github.com/xv6go/xv6go/kernel/sched"
)

// Sleep atomically releases lk and suspends the current process p until
// some other process calls Wakeup with the same chan value. Spurious
// wakeups are never injected here; callers must still loop and re-check
// their predicate, the same way Wait does.
//
// The ordering — acquire p.Lock before releasing lk — is load-bearing:
// Wakeup must observe p.Lock to read State/Chan, so once Sleep holds it, no
// wakeup can race ahead of the state transition and be missed.
func Sleep(p *proc.Proc, chanv any, lk sync.Locker) {
	p.Lock.Lock()
	if lk != nil {
		lk.Unlock()
	}

	p.Chan = chanv
	p.State = proc.Sleeping

	sched.Sched(p)

	p.Chan = nil
	p.Lock.Unlock()

	if lk != nil {
		lk.Lock()
	}
}

// Wakeup scans the table; for every slot other than skip, it acquires the
// slot's lock and, if it is SLEEPING on chanv, makes it RUNNABLE again.
// Only one slot lock is ever held at a time here.
func Wakeup(t *proc.Table, chanv any, skip *proc.Proc) {
	t.Each(func(p *proc.Proc) {
		if p == skip {
			return
		}
		p.Lock.Lock()
		if p.State == proc.Sleeping && p.Chan == chanv {
			p.State = proc.Runnable
		}
		p.Lock.Unlock()
	})
}
