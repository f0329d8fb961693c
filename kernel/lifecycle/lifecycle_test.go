package lifecycle

import (
	"fmt"
	"testing"
	"time"

	"github.com/xv6go/xv6go/kernel/extiface"
	"github.com/xv6go/xv6go/kernel/proc"
	"github.com/xv6go/xv6go/kernel/sched"
)

// recv reads one value from ch or fails the test if nothing arrives within
// a second — every event in these tests is produced by a goroutine that
// should make progress almost immediately once its CPU is scheduled.
func recv(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("fail: timed out waiting for an event")
		return ""
	}
}

func bootOneCPU(t *testing.T, m *Machine) (stop chan struct{}) {
	t.Helper()
	stop = make(chan struct{})
	cpu := &sched.CPU{ID: 0}
	go sched.Scheduler(cpu, m.Table, stop)
	return stop
}

func TestForkExitWaitLifecycle(t *testing.T) {
	events := make(chan string, 8)

	var m *Machine
	body := func(p *proc.Proc) {
		if p.Pid == 1 {
			childPid := Fork(m, p)
			events <- fmt.Sprintf("forked:%d", childPid)
			reaped := Wait(m, p)
			events <- fmt.Sprintf("reaped:%d", reaped)
			for {
				Yield(p)
			}
		}
		Exit(m, p, 3)
	}
	m = NewMachine(body)
	stop := bootOneCPU(t, m)
	defer close(stop)

	m.UserInit([]byte("fake-image"), extiface.NewFakeInode("/"))

	forkedEvt := recv(t, events)
	if forkedEvt != "forked:2" {
		t.Fatalf("fail: expected fork to return pid 2 to the parent, got %q", forkedEvt)
	}
	reapedEvt := recv(t, events)
	if reapedEvt != "reaped:2" {
		t.Fatalf("fail: expected wait to reap pid 2, got %q", reapedEvt)
	}
}

func TestWaitReturnsMinusOneWithNoChildren(t *testing.T) {
	done := make(chan int, 1)

	var m *Machine
	body := func(p *proc.Proc) {
		done <- Wait(m, p)
		for {
			Yield(p)
		}
	}
	m = NewMachine(body)
	stop := bootOneCPU(t, m)
	defer close(stop)

	m.UserInit([]byte("fake-image"), extiface.NewFakeInode("/"))

	select {
	case got := <-done:
		if got != -1 {
			t.Fatalf("fail: expected -1 from Wait with no children, got %d", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("fail: timed out waiting for Wait to return")
	}
}

func TestOrphanIsReparentedToInit(t *testing.T) {
	reaped := make(chan string, 8)

	var m *Machine
	body := func(p *proc.Proc) {
		switch p.Pid {
		case 1: // init: spawn one child, then reap everyone that becomes a zombie
			Fork(m, p)
			for {
				pid := Wait(m, p)
				if pid > 0 {
					reaped <- fmt.Sprintf("reaped:%d", pid)
				}
				Yield(p)
			}
		case 2: // forks a grandchild, then exits without waiting on it
			Fork(m, p)
			Exit(m, p, 1)
		default: // the grandchild: yield a couple times, then exit
			Yield(p)
			Yield(p)
			Exit(m, p, 2)
		}
	}
	m = NewMachine(body)
	stop := bootOneCPU(t, m)
	defer close(stop)

	m.UserInit([]byte("fake-image"), extiface.NewFakeInode("/"))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[recv(t, reaped)] = true
	}
	if !seen["reaped:2"] || !seen["reaped:3"] {
		t.Fatalf("fail: expected both pid 2 and its orphaned child (pid 3) to be reaped by init, got %v", seen)
	}
}

func TestGrowprocLeavesSizeUnchangedOnFailure(t *testing.T) {
	m := NewMachine(func(*proc.Proc) {})
	p, err := m.Table.Alloc(m.ProcBody)
	if err != nil {
		t.Fatalf("fail: unexpected alloc error: %s", err)
	}
	p.PageDir = extiface.NewFakePageDir()
	if err := p.PageDir.Init([]byte("abc")); err != nil {
		t.Fatalf("fail: unexpected Init error: %s", err)
	}
	p.Lock.Unlock()

	before := p.Sz()
	_, err = Growproc(p, -1_000_000)
	if err == nil {
		t.Fatalf("fail: expected an error shrinking below zero")
	}
	if p.Sz() != before {
		t.Fatalf("fail: Sz changed after a failed Growproc: before=%d after=%d", before, p.Sz())
	}
}
