package sched

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/xv6go/xv6go/kernel/proc"
)

func TestSchedulerRunsAllRunnableSlotsRoundRobin(t *testing.T) {
	table := proc.NewTable()
	events := make(chan int, 64)

	var pids []int
	for i := 0; i < 3; i++ {
		p, err := table.Alloc(func(p *proc.Proc) {
			for {
				events <- p.Pid
				p.Lock.Lock()
				p.State = proc.Runnable
				Sched(p)
				p.Lock.Unlock()
			}
		})
		if err != nil {
			t.Fatalf("fail: unexpected alloc error: %s", err)
		}
		p.State = proc.Runnable
		p.Lock.Unlock()
		pids = append(pids, p.Pid)
	}

	cpu := &CPU{ID: 0}
	stop := make(chan struct{})
	go Scheduler(cpu, table, stop)
	defer close(stop)

	seen := map[int]int{}
	timeout := time.After(2 * time.Second)
	for {
		select {
		case pid := <-events:
			seen[pid]++
			allTwice := true
			for _, want := range pids {
				if seen[want] < 2 {
					allTwice = false
				}
			}
			if allTwice {
				return
			}
		case <-timeout:
			t.Fatalf("fail: not every slot was scheduled at least twice within the deadline: %v", seen)
		}
	}
}

func TestSchedPanicsWhenProcIsRunning(t *testing.T) {
	table := proc.NewTable()
	p, err := table.Alloc(func(*proc.Proc) {})
	if err != nil {
		t.Fatalf("fail: unexpected alloc error: %s", err)
	}
	p.State = proc.Running

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("fail: expected Sched to panic when called with p.State == Running")
		}
	}()
	Sched(p)
}

func TestSchedPanicsWithNilContext(t *testing.T) {
	p := &proc.Proc{State: proc.Runnable}

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("fail: expected Sched to panic with a nil context")
		}
	}()
	Sched(p)
}

// A slot that switches back to the scheduler without first leaving RUNNING
// violates the invariant Sched's callers are supposed to establish; the
// Scheduler loop itself is the backstop that catches it.
func TestSchedulerPanicsIfStillRunningAfterSwitch(t *testing.T) {
	table := proc.NewTable()
	p, err := table.Alloc(func(p *proc.Proc) {
		p.Ctx.SwitchBack()
	})
	if err != nil {
		t.Fatalf("fail: unexpected alloc error: %s", err)
	}
	p.State = proc.Runnable
	p.Lock.Unlock()

	panicked := make(chan any, 1)
	cpu := &CPU{ID: 0}
	stop := make(chan struct{})
	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicked <- r
			}
		}()
		Scheduler(cpu, table, stop)
	}()
	defer close(stop)

	select {
	case r := <-panicked:
		msg := fmt.Sprintf("%v", r)
		if !strings.Contains(msg, "still RUNNING") {
			t.Fatalf("fail: expected a still-RUNNING invariant panic, got %v", r)
		}
	case <-time.After(time.Second):
		t.Fatalf("fail: scheduler never panicked on the RUNNING invariant violation")
	}
}

func TestSchedulerSkipsNonRunnableSlots(t *testing.T) {
	table := proc.NewTable()
	ran := make(chan struct{}, 1)

	p, err := table.Alloc(func(p *proc.Proc) {
		ran <- struct{}{}
	})
	if err != nil {
		t.Fatalf("fail: unexpected alloc error: %s", err)
	}
	// Leave it EMBRYO rather than RUNNABLE; the scheduler must never pick it.
	p.Lock.Unlock()

	cpu := &CPU{ID: 0}
	stop := make(chan struct{})
	go Scheduler(cpu, table, stop)
	defer close(stop)

	select {
	case <-ran:
		t.Fatalf("fail: scheduler ran a slot that was never RUNNABLE")
	case <-time.After(100 * time.Millisecond):
	}
}
