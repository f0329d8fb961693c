package proc

import "testing"

func TestAllocReturnsWithLockHeld(t *testing.T) {
	table := NewTable()
	p, err := table.Alloc(func(*Proc) {})
	if err != nil {
		t.Fatalf("fail: unexpected error from Alloc: %s", err)
	}
	if p.State != Embryo {
		t.Fatalf("fail: expected EMBRYO after Alloc, got %s", p.State)
	}
	// Alloc's contract is to return with the lock held; a second Lock from
	// this goroutine would deadlock a real caller, so instead verify the
	// slot is otherwise fully usable and unlock as the real caller would.
	p.Name = "test"
	p.Lock.Unlock()
}

func TestAllocPIDsAreNeverReused(t *testing.T) {
	table := NewTable()
	seen := map[int]bool{}
	for i := 0; i < NPROC; i++ {
		p, err := table.Alloc(func(*Proc) {})
		if err != nil {
			t.Fatalf("fail: Alloc failed on slot %d: %s", i, err)
		}
		if seen[p.Pid] {
			t.Fatalf("fail: pid %d minted twice", p.Pid)
		}
		seen[p.Pid] = true
		p.Lock.Unlock()
	}
}

func TestAllocExhaustionReturnsErrNoFreeSlot(t *testing.T) {
	table := NewTable()
	for i := 0; i < NPROC; i++ {
		p, err := table.Alloc(func(*Proc) {})
		if err != nil {
			t.Fatalf("fail: unexpected error filling the table: %s", err)
		}
		p.Lock.Unlock()
	}
	_, err := table.Alloc(func(*Proc) {})
	if err != ErrNoFreeSlot {
		t.Fatalf("fail: expected ErrNoFreeSlot once the table is full, got %v", err)
	}
}

func TestFreeResetsSlotToUnused(t *testing.T) {
	table := NewTable()
	p, err := table.Alloc(func(*Proc) {})
	if err != nil {
		t.Fatalf("fail: unexpected error from Alloc: %s", err)
	}
	p.Name = "zombie-to-be"
	p.Xstate = 7
	p.Killed = true
	table.Free(p)
	p.Lock.Unlock()

	if p.State != Unused {
		t.Fatalf("fail: expected UNUSED after Free, got %s", p.State)
	}
	if p.Name != "" || p.Xstate != 0 || p.Killed {
		t.Fatalf("fail: Free left stale fields: name=%q xstate=%d killed=%v", p.Name, p.Xstate, p.Killed)
	}
}

func TestStateStringCoversAllValues(t *testing.T) {
	want := map[State]string{
		Unused:   "UNUSED",
		Embryo:   "EMBRYO",
		Sleeping: "SLEEPING",
		Runnable: "RUNNABLE",
		Running:  "RUNNING",
		Zombie:   "ZOMBIE",
	}
	for s, expected := range want {
		if got := s.String(); got != expected {
			t.Fatalf("fail: State(%d).String() = %q, expected %q", s, got, expected)
		}
	}
}
