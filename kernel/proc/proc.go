// Package proc holds the process table: the fixed-size pool of process
// slots, their per-slot locking, and the allocator that hands slots out and
// mints PIDs.
package proc

import (
	"fmt"
	"sync"

	"github.com/xv6go/xv6go/kernel/cswitch"
	"github.com/xv6go/xv6go/kernel/extiface"
)

// NPROC is the fixed size of the process table. A real xv6-armv8 build
// picks something like 64; we keep the same constant since nothing in this
// repository depends on a larger pool.
const NPROC = 64

// State is one of the six states a Proc can occupy.
type State int

const (
	Unused State = iota
	Embryo
	Sleeping
	Runnable
	Running
	Zombie
)

func (s State) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Embryo:
		return "EMBRYO"
	case Sleeping:
		return "SLEEPING"
	case Runnable:
		return "RUNNABLE"
	case Running:
		return "RUNNING"
	case Zombie:
		return "ZOMBIE"
	default:
		return "UNKNOWN"
	}
}

// TrapFrame is the saved user-mode register snapshot. Only the fields the
// core cares about are modeled: the syscall number (X8), the four syscall
// argument registers (X1..X4, read by argint as x1+n), the return-value
// register (X0), the saved program counter (ElrEl1) and the saved stack
// pointer (StackPtr).
type TrapFrame struct {
	X8       uint64
	Args     [4]uint64
	X0       uint64
	ElrEl1   uint64
	StackPtr uint64
}

// Proc is one process-table slot.
type Proc struct {
	Lock sync.Mutex

	Pid     int
	State   State
	Parent  *Proc
	Chan    any
	Killed  bool
	Xstate  int
	Name    string
	PageDir extiface.PageDir
	Ctx     *cswitch.Context
	Tf      *TrapFrame
	Files   [extiface.NOFILE]extiface.File
	Cwd     extiface.Inode
}

// Sz returns the size, in bytes, of the mapped user address space
// [0, Sz). Spec.md models this as a field on Proc; we derive it from the
// page directory so fork/growproc never have to keep two copies in sync.
func (p *Proc) Sz() uint64 {
	if f, ok := extiface.AsUserMem(p.PageDir); ok {
		return uint64(len(f))
	}
	return 0
}

// UserMem returns the bytes mapped at [0, Sz) for this process, or nil if
// the page directory doesn't expose raw memory (see extiface.AsUserMem).
func (p *Proc) UserMem() []byte {
	mem, _ := extiface.AsUserMem(p.PageDir)
	return mem
}

// Table is the fixed-size process table plus the table-wide singletons
// every slot shares: the PID counter and its lock, and the wait-lock that
// serializes parent/child observation.
type Table struct {
	Slots [NPROC]*Proc

	PidLock sync.Mutex
	nextPid int

	WaitLock sync.Mutex
	InitProc *Proc
}

// NewTable returns an empty table with every slot UNUSED and PID minting
// starting at 1.
func NewTable() *Table {
	t := &Table{nextPid: 1}
	for i := range t.Slots {
		t.Slots[i] = &Proc{State: Unused}
	}
	return t
}

// mintPid increments nextPid under PidLock and returns the fresh value.
// PIDs are never reused within a boot.
func (t *Table) mintPid() int {
	t.PidLock.Lock()
	defer t.PidLock.Unlock()
	pid := t.nextPid
	t.nextPid++
	return pid
}

// ErrNoFreeSlot is returned by Alloc when every slot is in use.
var ErrNoFreeSlot = fmt.Errorf("proc: no free process slot")

// Alloc scans the table for the first UNUSED slot, mints it a PID,
// constructs its kernel-stack/context/trap-frame triple, transitions it to
// EMBRYO, and returns it **with its lock held** — the caller finishes
// populating the slot and unlocks it. entry is the function the slot's
// goroutine will run the first time it is scheduled in (the Go analogue of
// forkret).
func (t *Table) Alloc(entry func(*Proc)) (*Proc, error) {
	for _, p := range t.Slots {
		p.Lock.Lock()
		if p.State != Unused {
			p.Lock.Unlock()
			continue
		}

		pid := t.mintPid()
		p.Pid = pid
		p.Tf = &TrapFrame{}
		// forkret: the first time this context is switched into, the
		// scheduler holds p.Lock across the switch (it acquired it while
		// scanning for a RUNNABLE slot). Nothing else will release that
		// lock on the process's behalf the way yield/sleep's own trailing
		// unlock does on later reschedules, so the entry wrapper releases
		// it itself before running the real entry point.
		p.Ctx = cswitch.NewContext(func() {
			p.Lock.Unlock()
			entry(p)
		})
		p.State = Embryo
		// Lock deliberately left held; caller finishes populating the slot
		// (PageDir, Tf contents, Name, Parent) and unlocks.
		return p, nil
	}
	return nil, ErrNoFreeSlot
}

// Free is Alloc's inverse. It must be called with p.Lock held and does not
// itself touch the lock. It releases the owned resources and resets the
// slot to UNUSED.
func (t *Table) Free(p *Proc) {
	if p.PageDir != nil {
		p.PageDir.Free()
		p.PageDir = nil
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
	p.Name = ""
	p.Killed = false
	p.Xstate = 0
	p.Chan = nil
	p.Tf = nil
	p.Ctx = nil
	p.State = Unused
}

// Each calls fn for every slot in index order. fn may lock/unlock the slot
// itself; Each does not take any lock on the caller's behalf — iteration is
// a plain linear scan, never a map, never dynamically resized.
func (t *Table) Each(fn func(*Proc)) {
	for _, p := range t.Slots {
		fn(p)
	}
}
