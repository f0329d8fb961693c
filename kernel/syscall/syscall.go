// Package syscall implements the trap-frame argument-fetch helpers and the
// core syscall dispatch table: the thin layer between a trapped user
// register file and the lifecycle/scheduling operations it invokes.
package syscall

import (
	"fmt"
	"log"

	"github.com/xv6go/xv6go/kernel/lifecycle"
	"github.com/xv6go/xv6go/kernel/proc"
)

// Syscall numbers, following the real AArch64 Linux ABI numbering. Only a
// handful have handlers; a number without one, named here or not, takes the
// same logged "unknown syscall" -1 path in Dispatch.
const (
	SysSetTidAddress = 96
	SysGetTid        = 178
	SysIoctl         = 29
	SysRtSigprocmask = 135
	SysBrk           = 214
	SysExecve        = 221
	SysSchedYield    = 124
	SysClone         = 220
	SysWait4         = 260
	SysExitGroup     = 94
	SysExit          = 93
	SysDup           = 23
	SysChdir         = 49
	SysFstat         = 80
	SysNewfstatat    = 79
	SysMkdirat       = 34
	SysMknodat       = 33
	SysOpenat        = 56
	SysWritev        = 66
	SysRead          = 63
	SysClose         = 57

	// NumSyscalls bounds the dispatch table. The highest number above
	// (wait4, 260) plus one.
	NumSyscalls = 261
)

// Handler is one dispatch-table entry: given the process that trapped in,
// return the value to write into tf.X0.
type Handler func(m *lifecycle.Machine, p *proc.Proc) int

// Table is the [NumSyscalls]Handler dispatch table, keyed by the trap
// frame's X8 register.
type Table struct {
	handlers [NumSyscalls]Handler
}

// NewTable builds the dispatch table with the core syscall set wired in:
// exec, yield, brk, clone, wait4, exit, plus exit_group and sched_yield as
// aliases of exit/yield. Everything else dispatches but is unimplemented —
// recognized numbers with no handler and numbers past NumSyscalls both fall
// through to the same "unsupported, return -1" path, since an unsupported
// form is recoverable, not fatal.
func NewTable() *Table {
	t := &Table{}
	t.handlers[SysExecve] = sysExec
	t.handlers[SysSchedYield] = sysYield
	t.handlers[SysBrk] = sysBrk
	t.handlers[SysClone] = sysClone
	t.handlers[SysWait4] = sysWait4
	t.handlers[SysExit] = sysExit
	t.handlers[SysExitGroup] = sysExit
	return t
}

// Dispatch reads the syscall number from tf.X8, invokes the matching
// handler if one is registered, and writes the result into tf.X0. An
// unregistered or out-of-range number returns -1 rather than looping
// forever.
func (t *Table) Dispatch(m *lifecycle.Machine, p *proc.Proc) {
	num := p.Tf.X8
	var h Handler
	if num < NumSyscalls {
		h = t.handlers[num]
	}
	if h == nil {
		log.Printf("syscall: unknown syscall %d from pid %d", num, p.Pid)
		minusOne := int64(-1)
		p.Tf.X0 = uint64(minusOne)
		return
	}
	p.Tf.X0 = uint64(int64(h(m, p)))
}

// Argint reads the n'th syscall argument register (x1+n in the original
// ABI, Args[n] here). n outside [0,3] is fatal: it panics instead of
// reading adjacent memory the way an unchecked pointer walk would.
func Argint(n int, tf *proc.TrapFrame) int {
	if n < 0 || n > 3 {
		panic(fmt.Sprintf("syscall: argint(%d, ...) out of range [0,3]", n))
	}
	return int(int64(tf.Args[n]))
}

// Fetchint reads 8 bytes at user-virtual address addr out of p's mapped
// memory. It fails if the 8-byte span isn't entirely within [0, p.Sz()).
func Fetchint(p *proc.Proc, addr uint64) (int64, error) {
	mem := p.UserMem()
	sz := p.Sz()
	if addr+8 < addr || addr+8 > sz {
		return 0, fmt.Errorf("syscall: fetchint(%#x) out of bounds (sz=%d)", addr, sz)
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(mem[addr+uint64(i)]) << (8 * i)
	}
	return int64(v), nil
}

// Fetchstr returns the NUL-terminated string starting at user-virtual
// address addr. It fails if addr is out of range or no NUL byte appears
// before p.Sz().
func Fetchstr(p *proc.Proc, addr uint64) (string, error) {
	mem := p.UserMem()
	sz := p.Sz()
	if addr >= sz {
		return "", fmt.Errorf("syscall: fetchstr(%#x) starts out of bounds (sz=%d)", addr, sz)
	}
	for i := addr; i < sz; i++ {
		if mem[i] == 0 {
			return string(mem[addr:i]), nil
		}
	}
	return "", fmt.Errorf("syscall: fetchstr(%#x) found no NUL before sz=%d", addr, sz)
}

// Argptr fetches the n'th argument as a user pointer and range-checks
// [ptr, ptr+size) against [0, p.Sz()).
func Argptr(p *proc.Proc, n int, size uint64) (uint64, error) {
	ptr := uint64(Argint(n, p.Tf))
	sz := p.Sz()
	if ptr+size < ptr || ptr+size > sz {
		return 0, fmt.Errorf("syscall: argptr(%d) range [%#x,%#x) outside [0,%d)", n, ptr, ptr+size, sz)
	}
	return ptr, nil
}

// Argstr fetches the n'th argument as a user pointer and reads the
// NUL-terminated string found there.
func Argstr(p *proc.Proc, n int) (string, error) {
	ptr := uint64(Argint(n, p.Tf))
	return Fetchstr(p, ptr)
}

// sysExec parses a user path string and a NUL-terminated array of user
// string pointers (at most MaxExecArgs) and would invoke execve. Loading a
// new image over the current address space is out of scope for this
// dispatch layer, so this wrapper only performs the argument-fetch half and
// reports success; callers that need real image replacement should drive
// extiface.PageDir directly.
const MaxExecArgs = 32

func sysExec(m *lifecycle.Machine, p *proc.Proc) int {
	path, err := Argstr(p, 0)
	if err != nil {
		return -1
	}
	argvAddr, err := Argptr(p, 1, 8)
	if err != nil {
		return -1
	}
	for i := 0; i < MaxExecArgs; i++ {
		wordAddr := argvAddr + uint64(i)*8
		word, err := Fetchint(p, wordAddr)
		if err != nil {
			return -1
		}
		if word == 0 {
			break
		}
		if _, err := Fetchstr(p, uint64(word)); err != nil {
			return -1
		}
	}
	_ = path
	return 0
}

// sysYield calls lifecycle.Yield and always returns 0.
func sysYield(m *lifecycle.Machine, p *proc.Proc) int {
	lifecycle.Yield(p)
	return 0
}

// sysBrk grows or shrinks the current process's user memory by n bytes,
// returning the size before the change (or -1 on failure).
func sysBrk(m *lifecycle.Machine, p *proc.Proc) int {
	n := Argint(0, p.Tf)
	prev, err := lifecycle.Growproc(p, int64(n))
	if err != nil {
		return -1
	}
	return int(prev)
}

// sysClone supports only flags == 17 (SIGCHLD), ignores the child-stack
// argument, and delegates to fork — it only emulates SIGCHLD-style fork,
// not general clone(2).
const cloneFlagsSIGCHLD = 17

func sysClone(m *lifecycle.Machine, p *proc.Proc) int {
	flags := Argint(0, p.Tf)
	if flags != cloneFlagsSIGCHLD {
		return -1
	}
	return lifecycle.Fork(m, p)
}

// sysWait4 supports only the all-zero/all-(-1) "wait for any child" form —
// (pid=-1, wstatus=0, options=0, rusage=0) — and delegates to wait.
func sysWait4(m *lifecycle.Machine, p *proc.Proc) int {
	pid := Argint(0, p.Tf)
	wstatus := Argint(1, p.Tf)
	options := Argint(2, p.Tf)
	rusage := Argint(3, p.Tf)
	if pid != -1 || wstatus != 0 || options != 0 || rusage != 0 {
		return -1
	}
	return lifecycle.Wait(m, p)
}

// sysExit ignores its argument and always exits with status 0; this is
// documented behavior, not a bug to silently fix. lifecycle.Exit itself
// honors whatever status callers outside the syscall layer pass it.
func sysExit(m *lifecycle.Machine, p *proc.Proc) int {
	lifecycle.Exit(m, p, 0)
	panic("syscall: sys_exit returned; lifecycle.Exit must never return")
}
