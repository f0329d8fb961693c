package syscall

import (
	"testing"

	"github.com/xv6go/xv6go/kernel/extiface"
	"github.com/xv6go/xv6go/kernel/lifecycle"
	"github.com/xv6go/xv6go/kernel/proc"
)

func newTestProc(t *testing.T, image []byte) *proc.Proc {
	t.Helper()
	m := lifecycle.NewMachine(func(*proc.Proc) {})
	p, err := m.Table.Alloc(m.ProcBody)
	if err != nil {
		t.Fatalf("fail: unexpected alloc error: %s", err)
	}
	p.PageDir = extiface.NewFakePageDir()
	if err := p.PageDir.Init(image); err != nil {
		t.Fatalf("fail: unexpected Init error: %s", err)
	}
	p.Tf = &proc.TrapFrame{}
	p.Lock.Unlock()
	return p
}

func TestArgintPanicsOutOfRange(t *testing.T) {
	tf := &proc.TrapFrame{}
	for _, n := range []int{-1, 4} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatalf("fail: expected Argint(%d, ...) to panic", n)
				}
			}()
			Argint(n, tf)
		}()
	}
}

func TestArgintReadsSignedValue(t *testing.T) {
	neg := int64(-5)
	tf := &proc.TrapFrame{Args: [4]uint64{uint64(neg), 0, 0, 0}}
	if got := Argint(0, tf); got != -5 {
		t.Fatalf("fail: expected Argint(0) == -5, got %d", got)
	}
}

func TestFetchintOutOfBounds(t *testing.T) {
	p := newTestProc(t, []byte{1, 2, 3, 4})
	if _, err := Fetchint(p, 0); err == nil {
		t.Fatalf("fail: expected an error reading 8 bytes from a 4-byte image")
	}
}

func TestFetchintReadsLittleEndian(t *testing.T) {
	p := newTestProc(t, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	v, err := Fetchint(p, 0)
	if err != nil {
		t.Fatalf("fail: unexpected Fetchint error: %s", err)
	}
	if v != 1 {
		t.Fatalf("fail: expected Fetchint to read 1, got %d", v)
	}
}

func TestFetchstrFailsWithNoNUL(t *testing.T) {
	p := newTestProc(t, []byte("no-nul-here"))
	if _, err := Fetchstr(p, 0); err == nil {
		t.Fatalf("fail: expected an error when no NUL byte appears before Sz()")
	}
}

func TestFetchstrFailsOutOfBounds(t *testing.T) {
	p := newTestProc(t, []byte("abc\x00"))
	if _, err := Fetchstr(p, 100); err == nil {
		t.Fatalf("fail: expected an error fetching a string starting past Sz()")
	}
}

func TestFetchstrReadsUpToNUL(t *testing.T) {
	p := newTestProc(t, []byte("hi\x00junk"))
	s, err := Fetchstr(p, 0)
	if err != nil {
		t.Fatalf("fail: unexpected Fetchstr error: %s", err)
	}
	if s != "hi" {
		t.Fatalf("fail: expected \"hi\", got %q", s)
	}
}

func TestArgptrRejectsRangeOutsideSz(t *testing.T) {
	p := newTestProc(t, []byte{1, 2, 3, 4})
	p.Tf.Args[0] = 2
	if _, err := Argptr(p, 0, 8); err == nil {
		t.Fatalf("fail: expected an error when [ptr,ptr+size) exceeds Sz()")
	}
}

func TestDispatchUnknownSyscallReturnsMinusOne(t *testing.T) {
	m := lifecycle.NewMachine(func(*proc.Proc) {})
	p := newTestProc(t, []byte{})
	p.Tf.X8 = 1 // recognized by no handler in NewTable
	tbl := NewTable()
	tbl.Dispatch(m, p)
	if int64(p.Tf.X0) != -1 {
		t.Fatalf("fail: expected X0 == -1 for an unregistered syscall, got %d", int64(p.Tf.X0))
	}
}

func TestDispatchOutOfRangeSyscallReturnsMinusOne(t *testing.T) {
	m := lifecycle.NewMachine(func(*proc.Proc) {})
	p := newTestProc(t, []byte{})
	p.Tf.X8 = NumSyscalls + 10
	tbl := NewTable()
	tbl.Dispatch(m, p)
	if int64(p.Tf.X0) != -1 {
		t.Fatalf("fail: expected X0 == -1 for an out-of-range syscall number, got %d", int64(p.Tf.X0))
	}
}

func TestSysCloneRejectsUnsupportedFlags(t *testing.T) {
	m := lifecycle.NewMachine(func(*proc.Proc) {})
	p := newTestProc(t, []byte{})
	p.Tf.Args[0] = 0 // anything other than cloneFlagsSIGCHLD
	if got := sysClone(m, p); got != -1 {
		t.Fatalf("fail: expected sysClone to reject unsupported flags, got %d", got)
	}
}

func TestSysWait4RejectsNonCanonicalForm(t *testing.T) {
	m := lifecycle.NewMachine(func(*proc.Proc) {})
	p := newTestProc(t, []byte{})
	p.Tf.Args = [4]uint64{uint64(int64(5)), 0, 0, 0} // pid != -1
	if got := sysWait4(m, p); got != -1 {
		t.Fatalf("fail: expected sysWait4 to reject a pid other than -1, got %d", got)
	}
}
