// Package extiface describes the collaborators the kernel core depends on
// but does not implement: virtual memory, the page allocator, the
// filesystem and the file table. These stay out of the core on purpose;
// this package is the narrow seam the core talks to them through, plus
// small in-memory fakes good enough to drive the core end to end in tests
// and in the CLI demo.
package extiface

import "fmt"

// PageDir stands in for a process's page tables (xv6's pgdir). Switch is
// called by the scheduler immediately before a slot is made RUNNING.
type PageDir interface {
	Init(image []byte) error
	Copy(sz uint64) (PageDir, error)
	Alloc(oldSz, newSz uint64) (uint64, error)
	Dealloc(oldSz, newSz uint64) (uint64, error)
	Switch()
	Free()
}

// Page is the kernel page allocator's unit of currency.
type Page interface{}

// PageAllocator mirrors kalloc/kfree.
type PageAllocator interface {
	Alloc() (Page, error)
	Free(Page)
}

// Inode stands in for a filesystem inode handle. Dup/Put model the
// reference-counted idup/iput pair.
type Inode interface {
	Dup() Inode
	Put()
	Path() string
}

// File stands in for an open-file-table entry (the file descriptor table's
// contents). Dup/Close model file_dup/file_close.
type File interface {
	Dup() File
	Close() error
}

// NOFILE bounds the size of a process's open-file table.
const NOFILE = 16

// fakePageDir is a minimal, non-paging stand-in for a real page table: it
// just tracks a size and an image. It exists so the lifecycle package can
// be exercised without a real virtual-memory subsystem.
type fakePageDir struct {
	sz    uint64
	image []byte
}

// NewFakePageDir returns an unmapped address space, matching pgdir_init's
// "pgdir_init() -> pgdir | null" contract (nil is never returned here; a
// fake allocator has no real failure mode).
func NewFakePageDir() PageDir {
	return &fakePageDir{}
}

func (p *fakePageDir) Init(image []byte) error {
	p.image = append([]byte(nil), image...)
	p.sz = uint64(len(image))
	return nil
}

func (p *fakePageDir) Copy(sz uint64) (PageDir, error) {
	if sz > uint64(len(p.image)) {
		return nil, fmt.Errorf("extiface: copy size %d exceeds mapped image of %d bytes", sz, len(p.image))
	}
	child := &fakePageDir{
		sz:    sz,
		image: append([]byte(nil), p.image[:sz]...),
	}
	return child, nil
}

func (p *fakePageDir) Alloc(oldSz, newSz uint64) (uint64, error) {
	if newSz < oldSz {
		return 0, fmt.Errorf("extiface: alloc called with newSz < oldSz")
	}
	const maxUserMem = 64 << 20 // 64MiB ceiling for the simulated address space
	if newSz > maxUserMem {
		return 0, fmt.Errorf("extiface: out of memory growing to %d bytes (limit %d)", newSz, maxUserMem)
	}
	grown := make([]byte, newSz)
	copy(grown, p.image)
	p.image = grown
	p.sz = newSz
	return newSz, nil
}

func (p *fakePageDir) Dealloc(oldSz, newSz uint64) (uint64, error) {
	if newSz > oldSz {
		return 0, fmt.Errorf("extiface: dealloc called with newSz > oldSz")
	}
	p.image = p.image[:newSz]
	p.sz = newSz
	return newSz, nil
}

func (p *fakePageDir) Switch() {
	// A real implementation would reprogram TTBR0_EL1; simulated processes
	// share the host address space, so there's nothing to do here.
}

func (p *fakePageDir) Free() {
	p.image = nil
	p.sz = 0
}

// UserMem returns the bytes currently mapped at [0, Sz) for this page
// directory. It is the simulator's stand-in for a user address space
// unified into the kernel's own addressable memory, and is what
// Fetchint/Fetchstr read from.
func (p *fakePageDir) UserMem() []byte {
	return p.image
}

// AsUserMem exposes a PageDir's backing bytes when it is a *fakePageDir.
// The syscall layer uses this rather than widening the PageDir interface,
// since no real page-table implementation exists in this repository.
func AsUserMem(pd PageDir) ([]byte, bool) {
	f, ok := pd.(*fakePageDir)
	if !ok {
		return nil, false
	}
	return f.UserMem(), true
}

// fakeInode is a trivial reference-counted inode.
type fakeInode struct {
	path string
	refs *int
}

func NewFakeInode(path string) Inode {
	refs := 1
	return &fakeInode{path: path, refs: &refs}
}

func (i *fakeInode) Dup() Inode {
	*i.refs++
	return i
}

func (i *fakeInode) Put() {
	*i.refs--
}

func (i *fakeInode) Path() string { return i.path }

// fakeFile is a trivial reference-counted open file.
type fakeFile struct {
	name string
	refs *int
}

func NewFakeFile(name string) File {
	refs := 1
	return &fakeFile{name: name, refs: &refs}
}

func (f *fakeFile) Dup() File {
	*f.refs++
	return f
}

// Close decrements the reference count. Closing an already-zero-ref file is
// a fatal misuse of the file table, not a recoverable error, so it panics
// rather than returning an error a caller could paper over.
func (f *fakeFile) Close() error {
	if *f.refs <= 0 {
		panic(fmt.Sprintf("extiface: file_close on a zero-ref file %q", f.name))
	}
	*f.refs--
	return nil
}
