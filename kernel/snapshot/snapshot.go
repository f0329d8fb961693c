// Package snapshot persists a point-in-time dump of a process table for
// offline inspection. It is diagnostic tooling, not part of the core's
// runtime behavior — a gob-encoded cache of simulated slots.
package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/xv6go/xv6go/kernel/proc"
)

// CacheFileName is the gob file snapshot writes within its cache directory.
const CacheFileName = "xv6go-snapshot.gob"

// Record is a gob-encodable copy of one process slot. It deliberately
// doesn't carry Lock, Ctx, PageDir, Files or Cwd — those aren't meaningful
// outside the live Machine that owns them.
type Record struct {
	Pid       int
	State     string
	ParentPid int
	Killed    bool
	Xstate    int
	Name      string
	Sz        uint64
}

// Of walks t and returns a Record for every non-UNUSED slot, in table
// order. Each slot is locked individually while its fields are copied.
func Of(t *proc.Table) []Record {
	var records []Record
	t.Each(func(p *proc.Proc) {
		p.Lock.Lock()
		defer p.Lock.Unlock()
		if p.State == proc.Unused {
			return
		}
		parentPid := 0
		if p.Parent != nil {
			parentPid = p.Parent.Pid
		}
		records = append(records, Record{
			Pid:       p.Pid,
			State:     p.State.String(),
			ParentPid: parentPid,
			Killed:    p.Killed,
			Xstate:    p.Xstate,
			Name:      p.Name,
			Sz:        p.Sz(),
		})
	})
	return records
}

// DefaultCacheDir resolves the directory snapshots are written to when the
// caller doesn't specify one, via adrg/xdg's standard cache-directory
// resolution.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "xv6go")
}

// Save gob-encodes records into CacheFileName under dir, creating dir if
// necessary.
func Save(dir string, records []Record) error {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("snapshot: failed creating cache dir %s: %s", dir, err)
		}
	}

	f, err := os.Create(filepath.Join(dir, CacheFileName))
	if err != nil {
		return fmt.Errorf("snapshot: failed creating snapshot file: %s", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(records); err != nil {
		return fmt.Errorf("snapshot: failed encoding snapshot: %s", err)
	}
	return nil
}

// Load decodes the records previously written by Save from dir. It returns
// nil, without error, if no snapshot file exists yet.
func Load(dir string) ([]Record, error) {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	f, err := os.Open(filepath.Join(dir, CacheFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: failed opening snapshot file: %s", err)
	}
	defer f.Close()

	var records []Record
	if err := gob.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("snapshot: failed decoding snapshot: %s", err)
	}
	return records, nil
}

// Clear removes a previously saved snapshot, if one exists.
func Clear(dir string) error {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	err := os.Remove(filepath.Join(dir, CacheFileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("snapshot: failed clearing snapshot: %s", err)
	}
	return nil
}
