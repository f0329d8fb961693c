// Package dashboard is a read-only net/http view of a live process table,
// independent of the CLI — useful when driving the multi-CPU scheduler
// loop live and wanting to watch state transitions.
package dashboard

import (
	"fmt"
	"html/template"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/xv6go/xv6go/kernel/proc"
	"github.com/xv6go/xv6go/kernel/snapshot"
)

const (
	slotPath = "/slot/"
	treePath = "/tree/"
)

// Dashboard serves a live, read-only view of a Table.
type Dashboard struct {
	table *proc.Table
	mu    sync.Mutex
}

// DetailKV is one field/value pair rendered on a slot's detail page.
type DetailKV struct {
	Field string
	Value string
}

// New returns a Dashboard over t. Call Serve to start it.
func New(t *proc.Table) *Dashboard {
	return &Dashboard{table: t}
}

// Serve registers the dashboard's handlers on addr (e.g. ":8080") and
// blocks, the same way ui.RunUI does.
func (d *Dashboard) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", d.handleAllSlots)
	mux.HandleFunc(slotPath, d.handleSlotDetails)
	mux.HandleFunc(treePath, d.handleSlotTree)
	return http.ListenAndServe(addr, mux)
}

func (d *Dashboard) handleAllSlots(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	records := snapshot.Of(d.table)
	d.mu.Unlock()

	t, err := createTemplate(allSlotsView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, records); err != nil {
		writeFailure(w, err)
	}
}

func (d *Dashboard) handleSlotDetails(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, slotPath))
	if err != nil {
		writeFailure(w, err)
		return
	}

	d.mu.Lock()
	records := snapshot.Of(d.table)
	d.mu.Unlock()

	rec, ok := findByPid(records, pid)
	if !ok {
		writeFailure(w, fmt.Errorf("no slot with pid %d", pid))
		return
	}

	t, err := createTemplate(viewSlotDetails)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, rec); err != nil {
		writeFailure(w, err)
	}
}

func (d *Dashboard) handleSlotTree(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, treePath))
	if err != nil {
		writeFailure(w, err)
		return
	}

	d.mu.Lock()
	records := snapshot.Of(d.table)
	d.mu.Unlock()

	if _, ok := findByPid(records, pid); !ok {
		writeFailure(w, fmt.Errorf("no slot with pid %d", pid))
		return
	}
	hierarchy := slotLineage(records, pid)

	t, err := createTemplate(viewTreeDetails)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, hierarchy); err != nil {
		writeFailure(w, err)
	}
}

// slotDetails returns a field/value pair for every exported field of rec,
// the same reflection-driven dump ui.getProcessDetails does for an
// arbitrary struct without a bespoke template per type.
func slotDetails(rec snapshot.Record) []DetailKV {
	result := []DetailKV{}
	t := reflect.TypeOf(rec)
	v := reflect.ValueOf(rec)
	for i := 0; i < t.NumField(); i++ {
		result = append(result, DetailKV{t.Field(i).Name, fmt.Sprintf("%v", v.Field(i).Interface())})
	}
	return result
}

// slotLineage returns the chain of records from pid up through its parents,
// most-child first.
func slotLineage(records []snapshot.Record, pid int) []snapshot.Record {
	byPid := map[int]snapshot.Record{}
	for _, r := range records {
		byPid[r.Pid] = r
	}

	var chain []snapshot.Record
	cur, ok := byPid[pid]
	for ok {
		chain = append(chain, cur)
		cur, ok = byPid[cur.ParentPid]
	}
	return chain
}

func findByPid(records []snapshot.Record, pid int) (snapshot.Record, bool) {
	for _, r := range records {
		if r.Pid == pid {
			return r, true
		}
	}
	return snapshot.Record{}, false
}

func createTemplate(body string) (*template.Template, error) {
	return template.New("response").
		Funcs(template.FuncMap{"slotDeets": slotDetails}).
		Parse(dashboardHeader + body + dashboardFooter)
}

func writeFailure(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	t, _ := createTemplate(errorView)
	t.Execute(w, err.Error())
}
