package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/xv6go/xv6go/dashboard"
	"github.com/xv6go/xv6go/hostprofile"
	"github.com/xv6go/xv6go/kernel"
	"github.com/xv6go/xv6go/kernel/extiface"
	"github.com/xv6go/xv6go/kernel/lifecycle"
	"github.com/xv6go/xv6go/kernel/proc"
	"github.com/xv6go/xv6go/kernel/snapshot"
)

// demoImage stands in for a bootstrap image when --image isn't given; its
// contents are never executed, only mapped, so any non-empty byte string
// works as a stand-in for "the kernel embeds an image at build time".
var demoImage = []byte("xv6go-demo-init\x00")

// runBoot boots a Machine sized to --cpus (or the host, via hostprofile),
// runs a short fork/exit/wait demo workload to completion, writes a
// snapshot, and prints the resulting slots.
func runBoot(cmd *cobra.Command, args []string) {
	fs := cmd.Flags()
	cpus, _ := fs.GetInt(cpusFlag)
	imagePath, _ := fs.GetString(imageFlag)
	opts := newOpts(fs)

	profile := resolveProfile(cpus)

	image := demoImage
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			outputErrorAndFail(fmt.Sprintf("failed reading bootstrap image %s: %s", imagePath, err))
		}
		image = data
	}

	done := make(chan struct{})
	var m *kernel.Machine
	body := func(p *proc.Proc) {
		if p.Pid == 1 {
			lifecycle.Fork(m.Machine, p)
			lifecycle.Fork(m.Machine, p)
			reaped := 0
			for reaped < 2 {
				if lifecycle.Wait(m.Machine, p) > 0 {
					reaped++
				}
			}
			close(done)
			for {
				lifecycle.Yield(p)
			}
		}
		lifecycle.Exit(m.Machine, p, 0)
	}
	m = kernel.New(profile, body)
	m.Boot(image, extiface.NewFakeInode("/"))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		outputErrorAndFail("demo workload did not finish within 5s")
	}

	records := snapshot.Of(m.Table)
	if err := snapshot.Save(opts.cacheDir, records); err != nil {
		outputErrorAndFail(fmt.Sprintf("failed saving snapshot: %s", err))
	}
	m.Shutdown()

	log.Printf("cmd: booted %d simulated CPU(s), ran the demo workload, wrote %d slot(s) to snapshot", len(m.CPUs), len(records))
	output(renderRecords(records, opts.outType))
}

// runPs prints every slot in the most recently saved snapshot.
func runPs(cmd *cobra.Command, args []string) {
	opts := newOpts(cmd.Flags())
	records := loadSnapshotOrFail(opts.cacheDir)
	output(renderRecords(records, opts.outType))
}

// runTree prints the ancestor chain for a given pid from the most recently
// saved snapshot.
func runTree(cmd *cobra.Command, args []string) {
	pid, err := parsePid(args)
	if err != nil {
		outputErrorAndFail(err.Error())
	}
	opts := newOpts(cmd.Flags())
	records := loadSnapshotOrFail(opts.cacheDir)

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
	if len(chain) == 0 {
		outputErrorAndFail(fmt.Sprintf("no slot with pid %d in the saved snapshot", pid))
	}
	output(renderRecords(chain, opts.outType))
}

// runInspect dumps the full Record for a pid via go-spew, for when the
// table/json views aren't detailed enough.
func runInspect(cmd *cobra.Command, args []string) {
	pid, err := parsePid(args)
	if err != nil {
		outputErrorAndFail(err.Error())
	}
	opts := newOpts(cmd.Flags())
	records := loadSnapshotOrFail(opts.cacheDir)

	for _, r := range records {
		if r.Pid == pid {
			output([]byte(spew.Sdump(r)))
			return
		}
	}
	outputErrorAndFail(fmt.Sprintf("no slot with pid %d in the saved snapshot", pid))
}

// runSnapshotClear deletes the saved snapshot.
func runSnapshotClear(cmd *cobra.Command, args []string) {
	opts := newOpts(cmd.Flags())
	if err := snapshot.Clear(opts.cacheDir); err != nil {
		outputErrorAndFail(fmt.Sprintf("failed clearing snapshot: %s", err))
	}
}

// runDashboard boots a Machine running an indefinite demo workload and
// serves a live view of its table until interrupted.
func runDashboard(cmd *cobra.Command, args []string) {
	addr := ":8080"
	if len(args) > 0 {
		addr = args[0]
	}
	cpus, _ := cmd.Flags().GetInt(cpusFlag)
	profile := resolveProfile(cpus)

	var m *kernel.Machine
	body := func(p *proc.Proc) {
		if p.Pid == 1 {
			for {
				lifecycle.Fork(m.Machine, p)
				lifecycle.Wait(m.Machine, p)
				time.Sleep(500 * time.Millisecond)
			}
		}
		time.Sleep(200 * time.Millisecond)
		lifecycle.Exit(m.Machine, p, 0)
	}
	m = kernel.New(profile, body)
	m.Boot(demoImage, extiface.NewFakeInode("/"))
	defer m.Shutdown()

	log.Printf("cmd: serving dashboard on %s", addr)
	d := dashboard.New(m.Table)
	if err := d.Serve(addr); err != nil {
		outputErrorAndFail(fmt.Sprintf("dashboard server failed: %s", err))
	}
}

func resolveProfile(cpusOverride int) *hostprofile.Profile {
	if cpusOverride > 0 {
		return &hostprofile.Profile{Architecture: hostprofile.UnknownArch, CPUCount: cpusOverride}
	}
	r := hostprofile.NewLinuxReader(hostprofile.LinuxReaderConfig{})
	p, err := r.GetProfile()
	if err != nil {
		log.Printf("cmd: failed probing host profile, defaulting to 1 CPU: %s", err)
		return &hostprofile.Profile{Architecture: hostprofile.UnknownArch, CPUCount: 1}
	}
	return p
}

func loadSnapshotOrFail(dir string) []snapshot.Record {
	records, err := snapshot.Load(dir)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed loading snapshot: %s", err))
	}
	if records == nil {
		outputErrorAndFail("no snapshot found; run `xv6goctl boot` first")
	}
	return records
}

func parsePid(args []string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("please provide a pid (int)")
	}
	return strconv.Atoi(args[0])
}

func renderRecords(records []snapshot.Record, ot outputType) []byte {
	if ot == jsonOut {
		out, _ := json.Marshal(records)
		return out
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"PID", "name", "state", "parent", "sz"})
	for _, r := range records {
		table.Append([]string{
			strconv.Itoa(r.Pid),
			r.Name,
			r.State,
			strconv.Itoa(r.ParentPid),
			strconv.FormatUint(r.Sz, 10),
		})
	}
	table.Render()
	return buf.Bytes()
}

func output(out []byte) {
	fmt.Printf("%s", out)
}

func outputErrorAndFail(msg string) {
	fmt.Println(msg)
	os.Exit(1)
}
