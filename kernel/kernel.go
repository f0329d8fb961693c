// Package kernel wires the process table, scheduler, lifecycle and syscall
// layers into a bootable Machine.
package kernel

import (
	"github.com/xv6go/xv6go/hostprofile"
	"github.com/xv6go/xv6go/kernel/extiface"
	"github.com/xv6go/xv6go/kernel/lifecycle"
	"github.com/xv6go/xv6go/kernel/proc"
	"github.com/xv6go/xv6go/kernel/sched"
	"github.com/xv6go/xv6go/kernel/syscall"
)

// Machine is the bootable simulator: a process table, one scheduler loop
// per simulated CPU, and the syscall dispatch table every process's body
// drives trap handling through.
type Machine struct {
	*lifecycle.Machine
	Syscalls *syscall.Table
	CPUs     []*sched.CPU

	stop chan struct{}
}

// New builds a Machine sized to the host's reported CPU count (via
// hostprofile), but does not yet start its scheduler loops or boot init —
// call Boot for that. procBody is the function every process's goroutine
// runs from forkret onward (see lifecycle.NewMachine).
func New(profile *hostprofile.Profile, procBody func(*proc.Proc)) *Machine {
	n := hostprofile.SchedulerLoopCount(profile)
	hostprofile.LogDecision(profile, n)

	cpus := make([]*sched.CPU, n)
	for i := range cpus {
		cpus[i] = &sched.CPU{ID: i}
	}

	return &Machine{
		Machine:  lifecycle.NewMachine(procBody),
		Syscalls: syscall.NewTable(),
		CPUs:     cpus,
		stop:     make(chan struct{}),
	}
}

// Boot starts one scheduler goroutine per simulated CPU and runs user_init
// with the given bootstrap image, rooted at rootFS.
func (m *Machine) Boot(bootstrapImage []byte, rootFS extiface.Inode) *proc.Proc {
	for _, cpu := range m.CPUs {
		go sched.Scheduler(cpu, m.Table, m.stop)
	}
	return m.UserInit(bootstrapImage, rootFS)
}

// Shutdown signals every scheduler loop to stop after its current sweep.
// It does not forcibly kill any running process.
func (m *Machine) Shutdown() {
	close(m.stop)
}

// Trap dispatches a single syscall for p through the Machine's syscall
// table, the simulated equivalent of a trap entry arriving via an
// exception from user mode.
func (m *Machine) Trap(p *proc.Proc) {
	m.Syscalls.Dispatch(m.Machine, p)
}
