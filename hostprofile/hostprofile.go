// Package hostprofile gathers details about the host the simulator is
// running on, used to size the simulated per-CPU scheduler pool to the
// host it runs on.
package hostprofile

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	DefaultProcRoot = "/proc"
	CPUInfoFilePath = "cpuinfo"
	UnknownArch     = "UNKNOWN"

	// MaxSchedulerLoops caps how many per-CPU scheduler goroutines
	// kernel.New will start regardless of what the host reports, so a
	// big build box doesn't spin up hundreds of idle scanning goroutines.
	MaxSchedulerLoops = 16
)

// Profile is what we know about the host: its architecture and how many
// CPUs it reports, each of which becomes one simulated scheduler loop.
type Profile struct {
	Architecture string
	CPUCount     int
}

// Reader resolves a Profile for the current host.
type Reader interface {
	GetProfile() (*Profile, error)
}

// LinuxReader reads CPU count from /proc/cpuinfo and architecture via
// uname(2).
type LinuxReader struct {
	procDir string
}

type LinuxReaderConfig struct {
	ProcDirPath string
}

func NewLinuxReader(conf LinuxReaderConfig) LinuxReader {
	if conf.ProcDirPath == "" {
		conf.ProcDirPath = DefaultProcRoot
	}
	return LinuxReader{procDir: conf.ProcDirPath}
}

// GetProfile reads /proc/cpuinfo for the CPU count and uname(2) for the
// architecture string.
func (r *LinuxReader) GetProfile() (*Profile, error) {
	return &Profile{
		Architecture: getArch(),
		CPUCount:     r.getCPUCount(),
	}, nil
}

func (r *LinuxReader) getCPUCount() int {
	cpuInfoPath := filepath.Join(r.procDir, CPUInfoFilePath)
	f, err := os.Open(cpuInfoPath)
	if err != nil {
		log.Printf("hostprofile: failed reading %s. Error was: %s", cpuInfoPath, err)
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(bufio.NewReader(f))
	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), ":", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.TrimSpace(kv[0]) == "processor" {
			count++
		}
	}
	return count
}

// getArch calls the equivalent of uname -m to get the architecture (e.g.
// aarch64).
func getArch() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return UnknownArch
	}
	return strings.TrimRight(string(utsname.Machine[:]), "\x00")
}

// SchedulerLoopCount decides how many per-CPU scheduler goroutines to start
// for this profile: the reported CPU count, floored at 1 and capped at
// MaxSchedulerLoops.
func SchedulerLoopCount(p *Profile) int {
	n := p.CPUCount
	if n < 1 {
		n = 1
	}
	if n > MaxSchedulerLoops {
		n = MaxSchedulerLoops
	}
	return n
}

// LogDecision reports the sizing decision the way host.go logs kernel/arch
// detection during boot.
func LogDecision(p *Profile, loops int) {
	log.Printf("hostprofile: arch=%s cpus=%d starting %d scheduler loop(s)", p.Architecture, p.CPUCount, loops)
}
