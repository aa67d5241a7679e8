package psutil

import (
	"fmt"
	"os"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/asticode/go-astipipeline/pkg/astipipeline"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
)

// New returns a stat reporting the host's CPU and memory usage as an
// astipipeline.StatHostUsageValue
func New() (astikit.StatOptions, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return astikit.StatOptions{}, fmt.Errorf("psutil: creating process failed: %w", err)
	}
	return astikit.StatOptions{
		Metadata: &astikit.StatMetadata{
			Description: "Host CPU and memory usage",
			Label:       "Host usage",
			Name:        astipipeline.StatNameHostUsage,
		},
		Valuer: &valuer{proc: p},
	}, nil
}

var _ astikit.StatValuer = (*valuer)(nil)

type valuer struct {
	prev *cpu.TimesStat
	proc *process.Process
}

func (vr *valuer) Value(delta time.Duration) interface{} {
	var v astipipeline.StatHostUsageValue

	// Memory
	if i, err := vr.proc.MemoryInfo(); err == nil {
		v.Memory.Resident = i.RSS
		v.Memory.Virtual = i.VMS
	}
	if s, err := mem.VirtualMemory(); err == nil {
		v.Memory.Total = s.Total
		v.Memory.Used = s.Used
	}

	// Host CPU
	if ps, err := cpu.Percent(0, true); err == nil {
		v.CPU.Individual = ps
	}
	if ps, err := cpu.Percent(0, false); err == nil && len(ps) > 0 {
		v.CPU.Total = ps[0]
	}

	// Process CPU, from the busy time spent since the previous sample
	if t, err := vr.proc.Times(); err == nil {
		if vr.prev != nil && delta > 0 {
			busy := (t.Total() - t.Idle) - (vr.prev.Total() - vr.prev.Idle)
			v.CPU.Process = astikit.Float64Ptr(busy / delta.Seconds() * 100)
		}
		vr.prev = t
	}
	return v
}
