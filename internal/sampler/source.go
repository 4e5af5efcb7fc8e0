package sampler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// CoreReading is one logical core.
type CoreReading struct {
	Brand        string
	FrequencyMHz uint64
	UsagePercent float64
}

// MemoryReading holds raw byte counts.
type MemoryReading struct {
	Total     uint64
	Used      uint64
	SwapTotal uint64
	SwapUsed  uint64
}

// DiskReading is one mounted disk. Read/write bytes are cumulative since boot.
type DiskReading struct {
	Name       string
	Total      uint64
	Available  uint64
	ReadBytes  uint64
	WriteBytes uint64
}

// HostReading carries the slowly-changing OS facts.
type HostReading struct {
	KernelVersion string
	UptimeSeconds uint64
}

// Source reads raw host counters. Per-core usage is measured against the
// previous Cores call, so the first call after construction reports zero.
type Source interface {
	Cores(ctx context.Context) ([]CoreReading, error)
	Memory(ctx context.Context) (MemoryReading, error)
	Disks(ctx context.Context) ([]DiskReading, error)
	Host(ctx context.Context) (HostReading, error)
}

// HostSource reads the local machine through gopsutil.
type HostSource struct {
	mu       sync.Mutex
	prevCore []cpu.TimesStat
	// sysfsRoot is where per-core cpufreq files live. Empty disables the
	// live frequency read.
	sysfsRoot string
}

// NewHostSource returns a Source for the local machine.
func NewHostSource() *HostSource {
	h := &HostSource{}
	if runtime.GOOS == "linux" {
		h.sysfsRoot = "/sys"
	}
	return h
}

// Cores returns usage since the previous call plus the current frequency and brand.
func (h *HostSource) Cores(ctx context.Context) ([]CoreReading, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("cpu times: %w", err)
	}
	// Info is one entry per logical CPU on Linux but one per package elsewhere.
	infos, _ := cpu.InfoWithContext(ctx)

	cores := make([]CoreReading, len(times))
	for i, c := range times {
		if i < len(h.prevCore) {
			cores[i].UsagePercent = busyPercent(h.prevCore[i], c)
		}
		var info cpu.InfoStat
		switch {
		case i < len(infos) && len(infos) == len(times):
			info = infos[i]
		case len(infos) > 0:
			info = infos[0]
		}
		cores[i].Brand = strings.TrimSpace(info.ModelName)
		cores[i].FrequencyMHz = h.frequencyMHz(i, info)
	}
	h.prevCore = times
	return cores, nil
}

// frequencyMHz prefers the live cpufreq reading. gopsutil's Mhz is the
// maximum clock on Linux and Windows, so it is only the fallback.
func (h *HostSource) frequencyMHz(core int, info cpu.InfoStat) uint64 {
	if h.sysfsRoot != "" {
		if mhz, ok := curFreqMHz(h.sysfsRoot, core); ok {
			return mhz
		}
	}
	if info.Mhz > 0 {
		return uint64(info.Mhz)
	}
	return 0
}

// curFreqMHz reads cpufreq/scaling_cur_freq, which is in kHz.
func curFreqMHz(root string, core int) (uint64, bool) {
	path := filepath.Join(root, "devices", "system", "cpu", fmt.Sprintf("cpu%d", core), "cpufreq", "scaling_cur_freq")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	khz, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || khz == 0 {
		return 0, false
	}
	return khz / 1000, true
}

func busyPercent(prev, cur cpu.TimesStat) float64 {
	dt := cur.Total() - prev.Total()
	di := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	if dt <= 0 {
		return 0
	}
	return clampPercent(100 * (1 - di/dt))
}

// Memory returns RAM and swap totals.
func (h *HostSource) Memory(ctx context.Context) (MemoryReading, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryReading{}, fmt.Errorf("virtual memory: %w", err)
	}
	// A host without swap may report an error here; that is zero swap.
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		sw = nil
	}
	return memoryReading(vm, sw), nil
}

// memoryReading counts used RAM as everything not available, so reclaimable
// cache counts as used.
func memoryReading(vm *mem.VirtualMemoryStat, sw *mem.SwapMemoryStat) MemoryReading {
	r := MemoryReading{Total: vm.Total}
	if vm.Available < vm.Total {
		r.Used = vm.Total - vm.Available
	}
	if sw != nil {
		r.SwapTotal, r.SwapUsed = sw.Total, sw.Used
	}
	return r
}

// Disks enumerates physical partitions, one entry per device.
func (h *HostSource) Disks(ctx context.Context) ([]DiskReading, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}
	counters, _ := disk.IOCountersWithContext(ctx)

	seen := make(map[string]bool, len(parts))
	var out []DiskReading
	for _, p := range parts {
		if seen[p.Device] || strings.HasPrefix(filepath.Base(p.Device), "loop") {
			continue
		}
		seen[p.Device] = true

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		d := DiskReading{
			Name:      p.Device,
			Total:     usage.Total,
			Available: usage.Free,
		}
		if io, ok := counters[filepath.Base(p.Device)]; ok {
			d.ReadBytes, d.WriteBytes = io.ReadBytes, io.WriteBytes
		}
		out = append(out, d)
	}
	return out, nil
}

// Host returns the kernel version and uptime.
func (h *HostSource) Host(ctx context.Context) (HostReading, error) {
	kernel, err := host.KernelVersionWithContext(ctx)
	if err != nil {
		return HostReading{}, fmt.Errorf("kernel version: %w", err)
	}
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return HostReading{KernelVersion: kernel}, fmt.Errorf("uptime: %w", err)
	}
	return HostReading{KernelVersion: kernel, UptimeSeconds: uptime}, nil
}
