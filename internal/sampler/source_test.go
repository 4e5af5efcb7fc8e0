package sampler

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

func writeCurFreq(t *testing.T, root string, core int, content string) {
	t.Helper()
	dir := filepath.Join(root, "devices", "system", "cpu", fmt.Sprintf("cpu%d", core), "cpufreq")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scaling_cur_freq"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFrequencyPrefersLiveCpufreq(t *testing.T) {
	root := t.TempDir()
	writeCurFreq(t, root, 0, "1800000\n")
	writeCurFreq(t, root, 1, "3412000\n")
	writeCurFreq(t, root, 2, "garbage\n")

	h := &HostSource{sysfsRoot: root}
	maxClock := cpu.InfoStat{Mhz: 4200}

	tests := []struct {
		core int
		want uint64
	}{
		{core: 0, want: 1800},
		{core: 1, want: 3412},
		{core: 2, want: 4200}, // unparsable file
		{core: 3, want: 4200}, // no cpufreq directory
	}
	for _, tt := range tests {
		if got := h.frequencyMHz(tt.core, maxClock); got != tt.want {
			t.Errorf("frequencyMHz(cpu%d) = %d, want %d", tt.core, got, tt.want)
		}
	}
}

func TestFrequencyWithoutSysfs(t *testing.T) {
	h := &HostSource{}
	if got := h.frequencyMHz(0, cpu.InfoStat{Mhz: 2600.7}); got != 2600 {
		t.Errorf("frequencyMHz = %d, want 2600", got)
	}
	if got := h.frequencyMHz(0, cpu.InfoStat{}); got != 0 {
		t.Errorf("frequencyMHz with no info = %d, want 0", got)
	}
}

func TestMemoryReadingUsesAvailable(t *testing.T) {
	tests := []struct {
		name     string
		vm       mem.VirtualMemoryStat
		sw       *mem.SwapMemoryStat
		wantUsed uint64
		wantPct  float64
	}{
		{
			name:     "cache counts as used",
			vm:       mem.VirtualMemoryStat{Total: 8 * gb, Available: 2 * gb, Used: 3 * gb},
			wantUsed: 6 * gb,
			wantPct:  75.0,
		},
		{
			name:     "available above total",
			vm:       mem.VirtualMemoryStat{Total: 4 * gb, Available: 5 * gb},
			wantUsed: 0,
			wantPct:  0,
		},
		{
			name:     "zero total",
			vm:       mem.VirtualMemoryStat{},
			wantUsed: 0,
			wantPct:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := tt.vm
			r := memoryReading(&vm, tt.sw)
			if r.Used != tt.wantUsed {
				t.Errorf("Used = %d, want %d", r.Used, tt.wantUsed)
			}
			if got := summarizeMemory(r).RAMUsedPercent; got != tt.wantPct {
				t.Errorf("RAMUsedPercent = %v, want %v", got, tt.wantPct)
			}
		})
	}
}

func TestMemoryReadingSwap(t *testing.T) {
	vm := mem.VirtualMemoryStat{Total: 8 * gb, Available: 8 * gb}
	r := memoryReading(&vm, &mem.SwapMemoryStat{Total: 2 * gb, Used: gb})
	if r.SwapTotal != 2*gb || r.SwapUsed != gb {
		t.Errorf("swap = %d/%d, want %d/%d", r.SwapUsed, r.SwapTotal, gb, 2*gb)
	}
	if r = memoryReading(&vm, nil); r.SwapTotal != 0 || r.SwapUsed != 0 {
		t.Errorf("missing swap = %d/%d, want zero", r.SwapUsed, r.SwapTotal)
	}
}

func TestBusyPercent(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur cpu.TimesStat
		want      float64
	}{
		{
			name: "half busy",
			prev: cpu.TimesStat{User: 100, Idle: 100},
			cur:  cpu.TimesStat{User: 150, Idle: 150},
			want: 50,
		},
		{
			name: "iowait counts as idle",
			prev: cpu.TimesStat{User: 10, Idle: 10, Iowait: 0},
			cur:  cpu.TimesStat{User: 20, Idle: 20, Iowait: 20},
			want: 25,
		},
		{
			name: "fully busy",
			prev: cpu.TimesStat{System: 5, Idle: 50},
			cur:  cpu.TimesStat{System: 25, Idle: 50},
			want: 100,
		},
		{
			name: "no elapsed time",
			prev: cpu.TimesStat{User: 10, Idle: 10},
			cur:  cpu.TimesStat{User: 10, Idle: 10},
			want: 0,
		},
		{
			name: "counters went backwards",
			prev: cpu.TimesStat{User: 100, Idle: 100},
			cur:  cpu.TimesStat{User: 10, Idle: 10},
			want: 0,
		},
		{
			name: "idle grew more than total clamps to zero",
			prev: cpu.TimesStat{User: 100, Idle: 100},
			cur:  cpu.TimesStat{User: 90, Idle: 130},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := busyPercent(tt.prev, tt.cur); got != tt.want {
				t.Errorf("busyPercent = %v, want %v", got, tt.want)
			}
		})
	}
}
