package sampler

import (
	"math"
	"strings"
)

const (
	bytesPerGB = 1 << 30
	bytesPerMB = 1 << 20
)

// UnknownCPUName is used when the host reports no cores at startup.
const UnknownCPUName = "Unknown CPU"

// saturatingAdd returns a+b, clamped to MaxUint64 instead of wrapping.
func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// roundTenth rounds to one decimal place.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// usedPercent is used/total as a percentage rounded to one decimal, or 0 when
// total is 0.
func usedPercent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return clampPercent(math.Round(float64(used)/float64(total)*1000) / 10)
}

// cpuSummary is the aggregate of one core enumeration.
type cpuSummary struct {
	Name         string // empty when no cores were reported
	CoreCount    uint64
	FrequencyMHz uint64
	UsagePercent float64
}

func summarizeCores(cores []CoreReading) cpuSummary {
	if len(cores) == 0 {
		return cpuSummary{}
	}
	var freq uint64
	var usage float64
	for _, c := range cores {
		freq = saturatingAdd(freq, c.FrequencyMHz)
		usage += c.UsagePercent
	}
	n := uint64(len(cores))
	return cpuSummary{
		Name:         strings.TrimSpace(cores[0].Brand),
		CoreCount:    n,
		FrequencyMHz: freq / n,
		UsagePercent: clampPercent(roundTenth(usage / float64(n))),
	}
}

// memorySummary holds whole-GiB sizes and rounded percentages.
type memorySummary struct {
	RAMTotalGB      uint64
	RAMUsedPercent  float64
	SwapTotalGB     uint64
	SwapUsedPercent float64
}

func summarizeMemory(m MemoryReading) memorySummary {
	return memorySummary{
		RAMTotalGB:      m.Total / bytesPerGB,
		RAMUsedPercent:  usedPercent(m.Used, m.Total),
		SwapTotalGB:     m.SwapTotal / bytesPerGB,
		SwapUsedPercent: usedPercent(m.SwapUsed, m.SwapTotal),
	}
}

// diskSummary sums every disk. Sizes are whole GiB, counters whole MiB.
type diskSummary struct {
	TotalGB     uint64
	AvailableGB uint64
	ReadMB      uint64
	WriteMB     uint64
	UsedPercent float64
}

// summarizeDisks converts each disk to GiB/MiB before summing, so the
// per-disk remainders are dropped. Unlike memory, the percentage is not rounded.
func summarizeDisks(disks []DiskReading) diskSummary {
	var s diskSummary
	for _, d := range disks {
		s.TotalGB = saturatingAdd(s.TotalGB, d.Total/bytesPerGB)
		s.AvailableGB = saturatingAdd(s.AvailableGB, d.Available/bytesPerGB)
		s.ReadMB = saturatingAdd(s.ReadMB, d.ReadBytes/bytesPerMB)
		s.WriteMB = saturatingAdd(s.WriteMB, d.WriteBytes/bytesPerMB)
	}
	if s.TotalGB > 0 && s.AvailableGB <= s.TotalGB {
		s.UsedPercent = clampPercent(float64(s.TotalGB-s.AvailableGB) / float64(s.TotalGB) * 100)
	}
	return s
}

// uptimeDays converts seconds to whole days.
func uptimeDays(seconds uint64) uint64 { return seconds / 86400 }
