// Package sampler populates the metric store at startup and refreshes it on a
// fixed interval.
package sampler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/osname"
	"github.com/Dicklesworthstone/hostinfo/internal/store"
)

const (
	// DefaultInterval is the time between sampling ticks.
	DefaultInterval = 10 * time.Second
	// DefaultSettleDelay is the minimum gap between two CPU counter reads for
	// the usage delta to mean anything.
	DefaultSettleDelay = 200 * time.Millisecond
)

// unknownKernel is reported when the kernel version cannot be read.
const unknownKernel = "Unknown"

// Config configures a Sampler. Zero fields take defaults; a negative
// SettleDelay skips the startup wait.
type Config struct {
	Interval    time.Duration
	SettleDelay time.Duration
	// OSName resolves the product name once during Init.
	OSName osname.Resolver
	// Observer, if set, receives a snapshot after Init and after every tick.
	Observer func(model.Snapshot)
	Logger   *slog.Logger
	// Now overrides the clock used to stamp samples.
	Now func() time.Time
}

// Sampler owns the only writer path into a Store.
type Sampler struct {
	Interval    time.Duration
	SettleDelay time.Duration

	src      Source
	store    *store.Store
	osName   osname.Resolver
	observer func(model.Snapshot)
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a Sampler that reads src and writes st.
func New(src Source, st *store.Store, cfg Config) *Sampler {
	s := &Sampler{
		Interval:    cfg.Interval,
		SettleDelay: cfg.SettleDelay,
		src:         src,
		store:       st,
		osName:      cfg.OSName,
		observer:    cfg.Observer,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.SettleDelay == 0 {
		s.SettleDelay = DefaultSettleDelay
	}
	if s.osName == nil {
		s.osName = osname.New(2*time.Second, cfg.Logger)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Init populates every domain once. It blocks for SettleDelay between the
// priming CPU read and the measured one, and returns early only if ctx is
// cancelled during that wait.
func (s *Sampler) Init(ctx context.Context) error {
	// Prime the per-core counters so the post-delay read has a baseline.
	if _, err := s.src.Cores(ctx); err != nil {
		s.logger.Warn("cpu prime read failed", "error", err)
	}

	disks, _ := s.readDisks(ctx)

	if s.SettleDelay > 0 {
		timer := time.NewTimer(s.SettleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	cpu := summarizeCores(s.readCores(ctx))
	if cpu.Name == "" {
		cpu.Name = UnknownCPUName
	}
	memReading, _ := s.readMemory(ctx)
	mem := summarizeMemory(memReading)
	hostInfo := s.readHost(ctx)
	osName := s.osName.Resolve(ctx)

	now := s.now()
	s.store.SeedCPU(model.CPU{
		Name:         cpu.Name,
		FrequencyMHz: cpu.FrequencyMHz,
		CoreCount:    cpu.CoreCount,
		UsagePercent: cpu.UsagePercent,
		History:      model.History[float64]{model.NewSample(now, cpu.UsagePercent)},
	})
	s.store.SeedMemory(model.Memory{
		RAMTotalGB:      mem.RAMTotalGB,
		RAMUsedPercent:  mem.RAMUsedPercent,
		SwapTotalGB:     mem.SwapTotalGB,
		SwapUsedPercent: mem.SwapUsedPercent,
		History:         model.History[float64]{model.NewSample(now, mem.RAMUsedPercent)},
	})
	s.store.SeedDisk(model.Disk{
		TotalSizeGB:  disks.TotalGB,
		UsedPercent:  disks.UsedPercent,
		ReadHistory:  model.History[uint64]{model.NewSample(now, disks.ReadMB)},
		WriteHistory: model.History[uint64]{model.NewSample(now, disks.WriteMB)},
	})
	s.store.SeedOS(model.OS{
		Name:          osName,
		KernelVersion: hostInfo.KernelVersion,
		UptimeDays:    uptimeDays(hostInfo.UptimeSeconds),
	})

	s.logger.Info("metrics initialized",
		"cpu", cpu.Name,
		"cores", cpu.CoreCount,
		"ram_gb", mem.RAMTotalGB,
		"disk_gb", disks.TotalGB,
		"os", osName,
	)
	s.notify()
	return nil
}

// Run ticks every Interval until ctx is cancelled. It never returns nil.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tick performs one sampling pass over every domain. All host reads happen
// before any store lock is taken. A memory or disk read that fails leaves
// that record untouched for this tick.
func (s *Sampler) Tick(ctx context.Context) {
	cores := s.readCores(ctx)
	cpu := summarizeCores(cores)
	memReading, memOK := s.readMemory(ctx)
	mem := summarizeMemory(memReading)
	disks, disksOK := s.readDisks(ctx)
	hostInfo := s.readHost(ctx)

	now := s.now()
	cpuSample := model.NewSample(now, cpu.UsagePercent)
	memSample := model.NewSample(now, mem.RAMUsedPercent)
	readSample := model.NewSample(now, disks.ReadMB)
	writeSample := model.NewSample(now, disks.WriteMB)

	s.store.UpdateCPU(func(r *model.CPU) {
		r.FrequencyMHz = cpu.FrequencyMHz
		r.UsagePercent = cpu.UsagePercent
		r.CoreCount = cpu.CoreCount
		if cpu.Name != "" {
			r.Name = cpu.Name
		}
		r.History = r.History.Push(cpuSample, model.CPUHistoryCap)
	})

	if memOK {
		s.store.UpdateMemory(func(r *model.Memory) {
			r.RAMTotalGB = mem.RAMTotalGB
			r.RAMUsedPercent = mem.RAMUsedPercent
			r.SwapTotalGB = mem.SwapTotalGB
			r.SwapUsedPercent = mem.SwapUsedPercent
			r.History = r.History.Push(memSample, model.MemoryHistoryCap)
		})
	}

	if disksOK {
		s.store.UpdateDisk(func(r *model.Disk) {
			r.TotalSizeGB = disks.TotalGB
			r.UsedPercent = disks.UsedPercent
			r.ReadHistory = r.ReadHistory.Push(readSample, model.DiskHistoryCap)
			r.WriteHistory = r.WriteHistory.Push(writeSample, model.DiskHistoryCap)
		})
	}

	s.store.UpdateOS(func(r *model.OS) {
		if hostInfo.KernelVersion != unknownKernel || r.KernelVersion == "" {
			r.KernelVersion = hostInfo.KernelVersion
		}
		if hostInfo.UptimeSeconds > 0 {
			r.UptimeDays = uptimeDays(hostInfo.UptimeSeconds)
		}
	})

	s.logger.Debug("metrics sampled",
		"cpu", cpu.UsagePercent,
		"cores", len(cores),
		"ram", mem.RAMUsedPercent,
		"swap", mem.SwapUsedPercent,
		"disk", disks.UsedPercent,
		"read_mb", disks.ReadMB,
		"write_mb", disks.WriteMB,
	)
	s.notify()
}

func (s *Sampler) notify() {
	if s.observer != nil {
		s.observer(s.store.Snapshot())
	}
}

func (s *Sampler) readCores(ctx context.Context) []CoreReading {
	cores, err := s.src.Cores(ctx)
	if err != nil {
		s.logger.Warn("cpu read failed", "error", err)
		return nil
	}
	return cores
}

func (s *Sampler) readMemory(ctx context.Context) (MemoryReading, bool) {
	m, err := s.src.Memory(ctx)
	if err != nil {
		s.logger.Warn("memory read failed", "error", err)
		return MemoryReading{}, false
	}
	return m, true
}

func (s *Sampler) readDisks(ctx context.Context) (diskSummary, bool) {
	disks, err := s.src.Disks(ctx)
	if err != nil {
		s.logger.Warn("disk read failed", "error", err)
		return diskSummary{}, false
	}
	return summarizeDisks(disks), true
}

func (s *Sampler) readHost(ctx context.Context) HostReading {
	h, err := s.src.Host(ctx)
	if err != nil {
		s.logger.Warn("host read failed", "error", err)
	}
	if h.KernelVersion == "" {
		h.KernelVersion = unknownKernel
	}
	return h
}
