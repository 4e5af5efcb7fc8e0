package model

// CPU aggregates per-core readings into one snapshot.
type CPU struct {
	Name         string           `json:"name"`
	FrequencyMHz uint64           `json:"frequency_mhz"`
	CoreCount    uint64           `json:"core_count"`
	UsagePercent float64          `json:"usage_percent"` // 0-100, one decimal
	History      History[float64] `json:"history"`
}

// Memory captures RAM and swap. Sizes are whole GiB.
type Memory struct {
	RAMTotalGB      uint64           `json:"ram_total_gb"`
	RAMUsedPercent  float64          `json:"ram_used_percent"`
	SwapTotalGB     uint64           `json:"swap_total_gb"`
	SwapUsedPercent float64          `json:"swap_used_percent"`
	History         History[float64] `json:"history"`
}

// Disk sums every mounted disk. Read/write history values are cumulative MiB.
type Disk struct {
	TotalSizeGB  uint64          `json:"total_size_gb"`
	UsedPercent  float64         `json:"used_percent"`
	ReadHistory  History[uint64] `json:"read_history"`
	WriteHistory History[uint64] `json:"write_history"`
}

// OS describes the host operating system.
type OS struct {
	Name          string `json:"name"`
	KernelVersion string `json:"kernel_version"`
	UptimeDays    uint64 `json:"uptime_days"`
}

// Snapshot is all four records read together.
type Snapshot struct {
	CPU    CPU    `json:"cpu"`
	Memory Memory `json:"memory"`
	Disk   Disk   `json:"disk"`
	OS     OS     `json:"os"`
}

// Clone returns a deep copy.
func (c CPU) Clone() CPU {
	c.History = c.History.Clone()
	return c
}

// Clone returns a deep copy.
func (m Memory) Clone() Memory {
	m.History = m.History.Clone()
	return m
}

// Clone returns a deep copy.
func (d Disk) Clone() Disk {
	d.ReadHistory = d.ReadHistory.Clone()
	d.WriteHistory = d.WriteHistory.Clone()
	return d
}

// Clone returns a copy; OS holds no references.
func (o OS) Clone() OS { return o }

// UndefinedCPUName is reported when the CPU record is read before it was populated.
const UndefinedCPUName = "Undefined CPU"

// DefaultCPU is the zero-valued CPU record served before initialization.
func DefaultCPU() CPU {
	return CPU{Name: UndefinedCPUName, History: History[float64]{}}
}

// DefaultMemory is the zero-valued memory record.
func DefaultMemory() Memory {
	return Memory{History: History[float64]{}}
}

// DefaultDisk is the zero-valued disk record.
func DefaultDisk() Disk {
	return Disk{ReadHistory: History[uint64]{}, WriteHistory: History[uint64]{}}
}

// DefaultOS is the zero-valued OS record.
func DefaultOS() OS { return OS{} }
