package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHistoryPush(t *testing.T) {
	tests := []struct {
		name      string
		pushes    int
		max       int
		wantLen   int
		wantFirst int64
		wantLast  int64
	}{
		{name: "empty window", pushes: 0, max: CPUHistoryCap, wantLen: 0},
		{name: "under cap keeps all", pushes: 3, max: CPUHistoryCap, wantLen: 3, wantFirst: 1, wantLast: 3},
		{name: "exactly at cap", pushes: 10, max: CPUHistoryCap, wantLen: 10, wantFirst: 1, wantLast: 10},
		{name: "cpu cap evicts oldest", pushes: 15, max: CPUHistoryCap, wantLen: 10, wantFirst: 6, wantLast: 15},
		{name: "disk cap evicts oldest", pushes: 15, max: DiskHistoryCap, wantLen: 11, wantFirst: 5, wantLast: 15},
		{name: "zero cap keeps nothing", pushes: 4, max: 0, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h History[float64]
			for i := 1; i <= tt.pushes; i++ {
				h = h.Push(Sample[float64]{Timestamp: int64(i), Value: float64(i)}, tt.max)
				if tt.max > 0 && len(h) > tt.max {
					t.Fatalf("len = %d after push %d, cap %d", len(h), i, tt.max)
				}
			}
			if len(h) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(h), tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}
			if h[0].Timestamp != tt.wantFirst {
				t.Errorf("first = %d, want %d", h[0].Timestamp, tt.wantFirst)
			}
			if h[len(h)-1].Timestamp != tt.wantLast {
				t.Errorf("last = %d, want %d", h[len(h)-1].Timestamp, tt.wantLast)
			}
			for i := 1; i < len(h); i++ {
				if h[i].Timestamp <= h[i-1].Timestamp {
					t.Errorf("history not ordered at %d: %d <= %d", i, h[i].Timestamp, h[i-1].Timestamp)
				}
			}
		})
	}
}

func TestHistoryCloneIsIndependent(t *testing.T) {
	h := History[uint64]{{Timestamp: 1, Value: 10}}
	c := h.Clone()
	c[0].Value = 99
	if h[0].Value != 10 {
		t.Errorf("original mutated through clone: %d", h[0].Value)
	}

	var empty History[uint64]
	if got := empty.Clone(); got == nil {
		t.Error("nil history cloned to nil, want empty slice")
	}
}

func TestNewSampleTruncatesToSeconds(t *testing.T) {
	ts := time.Unix(1700000000, 999_000_000)
	s := NewSample(ts, 42.5)
	if s.Timestamp != 1700000000 {
		t.Errorf("Timestamp = %d, want 1700000000", s.Timestamp)
	}
	if s.Value != 42.5 {
		t.Errorf("Value = %v, want 42.5", s.Value)
	}
}

func TestDefaultRecordsSerializeEmptyArrays(t *testing.T) {
	raw, err := json.Marshal(DefaultDisk())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"total_size_gb":0,"used_percent":0,"read_history":[],"write_history":[]}`
	if string(raw) != want {
		t.Errorf("got %s, want %s", raw, want)
	}

	cpu := DefaultCPU()
	if cpu.Name != UndefinedCPUName {
		t.Errorf("Name = %q, want %q", cpu.Name, UndefinedCPUName)
	}
}

func TestCPUCloneDeepCopiesHistory(t *testing.T) {
	orig := CPU{Name: "x", History: History[float64]{{Timestamp: 1, Value: 1}}}
	c := orig.Clone()
	c.History = c.History.Push(Sample[float64]{Timestamp: 2, Value: 2}, CPUHistoryCap)
	c.History[0].Value = 50
	if len(orig.History) != 1 || orig.History[0].Value != 1 {
		t.Errorf("original history changed: %+v", orig.History)
	}
}
