// Package store holds the current metric records, one independently locked
// slot per domain. Readers always receive a private copy.
package store

import (
	"fmt"
	"sync"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// Domain names one of the four record kinds.
type Domain int

const (
	DomainCPU Domain = iota
	DomainMemory
	DomainDisk
	DomainOS
)

// Domains lists every domain in a stable order.
var Domains = []Domain{DomainCPU, DomainMemory, DomainDisk, DomainOS}

// String returns the lower-case domain name.
func (d Domain) String() string {
	switch d {
	case DomainCPU:
		return "cpu"
	case DomainMemory:
		return "memory"
	case DomainDisk:
		return "disk"
	case DomainOS:
		return "os"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// State tracks how a slot got its current value.
type State int

const (
	// StateUninitialized means nothing has touched the slot yet.
	StateUninitialized State = iota
	// StateDefaulted means a read materialized the zero record before Seed ran.
	StateDefaulted
	// StateReady means Seed or an update has populated the slot.
	StateReady
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDefaulted:
		return "defaulted"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type slot[T any] struct {
	mu    sync.Mutex
	state State
	rec   T
	def   func() T
	clone func(T) T
}

// materialize installs the default record. Callers hold mu.
func (s *slot[T]) materialize() {
	if s.state == StateUninitialized {
		s.rec = s.def()
		s.state = StateDefaulted
	}
}

func (s *slot[T]) read() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materialize()
	return s.clone(s.rec)
}

// seed replaces the record wholesale. A default installed by an early read is
// overwritten; a record already seeded or updated is left alone.
func (s *slot[T]) seed(rec T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReady {
		return false
	}
	s.rec = rec
	s.state = StateReady
	return true
}

// update runs fn on the live record. fn must only assign precomputed values.
func (s *slot[T]) update(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materialize()
	fn(&s.rec)
	s.state = StateReady
}

func (s *slot[T]) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Store is the shared application state for all four domains. The zero value
// is not usable; construct with New.
type Store struct {
	cpu    slot[model.CPU]
	memory slot[model.Memory]
	disk   slot[model.Disk]
	os     slot[model.OS]
}

// New returns a store with every domain uninitialized.
func New() *Store {
	s := &Store{}
	s.cpu.def, s.cpu.clone = model.DefaultCPU, model.CPU.Clone
	s.memory.def, s.memory.clone = model.DefaultMemory, model.Memory.Clone
	s.disk.def, s.disk.clone = model.DefaultDisk, model.Disk.Clone
	s.os.def, s.os.clone = model.DefaultOS, model.OS.Clone
	return s
}

// CPU returns a copy of the CPU record, or the default if none exists yet.
func (s *Store) CPU() model.CPU { return s.cpu.read() }

// Memory returns a copy of the memory record.
func (s *Store) Memory() model.Memory { return s.memory.read() }

// Disk returns a copy of the disk record.
func (s *Store) Disk() model.Disk { return s.disk.read() }

// OS returns a copy of the OS record.
func (s *Store) OS() model.OS { return s.os.read() }

// Snapshot reads every domain. Domains are locked one at a time, so the
// result may mix values from different sampling ticks.
func (s *Store) Snapshot() model.Snapshot {
	return model.Snapshot{
		CPU:    s.CPU(),
		Memory: s.Memory(),
		Disk:   s.Disk(),
		OS:     s.OS(),
	}
}

// SeedCPU installs the first CPU record. It reports false if the domain was already populated.
func (s *Store) SeedCPU(r model.CPU) bool { return s.cpu.seed(r) }

// SeedMemory installs the first memory record.
func (s *Store) SeedMemory(r model.Memory) bool { return s.memory.seed(r) }

// SeedDisk installs the first disk record.
func (s *Store) SeedDisk(r model.Disk) bool { return s.disk.seed(r) }

// SeedOS installs the OS record.
func (s *Store) SeedOS(r model.OS) bool { return s.os.seed(r) }

// UpdateCPU mutates the CPU record under its lock.
func (s *Store) UpdateCPU(fn func(*model.CPU)) { s.cpu.update(fn) }

// UpdateMemory mutates the memory record under its lock.
func (s *Store) UpdateMemory(fn func(*model.Memory)) { s.memory.update(fn) }

// UpdateDisk mutates the disk record under its lock.
func (s *Store) UpdateDisk(fn func(*model.Disk)) { s.disk.update(fn) }

// UpdateOS mutates the OS record under its lock.
func (s *Store) UpdateOS(fn func(*model.OS)) { s.os.update(fn) }

// State reports the lifecycle state of d.
func (s *Store) State(d Domain) State {
	switch d {
	case DomainCPU:
		return s.cpu.current()
	case DomainMemory:
		return s.memory.current()
	case DomainDisk:
		return s.disk.current()
	case DomainOS:
		return s.os.current()
	default:
		return StateUninitialized
	}
}

// Ready reports whether every domain has been populated.
func (s *Store) Ready() bool {
	for _, d := range Domains {
		if s.State(d) != StateReady {
			return false
		}
	}
	return true
}
