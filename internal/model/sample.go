package model

import "time"

// History caps. Disk keeps one more entry than CPU and memory.
const (
	CPUHistoryCap    = 10
	MemoryHistoryCap = 10
	DiskHistoryCap   = 11
)

// Sample is one timestamped observation. Timestamp is Unix seconds.
type Sample[T any] struct {
	Timestamp int64 `json:"timestamp"`
	Value     T     `json:"value"`
}

// NewSample stamps v with t truncated to whole seconds.
func NewSample[T any](t time.Time, v T) Sample[T] {
	return Sample[T]{Timestamp: t.Unix(), Value: v}
}

// History is an insertion-ordered window of samples, oldest first.
type History[T any] []Sample[T]

// Push appends s and drops the oldest entries until at most max remain.
func (h History[T]) Push(s Sample[T], max int) History[T] {
	if max <= 0 {
		return History[T]{}
	}
	h = append(h, s)
	if n := len(h) - max; n > 0 {
		h = h[n:]
	}
	return h
}

// Clone returns an independent copy. A nil history clones to an empty one so
// serialized records always carry an array.
func (h History[T]) Clone() History[T] {
	out := make(History[T], len(h))
	copy(out, h)
	return out
}
