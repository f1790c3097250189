// Package syncx provides extended synchronization primitives
package syncx

import "sync/atomic"

// Snapshot publishes immutable values from one goroutine to many readers.
// Stored values must not be mutated after Store.
type Snapshot[T any] struct {
	p atomic.Pointer[T]
}

// NewSnapshot creates a snapshot holding initial.
func NewSnapshot[T any](initial T) *Snapshot[T] {
	s := &Snapshot[T]{}
	s.Store(initial)
	return s
}

// Load returns the most recently stored value, or the zero value.
func (s *Snapshot[T]) Load() T {
	if v := s.p.Load(); v != nil {
		return *v
	}
	var zero T
	return zero
}

// Store replaces the published value.
func (s *Snapshot[T]) Store(v T) {
	s.p.Store(&v)
}

// Update applies fn to the current value and publishes the result.
// Concurrent writers must be serialized by the caller.
func (s *Snapshot[T]) Update(fn func(T) T) T {
	v := fn(s.Load())
	s.Store(v)
	return v
}
