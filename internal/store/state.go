// Package store is the typed, event-sourced entity cache.
// Every change goes through Reduce(state, action); Store serializes dispatches
// and notifies subscribers after each one that changed something.
package store

import (
	"maps"
	"sort"
)

// Entity is anything keyed by a server-assigned integer id.
type Entity interface {
	EntityID() int
}

// Entry wraps an entity with render bookkeeping.
type Entry[T Entity] struct {
	Data    T
	Dirty   bool // Changed since the last render
	Visible bool // Passes the current filter
}

// State is an immutable snapshot of one entity collection.
type State[T Entity] struct {
	Entries map[int]Entry[T]
	Loading bool
	Err     error

	filter func(T) bool
}

// IDs returns all entity ids in ascending order.
func (s State[T]) IDs() []int {
	ids := make([]int, 0, len(s.Entries))
	for id := range s.Entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of entries.
func (s State[T]) Len() int {
	return len(s.Entries)
}

func (s State[T]) visible(item T) bool {
	return s.filter == nil || s.filter(item)
}

// clone copies the entry map so a reduction never mutates a published snapshot.
func (s State[T]) clone() State[T] {
	next := s
	next.Entries = make(map[int]Entry[T], len(s.Entries))
	maps.Copy(next.Entries, s.Entries)
	return next
}
