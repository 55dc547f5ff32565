package store

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Listener is called after every dispatch that changed the state.
// Listeners run while the dispatch is still in progress and must not call Dispatch;
// use ClearDirty for render bookkeeping.
type Listener[T Entity] func(state State[T], action Action[T])

type subscription[T Entity] struct {
	id int
	fn Listener[T]
}

// Store holds one entity collection.
type Store[T Entity] struct {
	name string

	dispatchMu sync.Mutex // serializes reduce + notify so listeners see receipt order

	mu        sync.RWMutex
	state     State[T]
	subs      []subscription[T]
	nextSubID int

	onDispatch func(store, kind string, changed bool)
}

// New creates an empty store.
func New[T Entity](name string) *Store[T] {
	return &Store[T]{
		name:  name,
		state: State[T]{Entries: map[int]Entry[T]{}},
	}
}

// Name returns the store name.
func (s *Store[T]) Name() string {
	return s.name
}

// Dispatch applies the action synchronously and notifies listeners if the state changed.
// Concurrent dispatches are applied one at a time; the last one wins.
func (s *Store[T]) Dispatch(action Action[T]) bool {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next, changed := Reduce(s.state, action)
	if changed {
		s.state = next
	}
	subs := make([]subscription[T], len(s.subs))
	copy(subs, s.subs)
	hook := s.onDispatch
	s.mu.Unlock()

	if hook != nil {
		hook(s.name, action.Kind(), changed)
	}

	if !changed {
		log.Debug().Str("store", s.name).Str("action", action.Kind()).Msg("Dispatch left state unchanged")
		return false
	}

	for _, sub := range subs {
		sub.fn(next, action)
	}
	return true
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// OnDispatch installs a hook called for every dispatch, changed or not.
func (s *Store[T]) OnDispatch(fn func(store, kind string, changed bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDispatch = fn
}

// State returns the current snapshot.
func (s *Store[T]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Get returns one entity.
func (s *Store[T]) Get(id int) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.state.Entries[id]
	return entry.Data, ok
}

// Visible returns the visible entities ordered by id.
func (s *Store[T]) Visible() []T {
	st := s.State()
	items := make([]T, 0, len(st.Entries))
	for _, id := range st.IDs() {
		if entry := st.Entries[id]; entry.Visible {
			items = append(items, entry.Data)
		}
	}
	return items
}

// Dirty returns the ids changed since the last ClearDirty, ascending.
func (s *Store[T]) Dirty() []int {
	st := s.State()
	var ids []int
	for id, entry := range st.Entries {
		if entry.Dirty {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// ClearDirty resets dirty flags after a render. No ids clears all.
// It does not notify listeners.
func (s *Store[T]) ClearDirty(ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if len(ids) == 0 {
		for id, entry := range next.Entries {
			entry.Dirty = false
			next.Entries[id] = entry
		}
	} else {
		for _, id := range ids {
			if entry, ok := next.Entries[id]; ok {
				entry.Dirty = false
				next.Entries[id] = entry
			}
		}
	}
	s.state = next
}
