package store

import "fmt"

// Action is a typed state transition. The set of actions is closed.
type Action[T Entity] interface {
	// Kind names the action for logs and metrics.
	Kind() string
	apply(State[T]) (State[T], bool)
}

// LoadRequest marks the collection as loading.
type LoadRequest[T Entity] struct{}

// LoadSuccess replaces the whole collection; every entry becomes dirty.
type LoadSuccess[T Entity] struct {
	Items []T
}

// LoadFailure records a failed load, keeping the current entries.
type LoadFailure[T Entity] struct {
	Err error
}

// Upsert inserts or replaces one entity, e.g. from a create response or a push message.
type Upsert[T Entity] struct {
	Item T
}

// Update merges a patch into one existing entity. Unknown ids are ignored.
type Update[T Entity] struct {
	ID    int
	Patch func(*T)
}

// Remove drops one entity after a successful delete. Unknown ids are ignored.
type Remove[T Entity] struct {
	ID int
}

// SetFilter recomputes visibility for every entry. A nil predicate shows everything.
type SetFilter[T Entity] struct {
	Predicate func(T) bool
}

func (LoadRequest[T]) Kind() string { return "load_request" }
func (LoadSuccess[T]) Kind() string { return "load_success" }
func (LoadFailure[T]) Kind() string { return "load_failure" }
func (Upsert[T]) Kind() string { return "upsert" }
func (Update[T]) Kind() string { return "update" }
func (Remove[T]) Kind() string { return "remove" }
func (SetFilter[T]) Kind() string { return "set_filter" }

func (a LoadRequest[T]) apply(s State[T]) (State[T], bool) {
	if s.Loading && s.Err == nil {
		return s, false
	}
	s.Loading = true
	s.Err = nil
	return s, true
}

func (a LoadSuccess[T]) apply(s State[T]) (State[T], bool) {
	entries := make(map[int]Entry[T], len(a.Items))
	for _, item := range a.Items {
		entries[item.EntityID()] = Entry[T]{Data: item, Dirty: true, Visible: s.visible(item)}
	}
	s.Entries = entries
	s.Loading = false
	s.Err = nil
	return s, true
}

func (a LoadFailure[T]) apply(s State[T]) (State[T], bool) {
	s.Loading = false
	s.Err = a.Err
	if s.Err == nil {
		s.Err = fmt.Errorf("load failed")
	}
	return s, true
}

func (a Upsert[T]) apply(s State[T]) (State[T], bool) {
	next := s.clone()
	next.Entries[a.Item.EntityID()] = Entry[T]{Data: a.Item, Dirty: true, Visible: s.visible(a.Item)}
	return next, true
}

func (a Update[T]) apply(s State[T]) (State[T], bool) {
	entry, ok := s.Entries[a.ID]
	if !ok || a.Patch == nil {
		return s, false
	}

	data := entry.Data
	a.Patch(&data)

	next := s.clone()
	next.Entries[a.ID] = Entry[T]{Data: data, Dirty: true, Visible: s.visible(data)}
	return next, true
}

func (a Remove[T]) apply(s State[T]) (State[T], bool) {
	if _, ok := s.Entries[a.ID]; !ok {
		return s, false
	}
	next := s.clone()
	delete(next.Entries, a.ID)
	return next, true
}

func (a SetFilter[T]) apply(s State[T]) (State[T], bool) {
	next := s.clone()
	next.filter = a.Predicate
	for id, entry := range next.Entries {
		entry.Visible = next.visible(entry.Data)
		next.Entries[id] = entry
	}
	return next, true
}

// Reduce applies an action to a state without side effects.
// changed is false when the action was a no-op (e.g. Update on an unknown id).
func Reduce[T Entity](s State[T], a Action[T]) (next State[T], changed bool) {
	if s.Entries == nil {
		s.Entries = map[int]Entry[T]{}
	}
	return a.apply(s)
}
