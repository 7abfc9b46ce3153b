// Package store holds the in-memory entity view, rebuilt incrementally as
// files change.
package store

import (
	"reflect"
	"sort"
	"sync"

	"github.com/vivafolio/entsync/pkg/core"
)

// Store maps entity ids to entities, with a per-path index so a single
// file notification can be diffed against exactly the entities it backs.
type Store struct {
	mu       sync.RWMutex
	entities map[string]core.Entity
	byPath   map[string]map[string]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entities: make(map[string]core.Entity),
		byPath:   make(map[string]map[string]struct{}),
	}
}

// Get returns the entity with the given id.
func (s *Store) Get(id string) (core.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	return e, ok
}

// All returns every entity, sorted by id for deterministic iteration.
func (s *Store) All() []core.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// ForPath returns the entities backed by one file, sorted by id.
func (s *Store) ForPath(path string) []core.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Entity, 0, len(s.byPath[path]))
	for id := range s.byPath[path] {
		out = append(out, s.entities[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Len returns the number of entities in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Put inserts or replaces one entity.
func (s *Store) Put(e core.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(e)
}

// Delete removes one entity. Returns false if the id was unknown.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return false
	}
	delete(s.entities, id)
	s.unindex(e.SourcePath, id)
	return true
}

// Diff describes what changed for one path between two extractions.
type Diff struct {
	Created []core.Entity
	Updated []core.Entity
	Removed []core.Entity
	// Previous holds the prior properties of updated entities, keyed by id.
	Previous map[string]core.Properties
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Created) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// AffectedIDs lists every id the diff touched: created, then updated, then
// removed.
func (d Diff) AffectedIDs() []string {
	out := make([]string, 0, len(d.Created)+len(d.Updated)+len(d.Removed))
	for _, e := range d.Created {
		out = append(out, e.EntityID)
	}
	for _, e := range d.Updated {
		out = append(out, e.EntityID)
	}
	for _, e := range d.Removed {
		out = append(out, e.EntityID)
	}
	return out
}

// ReplacePath swaps the entity set backed by one file for the freshly
// extracted one and reports what actually changed. Entities whose
// properties are deep-equal to the stored version count as unchanged.
func (s *Store) ReplacePath(path string, next []core.Entity) Diff {
	s.mu.Lock()
	defer s.mu.Unlock()

	diff := Diff{Previous: make(map[string]core.Properties)}
	remaining := make(map[string]struct{}, len(s.byPath[path]))
	for id := range s.byPath[path] {
		remaining[id] = struct{}{}
	}

	for _, e := range next {
		prev, existed := s.entities[e.EntityID]
		delete(remaining, e.EntityID)

		switch {
		case !existed:
			diff.Created = append(diff.Created, e)
		case !reflect.DeepEqual(prev.Properties, e.Properties):
			diff.Previous[e.EntityID] = prev.Properties
			diff.Updated = append(diff.Updated, e)
		}
		s.put(e)
	}

	for id := range remaining {
		e := s.entities[id]
		diff.Removed = append(diff.Removed, e)
		delete(s.entities, id)
		s.unindex(path, id)
	}
	sort.Slice(diff.Removed, func(i, j int) bool {
		return diff.Removed[i].EntityID < diff.Removed[j].EntityID
	})

	return diff
}

func (s *Store) put(e core.Entity) {
	if prev, ok := s.entities[e.EntityID]; ok && prev.SourcePath != e.SourcePath {
		s.unindex(prev.SourcePath, e.EntityID)
	}
	s.entities[e.EntityID] = e
	if s.byPath[e.SourcePath] == nil {
		s.byPath[e.SourcePath] = make(map[string]struct{})
	}
	s.byPath[e.SourcePath][e.EntityID] = struct{}{}
}

func (s *Store) unindex(path, id string) {
	if ids := s.byPath[path]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byPath, path)
		}
	}
}
