package ecs

import (
	"reflect"
	"sync"
)

// erasable is implemented by every component store so the World can drop an
// entity's data from stores whose element type it does not know.
type erasable interface {
	erase(id uint32) bool
	typeName() string
	len() int
	clear()
}

type storeSlot[T any] struct {
	id    uint32
	value *T
}

// Store is the sparse map from slot id to the component owned for that slot.
// Iteration order follows insertion; erase swaps the last element into the
// hole, so order is not stable across removals.
type Store[T any] struct {
	name  string
	index map[uint32]int
	dense []storeSlot[T]
}

func newStore[T any]() *Store[T] {
	return &Store[T]{
		name:  typeNameOf[T](),
		index: make(map[uint32]int, 64),
		dense: make([]storeSlot[T], 0, 64),
	}
}

func (s *Store[T]) set(id uint32, c *T) (prev *T) {
	if i, ok := s.index[id]; ok {
		prev = s.dense[i].value
		s.dense[i].value = c
		return prev
	}
	s.index[id] = len(s.dense)
	s.dense = append(s.dense, storeSlot[T]{id: id, value: c})
	return nil
}

func (s *Store[T]) get(id uint32) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.dense[i].value, true
}

func (s *Store[T]) has(id uint32) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Store[T]) take(id uint32) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	c := s.dense[i].value
	last := len(s.dense) - 1
	if i != last {
		s.dense[i] = s.dense[last]
		s.index[s.dense[i].id] = i
	}
	s.dense[last] = storeSlot[T]{}
	s.dense = s.dense[:last]
	delete(s.index, id)
	return c, true
}

func (s *Store[T]) erase(id uint32) bool {
	_, ok := s.take(id)
	return ok
}

func (s *Store[T]) typeName() string { return s.name }

func (s *Store[T]) len() int { return len(s.dense) }

func (s *Store[T]) clear() {
	clear(s.index)
	clear(s.dense)
	s.dense = s.dense[:0]
}

// ids copies the current slot ids in iteration order.
func (s *Store[T]) ids() []uint32 {
	out := make([]uint32, len(s.dense))
	for i := range s.dense {
		out[i] = s.dense[i].id
	}
	return out
}

// storeTable tracks one store per component type, keyed by type token.
type storeTable struct {
	mu     sync.RWMutex
	byType map[reflect.Type]erasable
	order  []erasable
}

func newStoreTable() *storeTable {
	return &storeTable{
		byType: make(map[reflect.Type]erasable, 16),
		order:  make([]erasable, 0, 16),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func typeNameOf[T any]() string {
	return typeOf[T]().String()
}

// lookup returns the store for T, or nil if none was created yet.
func lookup[T any](t *storeTable) *Store[T] {
	t.mu.RLock()
	s, ok := t.byType[typeOf[T]()]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	return s.(*Store[T])
}

// ensure returns the store for T, creating it on first use.
func ensure[T any](t *storeTable) *Store[T] {
	if s := lookup[T](t); s != nil {
		return s
	}
	key := typeOf[T]()
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byType[key]; ok {
		return s.(*Store[T])
	}
	s := newStore[T]()
	t.byType[key] = s
	t.order = append(t.order, s)
	return s
}

// eraseAll clears slot id from every registered store and returns the number
// of components dropped.
func (t *storeTable) eraseAll(id uint32) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.order {
		if s.erase(id) {
			n++
		}
	}
	return n
}

func (t *storeTable) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.order {
		s.clear()
	}
	t.byType = make(map[reflect.Type]erasable)
	t.order = nil
}

func (t *storeTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}
