// Package storage implements packed per-entity component storage: a dense,
// hole-free value array, a parallel owner array, and an entity-to-index map.
// Iteration over the dense array is cache-friendly; insert, lookup, and
// removal are O(1), with removal done by swap-and-pop.
//
// A Store performs no internal synchronization. Pointers and slices obtained
// from Get, Create, Dense, or Owners are valid only until the next call that
// mutates the store (Add, Create, Remove, Reserve, Clear); callers must not
// retain them across mutations.
package storage

import (
	"github.com/keystone-games/packworld/types"
)

// Store holds at most one value of type T per entity.
//
// Invariant: len(dense) == len(owners) == len(index), and for every entity e
// with index[e] == i, owners[i] == e and dense[i] is e's current value.
type Store[T any] struct {
	dense  []T
	owners []types.EntityID
	index  map[types.EntityID]int
}

// NewStore creates an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		index: map[types.EntityID]int{},
	}
}

// Len returns the number of live entries.
func (s *Store[T]) Len() int {
	return len(s.dense)
}

// Reserve grows the backing arrays to hold at least n entries without further
// reallocation. Previously returned pointers and views may be invalidated.
func (s *Store[T]) Reserve(n int) {
	if cap(s.dense) < n {
		dense := make([]T, len(s.dense), n)
		copy(dense, s.dense)
		s.dense = dense
	}
	if cap(s.owners) < n {
		owners := make([]types.EntityID, len(s.owners), n)
		copy(owners, s.owners)
		s.owners = owners
	}
}

// Add appends a value owned by id. It does not check whether id already has
// an entry: adding the same entity twice rebinds the index to the new slot
// and leaves the old slot orphaned in the dense array until the entity is
// removed.
func (s *Store[T]) Add(id types.EntityID, value T) {
	s.index[id] = len(s.dense)
	s.dense = append(s.dense, value)
	s.owners = append(s.owners, id)
}

// Create appends a zero-valued slot owned by id and returns a pointer for the
// caller to fill in. The pointer is valid only until the next mutating call.
// The duplicate-entity behavior of Add applies.
func (s *Store[T]) Create(id types.EntityID) *T {
	var zero T
	s.Add(id, zero)
	return &s.dense[len(s.dense)-1]
}

// Get returns a pointer to the value owned by id, or nil if id has no entry.
// The pointer is valid only until the next mutating call.
func (s *Store[T]) Get(id types.EntityID) *T {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return &s.dense[i]
}

// Contains reports whether id has an entry.
func (s *Store[T]) Contains(id types.EntityID) bool {
	_, ok := s.index[id]
	return ok
}

// EntityAt returns the owner of the dense slot at position i, or types.BadID
// if i is out of range.
func (s *Store[T]) EntityAt(i int) types.EntityID {
	if i < 0 || i >= len(s.owners) {
		return types.BadID
	}
	return s.owners[i]
}

// Dense returns the dense value array. The slice is valid only until the next
// mutating call.
func (s *Store[T]) Dense() []T {
	return s.dense
}

// Owners returns the owner array, parallel to Dense. The slice is valid only
// until the next mutating call.
func (s *Store[T]) Owners() []types.EntityID {
	return s.owners
}

// Remove deletes the entry owned by id, if any. The last dense slot is swapped
// into the freed position and its owner's index is rewritten, so removal never
// shifts more than one element.
func (s *Store[T]) Remove(id types.EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	delete(s.index, id)

	last := len(s.dense) - 1
	if i != last {
		s.dense[i] = s.dense[last]
		s.owners[i] = s.owners[last]
		s.index[s.owners[i]] = i
	}
	var zero T
	s.dense[last] = zero // drop references held by the vacated slot
	s.dense = s.dense[:last]
	s.owners = s.owners[:last]
}

// Clear removes every entry.
func (s *Store[T]) Clear() {
	var zero T
	for i := range s.dense {
		s.dense[i] = zero
	}
	s.dense = s.dense[:0]
	s.owners = s.owners[:0]
	s.index = map[types.EntityID]int{}
}
