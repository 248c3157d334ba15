package state

// DefaultHistoryDepth is the rollback capacity of a state's value history.
const DefaultHistoryDepth = 5

// BoundedStack is a LIFO stack with a fixed capacity. Pushing onto a full
// stack silently discards the oldest entry, so rewinding past the retained
// window converges on the oldest value still held.
type BoundedStack[T any] struct {
	items    []T
	capacity int
}

// NewBoundedStack creates a stack holding at most capacity entries.
//
// Returns:
//   - *BoundedStack[T]: Empty stack
//   - error: ErrBadHistoryDepth if capacity is not positive
func NewBoundedStack[T any](capacity int) (*BoundedStack[T], error) {
	if capacity <= 0 {
		return nil, ErrBadHistoryDepth
	}
	return &BoundedStack[T]{capacity: capacity}, nil
}

// Push places item on top of the stack, evicting the oldest entry when the
// stack is at capacity.
func (s *BoundedStack[T]) Push(item T) {
	if len(s.items) == s.capacity {
		s.items = s.items[:len(s.items)-1]
	}
	s.items = append([]T{item}, s.items...)
}

// Pop removes and returns the top entry.
//
// Returns:
//   - T: The most recently pushed value, or the zero value when empty
//   - bool: Whether an entry was present
func (s *BoundedStack[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	item := s.items[0]
	s.items = s.items[1:]
	return item, true
}

// Peek returns the top entry without removing it.
func (s *BoundedStack[T]) Peek() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	return s.items[0], true
}

// PeekAll returns a copy of all entries, newest first.
func (s *BoundedStack[T]) PeekAll() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of entries currently held.
func (s *BoundedStack[T]) Len() int {
	return len(s.items)
}

// Clear removes all entries.
func (s *BoundedStack[T]) Clear() {
	s.items = nil
}
