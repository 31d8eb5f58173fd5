package generic

// Set is an unordered collection of unique items.
type Set[T comparable] struct {
	items map[T]struct{}
}

// NewSet constructs a Set[T] containing the supplied items.
func NewSet[T comparable](items ...T) Set[T] {
	s := Set[T]{items: make(map[T]struct{}, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add an item to the set, returning true if it was not already present.
func (s Set[T]) Add(item T) bool {
	if _, ok := s.items[item]; ok {
		return false
	}
	s.items[item] = struct{}{}
	return true
}

// Contains returns true if the item is in the set.
func (s Set[T]) Contains(item T) bool {
	_, ok := s.items[item]
	return ok
}

// Count returns the number of items in the set.
func (s Set[T]) Count() int {
	return len(s.items)
}

// ToSlice returns the items of the set in unspecified order.
func (s Set[T]) ToSlice() []T {
	out := make([]T, 0, len(s.items))
	for item := range s.items {
		out = append(out, item)
	}
	return out
}
