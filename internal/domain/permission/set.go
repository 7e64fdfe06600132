package permission

import (
	"sort"
)

// Set is an unordered collection of role or permission names.
// The zero value is an empty set ready to use.
type Set struct {
	items map[string]struct{}
}

// NewSet creates a set holding the given names.
func NewSet(names ...string) Set {
	s := Set{items: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add adds a name to the set. Empty names are ignored.
func (s *Set) Add(name string) {
	if name == "" {
		return
	}
	if s.items == nil {
		s.items = make(map[string]struct{})
	}
	s.items[name] = struct{}{}
}

// Has reports whether the set contains name.
func (s Set) Has(name string) bool {
	_, ok := s.items[name]
	return ok
}

// List returns the names as a sorted slice.
func (s Set) List() []string {
	result := make([]string, 0, len(s.items))
	for n := range s.items {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of names.
func (s Set) Len() int {
	return len(s.items)
}
