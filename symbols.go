package jsonsql

import "sort"

// SymbolTable is a named registry of grammar entries. Adding a name that is
// already registered replaces the previous entry, which is how dialects
// override the base grammar.
type SymbolTable[T any] struct {
	entries map[string]T
}

func NewSymbolTable[T any]() *SymbolTable[T] {
	return &SymbolTable[T]{entries: map[string]T{}}
}

func (s *SymbolTable[T]) Add(name string, value T) *SymbolTable[T] {
	s.entries[name] = value
	return s
}

// Get returns the entry registered under name and whether it was found.
func (s *SymbolTable[T]) Get(name string) (T, bool) {
	v, ok := s.entries[name]
	return v, ok
}

func (s *SymbolTable[T]) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

func (s *SymbolTable[T]) Remove(name string) {
	delete(s.entries, name)
}

// Names lists the registered names in sorted order.
func (s *SymbolTable[T]) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
