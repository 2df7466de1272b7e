// Package dedupe tracks event ids already accepted during an import so that
// later rows reusing an id are dropped.
package dedupe

// Set remembers accepted ids for one import. It is not safe for concurrent
// use; each import owns its own Set.
type Set struct {
	seen map[string]struct{}
}

// New creates a Set sized for about sizeHint ids.
func New(sizeHint int) *Set {
	return &Set{seen: make(map[string]struct{}, max(sizeHint, 0))}
}

// SeenAndRecord reports whether id was already accepted and records it if not.
func (s *Set) SeenAndRecord(id string) bool {
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

// Len returns the number of accepted ids.
func (s *Set) Len() int { return len(s.seen) }
