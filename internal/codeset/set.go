package codeset

import "homestay-promo/internal/model"

// mapSet implements Set using a map. Codes are stored normalised.
type mapSet struct {
	codes map[string]struct{}
}

// NewMapSet creates a new map-based set.
func NewMapSet(capacity int) *mapSet {
	return &mapSet{
		codes: make(map[string]struct{}, capacity),
	}
}

// FromCodes builds a set from an in-memory list.
func FromCodes(codes ...string) Set {
	s := NewMapSet(len(codes))
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Contains checks if a code exists in the set.
func (s *mapSet) Contains(code string) bool {
	_, exists := s.codes[model.NormaliseCode(code)]
	return exists
}

// Size returns the number of codes in the set.
func (s *mapSet) Size() int {
	return len(s.codes)
}

// Add adds a code to the set. Blank codes are ignored.
func (s *mapSet) Add(code string) {
	code = model.NormaliseCode(code)
	if code == "" {
		return
	}
	s.codes[code] = struct{}{}
}
