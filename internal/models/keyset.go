package models

import (
	"encoding/json"
	"slices"
)

// KeySet is a set of [SongKey] values. It encodes to JSON as a sorted array.
//
// Methods that change membership return a new set and leave the receiver untouched.
type KeySet map[SongKey]struct{}

// NewKeySet builds a set from keys, dropping invalid ones.
func NewKeySet(keys ...SongKey) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		if k.Valid() {
			s[k] = struct{}{}
		}
	}
	return s
}

func (s KeySet) Has(k SongKey) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Len() int { return len(s) }

func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// With returns a copy of s with keys added.
func (s KeySet) With(keys ...SongKey) KeySet {
	out := s.Clone()
	for _, k := range keys {
		if k.Valid() {
			out[k] = struct{}{}
		}
	}
	return out
}

// Without returns a copy of s with keys removed.
func (s KeySet) Without(keys ...SongKey) KeySet {
	out := s.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Sorted returns the members in ascending order.
func (s KeySet) Sorted() []SongKey {
	keys := make([]SongKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s KeySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *KeySet) UnmarshalJSON(data []byte) error {
	var keys []SongKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = NewKeySet(keys...)
	return nil
}
