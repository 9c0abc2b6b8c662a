package subject

import (
	"fmt"
	"sort"
	"strings"

	"voxelprep/pkg/volume"
)

// Conventional channel keys consumed by spatial transforms and samplers.
const (
	ImageKey   = "image"
	LabelKey   = "label"
	SamplerKey = "sampler"
)

// Subject is an ordered mapping from channel name to value. Values are usually
// Images or *volume.Array, but bookkeeping values written by transforms (such as
// a flip decision) may be anything. Iteration follows insertion order.
//
// A Subject is not safe for concurrent mutation.
type Subject struct {
	keys   []string
	values map[string]interface{}
}

// New creates an empty Subject.
func New() *Subject {
	return &Subject{values: make(map[string]interface{})}
}

// FromMap creates a Subject from m. Keys are inserted in sorted order since map
// iteration order is random.
func FromMap(m map[string]interface{}) *Subject {
	s := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, m[k])
	}
	return s
}

// Len returns the number of channels.
func (s *Subject) Len() int { return len(s.keys) }

// Has reports whether key is present.
func (s *Subject) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Get returns the value stored under key.
func (s *Subject) Get(key string) (interface{}, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores v under key. Replacing an existing key keeps its position.
func (s *Subject) Set(key string, v interface{}) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Delete removes key if present.
func (s *Subject) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the channel names in insertion order.
func (s *Subject) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Image returns the Image stored under key. ok is false if the key is missing
// or holds something else.
func (s *Subject) Image(key string) (Image, bool) {
	v, ok := s.values[key]
	if !ok {
		return Image{}, false
	}
	switch im := v.(type) {
	case Image:
		return im, true
	case *Image:
		if im == nil {
			return Image{}, false
		}
		return *im, true
	}
	return Image{}, false
}

// Array returns the array stored under key, either directly or inside an Image.
func (s *Subject) Array(key string) (*volume.Array, bool) {
	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	switch a := v.(type) {
	case *volume.Array:
		return a, a != nil
	case Image:
		return a.Data, a.Data != nil
	case *Image:
		if a == nil || a.Data == nil {
			return nil, false
		}
		return a.Data, true
	}
	return nil, false
}

// ToMap returns a plain map holding the same values.
func (s *Subject) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

func (s *Subject) String() string {
	return fmt.Sprintf("Subject(Keys: (%s))", strings.Join(s.keys, ", "))
}
