package spec

import (
	"encoding/json"
	"fmt"
	"slices"
)

// OrderedSet keeps the first-seen order of its members so that
// anything derived from it is deterministic.
type OrderedSet[T comparable] struct {
	seen  map[T]struct{}
	items []T
}

// NewOrderedSet returns a set holding items in order.
func NewOrderedSet[T comparable](items ...T) *OrderedSet[T] {
	s := &OrderedSet[T]{seen: make(map[T]struct{})}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts v and reports whether it was new.
func (s *OrderedSet[T]) Add(v T) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Len returns the number of members.
func (s *OrderedSet[T]) Len() int { return len(s.items) }

// Items returns the members in insertion order.
func (s *OrderedSet[T]) Items() []T { return slices.Clone(s.items) }

// Setting is the value of one spec key: a single fixed value, or a
// list whose members are an axis of the cross product.
type Setting struct {
	Values []Value
	List   bool
}

// Fixed returns a single-valued Setting.
func Fixed(v Value) Setting {
	return Setting{Values: []Value{v}}
}

// OneOf returns a list Setting.
func OneOf(vs ...Value) Setting {
	return Setting{Values: vs, List: true}
}

// Collapse squeezes a set with one member into a Fixed setting and
// keeps any other set as a list in first-seen order.
func Collapse(s *OrderedSet[Value]) Setting {
	items := s.Items()
	if len(items) == 1 {
		return Fixed(items[0])
	}
	return OneOf(items...)
}

// MarshalJSON encodes a fixed setting as a scalar and a list
// setting as an array.
func (st Setting) MarshalJSON() ([]byte, error) {
	if st.List {
		if st.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(st.Values)
	}
	if len(st.Values) != 1 {
		return nil, fmt.Errorf(
			"%w: fixed setting with %d values",
			ErrInvalidSpec, len(st.Values),
		)
	}
	return json.Marshal(st.Values[0])
}

// MarshalYAML mirrors MarshalJSON.
func (st Setting) MarshalYAML() (any, error) {
	if st.List {
		if st.Values == nil {
			return []Value{}, nil
		}
		return st.Values, nil
	}
	if len(st.Values) != 1 {
		return nil, fmt.Errorf(
			"%w: fixed setting with %d values",
			ErrInvalidSpec, len(st.Values),
		)
	}
	return st.Values[0], nil
}
