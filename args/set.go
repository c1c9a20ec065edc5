package args

import (
	"iter"
	"maps"
	"slices"

	"github.com/tidwall/btree"
)

// Reserved keys used by [Set.Map] for the program name and the positional
// arguments.
const (
	ProgramKey     = "$0"
	PositionalsKey = "_"
)

// Set is an immutable mapping from option name to resolved value.
//
// Values are strings, booleans, numbers, string slices, or nil. The zero
// value is an empty set with no program name and no positionals.
type Set struct {
	values      *btree.Map[string, any]
	program     string
	positionals []string
}

// New returns a Set holding a copy of values.
func New(values map[string]any) Set {
	var s Set

	return s.edit(func(m *btree.Map[string, any]) {
		for _, k := range slices.Sorted(maps.Keys(values)) {
			m.Set(k, values[k])
		}
	})
}

// Len returns the number of option names in s.
func (s Set) Len() int {
	if s.values == nil {
		return 0
	}

	return s.values.Len()
}

// Get returns the value stored under name.
func (s Set) Get(name string) (any, bool) {
	if s.values == nil {
		return nil, false
	}

	return s.values.Get(name)
}

// Has reports whether name holds a non-nil value.
func (s Set) Has(name string) bool {
	v, ok := s.Get(name)

	return ok && v != nil
}

// GetString returns the value of name if it is a string.
func (s Set) GetString(name string) string {
	v, _ := s.Get(name)
	str, _ := v.(string)

	return str
}

// GetBool returns the value of name if it is a boolean.
func (s Set) GetBool(name string) bool {
	v, _ := s.Get(name)
	b, _ := v.(bool)

	return b
}

// With returns a copy of s with name set to v.
func (s Set) With(name string, v any) Set {
	return s.with(name, v)
}

// WithValues returns a copy of s with every entry of o set on it.
// Entries of o replace those of s, including nil values.
func (s Set) WithValues(o Set) Set {
	if o.Len() == 0 {
		return s
	}

	return s.edit(func(m *btree.Map[string, any]) {
		for k, v := range o.All() {
			m.Set(k, v)
		}
	})
}

// Without returns a copy of s without name.
func (s Set) Without(name string) Set {
	if !s.hasKey(name) {
		return s
	}

	s.values = s.values.Copy()
	s.values.Delete(name)

	return s
}

// Keys returns the option names of s in sorted order.
func (s Set) Keys() []string {
	if s.values == nil {
		return nil
	}

	return s.values.Keys()
}

// All returns an iterator over the option names and values of s in sorted
// order of name.
func (s Set) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if s.values == nil {
			return
		}

		s.values.Scan(yield)
	}
}

// Program returns the program name of the original parse.
func (s Set) Program() string { return s.program }

// Positionals returns a copy of the positional arguments of the original
// parse.
func (s Set) Positionals() []string { return slices.Clone(s.positionals) }

// WithProgram returns a copy of s with the given program name.
func (s Set) WithProgram(name string) Set {
	s.program = name

	return s
}

// WithPositionals returns a copy of s with the given positional arguments.
// A nil slice marks the positionals as unset.
func (s Set) WithPositionals(p []string) Set {
	s.positionals = slices.Clone(p)
	if p != nil && s.positionals == nil {
		s.positionals = []string{}
	}

	return s
}

// Map returns the contents of s as a new map, including [ProgramKey] and
// [PositionalsKey] when they are set.
func (s Set) Map() map[string]any {
	m := make(map[string]any, s.Len()+2)

	for k, v := range s.All() {
		m[k] = v
	}

	if s.program != "" {
		m[ProgramKey] = s.program
	}

	if s.positionals != nil {
		m[PositionalsKey] = slices.Clone(s.positionals)
	}

	return m
}

func (s Set) hasKey(name string) bool {
	_, ok := s.Get(name)

	return ok
}

func (s Set) with(name string, v any) Set {
	return s.edit(func(m *btree.Map[string, any]) { m.Set(name, v) })
}

// edit applies fn to a private copy of the values of s and returns the
// resulting Set. The btree copy is lazy, so only modified nodes are cloned.
func (s Set) edit(fn func(*btree.Map[string, any])) Set {
	if s.values == nil {
		s.values = btree.NewMap[string, any](0)
	} else {
		s.values = s.values.Copy()
	}

	fn(s.values)

	return s
}
