package args

import (
	"github.com/tidwall/btree"
)

// Merge returns a new Set holding every name of lower and higher.
//
// For each name the value of higher wins when it is non-nil; otherwise the
// value of lower is kept. The program name and positionals are taken from
// higher when it carries them and from lower otherwise. Neither input is
// modified.
func Merge(lower, higher Set) Set {
	out := lower

	if higher.program != "" {
		out.program = higher.program
	}

	if higher.positionals != nil {
		out.positionals = higher.positionals
	}

	if higher.Len() == 0 {
		return out
	}

	return out.edit(func(m *btree.Map[string, any]) {
		for k, v := range higher.All() {
			if v == nil {
				if _, ok := m.Get(k); ok {
					continue
				}
			}

			m.Set(k, v)
		}
	})
}

// Chain merges sets from lowest to highest precedence.
func Chain(sets ...Set) Set {
	var out Set

	for _, s := range sets {
		out = Merge(out, s)
	}

	return out
}

// Base builds the Set of a raw parse, dropping every nil-valued name.
// The reserved keys [ProgramKey] and [PositionalsKey] are ignored in raw;
// program and positionals are given explicitly.
func Base(raw map[string]any, program string, positionals []string) Set {
	values := make(map[string]any, len(raw))

	for k, v := range raw {
		if v == nil || k == ProgramKey || k == PositionalsKey {
			continue
		}

		values[k] = v
	}

	return New(values).WithProgram(program).WithPositionals(positionals)
}

// Restore returns s with the program name and positionals of orig.
func Restore(s, orig Set) Set {
	s.program = orig.program
	s.positionals = orig.positionals

	return s
}
