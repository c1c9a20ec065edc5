package args

import (
	"github.com/iancoleman/strcase"
	"github.com/tidwall/btree"
)

// OptionFormat holds the spellings of one option name.
type OptionFormat struct {
	Key   string
	Kebab string
	Camel string
}

// Format returns the kebab-case and camelCase spellings of name.
func Format(name string) OptionFormat {
	return OptionFormat{
		Key:   name,
		Kebab: strcase.ToKebab(name),
		Camel: strcase.ToLowerCamel(name),
	}
}

// Names returns every key under which the option name with the given aliases
// is stored: the camel and kebab forms of name, each single-character alias
// verbatim, and the camel and kebab forms of every longer alias. Duplicates
// are removed; order is stable.
func Names(name string, aliases ...string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, 2+2*len(aliases))

	add := func(keys ...string) {
		for _, k := range keys {
			if k != "" && !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}

	f := Format(name)
	add(f.Camel, f.Kebab)

	for _, a := range aliases {
		if len(a) == 1 {
			add(a)

			continue
		}

		f := Format(a)
		add(f.Camel, f.Kebab)
	}

	return out
}

// OptionValue returns a Set with value stored under every name of the option
// as reported by [Names].
func OptionValue(name string, aliases []string, value any) Set {
	var s Set

	return s.Set(name, aliases, value)
}

// Set returns a copy of s with value stored under every name of the option.
func (s Set) Set(name string, aliases []string, value any) Set {
	keys := Names(name, aliases...)

	return s.edit(func(m *btree.Map[string, any]) {
		for _, k := range keys {
			m.Set(k, value)
		}
	})
}
