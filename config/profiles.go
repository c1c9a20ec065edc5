package config

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Profiles provides access to the profiles section of a [Store].
//
// Profile names are dotted paths through nested "profiles" maps, so
// "lpar1.zosmf" names the zosmf profile nested in lpar1. The properties of a
// nested profile include those of every parent, nearest parent winning.
type Profiles struct {
	store *Store
}

// Profiles returns the profile API of s. A nil store has no profiles.
func (s *Store) Profiles() Profiles { return Profiles{store: s} }

// Exists reports whether the profile name is defined.
func (p Profiles) Exists(name string) bool {
	_, ok := p.node(name)

	return ok
}

// Get returns the properties of the profile name merged with those of its
// parents. It returns nil if the profile does not exist.
func (p Profiles) Get(name string) map[string]any {
	if !p.Exists(name) {
		return nil
	}

	out := map[string]any{}

	for _, n := range p.chain(name) {
		props, _ := n["properties"].(map[string]any)
		maps.Copy(out, props)
	}

	return out
}

// Type returns the type of the profile name. A profile without an explicit
// type takes the last segment of its name.
func (p Profiles) Type(name string) string {
	n, ok := p.node(name)
	if !ok {
		return ""
	}

	if t, ok := n["type"].(string); ok && t != "" {
		return t
	}

	return name[strings.LastIndexByte(name, '.')+1:]
}

// Defaults returns the default profile name of each type.
func (p Profiles) Defaults() map[string]string {
	out := map[string]string{}

	if p.store == nil {
		return out
	}

	defs, _ := p.store.merged["defaults"].(map[string]any)
	for typ, v := range defs {
		if name, ok := v.(string); ok {
			out[typ] = name
		}
	}

	return out
}

// DefaultName returns the default profile name of typ.
func (p Profiles) DefaultName(typ string) (string, bool) {
	name, ok := p.Defaults()[typ]

	return name, ok && name != ""
}

// DefaultGet returns the properties of the default profile of typ, or nil.
func (p Profiles) DefaultGet(typ string) map[string]any {
	name, ok := p.DefaultName(typ)
	if !ok {
		return nil
	}

	return p.Get(name)
}

// Names returns the dotted names of every profile, sorted.
func (p Profiles) Names() []string {
	if p.store == nil {
		return nil
	}

	var out []string

	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			n, ok := v.(map[string]any)
			if !ok {
				continue
			}

			out = append(out, prefix+k)

			if sub, ok := n["profiles"].(map[string]any); ok {
				walk(prefix+k+".", sub)
			}
		}
	}

	top, _ := p.store.merged["profiles"].(map[string]any)
	walk("", top)
	slices.Sort(out)

	return out
}

// SecurePropsForProfile returns the names listed in the "secure" arrays of
// the profile name and its parents.
func (s *Store) SecurePropsForProfile(name string) []string {
	p := s.Profiles()
	if !p.Exists(name) {
		return nil
	}

	var out []string

	for _, n := range p.chain(name) {
		list, _ := n["secure"].([]any)
		for _, v := range list {
			if prop, ok := v.(string); ok && !slices.Contains(out, prop) {
				out = append(out, prop)
			}
		}
	}

	return out
}

// SecureValues returns the literal values of every secure property of every
// profile, for masking in arbitrary output.
func (s *Store) SecureValues() []string {
	var out []string

	p := s.Profiles()

	for _, name := range p.Names() {
		props := p.Get(name)

		for _, prop := range s.SecurePropsForProfile(name) {
			if v, ok := props[prop]; ok && v != nil {
				text, ok := kongValue(v).(string)
				if ok && text != "" && !slices.Contains(out, text) {
					out = append(out, text)
				}
			}
		}
	}

	return out
}

// node returns the map of the profile name.
func (p Profiles) node(name string) (map[string]any, bool) {
	chain := p.chain(name)
	if len(chain) == 0 {
		return nil, false
	}

	return chain[len(chain)-1], true
}

// chain returns the maps of every profile along the dotted path name,
// outermost first. It is empty if any segment is missing.
func (p Profiles) chain(name string) []map[string]any {
	if p.store == nil || name == "" {
		return nil
	}

	cur, _ := p.store.merged["profiles"].(map[string]any)

	var out []map[string]any

	for _, seg := range strings.Split(name, ".") {
		n, ok := cur[seg].(map[string]any)
		if !ok {
			return nil
		}

		out = append(out, n)
		cur, _ = n["profiles"].(map[string]any)
	}

	return out
}

func kongValue(v any) any {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return v
	}
}
