package profiles

import (
	"maps"
	"slices"
)

// Dependency declares that profiles of a type may point to a profile of
// another type.
type Dependency struct {
	Type     string `yaml:"type"               json:"type"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// TypeConfiguration describes one profile type.
type TypeConfiguration struct {
	Type         string         `yaml:"type"                   json:"type"`
	Schema       map[string]any `yaml:"schema,omitempty"       json:"schema,omitempty"`
	Dependencies []Dependency   `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// DependencyRef names the profile a profile depends on.
type DependencyRef struct {
	Type string `yaml:"type" json:"type"`
	Name string `yaml:"name" json:"name"`
}

// Reserved keys of a [Profile] that are not properties.
const (
	KeyType         = "type"
	KeyName         = "name"
	KeyDependencies = "dependencies"
)

// Profile is the decoded content of a legacy profile file: its properties
// plus the meta fields type, name, and dependencies.
type Profile map[string]any

// Properties returns p without its meta fields.
func (p Profile) Properties() map[string]any {
	out := maps.Clone(map[string]any(p))
	if out == nil {
		out = map[string]any{}
	}

	delete(out, KeyType)
	delete(out, KeyName)
	delete(out, KeyDependencies)

	return out
}

// Dependencies returns the dependency references of p.
func (p Profile) Dependencies() []DependencyRef {
	list, _ := p[KeyDependencies].([]any)

	out := make([]DependencyRef, 0, len(list))

	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		typ, _ := m[KeyType].(string)
		name, _ := m[KeyName].(string)

		if typ != "" && name != "" {
			out = append(out, DependencyRef{Type: typ, Name: name})
		}
	}

	return out
}

// WithDependencies returns a copy of p depending on refs.
func (p Profile) WithDependencies(refs ...DependencyRef) Profile {
	out := maps.Clone(p)
	if out == nil {
		out = Profile{}
	}

	list := make([]any, 0, len(refs))
	for _, r := range refs {
		list = append(list, map[string]any{KeyType: r.Type, KeyName: r.Name})
	}

	out[KeyDependencies] = list

	return out
}

// Loaded is the result of loading one profile.
//
// A profile that was not found while FailNotFound was false has a nil
// Profile.
type Loaded struct {
	Type                    string         `yaml:"type"                              json:"type"`
	Name                    string         `yaml:"name,omitempty"                    json:"name,omitempty"`
	FailNotFound            bool           `yaml:"failNotFound"                      json:"failNotFound"`
	Profile                 map[string]any `yaml:"profile,omitempty"                 json:"profile,omitempty"`
	Message                 string         `yaml:"message,omitempty"                 json:"message,omitempty"`
	Location                string         `yaml:"location,omitempty"                json:"location,omitempty"`
	FromConfig              bool           `yaml:"fromConfig,omitempty"              json:"fromConfig,omitempty"`
	DependencyLoadResponses []Loaded       `yaml:"dependencyLoadResponses,omitempty" json:"dependencyLoadResponses,omitempty"`
	DependenciesLoaded      bool           `yaml:"dependenciesLoaded"                json:"dependenciesLoaded"`
}

// Found reports whether l holds a profile.
func (l Loaded) Found() bool { return l.Profile != nil }

// Flatten returns l followed by every dependency it loaded, depth first.
func (l Loaded) Flatten() []Loaded {
	out := []Loaded{l}
	for _, d := range l.DependencyLoadResponses {
		out = append(out, d.Flatten()...)
	}

	return slices.Clip(out)
}
