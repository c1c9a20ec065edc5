package args

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ardnew/cmdproc/pkg"
)

// ErrRequiredProfile is returned by [FromProfiles] when a required profile
// type has no loaded profile.
var ErrRequiredProfile = pkg.MakeErrorf("required profile not loaded")

// Option describes one declared option or positional as far as argument
// resolution is concerned.
type Option struct {
	Name    string
	Aliases []string
	Type    string
	Default any
}

// Option types with conversions applied to environment values.
const (
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeArray   = "array"
)

// EnvName returns the environment variable read for option name:
// prefix, an underscore, and the kebab form of name in upper case with each
// "-" replaced by "_".
func EnvName(prefix, name string) string {
	return prefix + "_" +
		strings.ReplaceAll(strings.ToUpper(Format(name).Kebab), "-", "_")
}

// FromEnv returns a Set with the value of every option that has a matching
// environment variable, converted according to the option's type.
// If lookup is nil, no variables are read.
func FromEnv(
	prefix string,
	options []Option,
	lookup func(string) (string, bool),
) Set {
	var s Set

	if lookup == nil {
		return s
	}

	for _, opt := range options {
		raw, ok := lookup(EnvName(prefix, opt.Name))
		if !ok {
			continue
		}

		s = s.Set(opt.Name, opt.Aliases, convertEnv(opt.Type, raw))
	}

	return s
}

func convertEnv(typ, raw string) any {
	switch typ {
	case TypeBoolean:
		switch strings.ToUpper(raw) {
		case "TRUE":
			return true
		case "FALSE":
			return false
		}

	case TypeNumber:
		if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			return n
		}

		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return f
		}

	case TypeArray:
		return ParseEnvArray(raw)
	}

	return raw
}

var quotedEnvItem = regexp.MustCompile(`"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`)

// ParseEnvArray splits an environment value into array items.
// Quoted substrings are extracted first, without their quotes, and the
// remainder is split on whitespace.
func ParseEnvArray(raw string) []string {
	var out []string

	rest := quotedEnvItem.ReplaceAllStringFunc(raw, func(m string) string {
		item := m[1 : len(m)-1]
		item = strings.ReplaceAll(item, `\`+m[:1], m[:1])
		out = append(out, item)

		return " "
	})

	return append(out, strings.Fields(rest)...)
}

// ProfileSource gives [FromProfiles] access to the profiles loaded for a
// command, in the order they are consulted.
type ProfileSource struct {
	Required []string
	Optional []string
	// Lookup returns the properties of the loaded profile of the given type.
	Lookup func(typ string) (map[string]any, bool)
}

// FromProfiles returns a Set with a value for every option that matches a
// property of a loaded profile.
//
// Required types are consulted before optional types. An option matches a
// property named exactly like the option, or like its first alias present in
// the profile. When a profile carries both the kebab and camel spelling, the
// one spelled like the option wins. Names already present in existing, or set
// by an earlier profile, are skipped.
func FromProfiles(src ProfileSource, options []Option, existing Set) (Set, error) {
	var s Set

	required := make(map[string]bool, len(src.Required))
	for _, typ := range src.Required {
		required[typ] = true
	}

	order := append(append([]string{}, src.Required...), src.Optional...)

	for _, typ := range order {
		var (
			props map[string]any
			ok    bool
		)

		if src.Lookup != nil {
			props, ok = src.Lookup(typ)
		}

		if !ok || props == nil {
			if required[typ] {
				return Set{}, ErrRequiredProfile.Wrapf("type %q", typ)
			}

			continue
		}

		for _, opt := range options {
			f := Format(opt.Name)

			if props[opt.Name] == nil {
				for _, alias := range opt.Aliases {
					if props[alias] != nil {
						f = Format(alias)

						break
					}
				}
			}

			kebab, camel := props[f.Kebab], props[f.Camel]
			hasKebab, hasCamel := kebab != nil, camel != nil

			if !hasKebab && !hasCamel {
				continue
			}

			if s.hasKey(f.Kebab) || s.hasKey(f.Camel) ||
				existing.Has(f.Kebab) || existing.Has(f.Camel) {
				continue
			}

			value := camel
			switch {
			case hasKebab && hasCamel:
				if opt.Name == f.Kebab {
					value = kebab
				}
			case hasKebab:
				value = kebab
			}

			s = s.Set(opt.Name, opt.Aliases, value)
		}
	}

	return s, nil
}

// Defaults returns current with the default value of every option that has no
// value in current. If disabled is true, current is returned unchanged.
func Defaults(options []Option, current Set, disabled bool) Set {
	if disabled {
		return current
	}

	for _, opt := range options {
		if opt.Default == nil {
			continue
		}

		f := Format(opt.Name)
		if current.Has(f.Camel) || current.Has(f.Kebab) {
			continue
		}

		current = current.Set(opt.Name, opt.Aliases, opt.Default)
	}

	return current
}
