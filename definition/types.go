package definition

import (
	"slices"
	"strings"

	"github.com/ardnew/cmdproc/args"
)

// Kind identifies a node of the command tree.
type Kind string

const (
	KindGroup   Kind = "group"
	KindCommand Kind = "command"
)

// OptionType identifies how an option value is parsed and validated.
type OptionType string

const (
	TypeString            OptionType = "string"
	TypeBoolean           OptionType = "boolean"
	TypeNumber            OptionType = "number"
	TypeArray             OptionType = "array"
	TypeExistingLocalFile OptionType = "existingLocalFile"
	TypeJSON              OptionType = "json"
	TypeCount             OptionType = "count"
	TypeStringOrEmpty     OptionType = "stringOrEmpty"
)

// Command is one node of the command tree.
type Command struct {
	Name            string              `yaml:"name"                      json:"name"`
	Aliases         []string            `yaml:"aliases,omitempty"         json:"aliases,omitempty"`
	Type            Kind                `yaml:"type"                      json:"type"`
	Summary         string              `yaml:"summary,omitempty"         json:"summary,omitempty"`
	Description     string              `yaml:"description,omitempty"     json:"description,omitempty"`
	Handler         string              `yaml:"handler,omitempty"         json:"handler,omitempty"`
	ChainedHandlers []ChainedHandler    `yaml:"chainedHandlers,omitempty" json:"chainedHandlers,omitempty"`
	Options         []Option            `yaml:"options,omitempty"         json:"options,omitempty"`
	Positionals     []Positional        `yaml:"positionals,omitempty"     json:"positionals,omitempty"`
	Profile         *ProfileDeclaration `yaml:"profile,omitempty"         json:"profile,omitempty"`
	Examples        []Example           `yaml:"examples,omitempty"        json:"examples,omitempty"`
	Children        []*Command          `yaml:"children,omitempty"        json:"children,omitempty"`

	path []string
}

// Option declares a named command-line option.
type Option struct {
	Name              string           `yaml:"name"                        json:"name"`
	Aliases           []string         `yaml:"aliases,omitempty"           json:"aliases,omitempty"`
	Description       string           `yaml:"description,omitempty"       json:"description,omitempty"`
	Type              OptionType       `yaml:"type"                        json:"type"`
	Required          bool             `yaml:"required,omitempty"          json:"required,omitempty"`
	DefaultValue      any              `yaml:"defaultValue,omitempty"      json:"defaultValue,omitempty"`
	AllowableValues   *AllowableValues `yaml:"allowableValues,omitempty"   json:"allowableValues,omitempty"`
	Conflicts         []string         `yaml:"conflictsWith,omitempty"     json:"conflictsWith,omitempty"`
	Implies           []string         `yaml:"implies,omitempty"           json:"implies,omitempty"`
	NumericRange      []float64        `yaml:"numericValueRange,omitempty" json:"numericValueRange,omitempty"`
	StringLengthRange []int            `yaml:"stringLengthRange,omitempty" json:"stringLengthRange,omitempty"`
	Secure            bool             `yaml:"secure,omitempty"            json:"secure,omitempty"`
}

// AllowableValues restricts an option to a fixed list of values.
type AllowableValues struct {
	Values        []string `yaml:"values"                  json:"values"`
	CaseSensitive bool     `yaml:"caseSensitive,omitempty" json:"caseSensitive,omitempty"`
}

// Positional declares a positional argument. A name ending in "..." takes
// every remaining token.
type Positional struct {
	Name        string     `yaml:"name"                  json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Type        OptionType `yaml:"type"                  json:"type"`
	Required    bool       `yaml:"required,omitempty"    json:"required,omitempty"`
	Regex       string     `yaml:"regex,omitempty"       json:"regex,omitempty"`
}

// ProfileDeclaration lists the profile types a command loads.
type ProfileDeclaration struct {
	Required        []string `yaml:"required,omitempty"        json:"required,omitempty"`
	Optional        []string `yaml:"optional,omitempty"        json:"optional,omitempty"`
	SuppressOptions []string `yaml:"suppressOptions,omitempty" json:"suppressOptions,omitempty"`
}

// ChainedHandler is one step of a handler chain.
type ChainedHandler struct {
	Handler string    `yaml:"handler"           json:"handler"`
	Silent  bool      `yaml:"silent,omitempty"  json:"silent,omitempty"`
	Mapping []Mapping `yaml:"mapping,omitempty" json:"mapping,omitempty"`
}

// Mapping projects a value into the arguments of later handlers in a chain.
//
// ApplyToHandlers holds offsets relative to the handler declaring the
// mapping; an empty list means the next handler.
type Mapping struct {
	From             string `yaml:"from,omitempty"             json:"from,omitempty"`
	Value            any    `yaml:"value,omitempty"            json:"value,omitempty"`
	To               string `yaml:"to"                         json:"to"`
	MapFromArguments bool   `yaml:"mapFromArguments,omitempty" json:"mapFromArguments,omitempty"`
	ApplyToHandlers  []int  `yaml:"applyToHandlers,omitempty"  json:"applyToHandlers,omitempty"`
	Optional         bool   `yaml:"optional,omitempty"         json:"optional,omitempty"`
}

// Example is a sample invocation shown in help and syntax errors.
type Example struct {
	Description string `yaml:"description"      json:"description"`
	Options     string `yaml:"options"          json:"options"`
	Prefix      string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

// Path returns the names from the root (exclusive) to c.
func (c *Command) Path() []string { return slices.Clone(c.path) }

// FullName returns the space-joined path of c.
func (c *Command) FullName() string { return strings.Join(c.path, " ") }

// IsGroup reports whether c is a group node.
func (c *Command) IsGroup() bool { return c.Type == KindGroup }

// Chained reports whether c runs a chain of handlers.
func (c *Command) Chained() bool { return len(c.ChainedHandlers) > 0 }

// Child returns the child named or aliased token.
func (c *Command) Child(token string) *Command {
	for _, ch := range c.Children {
		if ch.Name == token || slices.Contains(ch.Aliases, token) {
			return ch
		}
	}

	return nil
}

// Option returns the option named name in any spelling, or one of its
// aliases.
func (c *Command) Option(name string) (Option, bool) {
	for _, opt := range c.Options {
		if slices.Contains(args.Names(opt.Name, opt.Aliases...), name) {
			return opt, true
		}
	}

	return Option{}, false
}

// ArgOptions returns the options and positionals of c as seen by argument
// resolution.
func (c *Command) ArgOptions() []args.Option {
	out := make([]args.Option, 0, len(c.Options)+len(c.Positionals))

	for _, opt := range c.Options {
		out = append(out, args.Option{
			Name:    opt.Name,
			Aliases: opt.Aliases,
			Type:    string(opt.Type),
			Default: opt.DefaultValue,
		})
	}

	for _, pos := range c.Positionals {
		out = append(out, args.Option{
			Name: pos.ArgName(),
			Type: string(pos.Type),
		})
	}

	return out
}

// ArgName returns the name of p without a variadic "..." suffix.
func (p Positional) ArgName() string {
	return strings.TrimSuffix(p.Name, "...")
}

// Variadic reports whether p takes every remaining token.
func (p Positional) Variadic() bool {
	return strings.HasSuffix(p.Name, "...")
}

// ProfileTypes returns the required then optional profile types of c.
func (c *Command) ProfileTypes() []string {
	if c.Profile == nil {
		return nil
	}

	return append(slices.Clone(c.Profile.Required), c.Profile.Optional...)
}

// Secure reports whether the option named name is declared secure.
func (c *Command) Secure(name string) bool {
	opt, ok := c.Option(name)

	return ok && opt.Secure
}
