package definition

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/pkg"
)

var (
	// ErrUnexpectedArgument is returned by [Command.ParseArgs] for surplus
	// positional tokens.
	ErrUnexpectedArgument = pkg.MakeErrorf("unexpected argument")
	// ErrFlag is returned by [Command.ParseArgs] for an unknown or
	// malformed flag.
	ErrFlag = pkg.MakeErrorf("invalid flag")
)

// FlagSet returns a [pflag.FlagSet] declaring every option of c.
//
// The kebab name of each option is its flag name. A one-character alias is
// the shorthand; other aliases are extra flags sharing the same value.
// The returned bindings map every flag name to its option.
func (c *Command) FlagSet() (*pflag.FlagSet, map[string]Option) {
	fs := pflag.NewFlagSet(c.FullName(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	bound := map[string]Option{}

	for _, opt := range c.Options {
		val := newValue(opt.Type)

		var (
			short string
			long  []string
		)

		for _, a := range opt.Aliases {
			if len(a) == 1 && short == "" && a != "-" {
				short = a

				continue
			}

			long = append(long, args.Format(a).Kebab)
		}

		names := append([]string{args.Format(opt.Name).Kebab}, long...)

		for i, name := range names {
			if fs.Lookup(name) != nil {
				continue
			}

			sh := ""
			if i == 0 && fs.ShorthandLookup(short) == nil {
				sh = short
			}

			f := fs.VarPF(val, name, sh, opt.Description)
			f.NoOptDefVal = val.noOptDefault()

			if i > 0 {
				f.Hidden = true
			}

			bound[name] = opt
		}
	}

	return fs, bound
}

// Usage returns the flag usage text of c.
func (c *Command) Usage() string {
	fs, _ := c.FlagSet()

	return fs.FlagUsages()
}

// ParseArgs parses the command-line tokens that follow the path of c.
//
// Only flags present in tokens populate the returned set, under every
// spelling of their option. Positionals are assigned in declaration order;
// a variadic positional takes the rest. The set carries program as its
// program name and the path of c as its positionals.
func (c *Command) ParseArgs(program string, tokens []string) (args.Set, error) {
	fs, bound := c.FlagSet()

	if err := fs.Parse(expandArrays(tokens, bound)); err != nil {
		return args.Set{}, ErrFlag.Wrap(err)
	}

	out := args.Set{}.WithProgram(program).WithPositionals(c.Path())

	fs.Visit(func(f *pflag.Flag) {
		opt := bound[f.Name]
		out = out.Set(opt.Name, opt.Aliases, f.Value.(value).get())
	})

	rest := fs.Args()

	for _, p := range c.Positionals {
		if len(rest) == 0 {
			break
		}

		if p.Variadic() {
			out = out.Set(p.ArgName(), nil, rest)
			rest = nil

			break
		}

		out = out.Set(p.ArgName(), nil, convertScalar(p.Type, rest[0]))
		rest = rest[1:]
	}

	if len(rest) > 0 {
		return args.Set{}, ErrUnexpectedArgument.Wrapf("%q", rest)
	}

	return out, nil
}

// expandArrays rewrites "--name a b c" for array options into repeated
// "--name=a --name=b --name=c" so that an array flag consumes every token up
// to the next flag.
func expandArrays(tokens []string, bound map[string]Option) []string {
	out := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		out = append(out, tok)

		if tok == "--" {
			return append(out, tokens[i+1:]...)
		}

		name, ok := strings.CutPrefix(tok, "--")
		if !ok || strings.Contains(name, "=") {
			continue
		}

		if opt, ok := bound[name]; !ok || opt.Type != TypeArray {
			continue
		}

		out = out[:len(out)-1]

		for i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
			i++
			out = append(out, tok+"="+tokens[i])
		}
	}

	return out
}

func convertScalar(typ OptionType, raw string) any {
	switch typ {
	case TypeNumber:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}

		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}

	case TypeBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}

	return raw
}

// value is a [pflag.Value] that also reports its parsed Go value.
type value interface {
	pflag.Value
	get() any
	noOptDefault() string
}

func newValue(typ OptionType) value {
	switch typ {
	case TypeBoolean:
		return &boolValue{}
	case TypeNumber:
		return &scalarValue{typ: typ}
	case TypeArray:
		return &arrayValue{}
	case TypeCount:
		return &countValue{}
	case TypeJSON:
		return &jsonValue{}
	default:
		return &scalarValue{typ: typ}
	}
}

type scalarValue struct {
	typ OptionType
	raw string
	v   any
}

func (s *scalarValue) String() string { return s.raw }
func (s *scalarValue) Type() string   { return string(s.typ) }
func (s *scalarValue) get() any       { return s.v }

func (s *scalarValue) noOptDefault() string {
	if s.typ == TypeStringOrEmpty {
		return " "
	}

	return ""
}

func (s *scalarValue) Set(raw string) error {
	if s.typ == TypeStringOrEmpty && raw == " " {
		raw = ""
	}

	s.raw, s.v = raw, convertScalar(s.typ, raw)

	return nil
}

type boolValue struct{ v bool }

func (b *boolValue) String() string       { return strconv.FormatBool(b.v) }
func (b *boolValue) Type() string         { return string(TypeBoolean) }
func (b *boolValue) get() any             { return b.v }
func (b *boolValue) noOptDefault() string { return "true" }

func (b *boolValue) Set(raw string) error {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return err
	}

	b.v = v

	return nil
}

type arrayValue struct{ v []string }

func (a *arrayValue) String() string       { return strings.Join(a.v, " ") }
func (a *arrayValue) Type() string         { return string(TypeArray) }
func (a *arrayValue) get() any             { return a.v }
func (a *arrayValue) noOptDefault() string { return "" }

func (a *arrayValue) Set(raw string) error {
	a.v = append(a.v, raw)

	return nil
}

type countValue struct{ v int64 }

func (c *countValue) String() string       { return strconv.FormatInt(c.v, 10) }
func (c *countValue) Type() string         { return string(TypeCount) }
func (c *countValue) get() any             { return c.v }
func (c *countValue) noOptDefault() string { return "+1" }

func (c *countValue) Set(raw string) error {
	if raw == "+1" {
		c.v++

		return nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}

	c.v = n

	return nil
}

type jsonValue struct {
	raw string
	v   any
}

func (j *jsonValue) String() string       { return j.raw }
func (j *jsonValue) Type() string         { return string(TypeJSON) }
func (j *jsonValue) get() any             { return j.v }
func (j *jsonValue) noOptDefault() string { return "" }

func (j *jsonValue) Set(raw string) error {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return err
	}

	j.raw, j.v = raw, v

	return nil
}
