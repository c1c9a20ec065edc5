package validate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/pkg"
	"github.com/ardnew/cmdproc/response"
)

// ErrSchema is returned when the declarations of a command do not compile
// to a valid schema, such as an allowable value that is not a valid regular
// expression.
var ErrSchema = pkg.MakeErrorf("invalid syntax schema")

// SyntaxErrorHeader precedes every issue written to the console.
const SyntaxErrorHeader = "Syntax Error"

// Issue is one syntax problem.
type Issue struct {
	Option  string `json:"optionInError"`
	Message string `json:"message"`
}

// Result is the outcome of a validation.
type Result struct {
	Valid  bool
	Issues []Issue
}

// Validator checks argument sets. The zero value is ready to use.
type Validator struct {
	// Stat checks existingLocalFile options. It defaults to [os.Stat].
	Stat func(name string) (fs.FileInfo, error)
}

// field is one declared option or positional, keyed by its argument name.
type field struct {
	key string
	opt *definition.Option
	pos *definition.Positional
}

func fieldsOf(cmd *definition.Command) []field {
	out := make([]field, 0, len(cmd.Options)+len(cmd.Positionals))

	for i := range cmd.Options {
		out = append(out, field{key: cmd.Options[i].Name, opt: &cmd.Options[i]})
	}

	for i := range cmd.Positionals {
		p := &cmd.Positionals[i]
		out = append(out, field{key: p.ArgName(), pos: p})
	}

	return out
}

func (f field) typ() definition.OptionType {
	if f.opt != nil {
		return f.opt.Type
	}

	return f.pos.Type
}

// Schema returns the JSON schema of the arguments of cmd.
func Schema(cmd *definition.Command) map[string]any {
	props := map[string]any{}
	required := []any{}

	for _, f := range fieldsOf(cmd) {
		prop := map[string]any{}

		switch f.typ() {
		case definition.TypeNumber, definition.TypeCount:
			prop["type"] = "number"
		case definition.TypeBoolean:
			prop["type"] = "boolean"
		case definition.TypeArray:
			prop["type"] = "array"
		case definition.TypeJSON:
		default:
			prop["type"] = "string"
		}

		if f.pos != nil {
			if f.pos.Required {
				required = append(required, f.key)
			}

			if f.pos.Regex != "" {
				constrain(prop, "pattern", f.pos.Regex, f.pos.Variadic())
			}

			if f.pos.Variadic() {
				prop["type"] = "array"
			}

			props[f.key] = prop

			continue
		}

		opt := f.opt
		if opt.Required {
			required = append(required, f.key)
		}

		if r := opt.NumericRange; len(r) == 2 {
			prop["minimum"], prop["maximum"] = r[0], r[1]
		}

		if r := opt.StringLengthRange; len(r) == 2 {
			prop["minLength"], prop["maxLength"] = r[0], r[1]
		}

		if av := opt.AllowableValues; av != nil && len(av.Values) > 0 {
			constrain(prop, "pattern", allowablePattern(av), opt.Type == definition.TypeArray)
		}

		props[f.key] = prop
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// constrain sets key on prop, or on its items when each is set.
func constrain(prop map[string]any, key string, v any, each bool) {
	if !each {
		prop[key] = v

		return
	}

	items, _ := prop["items"].(map[string]any)
	if items == nil {
		items = map[string]any{}
		prop["items"] = items
	}

	items[key] = v
}

func allowablePattern(av *definition.AllowableValues) string {
	p := "^(?:" + strings.Join(av.Values, "|") + ")$"
	if !av.CaseSensitive {
		p = "(?i)" + p
	}

	return p
}

// Validate checks a against the declarations of cmd. Every issue is written
// to the console of resp under a [SyntaxErrorHeader], and the list of
// issues becomes its data object. An error is returned only when the
// validation itself could not run.
func (v Validator) Validate(
	ctx context.Context,
	cmd *definition.Command,
	a args.Set,
	resp *response.Envelope,
) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	fields := fieldsOf(cmd)
	doc := document(fields, a)

	res, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(Schema(cmd)),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return Result{}, ErrSchema.Wrap(err)
	}

	byKey := map[string][]gojsonschema.ResultError{}

	for _, e := range res.Errors() {
		key := e.Field()
		if e.Type() == "required" {
			if p, ok := e.Details()["property"].(string); ok {
				key = p
			}
		}

		key, _, _ = strings.Cut(key, ".")
		byKey[key] = append(byKey[key], e)
	}

	r := report{resp: resp}

	for _, f := range fields {
		for _, e := range byKey[f.key] {
			r.add(f.key, f.message(e, doc[f.key]))
		}

		if f.typ() == definition.TypeExistingLocalFile && len(byKey[f.key]) == 0 {
			if path, ok := doc[f.key].(string); ok && path != "" {
				stat := v.Stat
				if stat == nil {
					stat = os.Stat
				}

				if _, err := stat(path); err != nil {
					r.add(f.key, fmt.Sprintf(
						"Invalid file path specified for option:\n%s\n\n"+
							"You specified:\n%q\n\nThe file does not exist",
						f.long(), path))
				}
			}
		}
	}

	relations(cmd, doc, &r)

	if len(r.issues) > 0 && resp != nil {
		resp.Data().SetObj(r.issues, false)
	}

	return Result{Valid: len(r.issues) == 0, Issues: r.issues}, nil
}

type report struct {
	resp   *response.Envelope
	issues []Issue
}

func (r *report) add(option, msg string) {
	if r.resp != nil {
		r.resp.Console().ErrorHeader(SyntaxErrorHeader)
		r.resp.Console().Error(msg)
	}

	r.issues = append(r.issues, Issue{Option: option, Message: msg})
}

// relations reports conflicting and implied options.
func relations(cmd *definition.Command, doc map[string]any, r *report) {
	present := func(name string) (definition.Option, bool) {
		opt, ok := cmd.Option(name)
		if !ok {
			return opt, false
		}

		v, set := doc[opt.Name]

		return opt, set && v != nil
	}

	reported := map[[2]string]bool{}

	for _, opt := range cmd.Options {
		if _, ok := present(opt.Name); !ok {
			continue
		}

		for _, name := range opt.Conflicts {
			other, ok := present(name)
			if !ok || reported[[2]string{other.Name, opt.Name}] {
				continue
			}

			reported[[2]string{opt.Name, other.Name}] = true

			msg := fmt.Sprintf(
				"The following options conflict (mutually exclusive):\n%s\n%s",
				dash(opt.Name), dash(other.Name))
			r.add(opt.Name, msg)
		}

		for _, name := range opt.Implies {
			if _, ok := present(name); ok {
				continue
			}

			target := name
			if other, ok := cmd.Option(name); ok {
				target = other.Name
			}

			r.add(opt.Name, fmt.Sprintf(
				"If you specify the following option:\n%s\n\nYou must also specify:\n%s",
				dash(opt.Name), dash(target)))
		}
	}
}

// document returns the declared arguments of a keyed by declaration name,
// with values coerced to the type the schema expects where the conversion is
// lossless.
func document(fields []field, a args.Set) map[string]any {
	doc := map[string]any{}

	for _, f := range fields {
		var names []string
		if f.opt != nil {
			names = args.Names(f.opt.Name, f.opt.Aliases...)
		} else {
			names = args.Names(f.key)
		}

		for _, name := range names {
			v, ok := a.Get(name)
			if ok && v != nil {
				doc[f.key] = coerce(f.typ(), v)

				break
			}
		}
	}

	return doc
}

func coerce(typ definition.OptionType, v any) any {
	switch typ {
	case definition.TypeNumber, definition.TypeCount:
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return n
			}
		}

	case definition.TypeBoolean:
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}

	case definition.TypeString, definition.TypeStringOrEmpty, definition.TypeExistingLocalFile:
		switch v.(type) {
		case string, []any, []string, map[string]any:
		default:
			return fmt.Sprint(v)
		}
	}

	return v
}

func dash(name string) string {
	if len(name) == 1 {
		return "-" + name
	}

	return "--" + name
}

// long returns the dash form of the field with its aliases.
func (f field) long() string {
	if f.pos != nil {
		return f.key
	}

	s := dash(f.opt.Name)
	if len(f.opt.Aliases) == 0 {
		return s
	}

	aliases := make([]string, len(f.opt.Aliases))
	for i, a := range f.opt.Aliases {
		aliases[i] = dash(a)
	}

	return s + " (" + strings.Join(aliases, ", ") + ")"
}

func (f field) description() string {
	if f.opt != nil {
		return f.opt.Description
	}

	return f.pos.Description
}

// message renders a schema error on f.
func (f field) message(e gojsonschema.ResultError, v any) string {
	switch e.Type() {
	case "required":
		if f.pos != nil {
			return fmt.Sprintf("Missing Positional Argument: %s\nArgument Description: %s",
				f.key, f.description())
		}

		return fmt.Sprintf("Missing Required Option:\n%s\n\nOption Description:\n%s",
			f.long(), f.description())

	case "invalid_type":
		switch f.typ() {
		case definition.TypeNumber, definition.TypeCount:
			return fmt.Sprintf("Invalid value specified for option:\n%s\n\n"+
				"You specified:\n%v\n\nThe value must be a number", f.long(), v)
		case definition.TypeBoolean:
			return fmt.Sprintf("Invalid value specified for option:\n%s\n\n"+
				"You specified:\n%v\n\nThe value must be a boolean (true or false).", f.long(), v)
		case definition.TypeArray:
			return fmt.Sprintf("The following option is of type 'array', "+
				"but an array was not specified:\n%s\n\nYou specified: %v", f.long(), v)
		}

	case "pattern":
		if f.pos != nil {
			return fmt.Sprintf("Invalid format specified for positional option:\n%s\n\n"+
				"You specified:\n%v\n\nOption must match the following regular expression:\n%s",
				f.key, e.Value(), f.pos.Regex)
		}

		return fmt.Sprintf("Invalid value specified for option:\n%s\n\n"+
			"You specified:\n%v\n\nThe value must match one of the following regular expressions:\n[%s].",
			f.long(), e.Value(), strings.Join(f.opt.AllowableValues.Values, ", "))

	case "number_gte", "number_lte":
		r := f.opt.NumericRange

		return fmt.Sprintf("Invalid numeric value specified for option:\n%s\n\n"+
			"You specified:\n%v\n\nValue must be between %v and %v (inclusive)",
			dash(f.opt.Name), v, r[0], r[1])

	case "string_gte", "string_lte":
		r := f.opt.StringLengthRange
		s := fmt.Sprint(v)

		return fmt.Sprintf("Invalid value length for option:\n%s\n\n"+
			"You specified a string of length %d:\n%s\n\nThe length must be between %d and %d (inclusive)",
			dash(f.opt.Name), len([]rune(s)), s, r[0], r[1])
	}

	return fmt.Sprintf("Invalid value specified for option:\n%s\n\n%s", f.long(), e.Description())
}
