package handler

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/pkg"
)

// ErrChainMapping is returned when the arguments of a chained handler cannot
// be built.
var ErrChainMapping = pkg.MakeErrorf("chained handler mapping failed")

// DefaultApplyTo is the relative offset of a mapping that names no handlers.
var DefaultApplyTo = []int{1}

// programs caches compiled source paths.
var programs sync.Map // string -> *vm.Program

// ChainArguments returns the arguments of handler index of chain.
//
// Mappings are declared on the handler that produces the value. Their
// ApplyToHandlers offsets are relative to that handler, so 0 targets the
// declaring handler itself and 1 the next. A mapping takes a fixed Value,
// reads From out of base when MapFromArguments is set, and otherwise
// evaluates From against the data returned by the declaring handler.
// priorData holds the data of every handler before index.
//
// root names the command in errors.
func ChainArguments(
	root string,
	chain []definition.ChainedHandler,
	index int,
	priorData []any,
	base args.Set,
) (args.Set, error) {
	if index < 0 || index >= len(chain) {
		return args.Set{}, ErrChainMapping.Wrapf(
			"%s: handler index %d out of range [0, %d)", root, index, len(chain))
	}

	if len(priorData) < index {
		return args.Set{}, ErrChainMapping.Wrapf(
			"%s: handler %d needs the responses of %d prior handlers, got %d",
			root, index, index, len(priorData))
	}

	out := base
	baseValues := base.Map()

	for i := 0; i <= index; i++ {
		for _, m := range chain[i].Mapping {
			applyTo := m.ApplyToHandlers
			if len(applyTo) == 0 {
				applyTo = DefaultApplyTo
			}

			if !slices.Contains(applyTo, index-i) {
				continue
			}

			var (
				v   any
				ok  bool
				err error
			)

			switch {
			case m.Value != nil:
				v, ok = m.Value, true

			case m.MapFromArguments:
				v, ok, err = lookup(m.From, baseValues)

			case i == index:
				return args.Set{}, ErrChainMapping.Wrapf(
					"%s: mapping from %q to %q targets its own handler %d (%s); "+
						"only a value or mapFromArguments can",
					root, m.From, m.To, i, chain[i].Handler)

			default:
				v, ok, err = lookup(m.From, priorData[i])
			}

			if err != nil {
				return args.Set{}, ErrChainMapping.Wrapf(
					"%s: mapping from %q to %q", root, m.From, m.To).Wrap(err)
			}

			if !ok {
				if m.Optional {
					continue
				}

				source := "the response of handler " + chain[i].Handler
				if m.MapFromArguments {
					source = "the arguments"
				}

				return args.Set{}, ErrChainMapping.Wrapf(
					"%s: mapping from %q to %q: no value at %q in %s",
					root, m.From, m.To, m.From, source)
			}

			out = out.Set(m.To, nil, v)
		}
	}

	return out, nil
}

// lookup resolves path against data. A key of data named exactly path wins,
// then path is walked as dot- and bracket-separated literal segments, so
// hyphenated keys like "return-code" resolve. Anything else is evaluated as an
// expression. A path that does not resolve is reported as not ok; an
// expression that does not compile is an error.
func lookup(path string, data any) (any, bool, error) {
	if !isEnv(data) {
		return nil, false, nil
	}

	if v, ok := walk(path, data); ok {
		return v, true, nil
	}

	program, err := compile(path)
	if err != nil {
		if _, ok := segments(path); ok {
			return nil, false, nil
		}

		return nil, false, err
	}

	v, err := expr.Run(program, data)
	if err != nil || v == nil {
		return nil, false, nil //nolint:nilerr // an unresolved path is undefined
	}

	return v, true, nil
}

// walk follows path through nested maps and slices of data.
func walk(path string, data any) (any, bool) {
	if v, ok := index(data, path); ok {
		return v, v != nil
	}

	keys, ok := segments(path)
	if !ok {
		return nil, false
	}

	v := data
	for _, key := range keys {
		if v, ok = index(v, key); !ok {
			return nil, false
		}
	}

	return v, v != nil
}

// index returns the element of a string-keyed map or a slice named by key.
func index(data any, key string) (any, bool) {
	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}

		e := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !e.IsValid() {
			return nil, false
		}

		return e.Interface(), true

	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}

		return rv.Index(i).Interface(), true

	default:
		return nil, false
	}
}

// segments splits a path like `a.b-c[0]["d.e"]` into its literal keys. It
// reports false for anything that is not a plain path.
func segments(path string) ([]string, bool) {
	var (
		keys []string
		cur  strings.Builder
	)

	flush := func() bool {
		if cur.Len() == 0 {
			return false
		}

		keys = append(keys, cur.String())
		cur.Reset()

		return true
	}

	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			if !flush() {
				return nil, false
			}

		case '[':
			if cur.Len() > 0 && !flush() {
				return nil, false
			}

			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, false
			}

			key := path[i+1 : i+end]
			if uq, err := strconv.Unquote(key); err == nil {
				key = uq
			} else if strings.HasPrefix(key, "'") && strings.HasSuffix(key, "'") && len(key) >= 2 {
				key = key[1 : len(key)-1]
			}

			if key == "" {
				return nil, false
			}

			keys = append(keys, key)
			i += end

			if i+1 < len(path) && path[i+1] == '.' {
				i++
			}

		case ' ', '(', ')', '+', '*', '/', '?', ':', '!', '=', '<', '>', '&', '|', ',', '"', '\'', '`':
			return nil, false

		default:
			cur.WriteByte(c)
		}
	}

	if cur.Len() > 0 {
		flush()
	}

	return keys, len(keys) > 0
}

func compile(path string) (*vm.Program, error) {
	if p, ok := programs.Load(path); ok {
		return p.(*vm.Program), nil
	}

	p, err := expr.Compile(path, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	programs.Store(path, p)

	return p, nil
}

// isEnv reports whether data can be the environment of an expression.
func isEnv(data any) bool {
	if data == nil {
		return false
	}

	t := reflect.TypeOf(data)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Kind() == reflect.Map || t.Kind() == reflect.Struct
}
