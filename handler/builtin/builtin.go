// Package builtin provides handlers that ship with the command processor:
// echo, data, fail, and exec. They serve as diagnostics and as the leaves of
// handler chains.
package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/handler"
	"github.com/ardnew/cmdproc/pkg"
	"github.com/ardnew/cmdproc/response"
)

// Handler ids.
const (
	Echo = "builtin:echo"
	Data = "builtin:data"
	Fail = "builtin:fail"
	Exec = "builtin:exec"
)

// Option names read by the handlers.
const (
	OptMessage = "message"
	OptSet     = "set"
	OptKind    = "kind"
	OptCode    = "code"
	OptProgram = "program"
	OptArgs    = "args"
	OptDir     = "dir"
)

// ErrSet is returned for a --set item that is not key=value.
var ErrSet = pkg.MakeErrorf("invalid --set item, expected key=value")

// Options configures the built-in handlers.
type Options struct {
	// EnvPrefix prefixes the variables exported by exec.
	EnvPrefix string
	// Environ is the base environment of exec. It defaults to os.Environ.
	Environ func() []string
}

// Register adds every built-in handler to r.
func Register(r *handler.Registry, opts Options) {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = pkg.EnvPrefix()
	}

	if opts.Environ == nil {
		opts.Environ = os.Environ
	}

	r.Register(Echo, factory(handler.HandlerFunc(echo)))
	r.Register(Data, factory(handler.HandlerFunc(data)))
	r.Register(Fail, factory(handler.HandlerFunc(fail)))
	r.Register(Exec, factory(execHandler{opts}))
}

func factory(h handler.Handler) handler.Factory {
	return func() (handler.Handler, error) { return h, nil }
}

// declared returns the arguments of the declared options and positionals,
// keyed by declaration name.
func declared(p *handler.Params) map[string]any {
	out := map[string]any{}

	if p.Definition == nil {
		return out
	}

	for _, o := range p.Definition.ArgOptions() {
		for _, name := range args.Names(o.Name, o.Aliases...) {
			if v, ok := p.Arguments.Get(name); ok && v != nil {
				out[o.Name] = v

				break
			}
		}
	}

	return out
}

// echo prints --message, or else the declared arguments as YAML, and
// returns the declared arguments as data.
func echo(ctx context.Context, p *handler.Params) error {
	values := declared(p)

	if msg := p.Arguments.GetString(OptMessage); msg != "" {
		p.Response.Console().Log(msg)
	} else if len(values) > 0 {
		text, err := yaml.MarshalContext(ctx, values)
		if err != nil {
			return pkg.ErrYAMLMarshal.Wrap(err)
		}

		p.Response.Console().Log(strings.TrimRight(string(text), "\n"))
	}

	p.Response.Data().SetObj(values, false)
	p.Response.Data().SetMessage("echo")

	return nil
}

// data returns the object described by the --set items. A dotted key
// creates nested objects and every value is decoded as a YAML scalar.
func data(ctx context.Context, p *handler.Params) error {
	obj := map[string]any{}

	for _, item := range stringSlice(p.Arguments, OptSet) {
		key, raw, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return ErrSet.Wrapf("%q", item)
		}

		var v any
		if err := yaml.UnmarshalContext(ctx, []byte(raw), &v); err != nil || v == nil {
			v = raw
		}

		put(obj, strings.Split(key, "."), v)
	}

	p.Response.Data().SetObj(obj, true)

	if msg := p.Arguments.GetString(OptMessage); msg != "" {
		p.Response.Data().SetMessage(msg)
		p.Response.Console().Log(msg)
	}

	return nil
}

func put(obj map[string]any, path []string, v any) {
	for _, k := range path[:len(path)-1] {
		next, ok := obj[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			obj[k] = next
		}

		obj = next
	}

	obj[path[len(path)-1]] = v
}

// Failure kinds accepted by --kind.
const (
	KindStructured = "structured"
	KindException  = "exception"
	KindMessage    = "message"
	KindNone       = "none"
	KindOther      = "other"
	KindPanic      = "panic"
)

// fail rejects in the way selected by --kind.
func fail(_ context.Context, p *handler.Params) error {
	msg := p.Arguments.GetString(OptMessage)
	if msg == "" {
		msg = "failed on request"
	}

	switch kind := p.Arguments.GetString(OptKind); kind {
	case KindException:
		return errors.New(msg)
	case KindMessage:
		return handler.Reject(msg)
	case KindNone:
		return handler.Reject(nil)
	case KindOther:
		return handler.Reject(map[string]any{"reason": msg})
	case KindPanic:
		panic(msg)
	case KindStructured, "":
		return &response.Error{
			Msg:               msg,
			AdditionalDetails: p.Arguments.GetString("details"),
			ErrorCode:         p.Arguments.GetString(OptCode),
		}
	default:
		return &response.Error{Msg: fmt.Sprintf("unknown failure kind %q", kind)}
	}
}

// execHandler runs --program with --args, exporting every argument as an
// environment variable named <PREFIX>_ARG_<NAME>.
type execHandler struct{ opts Options }

func (h execHandler) Process(ctx context.Context, p *handler.Params) error {
	program := p.Arguments.GetString(OptProgram)
	if program == "" {
		return &response.Error{Msg: "no program specified", AdditionalDetails: "set --" + OptProgram}
	}

	cmd := exec.CommandContext(ctx, program, stringSlice(p.Arguments, OptArgs)...)
	cmd.Dir = p.Arguments.GetString(OptDir)
	cmd.Env = append(h.opts.Environ(), Environ(h.opts.EnvPrefix, p.Arguments)...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	err := cmd.Run()

	if s := strings.TrimRight(stdout.String(), "\n"); s != "" {
		p.Response.Console().Log(s)
	}

	if s := strings.TrimRight(stderr.String(), "\n"); s != "" {
		p.Response.Console().Error(s)
	}

	code := 0

	var exitErr *exec.ExitError

	switch {
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	case err != nil:
		return &response.Error{Msg: fmt.Sprintf("cannot run %q", program), AdditionalDetails: err.Error()}
	}

	p.Response.Data().SetObj(map[string]any{
		"program":  program,
		"exitCode": code,
		"stdout":   stdout.String(),
		"stderr":   stderr.String(),
	}, false)

	if code != 0 {
		p.Response.Data().SetExitCode(code)

		return &response.Error{
			Msg:       fmt.Sprintf("%s exited with status %d", program, code),
			ErrorCode: fmt.Sprint(code),
		}
	}

	return nil
}

// Environ returns the arguments of s as <prefix>_ARG_<NAME>=value, one per
// kebab-case key longer than one character. Arrays are joined with spaces.
func Environ(prefix string, s args.Set) []string {
	var out []string

	for k, v := range s.All() {
		if v == nil || len(k) < 2 || k != args.Format(k).Kebab {
			continue
		}

		var text string

		switch t := v.(type) {
		case []string:
			text = strings.Join(t, " ")
		case []any:
			parts := make([]string, len(t))
			for i, e := range t {
				parts[i] = fmt.Sprint(e)
			}

			text = strings.Join(parts, " ")
		default:
			text = fmt.Sprint(v)
		}

		out = append(out, args.EnvName(prefix+"_ARG", k)+"="+text)
	}

	slices.Sort(out)

	return out
}

func stringSlice(s args.Set, name string) []string {
	v, _ := s.Get(name)

	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}

		return out
	case string:
		if t == "" {
			return nil
		}

		return []string{t}
	default:
		return nil
	}
}
