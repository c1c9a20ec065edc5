package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/handler"
	"github.com/ardnew/cmdproc/handler/builtin"
	"github.com/ardnew/cmdproc/log"
	"github.com/ardnew/cmdproc/profiles"
	"github.com/ardnew/cmdproc/prompt"
	"github.com/ardnew/cmdproc/response"
	"github.com/ardnew/cmdproc/validate"
)

const tree = `
name: app
type: group
children:
  - name: banana
    type: command
    handler: test:record
    options:
      - name: color
        type: string
        secure: true
      - name: password
        type: string
      - name: shade
        aliases: [s]
        type: string
        defaultValue: green
      - name: tags
        type: array
      - name: stdin
        type: boolean
    positionals:
      - name: fruit
        description: The fruit to peel
        type: string
    examples:
      - description: Peel a yellow banana
        options: --color yellow
  - name: peel
    type: command
    handler: test:record
    profile:
      optional: [fruit]
    options:
      - name: shade
        aliases: [s]
        type: string
        defaultValue: green
  - name: db
    type: command
    handler: test:record
    profile:
      required: [db]
  - name: strict
    type: command
    handler: test:record
    options:
      - name: name
        type: string
        required: true
  - name: fail
    type: command
    handler: test:fail
  - name: missing
    type: command
    handler: test:missing
  - name: chain
    type: command
    chainedHandlers:
      - handler: builtin:data
        mapping:
          - from: color
            to: shade
      - handler: test:record
    options:
      - name: set
        type: array
      - name: message
        type: string
      - name: shade
        type: string
`

type harness struct {
	t        *testing.T
	tree     *definition.Tree
	registry *handler.Registry
	env      map[string]string
	out      bytes.Buffer
	errOut   bytes.Buffer
	logs     bytes.Buffer
	seen     []*handler.Params
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tr, err := definition.Parse(context.Background(), []byte(tree))
	require.NoError(t, err)

	h := &harness{t: t, tree: tr, registry: &handler.Registry{}, env: map[string]string{}}

	builtin.Register(h.registry, builtin.Options{EnvPrefix: "APP", Environ: func() []string { return nil }})

	h.registry.Register("test:record", func() (handler.Handler, error) {
		return handler.HandlerFunc(func(_ context.Context, p *handler.Params) error {
			h.seen = append(h.seen, p)
			p.Response.Console().Log("recorded")
			p.Response.Data().SetObj(map[string]any{"shade": p.Arguments.GetString("shade")}, false)

			return nil
		}), nil
	})

	h.registry.Register("test:fail", func() (handler.Handler, error) {
		return handler.HandlerFunc(func(context.Context, *handler.Params) error {
			return &response.Error{Msg: "X", AdditionalDetails: "Y"}
		}), nil
	})

	return h
}

func (h *harness) processor(name string, mutate ...func(*Options)) *Processor {
	h.t.Helper()

	cmd, err := h.tree.Lookup(name)
	require.NoError(h.t, err)

	opts := Options{
		Definition:     cmd,
		FullDefinition: h.tree.Root,
		RootCommand:    "app",
		EnvPrefix:      "APP",
		Registry:       h.registry,
		Prompter:       prompt.NewScripted(),
		Stdin:          strings.NewReader(""),
		Stdout:         &h.out,
		Stderr:         &h.errOut,
		LookupEnv: func(k string) (string, bool) {
			v, ok := h.env[k]

			return v, ok
		},
		Environ: func() []string { return []string{"APP_PASSWORD=hunter2"} },
		Logger:  log.Make(&h.logs, log.WithLevel(log.LevelTrace)),
	}

	for _, fn := range mutate {
		fn(&opts)
	}

	p, err := New(opts)
	require.NoError(h.t, err)

	return p
}

func (h *harness) invoke(name string, tokens []string, mutate ...func(*Options)) response.Response {
	h.t.Helper()

	p := h.processor(name, mutate...)

	raw, err := p.Definition().ParseArgs("app", tokens)
	require.NoError(h.t, err)

	r, err := p.Invoke(context.Background(), InvokeParams{Arguments: raw})
	require.NoError(h.t, err)

	return r
}

func (h *harness) last() *handler.Params {
	h.t.Helper()
	require.NotEmpty(h.t, h.seen, "handler was not invoked")

	return h.seen[len(h.seen)-1]
}

func TestNew_NoDefinition(t *testing.T) {
	_, err := New(Options{})
	require.ErrorIs(t, err, ErrContract)
}

func TestInvoke_Contract(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	raw := args.Set{}.WithPositionals([]string{"banana"})

	_, err := h.processor("banana").Invoke(ctx, InvokeParams{Arguments: raw, ResponseFormat: "xml"})
	require.ErrorIs(t, err, ErrContract)
	require.ErrorIs(t, err, response.ErrFormat)

	_, err = h.processor("banana").Invoke(ctx, InvokeParams{Arguments: args.New(nil)})
	require.ErrorIs(t, err, ErrContract)

	for _, id := range []string{"", "   "} {
		p, err := New(Options{Definition: &definition.Command{Name: "bare", Type: definition.KindCommand, Handler: id}})
		require.NoError(t, err)

		_, err = p.Invoke(ctx, InvokeParams{Arguments: raw})
		require.ErrorIs(t, err, ErrContract)
	}

	assert.Empty(t, h.seen)
}

func TestInvoke_PrecedenceLaw(t *testing.T) {
	store := func() *config.Store {
		return config.FromDocument("app", map[string]any{
			"profiles": map[string]any{
				"ripe": map[string]any{
					"type":       "fruit",
					"properties": map[string]any{"shade": "config"},
				},
			},
			"defaults": map[string]any{"fruit": "ripe"},
		})
	}

	tests := []struct {
		name  string
		cli   []string
		env   string
		store *config.Store
		want  string
	}{
		{"cli", []string{"--shade", "cli"}, "env", store(), "cli"},
		{"env", nil, "env", store(), "env"},
		{"config", nil, "", store(), "config"},
		{"default", nil, "", nil, "green"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.env != "" {
				h.env["APP_SHADE"] = tt.env
			}

			r := h.invoke("peel", tt.cli, func(o *Options) { o.Config = tt.store })
			require.True(t, r.Success, r.Stderr)

			got := h.last().Arguments
			assert.Equal(t, tt.want, got.GetString("shade"))
			assert.Equal(t, tt.want, got.GetString("s"))
			assert.Equal(t, "app", got.Program())
			assert.Equal(t, []string{"peel"}, got.Positionals())
		})
	}
}

func TestInvoke_DisableDefaults(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("peel", []string{"--disable-defaults"})
	require.True(t, r.Success)
	assert.False(t, h.last().Arguments.Has("shade"))
}

func TestInvoke_AliasConsistency(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("banana", []string{"-s", "red"})
	require.True(t, r.Success)

	for _, name := range []string{"shade", "s"} {
		assert.Equal(t, "red", h.last().Arguments.GetString(name), name)
	}
}

func TestInvoke_MissingDefaultProfile(t *testing.T) {
	for _, name := range []string{"no manager", "empty manager"} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)

			r := h.invoke("db", nil, func(o *Options) {
				if name == "empty manager" {
					o.Profiles = profiles.NewManager(t.TempDir())
				}
			})

			assert.False(t, r.Success)
			assert.Equal(t, response.DefaultErrorExitCode, r.ExitCode)
			assert.Contains(t, r.Message, "no default profile")
			assert.Contains(t, r.Stderr, HeaderPreparationFailed+":")
			require.NotNil(t, r.Error)
			assert.Equal(t, r.Message, r.Error.Msg)
			assert.Empty(t, h.seen)
		})
	}
}

func TestInvoke_CommandLineCensored(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("banana", []string{"--color", "yellow", "--password", "fakePass"}, func(o *Options) {
		o.CommandLine = "banana --color yellow --password fakePass"
	})
	require.True(t, r.Success)

	logs := h.logs.String()
	assert.Contains(t, logs, "app banana --color **** --password ****")
	assert.NotContains(t, logs, "fakePass")
	assert.NotContains(t, logs, "yellow")

	assert.Equal(t, "fakePass", h.last().Arguments.GetString("password"))
	assert.Equal(t, "yellow", h.last().Arguments.GetString("color"))
}

func TestInvoke_ShowInputsOnly(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("banana", []string{"--password", "secret", "--shade", "red", "--show-inputs-only"})
	require.True(t, r.Success)
	assert.Empty(t, h.seen)

	values := r.Data.(map[string]any)["commandValues"].(map[string]any)
	assert.Equal(t, "****", values["password"])
	assert.Equal(t, "red", values["shade"])
	assert.NotContains(t, values, "show-inputs-only")
	assert.Contains(t, r.Stdout, "commandValues:")
	assert.Contains(t, r.Stderr, "APP_SHOW_SECURE_ARGS")

	h = newHarness(t)
	h.env["APP_SHOW_SECURE_ARGS"] = "true"

	r = h.invoke("banana", []string{"--password", "secret", "--show-inputs-only"})
	values = r.Data.(map[string]any)["commandValues"].(map[string]any)
	assert.Equal(t, "secret", values["password"])
	assert.NotContains(t, r.Stderr, "Some inputs are not displayed")
}

func TestInvoke_ShowInputsOnly_Profiles(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("peel", []string{"--show-inputs-only"}, func(o *Options) {
		o.Config = config.FromDocument("app", map[string]any{
			"profiles": map[string]any{
				"ripe": map[string]any{"properties": map[string]any{"shade": "config"}},
			},
			"defaults": map[string]any{"fruit": "ripe"},
		})
	})
	require.True(t, r.Success)

	data := r.Data.(map[string]any)
	assert.Equal(t, []string{"fruit"}, data["optionalProfiles"])
	assert.NotContains(t, data, "requiredProfiles")
	assert.Equal(t, "config", data["commandValues"].(map[string]any)["shade"])
}

func TestInvoke_Prompt(t *testing.T) {
	h := newHarness(t)
	scripted := prompt.NewScripted("yellow", "mango", "a b")

	r := h.invoke("banana", []string{"prompt*", "--color", "PROMPT*", "--tags", "PROMPT*"}, func(o *Options) {
		o.Prompter = scripted
	})
	require.True(t, r.Success, r.Stderr)

	a := h.last().Arguments
	assert.Equal(t, "yellow", a.GetString("fruit"))
	assert.Equal(t, "mango", a.GetString("color"))
	v, _ := a.Get("tags")
	assert.Equal(t, []string{"a", "b"}, v)

	msgs := scripted.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "\"fruit\" Description: The fruit to peel\nPlease enter \"fruit\":", msgs[0])
	assert.Equal(t, []bool{false, true, false}, scripted.Secure())
}

func TestInvoke_PromptFailed(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("banana", []string{"--color", "PROMPT*"})

	assert.False(t, r.Success)
	assert.True(t, strings.HasPrefix(r.Message, HeaderPromptFailed+": "))
	require.NotNil(t, r.Error)
	assert.Equal(t, HeaderPromptFailed, r.Error.Msg)
	assert.Empty(t, h.seen)
}

type validatorFunc func() (validate.Result, error)

func (f validatorFunc) Validate(
	context.Context, *definition.Command, args.Set, *response.Envelope,
) (validate.Result, error) {
	return f()
}

func TestInvoke_SyntaxInvalid(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("banana", nil, func(o *Options) {
		o.Validator = validatorFunc(func() (validate.Result, error) { return validate.Result{}, nil })
	})

	assert.False(t, r.Success)
	assert.Equal(t, MessageSyntaxInvalid, r.Message)
	assert.Contains(t, r.Stderr, "\nExample:\n\n- Peel a yellow banana:\n\n      $ app banana --color yellow\n")
	assert.Contains(t, r.Stderr, `Use "app banana --help" to view command description, usage, and options.`)
	assert.Empty(t, h.seen)

	h = newHarness(t)
	r = h.invoke("strict", nil)
	assert.False(t, r.Success)
	assert.Equal(t, MessageSyntaxInvalid, r.Message)
	assert.Contains(t, r.Stderr, validate.SyntaxErrorHeader)
	assert.Empty(t, h.seen)
}

func TestInvoke_ValidatorFailed(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("banana", nil, func(o *Options) {
		o.Validator = validatorFunc(func() (validate.Result, error) {
			return validate.Result{}, errors.New("schema exploded")
		})
	})

	assert.False(t, r.Success)
	assert.Equal(t, HeaderValidationFailed+": schema exploded", r.Message)
	assert.Equal(t, "schema exploded", r.Error.AdditionalDetails)
}

func TestInvoke_StructuredError(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("fail", nil)

	assert.False(t, r.Success)
	assert.Equal(t, "X", r.Message)
	require.NotNil(t, r.Error)
	assert.Equal(t, "X", r.Error.Msg)
	assert.Equal(t, "Y", r.Error.AdditionalDetails)
	assert.Equal(t, response.DefaultErrorExitCode, r.ExitCode)
	assert.Contains(t, r.Stderr, "Command Error:\nX\nError Details:\nY\n")
}

func TestInvoke_InstantiationFailed(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("missing", nil)

	assert.False(t, r.Success)
	assert.Equal(t, "Could not instantiate the handler test:missing for command missing", r.Message)
	assert.Contains(t, r.Stderr, HeaderInstantiationFailed+":")
	assert.Contains(t, r.Error.AdditionalDetails, handler.ErrInstantiation.Error())

	logs := h.logs.String()
	assert.Contains(t, logs, "diagnostics")
	assert.NotContains(t, logs, "hunter2")
}

func TestInvoke_Chain(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("chain", []string{"--set", "color=red", "--message", "made"})
	require.True(t, r.Success, r.Stderr)

	p := h.last()
	assert.True(t, p.IsChained)
	assert.Equal(t, "red", p.Arguments.GetString("shade"))

	assert.Equal(t, "made\nrecorded\n", r.Stdout, "output accumulates across the chain")
	assert.Equal(t, map[string]any{"shade": "red"}, r.Data)
}

func TestInvoke_ChainMappingAborts(t *testing.T) {
	h := newHarness(t)

	r := h.invoke("chain", []string{"--set", "other=1", "--message", "made"})

	assert.False(t, r.Success)
	assert.Empty(t, h.seen, "the mapped handler never runs")
	assert.Contains(t, r.Message, response.HeaderUnexpectedError)
	assert.Contains(t, r.Message, "color")
	assert.Equal(t, "made\n", r.Stdout, "prior output is kept")
}

func TestInvoke_JSON(t *testing.T) {
	h := newHarness(t)
	p := h.processor("banana")

	raw, err := p.Definition().ParseArgs("app", []string{"--shade", "red"})
	require.NoError(t, err)

	r, err := p.Invoke(context.Background(), InvokeParams{Arguments: raw, ResponseFormat: "json"})
	require.NoError(t, err)
	require.True(t, r.Success)

	var doc response.Response
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &doc))
	assert.Equal(t, "recorded\n", doc.Stdout)
	assert.Equal(t, 1, strings.Count(h.out.String(), `"success"`))
	assert.Empty(t, h.errOut.String())
}

func TestInvoke_Silent(t *testing.T) {
	h := newHarness(t)
	p := h.processor("fail")

	raw, err := p.Definition().ParseArgs("app", nil)
	require.NoError(t, err)

	r, err := p.Invoke(context.Background(), InvokeParams{Arguments: raw, Silent: true})
	require.NoError(t, err)

	assert.False(t, r.Success)
	assert.NotEmpty(t, r.Stderr)
	assert.Empty(t, h.out.String())
	assert.Empty(t, h.errOut.String())
}

func TestPrepare_Stdin(t *testing.T) {
	h := newHarness(t)
	p := h.processor("banana", func(o *Options) { o.Stdin = strings.NewReader("payload") })

	raw, err := p.Definition().ParseArgs("app", []string{"--stdin"})
	require.NoError(t, err)

	prepared, err := p.Prepare(context.Background(), nil, raw)
	require.NoError(t, err)
	assert.Equal(t, "payload", prepared.Args.GetString(StdinContentKey))
	assert.Equal(t, "green", prepared.Args.GetString("shade"))
}

func TestPrepare_Idempotent(t *testing.T) {
	h := newHarness(t)
	p := h.processor("banana")

	raw, err := p.Definition().ParseArgs("app", []string{"--shade", "red", "pear"})
	require.NoError(t, err)

	first, err := p.Prepare(context.Background(), nil, raw)
	require.NoError(t, err)

	second, err := p.Prepare(context.Background(), nil, first.Args)
	require.NoError(t, err)

	assert.Equal(t, first.Args.Map(), second.Args.Map())
	assert.Equal(t, raw.Positionals(), second.Args.Positionals())
	assert.Equal(t, raw.Program(), second.Args.Program())
}
