package handler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/response"
)

func TestRegistry_Load(t *testing.T) {
	var r Registry

	ok := HandlerFunc(func(context.Context, *Params) error { return nil })

	r.Register("ok", func() (Handler, error) { return ok, nil })
	r.Register("err", func() (Handler, error) { return nil, errors.New("no db") })
	r.Register("nil", func() (Handler, error) { return nil, nil })
	r.Register("panic", func() (Handler, error) { panic("init") })

	h, err := r.Load("ok")
	require.NoError(t, err)
	assert.NotNil(t, h)

	for _, id := range []string{"", "missing", "err", "nil", "panic"} {
		t.Run(id, func(t *testing.T) {
			_, err := r.Load(id)
			require.ErrorIs(t, err, ErrInstantiation)
		})
	}

	_, err = r.Load("err")
	assert.Contains(t, err.Error(), "no db")

	assert.ElementsMatch(t, []string{"ok", "err", "nil", "panic"}, r.IDs())
}

func TestRegistry_Lookup(t *testing.T) {
	r := Registry{Lookup: func(id string) (Factory, bool) {
		if id != "./dynamic" {
			return nil, false
		}

		return func() (Handler, error) {
			return HandlerFunc(func(context.Context, *Params) error { return nil }), nil
		}, true
	}}

	_, err := r.Load("./dynamic")
	require.NoError(t, err)

	_, err = r.Load("./other")
	require.ErrorIs(t, err, ErrInstantiation)
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()

	err := Invoke(ctx, HandlerFunc(func(context.Context, *Params) error { return nil }), &Params{})
	require.NoError(t, err)

	err = Invoke(ctx, HandlerFunc(func(context.Context, *Params) error {
		var m map[string]int
		m["x"] = 1

		return nil
	}), &Params{})

	var p *response.Panic
	require.ErrorAs(t, err, &p)
	assert.Contains(t, p.Stack, "TestInvoke")

	f := response.Classify(Rejection(err))
	assert.Equal(t, response.KindException, f.Kind)
	assert.NotEmpty(t, f.Stack)
}

func TestRejection(t *testing.T) {
	assert.Nil(t, Rejection(nil))
	assert.Equal(t, "msg", Rejection(Reject("msg")))
	assert.Nil(t, Rejection(Reject(nil)))
	assert.Equal(t, 42, Rejection(Reject(42)))

	plain := errors.New("plain")
	assert.Equal(t, plain, Rejection(plain))

	assert.Equal(t, response.KindMessage, response.Classify(Rejection(Reject("m"))).Kind)
	assert.Equal(t, response.KindNone, response.Classify(Rejection(Reject(nil))).Kind)
	assert.Equal(t, response.KindOther, response.Classify(Rejection(Reject(42))).Kind)
}

// chain mirrors a five-handler pipeline in which values are mapped forward
// from several handlers.
func chain() []definition.ChainedHandler {
	return []definition.ChainedHandler{
		{Handler: "h0", Mapping: []definition.Mapping{
			{Value: "hard coded", To: "current", ApplyToHandlers: []int{0}},
			{From: "test.path.here", To: "myarg", ApplyToHandlers: []int{3}},
			{Value: "myvalue", To: "mysecondarg", ApplyToHandlers: []int{3}},
		}},
		{Handler: "h1", Mapping: []definition.Mapping{
			{From: "my.other.path", To: "otherarg", ApplyToHandlers: []int{1, 2}},
		}},
		{Handler: "h2", Mapping: []definition.Mapping{
			{From: "hello.buddy", To: "tonext"},
			{From: "optional.path.here", To: "optionalarg", Optional: true, ApplyToHandlers: []int{2}},
		}},
		{Handler: "h3"},
		{Handler: "h4"},
	}
}

func TestChainArguments_FromPriorHandlers(t *testing.T) {
	prior := []any{
		map[string]any{"test": map[string]any{"path": map[string]any{"here": "v0"}}},
		map[string]any{"my": map[string]any{"other": map[string]any{"path": "v1"}}},
		map[string]any{"hello": map[string]any{"buddy": "v2"}},
	}

	got, err := ChainArguments("test", chain(), 3, prior, args.Set{}.WithProgram("app"))
	require.NoError(t, err)

	assert.Equal(t, "v0", got.GetString("myarg"))
	assert.Equal(t, "v1", got.GetString("otherarg"))
	assert.Equal(t, "v2", got.GetString("tonext"))
	assert.Equal(t, "myvalue", got.GetString("mysecondarg"))
	assert.False(t, got.Has("current"))
	assert.Equal(t, "app", got.Program())

	first, err := ChainArguments("test", chain(), 0, nil, args.Set{})
	require.NoError(t, err)
	assert.Equal(t, "hard coded", first.GetString("current"))
}

func TestChainArguments_TooFewResponses(t *testing.T) {
	_, err := ChainArguments("test", chain(), 3, []any{map[string]any{}, map[string]any{}}, args.Set{})
	require.ErrorIs(t, err, ErrChainMapping)
	assert.Contains(t, err.Error(), "got 2")
}

func TestChainArguments_Optional(t *testing.T) {
	prior := []any{map[string]any{}, map[string]any{}, map[string]any{}, map[string]any{}}

	got, err := ChainArguments("test", chain(), 4, prior, args.Set{})
	require.NoError(t, err)
	assert.False(t, got.Has("optionalarg"))
}

func TestChainArguments_Failures(t *testing.T) {
	tests := []struct {
		name  string
		chain []definition.ChainedHandler
		index int
		prior []any
		text  []string
	}{
		{
			name: "from targets own handler",
			chain: []definition.ChainedHandler{{Handler: "h0", Mapping: []definition.Mapping{
				{From: "test.should.not.work", To: "hardcode", ApplyToHandlers: []int{0}},
			}}},
			index: 0,
			text:  []string{"from", "test.should.not.work"},
		},
		{
			name: "undefined source",
			chain: []definition.ChainedHandler{
				{Handler: "h0", Mapping: []definition.Mapping{
					{From: "test.should.not.work", To: "argument", ApplyToHandlers: []int{1}},
				}},
				{Handler: "h1"},
			},
			index: 1,
			prior: []any{map[string]any{}},
			text:  []string{"from", "test.should.not.work"},
		},
		{
			name: "undefined argument",
			chain: []definition.ChainedHandler{
				{Handler: "h0", Mapping: []definition.Mapping{
					{From: "test.should.not.work", To: "argument", MapFromArguments: true, ApplyToHandlers: []int{1}},
				}},
				{Handler: "h1"},
			},
			index: 1,
			prior: []any{map[string]any{}},
			text:  []string{"from", "argument", "test.should.not.work"},
		},
		{
			name: "bad path",
			chain: []definition.ChainedHandler{
				{Handler: "h0", Mapping: []definition.Mapping{{From: "a..b", To: "x"}}},
				{Handler: "h1"},
			},
			index: 1,
			prior: []any{map[string]any{"a": 1}},
			text:  []string{"a..b"},
		},
		{
			name:  "index out of range",
			chain: []definition.ChainedHandler{{Handler: "h0"}},
			index: 1,
			prior: []any{nil},
			text:  []string{"out of range"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ChainArguments("test", tt.chain, tt.index, tt.prior, args.Set{})
			require.ErrorIs(t, err, ErrChainMapping)

			for _, s := range tt.text {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestChainArguments_FromArguments(t *testing.T) {
	c := []definition.ChainedHandler{{Handler: "h0", Mapping: []definition.Mapping{
		{From: "myOverallArg", To: "my-handler-arg", MapFromArguments: true, ApplyToHandlers: []int{0}},
		{From: "list[2]", To: "third", MapFromArguments: true, ApplyToHandlers: []int{0}},
	}}}

	base := args.New(map[string]any{
		"myOverallArg": "value",
		"list":         []string{"a", "b", "c"},
	})

	got, err := ChainArguments("test", c, 0, nil, base)
	require.NoError(t, err)

	assert.Equal(t, "value", got.GetString("my-handler-arg"))
	assert.Equal(t, "value", got.GetString("myHandlerArg"), "mapped under every spelling")
	assert.Equal(t, "c", got.GetString("third"))
}

func TestChainArguments_HyphenatedKeys(t *testing.T) {
	c := []definition.ChainedHandler{
		{Handler: "h0", Mapping: []definition.Mapping{
			{From: "my-opt", To: "forwarded", MapFromArguments: true, ApplyToHandlers: []int{1}},
			{From: "return-code", To: "rc"},
			{From: "job.step-names[1]", To: "step"},
			{From: `job["ret.val"]`, To: "ret"},
		}},
		{Handler: "h1"},
	}

	prior := []any{map[string]any{
		"return-code": "4",
		"job": map[string]any{
			"step-names": []any{"s1", "s2"},
			"ret.val":    "CC 0000",
		},
	}}

	got, err := ChainArguments("test", c, 1, prior, args.OptionValue("my-opt", nil, "value"))
	require.NoError(t, err)

	assert.Equal(t, "value", got.GetString("forwarded"))
	assert.Equal(t, "4", got.GetString("rc"))
	assert.Equal(t, "s2", got.GetString("step"))
	assert.Equal(t, "CC 0000", got.GetString("ret"))
}

func TestChainArguments_ColorToShade(t *testing.T) {
	c := []definition.ChainedHandler{
		{Handler: "builtin:data", Mapping: []definition.Mapping{{From: "color", To: "shade"}}},
		{Handler: "builtin:echo"},
	}

	got, err := ChainArguments("app", c, 1, []any{map[string]any{"color": "red"}}, args.Set{})
	require.NoError(t, err)
	assert.Equal(t, "red", got.GetString("shade"))

	_, err = ChainArguments("app", c, 1, []any{map[string]any{}}, args.Set{})
	require.ErrorIs(t, err, ErrChainMapping)
}

func TestParams_Response(t *testing.T) {
	env, err := response.New(response.Options{Stdout: io.Discard, Stderr: io.Discard})
	require.NoError(t, err)

	h := HandlerFunc(func(_ context.Context, p *Params) error {
		p.Response.Data().SetObj(map[string]any{"n": p.Arguments.GetString("name")}, false)

		return nil
	})

	require.NoError(t, Invoke(context.Background(), h, &Params{
		Response:  env,
		Arguments: args.New(map[string]any{"name": "x"}),
	}))
	assert.Equal(t, map[string]any{"n": "x"}, env.Finish().Data)
}
