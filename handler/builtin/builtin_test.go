package builtin

import (
	"context"
	"io"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/handler"
	"github.com/ardnew/cmdproc/response"
)

func run(t *testing.T, id string, values map[string]any, def *definition.Command) (response.Response, error) {
	t.Helper()

	var r handler.Registry

	Register(&r, Options{EnvPrefix: "APP", Environ: func() []string { return nil }})

	h, err := r.Load(id)
	require.NoError(t, err)

	env, err := response.New(response.Options{Stdout: io.Discard, Stderr: io.Discard})
	require.NoError(t, err)

	err = handler.Invoke(context.Background(), h, &handler.Params{
		Response:   env,
		Arguments:  args.New(values),
		Definition: def,
	})
	if err != nil {
		response.Classify(handler.Rejection(err)).Apply(env, id)
	}

	return env.Finish(), err
}

func TestRegister(t *testing.T) {
	var r handler.Registry

	Register(&r, Options{})
	assert.ElementsMatch(t, []string{Echo, Data, Fail, Exec}, r.IDs())
}

func TestEcho(t *testing.T) {
	def := &definition.Command{
		Options:     []definition.Option{{Name: "shade", Aliases: []string{"s"}}},
		Positionals: []definition.Positional{{Name: "target"}},
	}

	r, err := run(t, Echo, map[string]any{"s": "red", "target": "wall", "other": 1}, def)
	require.NoError(t, err)

	assert.True(t, r.Success)
	assert.Equal(t, map[string]any{"shade": "red", "target": "wall"}, r.Data)
	assert.Contains(t, r.Stdout, "shade: red")

	r, err = run(t, Echo, map[string]any{"message": "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", r.Stdout)
}

func TestData(t *testing.T) {
	r, err := run(t, Data, map[string]any{
		"set":     []string{"color=red", "size=3", "nested.flag=true"},
		"message": "made",
	}, nil)
	require.NoError(t, err)

	data := r.Data.(map[string]any)
	assert.Equal(t, "red", data["color"])
	assert.EqualValues(t, 3, data["size"])
	assert.Equal(t, map[string]any{"flag": true}, data["nested"])
	assert.Equal(t, "made", r.Message)

	_, err = run(t, Data, map[string]any{"set": []string{"novalue"}}, nil)
	require.ErrorIs(t, err, ErrSet)
}

func TestFail(t *testing.T) {
	tests := []struct {
		kind    string
		want    response.Kind
		message string
	}{
		{"", response.KindStructured, "boom"},
		{KindStructured, response.KindStructured, "boom"},
		{KindException, response.KindException, "Unexpected Command Error: boom"},
		{KindPanic, response.KindException, "Unexpected Command Error: boom"},
		{KindMessage, response.KindMessage, "boom"},
		{KindNone, response.KindNone, "Command failed"},
		{KindOther, response.KindOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			r, err := run(t, Fail, map[string]any{"kind": tt.kind, "message": "boom"}, nil)
			require.Error(t, err)

			assert.Equal(t, tt.want, response.Classify(handler.Rejection(err)).Kind)
			assert.False(t, r.Success)
			assert.Equal(t, tt.message, r.Message)
		})
	}
}

func TestEnviron(t *testing.T) {
	s := args.New(map[string]any{
		"host-name": "h",
		"hostName":  "h",
		"p":         1,
		"tags":      []string{"a", "b"},
		"empty":     nil,
	})

	assert.Equal(t, []string{"APP_ARG_HOST_NAME=h", "APP_ARG_TAGS=a b"}, Environ("APP", s))
}

func TestExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("requires sh")
	}

	r, err := run(t, Exec, map[string]any{
		"program": "sh",
		"args":    []string{"-c", `echo "$APP_ARG_COLOR"; echo warn >&2`},
		"color":   "red",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "red\n", r.Stdout)
	assert.Equal(t, "warn\n", r.Stderr)
	assert.EqualValues(t, 0, r.Data.(map[string]any)["exitCode"])

	r, err = run(t, Exec, map[string]any{
		"program": "sh",
		"args":    []string{"-c", "exit 3"},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 3, r.ExitCode)
	assert.Equal(t, "3", r.Error.ErrorCode)

	r, err = run(t, Exec, map[string]any{}, nil)
	require.Error(t, err)
	assert.Equal(t, "no program specified", r.Message)
}
