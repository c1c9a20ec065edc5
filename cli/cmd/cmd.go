package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/definition"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// Globals are the flags shared by every subcommand.
type Globals struct {
	Definition   string `default:"${definition}"   help:"Command definition tree (YAML)."             type:"path"`
	ProfilesDir  string `default:"${profiles}"     help:"Directory of profile files."                 type:"path"`
	PromptPhrase string `default:"${promptPhrase}" help:"Argument value that asks for a prompt."`
	EnvPrefix    string `default:"${envPrefix}"    help:"Prefix of option environment variables."`

	// Config is the configuration store loaded before parsing. When nil, the
	// store of the definition tree's root name is loaded.
	Config *config.Store `kong:"-"`

	// Exit ends the process with the exit code of a command.
	Exit func(code int) `kong:"-"`

	Stdin  io.Reader `kong:"-"`
	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

func (g *Globals) stdin() io.Reader {
	if g.Stdin == nil {
		return os.Stdin
	}

	return g.Stdin
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}

	return g.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}

	return g.Stderr
}

func (g *Globals) exit(code int) {
	if g.Exit == nil {
		os.Exit(code)

		return
	}

	g.Exit(code)
}

// tree loads the command definition tree named by g.
func (g *Globals) tree(ctx context.Context) (*definition.Tree, error) {
	tree, err := definition.Load(ctx, g.Definition)
	if err != nil {
		return nil, ErrDefinition.With(slog.String("file", g.Definition)).Wrap(err)
	}

	return tree, nil
}
