package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/handler"
	"github.com/ardnew/cmdproc/handler/builtin"
	"github.com/ardnew/cmdproc/log"
	"github.com/ardnew/cmdproc/processor"
	"github.com/ardnew/cmdproc/profiles"
	"github.com/ardnew/cmdproc/response"
)

// Run finds a command of the definition tree and runs it.
type Run struct {
	Args []string `arg:"" help:"Command path followed by its flags and positionals." optional:"" passthrough:""`

	// Registry holds the handlers that can be invoked. The built-in handlers
	// are always added.
	Registry *handler.Registry `kong:"-"`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context, g *Globals) error {
	tree, err := g.tree(ctx)
	if err != nil {
		return err
	}

	cmd, path, rest, err := tree.Find(r.Args)
	if err != nil {
		return ErrCommand.
			With(slog.String("tokens", strings.Join(r.Args, " "))).
			Wrap(err)
	}

	root := tree.Root.Name

	raw, err := cmd.ParseArgs(root, rest)
	if err != nil {
		return ErrArguments.
			With(slog.String("command", cmd.FullName())).
			Wrap(err)
	}

	switch {
	case raw.GetBool(definition.OptHelpJSON):
		return writeJSON(ctx, g, cmd)

	case raw.GetBool(definition.OptHelp):
		_, err := fmt.Fprint(g.stdout(), help(root, cmd))

		return err
	}

	store := g.Config
	if store == nil {
		store, err = config.Load(ctx, root,
			config.WithEnvPrefix(g.EnvPrefix),
			config.WithLogger(log.Default()),
		)
		if err != nil {
			return ErrConfig.Wrap(err)
		}
	}

	registry := r.Registry
	if registry == nil {
		registry = &handler.Registry{}
	}

	builtin.Register(registry, builtin.Options{EnvPrefix: g.EnvPrefix})

	p, err := processor.New(processor.Options{
		Definition:     cmd,
		FullDefinition: tree.Root,
		RootCommand:    root,
		CommandLine:    strings.Join(r.Args, " "),
		EnvPrefix:      g.EnvPrefix,
		PromptPhrase:   g.PromptPhrase,
		Registry:       registry,
		Profiles: profiles.NewManager(g.ProfilesDir,
			profiles.WithLogger(log.Default())),
		Config: store,
		Stdin:  g.stdin(),
		Stdout: g.stdout(),
		Stderr: g.stderr(),
		Logger: log.Default(),
	})
	if err != nil {
		return ErrInvoke.Wrap(err)
	}

	format := string(response.FormatDefault)
	if raw.GetBool(definition.OptResponseFormatJSON) {
		format = string(response.FormatJSON)
	}

	resp, err := p.Invoke(ctx, processor.InvokeParams{
		Arguments:      raw,
		ResponseFormat: format,
	})
	if err != nil {
		return ErrInvoke.With(slog.Any("path", path)).Wrap(err)
	}

	log.DebugContext(ctx, "command finished",
		slog.String("command", cmd.FullName()),
		slog.Int("exit_code", resp.ExitCode),
	)

	if resp.ExitCode != 0 {
		g.exit(resp.ExitCode)
	}

	return nil
}

// help renders the usage of cmd.
func help(root string, cmd *definition.Command) string {
	var sb strings.Builder

	usage := append([]string{root}, cmd.Path()...)
	usage = append(usage, "[flags]")

	for _, p := range cmd.Positionals {
		name := "<" + p.Name + ">"
		if !p.Required {
			name = "[" + name + "]"
		}

		usage = append(usage, name)
	}

	fmt.Fprintf(&sb, "Usage: %s\n", strings.Join(usage, " "))

	for _, s := range []string{cmd.Summary, cmd.Description} {
		if s != "" {
			fmt.Fprintf(&sb, "\n%s\n", s)
		}
	}

	if len(cmd.Positionals) > 0 {
		sb.WriteString("\nPositionals:\n")

		for _, p := range cmd.Positionals {
			fmt.Fprintf(&sb, "  %-20s %s\n", p.Name, p.Description)
		}
	}

	fmt.Fprintf(&sb, "\nFlags:\n%s", cmd.Usage())

	if len(cmd.Examples) > 0 {
		sb.WriteString("\nExamples:\n")

		for _, ex := range cmd.Examples {
			fmt.Fprintf(&sb, "\n- %s:\n\n      $ %s\n", ex.Description,
				strings.Join(append(append([]string{root}, cmd.Path()...), ex.Options), " "))
		}
	}

	return sb.String()
}

func writeJSON(ctx context.Context, g *Globals, v any) error {
	data, err := yaml.MarshalContext(ctx, v, yaml.JSON())
	if err != nil {
		return ErrJSONMarshal.Wrap(err)
	}

	_, err = g.stdout().Write(data)

	return err
}
