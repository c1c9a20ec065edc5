package cli

import (
	"context"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ardnew/cmdproc/cli/cmd"
	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/log"
	"github.com/ardnew/cmdproc/processor"
	"github.com/ardnew/cmdproc/pkg"
)

// CLI is the top-level command-line interface for cmdproc.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	cmd.Globals `embed:""`

	Version kong.VersionFlag `help:"Print version and exit."`

	Init cmd.Init `cmd:"" help:"Write a starter configuration, command tree, and profile type"`
	Tree cmd.Tree `cmd:"" help:"Print the command definition tree"`

	Run cmd.Run `cmd:"" default:"withargs" help:"Run a command of the definition tree"`
}

// Run executes the cmdproc CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	vars := kong.Vars{
		"version":                  pkg.VersionString(),
		cmd.ConfigIdentifier:       configPath(),
		cmd.DefinitionIdentifier:   configPath(baseDefinition),
		cmd.ProfilesIdentifier:     configPath(baseProfiles),
		cmd.EnvPrefixIdentifier:    pkg.EnvPrefix(),
		cmd.PromptPhraseIdentifier: processor.DefaultPromptPhrase,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position. TextUnmarshaler on logFormat/logLevel handles those flags
	// during normal parsing, but this early scan also catches boolean flags
	// like --log-pretty.
	cli.Log.scan(args)

	store, err := config.Load(ctx, pkg.Prefix(),
		config.WithLogger(log.Default()),
	)
	if err != nil {
		return err
	}

	// Parse command line
	parser, err := kong.New(&cli,
		kong.Name(pkg.Prefix()),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Resolvers(resolve(store)),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	cli.Config = store
	cli.Exit = exit
	cli.Stdin, cli.Stdout, cli.Stderr = os.Stdin, os.Stdout, os.Stderr

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	defer cli.Log.start(ctx)()

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	// Execute the selected command
	return ktx.Run(ctx, &cli.Globals)
}
