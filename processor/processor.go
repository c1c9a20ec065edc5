package processor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/censor"
	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/handler"
	"github.com/ardnew/cmdproc/log"
	"github.com/ardnew/cmdproc/pkg"
	"github.com/ardnew/cmdproc/profiles"
	"github.com/ardnew/cmdproc/prompt"
	"github.com/ardnew/cmdproc/response"
	"github.com/ardnew/cmdproc/validate"
)

// ErrContract is returned when a processor is built or invoked with input
// it cannot run.
var ErrContract = pkg.MakeErrorf("invalid command invocation")

// DefaultPromptPhrase is the argument value that asks for a prompt.
const DefaultPromptPhrase = "PROMPT*"

// Names of the stdin option and of the argument holding what it read.
const (
	OptStdin        = "stdin"
	StdinContentKey = "stdin-content"
)

// Validator checks the arguments of a command.
type Validator interface {
	Validate(
		ctx context.Context,
		cmd *definition.Command,
		a args.Set,
		resp *response.Envelope,
	) (validate.Result, error)
}

// Options configures a [Processor].
type Options struct {
	// Definition is the command to run. It is required.
	Definition *definition.Command
	// FullDefinition is the root of the tree holding Definition.
	FullDefinition *definition.Command
	// RootCommand is the program name shown in help text.
	RootCommand string
	// CommandLine is the command line as typed, logged with secure values
	// masked.
	CommandLine string
	// EnvPrefix prefixes the environment variables read for options.
	EnvPrefix string
	// PromptPhrase is the value that requests a prompt.
	PromptPhrase string

	Registry  *handler.Registry
	Profiles  *profiles.Manager
	Config    *config.Store
	Validator Validator
	Prompter  prompt.Prompter

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// LookupEnv and Environ read the process environment.
	LookupEnv func(string) (string, bool)
	Environ   func() []string

	Logger log.Logger
}

// Processor runs one command.
type Processor struct {
	def          *definition.Command
	full         *definition.Command
	root         string
	commandLine  string
	envPrefix    string
	promptPhrase string

	registry  *handler.Registry
	manager   *profiles.Manager
	store     *config.Store
	validator Validator
	prompter  prompt.Prompter

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	lookupEnv func(string) (string, bool)
	environ   func() []string

	logger log.Logger
}

// New returns a processor for opts.Definition. Unset options take their
// defaults: the process streams and environment, a terminal prompter, an
// empty registry, and a discarding logger.
func New(opts Options) (*Processor, error) {
	if opts.Definition == nil {
		return nil, ErrContract.Wrapf("no command definition supplied")
	}

	p := &Processor{
		def:          opts.Definition,
		full:         opts.FullDefinition,
		root:         opts.RootCommand,
		commandLine:  opts.CommandLine,
		envPrefix:    opts.EnvPrefix,
		promptPhrase: opts.PromptPhrase,
		registry:     opts.Registry,
		manager:      opts.Profiles,
		store:        opts.Config,
		validator:    opts.Validator,
		prompter:     opts.Prompter,
		stdin:        opts.Stdin,
		stdout:       opts.Stdout,
		stderr:       opts.Stderr,
		lookupEnv:    opts.LookupEnv,
		environ:      opts.Environ,
		logger:       opts.Logger,
	}

	if p.full == nil {
		p.full = p.def
	}

	if p.envPrefix == "" {
		p.envPrefix = pkg.EnvPrefix()
	}

	if p.promptPhrase == "" {
		p.promptPhrase = DefaultPromptPhrase
	}

	if p.registry == nil {
		p.registry = &handler.Registry{}
	}

	if p.validator == nil {
		p.validator = validate.Validator{}
	}

	if p.stdin == nil {
		p.stdin = os.Stdin
	}

	if p.stdout == nil {
		p.stdout = os.Stdout
	}

	if p.stderr == nil {
		p.stderr = os.Stderr
	}

	if p.prompter == nil {
		p.prompter = prompt.NewTerminal(p.stdin, p.stderr)
	}

	if p.lookupEnv == nil {
		p.lookupEnv = os.LookupEnv
	}

	if p.environ == nil {
		p.environ = os.Environ
	}

	if p.logger.Logger == nil {
		p.logger = log.Discard()
	}

	return p, nil
}

// Definition returns the command run by p.
func (p *Processor) Definition() *definition.Command { return p.def }

// Prepared is the outcome of [Processor.Prepare].
type Prepared struct {
	Profiles profiles.Resolution
	Args     args.Set
}

// Prepare resolves the final arguments of raw, lowest precedence first:
// definition defaults, environment variables, profile and config values,
// then raw itself. The program name and positionals of raw are kept.
//
// When the command declares a stdin option and it is set, all of stdin is
// read into [StdinContentKey].
func (p *Processor) Prepare(
	ctx context.Context,
	resp *response.Envelope,
	raw args.Set,
) (Prepared, error) {
	logger := p.logger.With(slog.String("command", p.def.Name))
	options := p.def.ArgOptions()

	a := args.Base(raw.Map(), raw.Program(), raw.Positionals())
	logger.TraceContext(ctx, "base arguments", slog.Any("keys", a.Keys()))

	env := args.FromEnv(p.envPrefix, options, p.lookupEnv)
	a = args.Merge(env, a)

	a, err := p.readStdin(ctx, resp, a)
	if err != nil {
		return Prepared{}, err
	}

	res, err := profiles.Resolver{
		Manager: p.manager,
		Store:   p.store,
		Logger:  logger,
	}.Resolve(ctx, p.def.Profile, options, a)
	if err != nil {
		return Prepared{}, err
	}

	a = args.Merge(res.Args, a)
	a = args.Defaults(options, a, a.GetBool(definition.OptDisableDefaults))
	a = args.Restore(a, raw)

	logger.TraceContext(ctx, "arguments prepared",
		slog.Any("keys", a.Keys()),
		slog.Any("profiles", res.Names()),
	)

	return Prepared{Profiles: res, Args: a}, nil
}

func (p *Processor) readStdin(
	ctx context.Context,
	resp *response.Envelope,
	a args.Set,
) (args.Set, error) {
	if _, ok := p.def.Option(OptStdin); !ok || !a.GetBool(OptStdin) {
		return a, nil
	}

	if err := ctx.Err(); err != nil {
		return a, err
	}

	data, err := io.ReadAll(p.stdin)
	if err != nil {
		return a, pkg.ErrReadStdin.Wrap(err)
	}

	p.logger.DebugContext(ctx, "stdin read", slog.Int("bytes", len(data)))

	if resp != nil {
		resp.Data().SetMessage("Read " + pluralBytes(len(data)) + " from stdin")
	}

	return a.Set(StdinContentKey, nil, string(data)), nil
}

func pluralBytes(n int) string {
	if n == 1 {
		return "1 byte"
	}

	return strconv.Itoa(n) + " bytes"
}

// policy returns the censorship policy for the profiles in use.
func (p *Processor) policy(ctx context.Context, inUse []string) *censor.Policy {
	var schemas []profiles.TypeConfiguration

	if p.manager != nil {
		for _, typ := range p.def.ProfileTypes() {
			if tc, err := p.manager.TypeConfiguration(ctx, typ); err == nil {
				schemas = append(schemas, tc)
			}
		}
	}

	return censor.New(censor.Options{
		Store:         p.store,
		ProfilesInUse: inUse,
		Definition:    p.def,
		Schemas:       schemas,
		EnvPrefix:     p.envPrefix,
		LookupEnv:     p.lookupEnv,
	})
}

func (p *Processor) envelope(
	format response.Format,
	silent bool,
	policy *censor.Policy,
) (*response.Envelope, error) {
	return response.New(response.Options{
		Format:   format,
		Silent:   silent,
		Stdout:   p.stdout,
		Stderr:   p.stderr,
		Censor:   policy,
		Prompter: p.prompter,
	})
}
