package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/censor"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/handler"
	"github.com/ardnew/cmdproc/log"
	"github.com/ardnew/cmdproc/response"
)

// Headers and messages of the failures reported by [Processor.Invoke].
const (
	HeaderPreparationFailed   = "Command Preparation Failed"
	HeaderInstantiationFailed = "Handler Instantiation Failed"
	HeaderPromptFailed        = "Unexpected prompting error"
	HeaderValidationFailed    = "Unexpected syntax validation error"

	MessageSyntaxInvalid = "Command syntax invalid"
	MessageNoCause       = "Internal Error: No cause message present."
)

// InvokeParams are the inputs of one invocation.
type InvokeParams struct {
	// Arguments are the parsed command line. Their positionals must be set,
	// even if empty.
	Arguments args.Set
	// ResponseFormat is "default" or "json". Empty means "default".
	ResponseFormat string
	// Silent suppresses all console output.
	Silent bool
}

// invocation is the state of one call to Invoke.
type invocation struct {
	*Processor

	params InvokeParams
	format response.Format
	logger log.Logger
}

// Invoke runs the command for params and returns its response.
//
// An error is returned only when params break the caller contract: an
// unknown response format, arguments without positionals, or a command with
// no handler to run. Every other failure is reported in the response.
func (p *Processor) Invoke(ctx context.Context, params InvokeParams) (response.Response, error) {
	format, err := response.ParseFormat(params.ResponseFormat)
	if err != nil {
		return response.Response{}, ErrContract.Wrap(err)
	}

	if params.Arguments.Positionals() == nil {
		return response.Response{}, ErrContract.Wrapf(
			"the command arguments supplied do not contain positionals")
	}

	if !p.def.Chained() {
		if p.def.Handler == "" {
			return response.Response{}, ErrContract.Wrapf(
				"cannot invoke the command %q: it has no handler and no chained handlers",
				p.def.Name)
		}

		if strings.TrimSpace(p.def.Handler) == "" {
			return response.Response{}, ErrContract.Wrapf(
				"cannot invoke the handler for command %q: the handler is blank",
				p.def.Name)
		}
	}

	inv := &invocation{
		Processor: p,
		params:    params,
		format:    format,
		logger: p.logger.With(
			slog.String("invocation", uuid.NewString()),
			slog.String("command", p.def.Name),
		),
	}

	return inv.run(ctx), nil
}

func (inv *invocation) run(ctx context.Context) response.Response {
	inv.logger.InfoContext(ctx, "invoking command",
		slog.String("line", strings.TrimSpace(
			inv.root+" "+inv.policy(ctx, nil).CommandLine(inv.commandLine))),
	)

	prep, err := inv.envelope(inv.format, inv.params.Silent, inv.policy(ctx, nil))
	if err != nil {
		return failedResponse(err)
	}

	inv.logger.DebugContext(ctx, "preparing command")

	prepared, err := inv.Prepare(ctx, prep, inv.params.Arguments)
	if err != nil {
		return inv.preparationFailed(ctx, prep, err)
	}

	carried := prep.Discard()
	policy := inv.policy(ctx, prepared.Profiles.Names())

	resp, err := inv.envelope(inv.format, inv.params.Silent, policy)
	if err != nil {
		return failedResponse(err)
	}

	resp.BufferStdout([]byte(carried.Stdout))
	resp.BufferStderr([]byte(carried.Stderr))

	a := prepared.Args

	inv.logger.TraceContext(ctx, "arguments", slog.Any("values", policy.Args(a)))

	if a.GetBool(definition.OptShowInputsOnly) {
		inv.showInputs(ctx, resp, prepared, policy)

		return inv.finish(ctx, resp)
	}

	a, err = inv.fillPrompts(ctx, resp, a, policy)
	if err != nil {
		inv.logger.ErrorContext(ctx, "prompting failed", slog.String("error", err.Error()))
		inv.unexpected(resp, HeaderPromptFailed, err)

		return inv.finish(ctx, resp)
	}

	inv.logger.InfoContext(ctx, "validating syntax")

	result, err := inv.validator.Validate(ctx, inv.def, a, resp)
	if err != nil {
		inv.logger.ErrorContext(ctx, "validation failed", slog.String("error", err.Error()))
		inv.unexpected(resp, HeaderValidationFailed, err)

		return inv.finish(ctx, resp)
	}

	if !result.Valid {
		inv.invalidSyntax(ctx, resp)

		return inv.finish(ctx, resp)
	}

	prepared.Args = a

	if inv.def.Chained() {
		return inv.runChain(ctx, resp, prepared, policy)
	}

	return inv.runSingle(ctx, resp, prepared)
}

// failedResponse is the response of an envelope that could not be built.
func failedResponse(err error) response.Response {
	return response.Response{
		ExitCode: response.DefaultErrorExitCode,
		Message:  err.Error(),
		Error:    &response.Error{Msg: err.Error()},
	}
}

func (inv *invocation) finish(ctx context.Context, resp *response.Envelope) response.Response {
	r := resp.Finish()

	inv.logger.InfoContext(ctx, "command completed",
		slog.Bool("success", r.Success),
		slog.Int("exit_code", r.ExitCode),
	)

	return r
}

func (inv *invocation) preparationFailed(
	ctx context.Context,
	resp *response.Envelope,
	err error,
) response.Response {
	resp.Failed()

	msg := err.Error()
	if msg == "" {
		msg = MessageNoCause
	}

	inv.logger.ErrorContext(ctx, "preparation failed", slog.String("error", msg))

	resp.Data().SetMessage(msg)
	resp.Console().ErrorHeader(HeaderPreparationFailed)
	resp.Console().Error(msg)

	detail := &response.Error{Msg: msg}

	var structured *response.Error
	if errors.As(err, &structured) && structured.AdditionalDetails != "" {
		resp.Console().ErrorHeader(response.HeaderErrorDetails)
		resp.Console().Error(structured.AdditionalDetails)
		detail.AdditionalDetails = structured.AdditionalDetails
	}

	resp.SetError(detail)

	return inv.finish(ctx, resp)
}

// unexpected reports a failure of the processor itself under header.
func (inv *invocation) unexpected(resp *response.Envelope, header string, err error) {
	resp.Data().SetMessage(header + ": " + err.Error())
	resp.Console().ErrorHeader(header)
	resp.Console().Error(err.Error())
	resp.SetError(&response.Error{Msg: header, AdditionalDetails: err.Error()})
	resp.Failed()
}

// fillPrompts asks for every positional and option whose value, or first
// array element, is the prompt phrase.
func (inv *invocation) fillPrompts(
	ctx context.Context,
	resp *response.Envelope,
	a args.Set,
	policy *censor.Policy,
) (args.Set, error) {
	ask := func(name, description string, aliases []string) error {
		v, ok := a.Get(name)
		if !ok {
			return nil
		}

		array := false

		switch t := v.(type) {
		case string:
		case []string:
			if len(t) == 0 {
				return nil
			}

			v, array = t[0], true
		case []any:
			if len(t) == 0 {
				return nil
			}

			v, array = t[0], true
		default:
			return nil
		}

		if s, _ := v.(string); !strings.EqualFold(s, inv.promptPhrase) {
			return nil
		}

		inv.logger.DebugContext(ctx, "prompting",
			slog.String("name", name),
			slog.Bool("array", array),
		)

		answer, err := resp.Console().Prompt(ctx,
			fmt.Sprintf("%q Description: %s\nPlease enter %q:", name, description, name),
			policy.IsSecure(name),
		)
		if err != nil {
			return err
		}

		if array {
			a = a.Set(name, aliases, strings.Fields(answer))
		} else {
			a = a.Set(name, aliases, answer)
		}

		return nil
	}

	for _, pos := range inv.def.Positionals {
		if err := ask(pos.ArgName(), pos.Description, nil); err != nil {
			return a, err
		}
	}

	for _, opt := range inv.def.Options {
		if err := ask(args.Format(opt.Name).Kebab, opt.Description, opt.Aliases); err != nil {
			return a, err
		}
	}

	return a, nil
}

// invalidSyntax reports a failed validation with the first example of the
// command and a pointer to its help.
func (inv *invocation) invalidSyntax(ctx context.Context, resp *response.Envelope) {
	inv.logger.ErrorContext(ctx, "syntax is invalid")

	resp.Data().SetMessage(MessageSyntaxInvalid)
	resp.Failed()

	var help strings.Builder

	if len(inv.def.Examples) > 0 {
		ex := inv.def.Examples[0]

		fmt.Fprintf(&help, "\nExample:\n\n- %s:\n\n      $ %s\n",
			ex.Description,
			strings.Join(nonEmpty(inv.root, inv.def.FullName(), ex.Options), " "))
	}

	if pos := inv.params.Arguments.Positionals(); len(pos) > 0 {
		fmt.Fprintf(&help, "\nUse %q to view command description, usage, and options.",
			strings.Join(nonEmpty(inv.root, strings.Join(pos, " "), "--help"), " "))
	} else {
		fmt.Fprintf(&help, "\nUse %q to view command description, usage, and options.",
			inv.def.Name+" --help")
	}

	resp.Console().Error(help.String())
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]

	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}

	return out
}

// load creates the handler for id. On failure it reports the error with the
// process diagnostics on resp and returns nil.
func (inv *invocation) load(ctx context.Context, resp *response.Envelope, id string) handler.Handler {
	inv.logger.InfoContext(ctx, "loading handler", slog.String("handler", id))

	h, err := inv.registry.Load(id)
	if err == nil {
		return h
	}

	inv.logger.ErrorContext(ctx, "handler instantiation failed",
		slog.String("handler", id),
		slog.String("error", err.Error()),
		inv.diagnostics(ctx),
	)

	msg := fmt.Sprintf("Could not instantiate the handler %s for command %s", id, inv.def.Name)

	resp.Failed()
	resp.Console().ErrorHeader(HeaderInstantiationFailed)
	resp.Console().Error(msg)
	resp.Data().SetMessage(msg)
	resp.Console().ErrorHeader(response.HeaderErrorDetails)
	resp.Console().Error(err.Error())
	resp.SetError(&response.Error{Msg: msg, AdditionalDetails: err.Error()})

	return nil
}

// diagnostics describes the process for failures that are hard to
// reproduce. Secure values in the environment are masked.
func (inv *invocation) diagnostics(ctx context.Context) slog.Attr {
	policy := inv.policy(ctx, nil)

	env := inv.environ()
	for i, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		name := strings.TrimPrefix(key, inv.envPrefix+"_")

		if name != key && policy.IsSecure(strings.ReplaceAll(strings.ToLower(name), "_", "-")) {
			env[i] = key + "=" + censor.CensorResponse

			continue
		}

		env[i] = policy.Mask(kv)
	}

	return slog.Group("diagnostics",
		slog.String("platform", runtime.GOOS),
		slog.String("arch", runtime.GOARCH),
		slog.String("args", policy.CommandLine(inv.commandLine)),
		slog.Any("env", env),
	)
}

// rejected reports the failure of handler id on resp.
func (inv *invocation) rejected(
	ctx context.Context,
	resp *response.Envelope,
	id string,
	err error,
) {
	f := response.Classify(handler.Rejection(err))

	inv.logger.ErrorContext(ctx, "handler failed",
		slog.String("handler", id),
		slog.String("kind", f.Kind.String()),
		slog.String("error", err.Error()),
		inv.diagnostics(ctx),
	)

	f.Apply(resp, id)
}

func (inv *invocation) runSingle(
	ctx context.Context,
	resp *response.Envelope,
	prepared Prepared,
) response.Response {
	h := inv.load(ctx, resp, inv.def.Handler)
	if h == nil {
		return inv.finish(ctx, resp)
	}

	err := handler.Invoke(ctx, h, &handler.Params{
		Response:       resp,
		Arguments:      prepared.Args,
		Positionals:    prepared.Args.Positionals(),
		Profiles:       prepared.Profiles,
		Definition:     inv.def,
		FullDefinition: inv.full,
	})
	if err != nil {
		inv.rejected(ctx, resp, inv.def.Handler, err)

		return inv.finish(ctx, resp)
	}

	inv.logger.InfoContext(ctx, "handler succeeded")
	resp.Succeeded()
	resp.Progress().EndBar()

	return inv.finish(ctx, resp)
}

// runChain runs each chained handler in order. Each handler writes to a new
// envelope seeded with the output of the handlers before it; the first
// failure ends the chain.
func (inv *invocation) runChain(
	ctx context.Context,
	resp *response.Envelope,
	prepared Prepared,
	policy *censor.Policy,
) response.Response {
	chain := inv.def.ChainedHandlers

	inv.logger.DebugContext(ctx, "invoking chained handlers", slog.Int("count", len(chain)))

	format := inv.format
	if prepared.Args.GetBool(definition.OptResponseFormatJSON) {
		format = response.FormatJSON
	}

	var (
		prior   []any
		current = resp
		carried = resp.Build()
	)

	for i, link := range chain {
		logger := inv.logger.With(
			slog.String("handler", link.Handler),
			slog.Int("index", i),
		)

		h := inv.load(ctx, current, link.Handler)
		if h == nil {
			logger.ErrorContext(ctx, "aborting handler chain")

			return inv.finish(ctx, current)
		}

		next, err := inv.envelope(format, link.Silent || inv.params.Silent, policy)
		if err != nil {
			return failedResponse(err)
		}

		current.Discard()
		current = next

		current.BufferStdout([]byte(carried.Stdout))
		current.BufferStderr([]byte(carried.Stderr))

		a, err := handler.ChainArguments(inv.root, chain, i, prior, prepared.Args)
		if err == nil {
			err = handler.Invoke(ctx, h, &handler.Params{
				Response:       current,
				Arguments:      a,
				Positionals:    prepared.Args.Positionals(),
				Profiles:       prepared.Profiles,
				Definition:     inv.def,
				FullDefinition: inv.full,
				IsChained:      true,
			})
		}

		if err != nil {
			inv.rejected(ctx, current, link.Handler, err)

			return inv.finish(ctx, current)
		}

		carried = current.Build()
		prior = append(prior, carried.Data)

		logger.DebugContext(ctx, "chained handler succeeded")
	}

	inv.logger.InfoContext(ctx, "chained handlers succeeded")
	current.Succeeded()
	current.Progress().EndBar()

	return inv.finish(ctx, current)
}
