package response

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/valyala/bytebufferpool"

	"github.com/ardnew/cmdproc/pkg"
)

// Format selects how the envelope renders its output.
type Format string

const (
	FormatDefault Format = "default"
	FormatJSON    Format = "json"
)

// DefaultErrorExitCode is the exit code of a failed command that did not set
// one.
const DefaultErrorExitCode = 1

var (
	// ErrFormat is returned for a response format other than "default" or
	// "json".
	ErrFormat = pkg.MakeErrorf("invalid response format")

	// ErrProgressActive is returned when a progress bar is started while
	// another is active.
	ErrProgressActive = pkg.MakeErrorf(
		"a progress bar has already been started; call EndBar before starting a new one",
	)

	// ErrNoPrompter is returned by [Console.Prompt] on an envelope without a
	// prompter.
	ErrNoPrompter = pkg.MakeErrorf("no prompter available")
)

// ParseFormat parses a response format. The empty string is [FormatDefault].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatDefault, nil
	case FormatDefault, FormatJSON:
		return f, nil
	default:
		return "", ErrFormat.Wrapf("%q", s)
	}
}

// Censor masks secure values in text written to the console or rendered as
// JSON.
type Censor interface {
	Raw(text string) string
}

// Prompter reads a value from the user.
type Prompter interface {
	Prompt(ctx context.Context, message string, secure bool) (string, error)
}

// Options configures an [Envelope].
type Options struct {
	Format   Format
	Silent   bool
	Stdout   io.Writer // default os.Stdout
	Stderr   io.Writer // default os.Stderr
	Censor   Censor
	Prompter Prompter
}

// Response is the final result of a command.
type Response struct {
	Success  bool   `json:"success"`
	ExitCode int    `json:"exitCode"`
	Message  string `json:"message"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Data     any    `json:"data"`
	Error    *Error `json:"error,omitempty"`
}

// Envelope collects everything a handler reports while it runs. Each
// invocation owns one envelope; its methods are safe for concurrent use by
// the goroutines of a single handler.
type Envelope struct {
	mu sync.Mutex

	format   Format
	silent   bool
	out      io.Writer
	errOut   io.Writer
	censor   Censor
	prompter Prompter

	stdout *bytebufferpool.ByteBuffer
	stderr *bytebufferpool.ByteBuffer

	// held output is written during an active progress bar.
	bar      *Bar
	heldOut  *bytebufferpool.ByteBuffer
	heldErr  *bytebufferpool.ByteBuffer
	released bool

	succeeded bool
	exitCode  *int
	message   string
	data      any
	err       *Error
	final     *Response
}

var buffers bytebufferpool.Pool

// New returns an empty envelope. The command is considered successful until
// [Envelope.Failed] is called.
func New(opts Options) (*Envelope, error) {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	e := &Envelope{
		format:    format,
		silent:    opts.Silent,
		out:       opts.Stdout,
		errOut:    opts.Stderr,
		censor:    opts.Censor,
		prompter:  opts.Prompter,
		stdout:    buffers.Get(),
		stderr:    buffers.Get(),
		succeeded: true,
	}

	if e.out == nil {
		e.out = os.Stdout
	}

	if e.errOut == nil {
		e.errOut = os.Stderr
	}

	return e, nil
}

// Format returns the response format of e.
func (e *Envelope) Format() Format { return e.format }

// Silent reports whether e suppresses all console output.
func (e *Envelope) Silent() bool { return e.silent }

// Succeeded marks the command successful.
func (e *Envelope) Succeeded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.succeeded = true
}

// Failed marks the command failed.
func (e *Envelope) Failed() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.succeeded = false
}

// SetError records the structured error of a failed command.
func (e *Envelope) SetError(err *Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.err = err
}

// SetExitCode sets the exit code reported regardless of success.
func (e *Envelope) SetExitCode(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.exitCode = &code
}

// Console returns the text API of e.
func (e *Envelope) Console() Console { return Console{e} }

// Data returns the structured-data API of e.
func (e *Envelope) Data() Data { return Data{e} }

// Progress returns the progress-bar API of e.
func (e *Envelope) Progress() Progress { return Progress{e} }

// BufferStdout appends data to the stdout buffer without writing it to the
// console.
func (e *Envelope) BufferStdout(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.released {
		_, _ = e.stdout.Write(data)
	}
}

// BufferStderr appends data to the stderr buffer without writing it to the
// console.
func (e *Envelope) BufferStderr(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.released {
		_, _ = e.stderr.Write(data)
	}
}

// write appends text to a stream buffer and, when e is streaming to the
// console, writes display to the stream's writer.
func (e *Envelope) write(toStderr bool, text, display string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return
	}

	buf, held, w := e.stdout, e.heldOut, e.out
	if toStderr {
		buf, held, w = e.stderr, e.heldErr, e.errOut
	}

	_, _ = buf.WriteString(text)

	if e.silent || e.format == FormatJSON {
		return
	}

	if e.bar != nil {
		_, _ = held.WriteString(display)

		return
	}

	_, _ = io.WriteString(w, e.raw(display))
}

func (e *Envelope) raw(text string) string {
	if e.censor == nil {
		return text
	}

	return e.censor.Raw(text)
}

// Build returns the response as it stands. After [Envelope.Finish] it
// returns the finished response.
func (e *Envelope) Build() Response {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.build()
}

func (e *Envelope) build() Response {
	if e.final != nil {
		return *e.final
	}

	code := DefaultErrorExitCode

	switch {
	case e.exitCode != nil:
		code = *e.exitCode
	case e.succeeded:
		code = 0
	}

	return Response{
		Success:  e.succeeded,
		ExitCode: code,
		Message:  e.message,
		Stdout:   string(e.stdout.B),
		Stderr:   string(e.stderr.B),
		Data:     e.data,
		Error:    e.err,
	}
}

// WriteJSON writes the response to stdout as indented JSON.
func (e *Envelope) WriteJSON() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.writeJSON(e.build())
}

func (e *Envelope) writeJSON(r Response) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return pkg.ErrJSONMarshal.Wrap(err)
	}

	_, err = io.WriteString(e.out, e.raw(string(data))+"\n")

	return err
}

// Finish ends any active progress bar, writes the JSON document when the
// format is json and e is not silent, and releases the buffers of e. It
// returns the same response every time it is called.
func (e *Envelope) Finish() Response { return e.close(true) }

// Discard is [Envelope.Finish] without the JSON document. It releases an
// envelope whose response is carried on by another.
func (e *Envelope) Discard() Response { return e.close(false) }

func (e *Envelope) close(write bool) Response {
	e.Progress().EndBar()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.final != nil {
		return *e.final
	}

	r := e.build()

	if write && e.format == FormatJSON && !e.silent {
		_ = e.writeJSON(r)
	}

	buffers.Put(e.stdout)
	buffers.Put(e.stderr)
	e.stdout, e.stderr = nil, nil
	e.released = true
	e.final = &r

	return r
}
