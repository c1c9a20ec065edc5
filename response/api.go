package response

import (
	"context"
	"fmt"
	"maps"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

// Console writes text to the stdout and stderr streams of an envelope.
type Console struct{ e *Envelope }

// Log writes a line to stdout and returns it.
func (c Console) Log(msg string) string {
	text := msg + "\n"
	c.e.write(false, text, text)

	return text
}

// Logf formats a line, writes it to stdout, and returns it.
func (c Console) Logf(format string, a ...any) string {
	return c.Log(fmt.Sprintf(format, a...))
}

// Error writes a line to stderr and returns it.
func (c Console) Error(msg string) string {
	text := msg + "\n"
	c.e.write(true, text, text)

	return text
}

// Errorf formats a line, writes it to stderr, and returns it.
func (c Console) Errorf(format string, a ...any) string {
	return c.Error(fmt.Sprintf(format, a...))
}

// ErrorHeader writes "header:" to stderr, styled red on the console.
func (c Console) ErrorHeader(header string) string {
	text := header + ":\n"
	c.e.write(true, text, headerStyle.Render(header+":")+"\n")

	return text
}

// Prompt asks the user for a value. Secure prompts mask the input.
func (c Console) Prompt(ctx context.Context, message string, secure bool) (string, error) {
	if c.e.prompter == nil {
		return "", ErrNoPrompter
	}

	return c.e.prompter.Prompt(ctx, message, secure)
}

// Data sets the structured fields of the response.
type Data struct{ e *Envelope }

// SetMessage sets the summary message of the response.
func (d Data) SetMessage(msg string) {
	d.e.mu.Lock()
	defer d.e.mu.Unlock()

	d.e.message = msg
}

// SetObj sets the data object of the response. With merge, map values are
// deep-merged into the current object, with v winning.
func (d Data) SetObj(v any, merge bool) {
	d.e.mu.Lock()
	defer d.e.mu.Unlock()

	if merge {
		cur, ok1 := d.e.data.(map[string]any)
		next, ok2 := v.(map[string]any)

		if ok1 && ok2 {
			d.e.data = deepMerge(maps.Clone(cur), next)

			return
		}
	}

	d.e.data = v
}

// SetExitCode sets the exit code of the response.
func (d Data) SetExitCode(code int) { d.e.SetExitCode(code) }

func deepMerge(dst, src map[string]any) map[string]any {
	for k, v := range src {
		sub, ok1 := v.(map[string]any)
		cur, ok2 := dst[k].(map[string]any)

		if ok1 && ok2 {
			dst[k] = deepMerge(maps.Clone(cur), sub)

			continue
		}

		dst[k] = v
	}

	return dst
}

// Bar describes an active progress bar.
type Bar struct {
	Status string
}

// Progress controls the single progress bar of an envelope. While a bar is
// active, console output is held and written when the bar ends.
type Progress struct{ e *Envelope }

// StartBar activates bar. It fails with [ErrProgressActive] if a bar is
// already active.
func (p Progress) StartBar(bar Bar) error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if p.e.bar != nil {
		return ErrProgressActive
	}

	if p.e.released {
		return nil
	}

	p.e.bar = &bar
	p.e.heldOut = buffers.Get()
	p.e.heldErr = buffers.Get()

	return nil
}

// Active reports whether a progress bar is active.
func (p Progress) Active() bool {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	return p.e.bar != nil
}

// EndBar ends the active progress bar, if any, and writes the output held
// while it was active.
func (p Progress) EndBar() {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if p.e.bar == nil {
		return
	}

	_, _ = p.e.out.Write([]byte(p.e.raw(string(p.e.heldOut.B))))
	_, _ = p.e.errOut.Write([]byte(p.e.raw(string(p.e.heldErr.B))))

	buffers.Put(p.e.heldOut)
	buffers.Put(p.e.heldErr)
	p.e.heldOut, p.e.heldErr, p.e.bar = nil, nil, nil
}
