package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/cmdproc/pkg"
)

var (
	// ErrCanceled is returned when the user abandons a prompt.
	ErrCanceled = pkg.MakeErrorf("prompt canceled")
	// ErrNoInput is returned when the input ends before a line is read.
	ErrNoInput = pkg.MakeErrorf("no input available for prompt")
)

var (
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	inputPrompt  = "➜ "
)

// Prompter reads a value from the user.
type Prompter interface {
	Prompt(ctx context.Context, message string, secure bool) (string, error)
}

// Func adapts a function to [Prompter].
type Func func(ctx context.Context, message string, secure bool) (string, error)

// Prompt calls f.
func (f Func) Prompt(ctx context.Context, message string, secure bool) (string, error) {
	return f(ctx, message, secure)
}

// Terminal prompts on a terminal.
type Terminal struct {
	in  io.Reader
	out io.Writer

	// interactive reports whether in is a terminal.
	interactive bool

	mu    sync.Mutex
	once  sync.Once
	lines chan line
}

// line is one read of the non-interactive input.
type line struct {
	text string
	err  error
}

// NewTerminal returns a prompter reading from in and writing to out. Nil
// values default to the process standard streams.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	if in == nil {
		in = os.Stdin
	}

	if out == nil {
		out = os.Stderr
	}

	t := &Terminal{in: in, out: out}

	if f, ok := in.(*os.File); ok {
		t.interactive = term.IsTerminal(int(f.Fd()))
	}

	return t
}

// Interactive reports whether prompts are drawn as a text input.
func (t *Terminal) Interactive() bool { return t.interactive }

// Prompt writes message and returns the line entered. A secure prompt does
// not echo its input.
func (t *Terminal) Prompt(ctx context.Context, message string, secure bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interactive {
		return t.draw(ctx, message, secure)
	}

	return t.readLine(ctx, message, secure)
}

func (t *Terminal) draw(ctx context.Context, message string, secure bool) (string, error) {
	m := newModel(message, secure)

	final, err := tea.NewProgram(
		m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", ctx.Err()
		}

		return "", err
	}

	fm, _ := final.(model)
	if fm.canceled {
		return "", ErrCanceled
	}

	return fm.input.Value(), nil
}

func (t *Terminal) readLine(ctx context.Context, message string, secure bool) (string, error) {
	fmt.Fprintln(t.out, message)

	if secure {
		if f, ok := t.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(t.out)

			return string(b), err
		}
	}

	t.once.Do(t.startReader)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-t.lines:
		if !ok {
			return "", ErrNoInput
		}

		if r.err != nil && (!errors.Is(r.err, io.EOF) || r.text == "") {
			if errors.Is(r.err, io.EOF) {
				return "", ErrNoInput
			}

			return "", r.err
		}

		return strings.TrimRight(r.text, "\r\n"), nil
	}
}

// startReader reads t.in line by line until it fails. A line read after its
// prompt was canceled is handed to the next prompt.
func (t *Terminal) startReader() {
	t.lines = make(chan line)

	go func() {
		defer close(t.lines)

		r := bufio.NewReader(t.in)

		for {
			text, err := r.ReadString('\n')
			t.lines <- line{text, err}

			if err != nil {
				return
			}
		}
	}()
}

// model is a single-line text input that quits on enter.
type model struct {
	message  string
	input    textinput.Model
	done     bool
	canceled bool
}

func newModel(message string, secure bool) model {
	ti := textinput.New()
	ti.Prompt = inputPrompt
	ti.Focus()

	if secure {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}

	return model{message: message, input: ti}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true

			return m, tea.Quit

		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true

			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.done || m.canceled {
		return ""
	}

	return messageStyle.Render(m.message) + "\n" + m.input.View() + "\n"
}

// Scripted answers prompts from a fixed list, in order, and records the
// messages it was asked.
type Scripted struct {
	mu       sync.Mutex
	answers  []string
	messages []string
	secure   []bool
}

// NewScripted returns a prompter that answers with answers.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

// Prompt returns the next answer, or [ErrNoInput] when none remain.
func (s *Scripted) Prompt(ctx context.Context, message string, secure bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, message)
	s.secure = append(s.secure, secure)

	if len(s.answers) == 0 {
		return "", ErrNoInput
	}

	answer := s.answers[0]
	s.answers = s.answers[1:]

	return answer, nil
}

// Messages returns the messages prompted so far.
func (s *Scripted) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.messages...)
}

// Secure returns, per prompt so far, whether it was secure.
func (s *Scripted) Secure() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]bool(nil), s.secure...)
}
