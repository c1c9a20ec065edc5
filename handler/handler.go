package handler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/pkg"
	"github.com/ardnew/cmdproc/profiles"
	"github.com/ardnew/cmdproc/response"
)

// ErrInstantiation is returned by [Registry.Load] when a handler cannot be
// created. It is distinct from a handler that fails while running.
var ErrInstantiation = pkg.MakeErrorf("handler instantiation failed")

// Params is everything a handler receives.
type Params struct {
	Response       *response.Envelope
	Arguments      args.Set
	Positionals    []string
	Profiles       profiles.Resolution
	Definition     *definition.Command
	FullDefinition *definition.Command
	IsChained      bool
}

// Handler runs one command. A returned error rejects the command; see
// [Reject] for rejecting with a value that is not an error.
type Handler interface {
	Process(ctx context.Context, p *Params) error
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(ctx context.Context, p *Params) error

// Process calls f.
func (f HandlerFunc) Process(ctx context.Context, p *Params) error { return f(ctx, p) }

// Factory creates a handler.
type Factory func() (Handler, error)

// Registry maps handler ids to factories.
type Registry struct {
	// Lookup resolves ids that were not registered.
	Lookup func(id string) (Factory, bool)

	mu        sync.RWMutex
	factories map[string]Factory
}

// Register adds the factory for id, replacing any previous one.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.factories == nil {
		r.factories = map[string]Factory{}
	}

	r.factories[id] = f
}

// IDs returns the registered ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for id := range r.factories {
		out = append(out, id)
	}

	return out
}

func (r *Registry) factory(id string) (Factory, bool) {
	r.mu.RLock()
	f, ok := r.factories[id]
	r.mu.RUnlock()

	if ok {
		return f, true
	}

	if r.Lookup != nil {
		return r.Lookup(id)
	}

	return nil, false
}

// Load creates the handler registered for id. A missing factory, a factory
// error, and a factory panic all fail with [ErrInstantiation].
func (r *Registry) Load(id string) (h Handler, err error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInstantiation.Wrapf("empty handler id")
	}

	f, ok := r.factory(id)
	if !ok || f == nil {
		return nil, ErrInstantiation.Wrapf("no handler registered for %q", id)
	}

	defer func() {
		if v := recover(); v != nil {
			h, err = nil, ErrInstantiation.Wrapf("handler %q panicked: %v", id, v)
		}
	}()

	h, err = f()
	if err != nil {
		return nil, ErrInstantiation.Wrapf("handler %q", id).Wrap(err)
	}

	if h == nil {
		return nil, ErrInstantiation.Wrapf("handler %q: factory returned nil", id)
	}

	return h, nil
}

// Invoke runs h. A panic is recovered into a [response.Panic] carrying the
// stack of the panicking goroutine.
func Invoke(ctx context.Context, h Handler, p *Params) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &response.Panic{Value: v, Stack: string(debug.Stack())}
		}
	}()

	return h.Process(ctx, p)
}

// Rejected carries a rejection value that is not an error, such as a plain
// message or a data object.
type Rejected struct {
	Value any
}

func (r *Rejected) Error() string {
	if r.Value == nil {
		return "rejected"
	}

	return fmt.Sprint(r.Value)
}

// Reject returns an error that rejects a command with v. A string is
// reported as a message, nil as a bare failure, and any other value is
// stored as the response data.
func Reject(v any) error { return &Rejected{Value: v} }

// Rejection returns the value to classify for err: the value of a
// [Rejected] in its chain, or err itself.
func Rejection(err error) any {
	var r *Rejected
	if errors.As(err, &r) {
		return r.Value
	}

	return err
}
