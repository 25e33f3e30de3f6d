// Package tools holds the callable tools a model may request.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
)

// Handler runs a tool with model-supplied arguments.
type Handler func(ctx context.Context, args map[string]any) Result

// Tool pairs a spec with its handler.
type Tool struct {
	Spec    core.ToolSpec
	Handler Handler
}

// Registry maps tool names to tools. Lookups are safe for concurrent use;
// registration is expected to finish before routing starts.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	order     []string
	validator Validator
	logger    *slog.Logger
}

// NewRegistry creates a registry backed by the default validator.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:     make(map[string]Tool),
		validator: DefaultValidator{},
		logger:    logger,
	}
}

// Register inserts a tool when its name is not in use.
func (r *Registry) Register(spec core.ToolSpec, h Handler) error {
	if h == nil {
		return fmt.Errorf("tool %q has no handler", spec.Name)
	}
	if spec.Name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("tool %s already registered", spec.Name)
	}
	r.tools[spec.Name] = Tool{Spec: spec, Handler: h}
	r.order = append(r.order, spec.Name)
	return nil
}

// SetValidator swaps the validator used before execution. Nil disables validation.
func (r *Registry) SetValidator(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validator = v
}

// Resolve fetches a tool by name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %q", moderr.ErrUnknownTool, name)
	}
	return t, nil
}

// List returns every spec in registration order.
func (r *Registry) List() []core.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.ToolSpec, len(r.order))
	for i, name := range r.order {
		out[i] = r.tools[name].Spec
	}
	return out
}

// Specs returns the specs for names in the given order.
func (r *Registry) Specs(names ...string) ([]core.ToolSpec, error) {
	out := make([]core.ToolSpec, 0, len(names))
	for _, name := range names {
		t, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t.Spec)
	}
	return out, nil
}

// Execute runs the tool named by call. Unknown tools, invalid arguments,
// handler failures and panics all come back as failed Results.
func (r *Registry) Execute(ctx context.Context, call core.ToolCall) (res Result) {
	t, err := r.Resolve(call.Name)
	if err != nil {
		r.logger.Warn("tool call rejected", slog.String("tool", call.Name), slog.String("call_id", call.ID), slog.String("error", err.Error()))
		return Fail(err)
	}

	// Covers custom validators as well as the handler.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", slog.String("tool", call.Name), slog.Any("panic", rec))
			res = Fail(fmt.Errorf("%w: %s panicked: %v", moderr.ErrToolExecution, call.Name, rec))
		}
	}()

	args := call.Input
	if args == nil {
		args = map[string]any{}
	}

	r.mu.RLock()
	validator := r.validator
	r.mu.RUnlock()
	if validator != nil {
		if err := validator.Validate(args, t.Spec); err != nil {
			r.logger.Warn("tool arguments invalid", slog.String("tool", call.Name), slog.String("call_id", call.ID), slog.String("error", err.Error()))
			return Fail(fmt.Errorf("%w: %s: invalid arguments: %v", moderr.ErrToolExecution, call.Name, err))
		}
	}

	res = t.Handler(ctx, args)
	if !res.Success {
		r.logger.Info("tool failed", slog.String("tool", call.Name), slog.String("call_id", call.ID), slog.String("error", res.Error))
	}
	return res
}
