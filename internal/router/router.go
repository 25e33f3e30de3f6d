// Package router resolves model ids to provider adapters and applies the
// one-shot fallback policy.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
)

const defaultTimeout = 60 * time.Second

// Router dispatches normalized requests to adapters. Lookups are safe for
// concurrent use; RegisterModel and RegisterFamily take the write lock.
type Router struct {
	mu       sync.RWMutex
	table    Table
	adapters map[string]core.Adapter
	fallback string
	timeout  time.Duration
	logger   *slog.Logger
}

// Option allows functional configuration.
type Option func(*Router)

// WithLogger sets a custom slog logger.
func WithLogger(l *slog.Logger) Option { return func(r *Router) { r.logger = l } }

// WithFallbackModel sets the model retried once when a call fails. Empty disables fallback.
func WithFallbackModel(id string) Option { return func(r *Router) { r.fallback = id } }

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option { return func(r *Router) { r.timeout = d } }

// New builds a router over table. Every binding must name a provider present in adapters.
func New(table Table, adapters map[string]core.Adapter, opts ...Option) (*Router, error) {
	r := &Router{
		table:    table.clone(),
		adapters: make(map[string]core.Adapter, len(adapters)),
		timeout:  defaultTimeout,
		logger:   slog.Default(),
	}
	for name, a := range adapters {
		r.adapters[name] = a
	}
	for _, o := range opts {
		o(r)
	}
	for id, b := range r.table.Models {
		if _, ok := r.adapters[b.Provider]; !ok {
			return nil, fmt.Errorf("%w: model %q uses provider %q", moderr.ErrUnknownProvider, id, b.Provider)
		}
	}
	for _, f := range r.table.Families {
		if _, ok := r.adapters[f.Provider]; !ok {
			return nil, fmt.Errorf("%w: family %q uses provider %q", moderr.ErrUnknownProvider, f.Match, f.Provider)
		}
	}
	return r, nil
}

// NewFromConfig builds a router from the models, families, fallback and timeout settings of cfg.
func NewFromConfig(cfg config.LLMConfig, adapters map[string]core.Adapter, opts ...Option) (*Router, error) {
	base := []Option{WithFallbackModel(cfg.FallbackModel)}
	if cfg.RequestTimeout > 0 {
		base = append(base, WithTimeout(cfg.RequestTimeout))
	}
	return New(TableFromConfig(cfg), adapters, append(base, opts...)...)
}

// RegisterModel adds or replaces an exact binding.
func (r *Router) RegisterModel(b core.Binding) error {
	if b.ModelID == "" {
		return fmt.Errorf("%w: binding without model id", moderr.ErrInvalidRequest)
	}
	if b.NativeModel == "" {
		b.NativeModel = b.ModelID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[b.Provider]; !ok {
		return fmt.Errorf("%w: %q", moderr.ErrUnknownProvider, b.Provider)
	}
	r.table.Models[b.ModelID] = b
	return nil
}

// RegisterFamily appends a family rule; earlier rules win.
func (r *Router) RegisterFamily(f Family) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[f.Provider]; !ok {
		return fmt.Errorf("%w: %q", moderr.ErrUnknownProvider, f.Provider)
	}
	r.table.Families = append(r.table.Families, f)
	return nil
}

// Resolve returns the binding and adapter serving modelID.
func (r *Router) Resolve(modelID string) (core.Binding, core.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.table.resolve(modelID)
	if !ok {
		return core.Binding{}, nil, fmt.Errorf("%w: %q", moderr.ErrUnrecognizedModel, modelID)
	}
	a, ok := r.adapters[b.Provider]
	if !ok {
		return core.Binding{}, nil, fmt.Errorf("%w: %q", moderr.ErrUnknownProvider, b.Provider)
	}
	return b, a, nil
}

// Models lists the exact bindings sorted by model id.
func (r *Router) Models() []core.Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Binding, 0, len(r.table.Models))
	for _, b := range r.table.Models {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// Providers groups the exact model ids by provider.
func (r *Router) Providers() map[string][]string {
	out := map[string][]string{}
	for _, b := range r.Models() {
		out[b.Provider] = append(out[b.Provider], b.ModelID)
	}
	return out
}

func (r *Router) FallbackModel() string { return r.fallback }

// Invoke sends req to the model named by req.ModelID. On failure the fallback
// model is tried exactly once, unless the caller's context is already done or
// the failing model is the fallback itself.
func (r *Router) Invoke(ctx context.Context, req core.ModelRequest) (core.ModelResponse, error) {
	if err := req.Validate(); err != nil {
		return core.ModelResponse{}, err
	}

	resp, err := r.invokeModel(ctx, req, req.ModelID)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return core.ModelResponse{}, err
	}
	if r.fallback == "" || req.ModelID == r.fallback {
		return core.ModelResponse{}, err
	}

	r.logger.Warn("model failed, using fallback",
		slog.String("model", req.ModelID),
		slog.String("fallback_model", r.fallback),
		slog.String("error", err.Error()),
	)
	fbResp, fbErr := r.invokeModel(ctx, req, r.fallback)
	if fbErr != nil {
		return core.ModelResponse{}, &moderr.FallbackError{
			Model:         req.ModelID,
			Err:           err,
			FallbackModel: r.fallback,
			FallbackErr:   fbErr,
		}
	}
	fbResp.FallbackUsed = true
	fbResp.FallbackReason = err.Error()
	fbResp.OriginalModel = req.ModelID
	return fbResp, nil
}

// invokeModel performs one translate, invoke and translate-back cycle bounded
// by the per-call timeout.
func (r *Router) invokeModel(ctx context.Context, req core.ModelRequest, modelID string) (core.ModelResponse, error) {
	b, adapter, err := r.Resolve(modelID)
	if err != nil {
		return core.ModelResponse{}, err
	}
	native, err := adapter.TranslateRequest(req, b)
	if err != nil {
		return core.ModelResponse{}, fmt.Errorf("%s translate request: %w", b.Provider, err)
	}

	timeout := r.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.call(callCtx, adapter, native)
	duration := time.Since(start)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = &moderr.ProviderError{
			Provider:  b.Provider,
			Err:       fmt.Errorf("%w after %s: %v", moderr.ErrProviderTimeout, timeout, err),
			Retryable: true,
		}
	}

	r.logger.Info("llm call",
		slog.String("provider", b.Provider),
		slog.String("model", b.NativeModel),
		slog.String("model_id", modelID),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
		slog.Duration("latency_ms", duration),
		slog.Bool("error", err != nil),
		slog.Bool("retryable", moderr.IsRetryable(err)),
	)
	if err != nil {
		return core.ModelResponse{}, err
	}

	resp.ProviderID = b.Provider
	resp.ModelID = modelID
	resp.FallbackUsed = false
	return resp, nil
}

func (r *Router) call(ctx context.Context, adapter core.Adapter, native core.NativeRequest) (core.ModelResponse, error) {
	nr, err := adapter.Invoke(ctx, native)
	if err != nil {
		return core.ModelResponse{}, err
	}
	resp, err := adapter.TranslateResponse(nr)
	if err != nil {
		return core.ModelResponse{}, fmt.Errorf("%s translate response: %w", adapter.Name(), err)
	}
	return resp, nil
}
