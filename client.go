package llmtoolkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/conversation"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/logging"
	"github.com/alessiogrespi/llmtoolkit/internal/loop"
	provfactory "github.com/alessiogrespi/llmtoolkit/internal/providers"
	"github.com/alessiogrespi/llmtoolkit/internal/router"
	"github.com/alessiogrespi/llmtoolkit/internal/session"
	"github.com/alessiogrespi/llmtoolkit/internal/tools"
	"github.com/alessiogrespi/llmtoolkit/internal/tools/builtin"
)

// Client is the only type applications use.
type Client struct {
	router   *router.Router
	tools    *tools.Registry
	loop     *loop.Loop
	sessions session.Store
	turns    *session.Turns
	logger   *slog.Logger
}

// NewFromFile loads config via internal/config.Load and returns a Client.
func NewFromFile(opts ...Option) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(*cfg, opts...)
}

// NewFromPath loads the config file at path and returns a Client.
func NewFromPath(path string, opts ...Option) (*Client, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(*cfg, opts...)
}

// New builds a client from config and options.
func New(cfg config.LLMConfig, opts ...Option) (*Client, error) {
	o := clientOptions{
		httpClient:      &http.Client{Timeout: 2 * time.Minute},
		maxToolRounds:   cfg.MaxToolRounds,
		toolConcurrency: cfg.ToolConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.New(cfg.Logging, os.Stderr)
	}

	adapters, err := provfactory.NewAdapters(cfg, o.httpClient, o.logger)
	if err != nil {
		return nil, err
	}
	for name, a := range o.adapters {
		adapters[name] = a
	}
	rt, err := router.NewFromConfig(cfg, adapters, router.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = session.New(cfg.Sessions)
		if err != nil {
			return nil, err
		}
	}

	registry := tools.NewRegistry(o.logger)
	if o.validator != nil || o.noValidation {
		registry.SetValidator(o.validator)
	}
	return &Client{
		router:   rt,
		tools:    registry,
		loop:     loop.New(rt, registry, loop.WithLogger(o.logger), loop.WithMaxToolRounds(o.maxToolRounds), loop.WithToolConcurrency(o.toolConcurrency)),
		sessions: store,
		turns:    session.NewTurns(),
		logger:   o.logger,
	}, nil
}

// RegisterTool adds a tool with an explicit spec.
func (c *Client) RegisterTool(spec ToolSpec, h ToolHandler) error {
	return c.tools.Register(spec, h)
}

// RegisterBuiltinTools adds the tools shipped with the toolkit, currently
// the time_and_date clock.
func (c *Client) RegisterBuiltinTools() error {
	return builtin.Clock{}.Register(c.tools)
}

// Tools lists the registered tools in registration order.
func (c *Client) Tools() []ToolSpec { return c.tools.List() }

// RegisterModel binds a model id to a configured provider.
func (c *Client) RegisterModel(b Binding) error { return c.router.RegisterModel(b) }

// Models lists the configured model bindings sorted by id.
func (c *Client) Models() []Binding { return c.router.Models() }

// Providers groups model ids by provider.
func (c *Client) Providers() map[string][]string { return c.router.Providers() }

func (c *Client) FallbackModel() string { return c.router.FallbackModel() }

// Invoke runs one stateless turn and returns the final response.
func (c *Client) Invoke(ctx context.Context, prompt, modelID string, opts ...CallOption) (ModelResponse, error) {
	res, err := c.InvokeTurn(ctx, prompt, modelID, opts...)
	if err != nil {
		return ModelResponse{}, err
	}
	return res.Response, nil
}

// InvokeTurn runs one stateless turn and returns the full turn result.
func (c *Client) InvokeTurn(ctx context.Context, prompt, modelID string, opts ...CallOption) (TurnResult, error) {
	req, history, err := c.buildRequest(prompt, modelID, opts)
	if err != nil {
		return TurnResult{}, err
	}
	if len(history) > 0 {
		req.Prompt = ""
	} else if strings.TrimSpace(req.Prompt) == "" {
		return TurnResult{}, fmt.Errorf("%w: prompt or messages required", moderr.ErrInvalidRequest)
	}
	return c.loop.Run(ctx, conversation.New(history...), req)
}

// Chat runs one turn in a persisted session. The session history is sent with
// the prompt and the messages the turn produced are appended to the store.
// Concurrent turns on the same session fail with ErrSessionBusy.
func (c *Client) Chat(ctx context.Context, sessionID, prompt, modelID string, opts ...CallOption) (TurnResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return TurnResult{}, fmt.Errorf("%w: empty prompt", moderr.ErrInvalidRequest)
	}
	release, err := c.turns.Acquire(sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	defer release()

	req, extra, err := c.buildRequest(prompt, modelID, opts)
	if err != nil {
		return TurnResult{}, err
	}
	history, err := c.sessions.ReadAll(ctx, sessionID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	state := conversation.New(history...)
	mark := state.Len()
	state.Append(extra...)
	res, err := c.loop.Run(ctx, state, req)
	if err != nil {
		return TurnResult{}, err
	}
	if err := c.sessions.Append(ctx, sessionID, state.Since(mark)...); err != nil {
		return res, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return res, nil
}

// History returns the stored messages of a session.
func (c *Client) History(ctx context.Context, sessionID string) ([]Message, error) {
	return c.sessions.ReadAll(ctx, sessionID)
}

// ResetSession removes the stored messages of a session.
func (c *Client) ResetSession(ctx context.Context, sessionID string) error {
	return c.sessions.Clear(ctx, sessionID)
}

// Close releases the session backend.
func (c *Client) Close() error {
	if closer, ok := c.sessions.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) buildRequest(prompt, modelID string, opts []CallOption) (core.ModelRequest, []core.Message, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	if modelID == "" {
		modelID = c.router.FallbackModel()
	}
	req := core.ModelRequest{
		Prompt:       prompt,
		ModelID:      modelID,
		Temperature:  o.temperature,
		MaxTokens:    o.maxTokens,
		SystemPrompt: o.systemPrompt,
		Extra:        o.extra,
		Timeout:      o.timeout,
	}
	switch {
	case o.allTools:
		req.Tools = c.tools.List()
	case len(o.toolNames) > 0:
		specs, err := c.tools.Specs(o.toolNames...)
		if err != nil {
			return core.ModelRequest{}, nil, err
		}
		req.Tools = specs
	}
	return req, o.messages, nil
}
