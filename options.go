package llmtoolkit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/session"
	"github.com/alessiogrespi/llmtoolkit/internal/tools"
)

type clientOptions struct {
	logger          *slog.Logger
	httpClient      *http.Client
	maxToolRounds   int
	toolConcurrency int
	store           session.Store
	adapters        map[string]core.Adapter
	validator       tools.Validator
	noValidation    bool
}

// Option allows functional configuration.
type Option func(*clientOptions)

// WithLogger sets a custom slog logger.
func WithLogger(l *slog.Logger) Option { return func(o *clientOptions) { o.logger = l } }

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) Option { return func(o *clientOptions) { o.httpClient = c } }

// WithMaxToolRounds sets the maximum tool rounds per turn.
func WithMaxToolRounds(n int) Option { return func(o *clientOptions) { o.maxToolRounds = n } }

// WithToolConcurrency bounds parallel tool execution within one response.
func WithToolConcurrency(n int) Option { return func(o *clientOptions) { o.toolConcurrency = n } }

// WithSessionStore replaces the configured session backend.
func WithSessionStore(s session.Store) Option { return func(o *clientOptions) { o.store = s } }

// WithAdapter registers or replaces the adapter for a provider id.
func WithAdapter(provider string, a core.Adapter) Option {
	return func(o *clientOptions) {
		if o.adapters == nil {
			o.adapters = map[string]core.Adapter{}
		}
		o.adapters[provider] = a
	}
}

// WithToolValidator replaces the default tool argument validator. Nil turns
// validation off.
func WithToolValidator(v ToolValidator) Option {
	return func(o *clientOptions) {
		o.validator = v
		o.noValidation = v == nil
	}
}

type callOptions struct {
	messages     []core.Message
	toolNames    []string
	allTools     bool
	temperature  *float64
	maxTokens    int
	systemPrompt string
	extra        map[string]any
	timeout      time.Duration
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

// WithMessages supplies the conversation to send. When set, the prompt
// argument of Invoke is ignored.
func WithMessages(msgs ...core.Message) CallOption {
	return func(o *callOptions) { o.messages = append(o.messages, msgs...) }
}

// WithTools offers the named registered tools to the model.
func WithTools(names ...string) CallOption {
	return func(o *callOptions) { o.toolNames = append(o.toolNames, names...) }
}

// WithAllTools offers every registered tool.
func WithAllTools() CallOption { return func(o *callOptions) { o.allTools = true } }

func WithTemperature(t float64) CallOption {
	return func(o *callOptions) { o.temperature = core.Float(t) }
}

func WithMaxTokens(n int) CallOption { return func(o *callOptions) { o.maxTokens = n } }

func WithSystemPrompt(s string) CallOption { return func(o *callOptions) { o.systemPrompt = s } }

// WithExtra sets a provider-specific option such as top_p or stop_sequences.
func WithExtra(key string, value any) CallOption {
	return func(o *callOptions) {
		if o.extra == nil {
			o.extra = map[string]any{}
		}
		o.extra[key] = value
	}
}

// WithTimeout bounds each model call of the turn.
func WithTimeout(d time.Duration) CallOption { return func(o *callOptions) { o.timeout = d } }

func withSchemaInstruction(schema string) CallOption {
	return func(o *callOptions) {
		instr := "Respond only with a JSON value matching this JSON schema:\n" + schema
		if o.systemPrompt != "" {
			o.systemPrompt += "\n\n" + instr
			return
		}
		o.systemPrompt = instr
	}
}
