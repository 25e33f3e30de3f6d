package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
)

// Adapter is implemented by provider adapters. Each adapter owns the
// translation between the normalized shapes in this package and its wire format.
type Adapter interface {
	Name() string
	TranslateRequest(req ModelRequest, b Binding) (NativeRequest, error)
	Invoke(ctx context.Context, req NativeRequest) (NativeResponse, error)
	TranslateResponse(resp NativeResponse) (ModelResponse, error)
}

// NativeRequest is a provider wire request body plus the provider model id it targets.
type NativeRequest struct {
	Model string
	Body  json.RawMessage
}

// NativeResponse is a provider wire response body.
type NativeResponse struct {
	Model  string
	Status int
	Body   json.RawMessage
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is a tagged variant; exactly one of Text, ToolUse or ToolResult
// is meaningful, selected by Kind.
type ContentBlock struct {
	Kind       BlockKind   `json:"kind"`
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolCall   `json:"tool_use,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

func TextBlock(s string) ContentBlock { return ContentBlock{Kind: BlockText, Text: s} }

func ToolUseBlock(tc ToolCall) ContentBlock {
	return ContentBlock{Kind: BlockToolUse, ToolUse: &tc}
}

func ToolResultBlock(tr ToolResult) ContentBlock {
	return ContentBlock{Kind: BlockToolResult, ToolResult: &tr}
}

// ToolCall is a model-issued request to run a named tool.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// ToolResult carries the JSON payload produced for a ToolCall.
type ToolResult struct {
	CallID  string          `json:"call_id"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload"`
	IsError bool            `json:"is_error,omitempty"`
}

// Message is one conversational message.
type Message struct {
	Role       Role           `json:"role"`
	Content    []ContentBlock `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantMessage builds an assistant message carrying text (when non-empty)
// followed by one tool-use block per call.
func AssistantMessage(text string, calls []ToolCall) Message {
	m := Message{Role: RoleAssistant, Content: make([]ContentBlock, 0, 1+len(calls))}
	if text != "" || len(calls) == 0 {
		m.Content = append(m.Content, TextBlock(text))
	}
	for _, c := range calls {
		m.Content = append(m.Content, ToolUseBlock(c))
	}
	return m
}

func ToolMessage(tr ToolResult) Message {
	return Message{Role: RoleTool, ToolCallID: tr.CallID, Content: []ContentBlock{ToolResultBlock(tr)}}
}

// Text concatenates the text blocks of the message.
func (m Message) Text() string {
	var parts []string
	for _, b := range m.Content {
		if b.Kind == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolCalls returns the tool-use blocks of the message in order.
func (m Message) ToolCalls() []ToolCall {
	var out []ToolCall
	for _, b := range m.Content {
		if b.Kind == BlockToolUse && b.ToolUse != nil {
			out = append(out, *b.ToolUse)
		}
	}
	return out
}

// ToolSpec describes a tool advertised to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Required    []string       `json:"required,omitempty"`
}

// Schema renders the spec as a JSON Schema object of the shape
// {"type":"object","properties":{...},"required":[...]}.
func (s ToolSpec) Schema() map[string]any {
	props := map[string]any{}
	for k, v := range s.Parameters {
		if v == nil {
			v = map[string]any{"type": "string"}
		}
		props[k] = v
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.Required) > 0 {
		schema["required"] = append([]string(nil), s.Required...)
	}
	return schema
}

// ModelRequest is the normalized request accepted by the router.
type ModelRequest struct {
	Prompt       string
	ModelID      string
	Messages     []Message
	Tools        []ToolSpec
	Temperature  *float64
	MaxTokens    int
	SystemPrompt string
	Extra        map[string]any

	// Timeout overrides the router's per-call timeout when positive.
	Timeout time.Duration
}

// Validate checks the request invariants.
func (r ModelRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" && len(r.Messages) == 0 {
		return fmt.Errorf("%w: prompt or messages required", moderr.ErrInvalidRequest)
	}
	seen := make(map[string]struct{}, len(r.Tools))
	for _, t := range r.Tools {
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%w: duplicate tool %q", moderr.ErrInvalidRequest, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// Conversation returns the messages to send: Messages when present,
// otherwise a single user message carrying Prompt.
func (r ModelRequest) Conversation() []Message {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	return []Message{UserMessage(r.Prompt)}
}

// ExtraFloat reads a numeric provider option from Extra.
func (r ModelRequest) ExtraFloat(key string) (float64, bool) {
	switch v := r.Extra[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// ExtraStrings reads a string list option (e.g. stop_sequences) from Extra.
func (r ModelRequest) ExtraStrings(key string) []string {
	switch v := r.Extra[key].(type) {
	case []string:
		return v
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// ModelResponse is the normalized response. ToolCalls is nil exactly when the
// provider issued no tool-use block.
type ModelResponse struct {
	Content        string     `json:"content"`
	ToolCalls      []ToolCall `json:"tool_calls,omitempty"`
	Usage          Usage      `json:"usage"`
	ProviderID     string     `json:"provider"`
	ModelID        string     `json:"model"`
	StopReason     string     `json:"stop_reason,omitempty"`
	FallbackUsed   bool       `json:"fallback_used"`
	FallbackReason string     `json:"fallback_reason,omitempty"`
	OriginalModel  string     `json:"original_model,omitempty"`
}

func (r ModelResponse) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Binding ties a model id to exactly one provider and its native model id.
type Binding struct {
	ModelID            string   `json:"model_id"`
	Provider           string   `json:"provider"`
	NativeModel        string   `json:"native_model"`
	MaxOutputTokens    int      `json:"max_output_tokens,omitempty"`
	DefaultTemperature *float64 `json:"default_temperature,omitempty"`
}

// MaxTokens bounds a requested token budget by the binding's output limit.
// A zero request takes the limit.
func (b Binding) MaxTokens(requested int) int {
	return boundedInt(requested, b.MaxOutputTokens)
}

// Temperature returns the request temperature, else the binding default.
func (b Binding) Temperature(req ModelRequest) *float64 {
	if req.Temperature != nil {
		return req.Temperature
	}
	return b.DefaultTemperature
}

func boundedInt(req, max int) int {
	if max <= 0 {
		return req
	}
	if req <= 0 {
		return max
	}
	if req > max {
		return max
	}
	return req
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 { return &v }
