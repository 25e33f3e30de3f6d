package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/providers/httpcall"
	"github.com/alessiogrespi/llmtoolkit/internal/util"
)

const defaultBaseURL = "https://api.openai.com/v1"

var _ core.Adapter = (*Client)(nil)

// Client speaks the Chat Completions API. When the provider config carries an
// api_version the Azure OpenAI deployment endpoint and api-key header are used.
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	apiVersion string
	azure      bool
	transport  *httpcall.Transport
	logger     *slog.Logger
}

func New(name string, pc config.ProviderConfig, hc *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(pc.BaseURL, "/")
	azure := pc.Kind == "azure" || pc.APIVersion != ""
	if base == "" && !azure {
		base = defaultBaseURL
	}
	return &Client{
		name:       name,
		apiKey:     pc.APIKey,
		baseURL:    base,
		apiVersion: pc.APIVersion,
		azure:      azure,
		transport:  httpcall.New(name, hc, pc),
		logger:     logger,
	}
}

func (c *Client) Name() string { return c.name }

type chatRequest struct {
	Model            string        `json:"model,omitempty"`
	Messages         []chatMessage `json:"messages"`
	Tools            []chatTool    `json:"tools,omitempty"`
	ToolChoice       any           `json:"tool_choice,omitempty"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role      string         `json:"role"`
			Content   any            `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) TranslateRequest(req core.ModelRequest, b core.Binding) (core.NativeRequest, error) {
	payload := chatRequest{
		Model:       b.NativeModel,
		Messages:    mapChatMessages(req.SystemPrompt, req.Conversation()),
		MaxTokens:   b.MaxTokens(req.MaxTokens),
		Temperature: b.Temperature(req),
		Stop:        req.ExtraStrings("stop_sequences"),
	}
	if v, ok := req.ExtraFloat("top_p"); ok {
		payload.TopP = &v
	}
	if v, ok := req.ExtraFloat("frequency_penalty"); ok {
		payload.FrequencyPenalty = &v
	}
	if v, ok := req.ExtraFloat("presence_penalty"); ok {
		payload.PresencePenalty = &v
	}
	if len(req.Tools) > 0 {
		payload.Tools = mapTools(req.Tools)
		payload.ToolChoice = "auto"
		if tc, ok := req.Extra["tool_choice"]; ok {
			payload.ToolChoice = tc
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.NativeRequest{}, fmt.Errorf("openai marshal payload: %w", err)
	}
	return core.NativeRequest{Model: b.NativeModel, Body: body}, nil
}

func (c *Client) Invoke(ctx context.Context, req core.NativeRequest) (core.NativeResponse, error) {
	headers := map[string]string{}
	if c.azure {
		headers["api-key"] = c.apiKey
	} else {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	status, body, err := c.transport.PostJSON(ctx, c.endpoint(req.Model), headers, req.Body)
	if err != nil {
		return core.NativeResponse{}, httpcall.Wrap(c.name, err)
	}
	return core.NativeResponse{Model: req.Model, Status: status, Body: body}, nil
}

func (c *Client) endpoint(model string) string {
	if c.azure {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiVersion))
	}
	return c.baseURL + "/chat/completions"
}

func (c *Client) TranslateResponse(resp core.NativeResponse) (core.ModelResponse, error) {
	var rr chatResponse
	if err := json.Unmarshal(resp.Body, &rr); err != nil {
		return core.ModelResponse{}, fmt.Errorf("openai decode response: %w", err)
	}
	if len(rr.Choices) == 0 {
		return core.ModelResponse{}, errors.New("openai response has no choices")
	}

	choice := rr.Choices[0]
	out := core.ModelResponse{
		Content:    contentText(choice.Message.Content),
		ModelID:    rr.Model,
		StopReason: choice.FinishReason,
		Usage: core.Usage{
			PromptTokens:     rr.Usage.PromptTokens,
			CompletionTokens: rr.Usage.CompletionTokens,
			TotalTokens:      rr.Usage.TotalTokens,
		},
	}
	if len(choice.Message.ToolCalls) > 0 {
		out.ToolCalls = make([]core.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			out.ToolCalls[i] = core.ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: c.parseArguments(tc.Function.Name, tc.Function.Arguments),
			}
		}
	}
	return out, nil
}

// parseArguments decodes the JSON-encoded arguments string, repairing fenced
// or padded JSON when needed.
func (c *Client) parseArguments(tool, args string) map[string]any {
	if strings.TrimSpace(args) == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(args), &m); err == nil {
		return m
	}
	if repaired, ok := util.RepairJSON(args); ok {
		if err := json.Unmarshal([]byte(repaired), &m); err == nil {
			return m
		}
	}
	c.logger.Warn("unparseable tool arguments", slog.String("provider", c.name), slog.String("tool", tool))
	return map[string]any{}
}

// contentText accepts either a plain string or an array of typed parts.
func contentText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, p := range v {
			if m, ok := p.(map[string]any); ok && m["type"] == "text" {
				if s, ok := m["text"].(string); ok {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

func mapChatMessages(system string, msgs []core.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, chatMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		switch m.Role {
		case core.RoleTool:
			for _, b := range m.Content {
				if b.Kind != core.BlockToolResult || b.ToolResult == nil {
					continue
				}
				id := b.ToolResult.CallID
				if id == "" {
					id = m.ToolCallID
				}
				out = append(out, chatMessage{Role: "tool", ToolCallID: id, Content: string(b.ToolResult.Payload)})
			}
		case core.RoleAssistant:
			msg := chatMessage{Role: "assistant"}
			if text := m.Text(); text != "" {
				msg.Content = text
			}
			for _, tc := range m.ToolCalls() {
				args := "{}"
				if len(tc.Input) > 0 {
					if b, err := json.Marshal(tc.Input); err == nil {
						args = string(b)
					}
				}
				msg.ToolCalls = append(msg.ToolCalls, chatToolCall{
					ID:       tc.ID,
					Type:     "function",
					Function: chatFunctionCall{Name: tc.Name, Arguments: args},
				})
			}
			if msg.Content == nil && len(msg.ToolCalls) == 0 {
				msg.Content = ""
			}
			out = append(out, msg)
		default:
			out = append(out, chatMessage{Role: string(m.Role), Content: m.Text()})
		}
	}
	return out
}

func mapTools(specs []core.ToolSpec) []chatTool {
	out := make([]chatTool, len(specs))
	for i, s := range specs {
		out[i] = chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  coerceOpenAIParams(s.Schema()),
			},
		}
	}
	return out
}

// coerceOpenAIParams ensures the parameters meet Chat Completions expectations
// for a function JSON Schema (must be type: object at top-level).
func coerceOpenAIParams(m map[string]any) map[string]any {
	if m["type"] != "object" {
		m["type"] = "object"
	}
	if _, ok := m["properties"]; !ok {
		m["properties"] = map[string]any{}
	}
	return m
}
