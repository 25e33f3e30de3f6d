// Package bedrock adapts the Amazon Bedrock Converse API. Requests are
// authenticated with a Bedrock API key sent as a bearer token.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/providers/httpcall"
)

const defaultRegion = "us-east-1"

var _ core.Adapter = (*Client)(nil)

type Client struct {
	name      string
	apiKey    string
	baseURL   string
	transport *httpcall.Transport
	logger    *slog.Logger
}

func New(name string, pc config.ProviderConfig, hc *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(pc.BaseURL, "/")
	if base == "" {
		region := pc.Region
		if region == "" {
			region = defaultRegion
		}
		base = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region)
	}
	return &Client{name: name, apiKey: pc.APIKey, baseURL: base, transport: httpcall.New(name, hc, pc), logger: logger}
}

func (c *Client) Name() string { return c.name }

type converseRequest struct {
	Messages        []message        `json:"messages"`
	System          []textBlock      `json:"system,omitempty"`
	InferenceConfig *inferenceConfig `json:"inferenceConfig,omitempty"`
	ToolConfig      *toolConfig      `json:"toolConfig,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type textBlock struct {
	Text string `json:"text"`
}

type contentBlock struct {
	Text       *string     `json:"text,omitempty"`
	ToolUse    *toolUse    `json:"toolUse,omitempty"`
	ToolResult *toolResult `json:"toolResult,omitempty"`
}

type toolUse struct {
	ToolUseID string         `json:"toolUseId"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
}

type toolResult struct {
	ToolUseID string              `json:"toolUseId"`
	Content   []toolResultContent `json:"content"`
	Status    string              `json:"status,omitempty"`
}

type toolResultContent struct {
	JSON any     `json:"json,omitempty"`
	Text *string `json:"text,omitempty"`
}

type inferenceConfig struct {
	MaxTokens     int      `json:"maxTokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"topP,omitempty"`
	StopSequences []string `json:"stopSequences,omitempty"`
}

type toolConfig struct {
	Tools      []tool         `json:"tools"`
	ToolChoice map[string]any `json:"toolChoice,omitempty"`
}

type tool struct {
	ToolSpec toolSpec `json:"toolSpec"`
}

type toolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

type converseResponse struct {
	Output struct {
		Message message `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
		TotalTokens  int `json:"totalTokens"`
	} `json:"usage"`
}

func (c *Client) TranslateRequest(req core.ModelRequest, b core.Binding) (core.NativeRequest, error) {
	msgs, system := mapMessages(req.Conversation())
	if req.SystemPrompt != "" {
		system = append([]textBlock{{Text: req.SystemPrompt}}, system...)
	}
	payload := converseRequest{
		Messages: msgs,
		System:   system,
		InferenceConfig: &inferenceConfig{
			MaxTokens:     b.MaxTokens(req.MaxTokens),
			Temperature:   b.Temperature(req),
			StopSequences: req.ExtraStrings("stop_sequences"),
		},
	}
	if v, ok := req.ExtraFloat("top_p"); ok {
		payload.InferenceConfig.TopP = &v
	}
	if len(req.Tools) > 0 {
		tc := &toolConfig{Tools: make([]tool, len(req.Tools)), ToolChoice: map[string]any{"auto": map[string]any{}}}
		for i, s := range req.Tools {
			tc.Tools[i] = tool{ToolSpec: toolSpec{
				Name:        s.Name,
				Description: s.Description,
				InputSchema: map[string]any{"json": s.Schema()},
			}}
		}
		payload.ToolConfig = tc
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.NativeRequest{}, fmt.Errorf("bedrock marshal payload: %w", err)
	}
	return core.NativeRequest{Model: b.NativeModel, Body: body}, nil
}

func (c *Client) Invoke(ctx context.Context, req core.NativeRequest) (core.NativeResponse, error) {
	endpoint := fmt.Sprintf("%s/model/%s/converse", c.baseURL, url.PathEscape(req.Model))
	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	status, body, err := c.transport.PostJSON(ctx, endpoint, headers, req.Body)
	if err != nil {
		return core.NativeResponse{}, httpcall.Wrap(c.name, err)
	}
	return core.NativeResponse{Model: req.Model, Status: status, Body: body}, nil
}

func (c *Client) TranslateResponse(resp core.NativeResponse) (core.ModelResponse, error) {
	var cr converseResponse
	if err := json.Unmarshal(resp.Body, &cr); err != nil {
		return core.ModelResponse{}, fmt.Errorf("bedrock decode response: %w", err)
	}
	out := core.ModelResponse{
		ModelID:    resp.Model,
		StopReason: cr.StopReason,
		Usage: core.Usage{
			PromptTokens:     cr.Usage.InputTokens,
			CompletionTokens: cr.Usage.OutputTokens,
			TotalTokens:      cr.Usage.TotalTokens,
		},
	}
	if out.Usage.TotalTokens == 0 {
		out.Usage.TotalTokens = out.Usage.PromptTokens + out.Usage.CompletionTokens
	}
	var text []string
	for _, cb := range cr.Output.Message.Content {
		switch {
		case cb.ToolUse != nil:
			input := cb.ToolUse.Input
			if input == nil {
				input = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{ID: cb.ToolUse.ToolUseID, Name: cb.ToolUse.Name, Input: input})
		case cb.Text != nil && *cb.Text != "":
			text = append(text, *cb.Text)
		}
	}
	out.Content = strings.Join(text, "\n")
	if cr.StopReason == "max_tokens" {
		c.logger.Warn("response truncated at max tokens", slog.String("provider", c.name), slog.String("model", resp.Model))
	}
	return out, nil
}

// mapMessages builds Converse messages. Tool results travel in user-role
// messages and consecutive messages with the same role are merged, since
// Converse requires strictly alternating turns.
func mapMessages(msgs []core.Message) ([]message, []textBlock) {
	var (
		out    []message
		system []textBlock
	)
	push := func(role string, blocks []contentBlock) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, message{Role: role, Content: blocks})
	}

	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			if t := m.Text(); t != "" {
				system = append(system, textBlock{Text: t})
			}
		case core.RoleAssistant:
			var blocks []contentBlock
			if t := m.Text(); t != "" {
				blocks = append(blocks, contentBlock{Text: &t})
			}
			for _, tc := range m.ToolCalls() {
				input := tc.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, contentBlock{ToolUse: &toolUse{ToolUseID: tc.ID, Name: tc.Name, Input: input}})
			}
			push("assistant", blocks)
		case core.RoleTool:
			var blocks []contentBlock
			for _, b := range m.Content {
				if b.Kind != core.BlockToolResult || b.ToolResult == nil {
					continue
				}
				tr := toolResult{ToolUseID: b.ToolResult.CallID, Content: []toolResultContent{resultContent(b.ToolResult.Payload)}}
				if b.ToolResult.IsError {
					tr.Status = "error"
				}
				blocks = append(blocks, contentBlock{ToolResult: &tr})
			}
			push("user", blocks)
		default:
			t := m.Text()
			push("user", []contentBlock{{Text: &t}})
		}
	}
	return out, system
}

// resultContent sends object payloads as json blocks and anything else as text.
func resultContent(payload json.RawMessage) toolResultContent {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err == nil && obj != nil {
		return toolResultContent{JSON: obj}
	}
	s := string(payload)
	return toolResultContent{Text: &s}
}
