package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/providers/httpcall"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

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
		base = defaultBaseURL
	}
	return &Client{name: name, apiKey: pc.APIKey, baseURL: base, transport: httpcall.New(name, hc, pc), logger: logger}
}

func (c *Client) Name() string { return c.name }

type generateRequest struct {
	Contents          []map[string]any `json:"contents"`
	SystemInstruction map[string]any   `json:"systemInstruction,omitempty"`
	Tools             []map[string]any `json:"tools,omitempty"`
	GenerationConfig  map[string]any   `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Role  string `json:"role"`
			Parts []struct {
				Text         string `json:"text"`
				FunctionCall *struct {
					ID   string         `json:"id"`
					Name string         `json:"name"`
					Args map[string]any `json:"args"`
				} `json:"functionCall"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Usage struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (c *Client) TranslateRequest(req core.ModelRequest, b core.Binding) (core.NativeRequest, error) {
	contents, system := mapMessages(req.Conversation())
	if req.SystemPrompt != "" {
		system = append([]string{req.SystemPrompt}, system...)
	}
	payload := generateRequest{
		Contents:         contents,
		GenerationConfig: map[string]any{},
	}
	if len(system) > 0 {
		payload.SystemInstruction = map[string]any{
			"parts": []any{map[string]any{"text": strings.Join(system, "\n\n")}},
		}
	}
	if n := b.MaxTokens(req.MaxTokens); n > 0 {
		payload.GenerationConfig["maxOutputTokens"] = n
	}
	if t := b.Temperature(req); t != nil {
		payload.GenerationConfig["temperature"] = *t
	}
	if v, ok := req.ExtraFloat("top_p"); ok {
		payload.GenerationConfig["topP"] = v
	}
	if v, ok := req.ExtraFloat("top_k"); ok {
		payload.GenerationConfig["topK"] = int(v)
	}
	if stop := req.ExtraStrings("stop_sequences"); len(stop) > 0 {
		payload.GenerationConfig["stopSequences"] = stop
	}
	if len(req.Tools) > 0 {
		payload.Tools = mapTools(req.Tools)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.NativeRequest{}, fmt.Errorf("gemini marshal payload: %w", err)
	}
	return core.NativeRequest{Model: b.NativeModel, Body: body}, nil
}

func (c *Client) Invoke(ctx context.Context, req core.NativeRequest) (core.NativeResponse, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(req.Model))
	status, body, err := c.transport.PostJSON(ctx, endpoint, map[string]string{"x-goog-api-key": c.apiKey}, req.Body)
	if err != nil {
		return core.NativeResponse{}, httpcall.Wrap(c.name, err)
	}
	return core.NativeResponse{Model: req.Model, Status: status, Body: body}, nil
}

func (c *Client) TranslateResponse(resp core.NativeResponse) (core.ModelResponse, error) {
	var gr generateResponse
	if err := json.Unmarshal(resp.Body, &gr); err != nil {
		return core.ModelResponse{}, fmt.Errorf("gemini decode response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		if gr.PromptFeedback.BlockReason != "" {
			return core.ModelResponse{}, fmt.Errorf("gemini prompt blocked: %s", gr.PromptFeedback.BlockReason)
		}
		return core.ModelResponse{}, errors.New("gemini response has no candidates")
	}

	cand := gr.Candidates[0]
	out := core.ModelResponse{
		ModelID:    gr.ModelVersion,
		StopReason: cand.FinishReason,
		Usage: core.Usage{
			PromptTokens:     gr.Usage.PromptTokenCount,
			CompletionTokens: gr.Usage.CandidatesTokenCount,
			TotalTokens:      gr.Usage.TotalTokenCount,
		},
	}
	var text []string
	for _, p := range cand.Content.Parts {
		if p.FunctionCall != nil {
			id := p.FunctionCall.ID
			if id == "" {
				// Older API versions omit call ids.
				id = "call_" + uuid.NewString()
				c.logger.Debug("synthesized tool call id", slog.String("tool", p.FunctionCall.Name), slog.String("id", id))
			}
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{ID: id, Name: p.FunctionCall.Name, Input: args})
			continue
		}
		if p.Text != "" {
			text = append(text, p.Text)
		}
	}
	out.Content = strings.Join(text, "")
	return out, nil
}

// mapMessages converts the conversation into Gemini contents and pulls
// system messages out for systemInstruction. Consecutive messages with the same
// Gemini role are merged since the API expects alternating turns.
func mapMessages(msgs []core.Message) ([]map[string]any, []string) {
	var (
		out    []map[string]any
		system []string
		names  = map[string]string{}
	)
	push := func(role string, parts []any) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1]["role"] == role {
			out[n-1]["parts"] = append(out[n-1]["parts"].([]any), parts...)
			return
		}
		out = append(out, map[string]any{"role": role, "parts": parts})
	}

	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			if t := m.Text(); t != "" {
				system = append(system, t)
			}
		case core.RoleAssistant:
			var parts []any
			if t := m.Text(); t != "" {
				parts = append(parts, map[string]any{"text": t})
			}
			for _, tc := range m.ToolCalls() {
				names[tc.ID] = tc.Name
				args := tc.Input
				if args == nil {
					args = map[string]any{}
				}
				parts = append(parts, map[string]any{"functionCall": map[string]any{"id": tc.ID, "name": tc.Name, "args": args}})
			}
			push("model", parts)
		case core.RoleTool:
			var parts []any
			for _, b := range m.Content {
				if b.Kind != core.BlockToolResult || b.ToolResult == nil {
					continue
				}
				tr := b.ToolResult
				name := tr.Name
				if name == "" {
					name = names[tr.CallID]
				}
				parts = append(parts, map[string]any{"functionResponse": map[string]any{
					"id":       tr.CallID,
					"name":     name,
					"response": responseObject(tr.Payload),
				}})
			}
			push("user", parts)
		default:
			push("user", []any{map[string]any{"text": m.Text()}})
		}
	}
	return out, system
}

// responseObject returns payload as a JSON object; functionResponse.response
// rejects scalars and arrays.
func responseObject(payload json.RawMessage) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err == nil && obj != nil {
		return obj
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return map[string]any{"result": string(payload)}
	}
	return map[string]any{"result": v}
}

// mapTools emits a single tool entry holding every function declaration.
func mapTools(specs []core.ToolSpec) []map[string]any {
	decls := make([]any, len(specs))
	for i, s := range specs {
		decls[i] = map[string]any{
			"name":        s.Name,
			"description": s.Description,
			"parameters":  sanitizeSchema(s.Schema()),
		}
	}
	return []map[string]any{{"functionDeclarations": decls}}
}

// Gemini accepts an OpenAPI subset of JSON Schema.
var unsupportedSchemaKeys = map[string]bool{
	"$schema":              true,
	"$id":                  true,
	"$ref":                 true,
	"$defs":                true,
	"definitions":          true,
	"additionalProperties": true,
	"default":              true,
	"examples":             true,
}

func sanitizeSchema(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if unsupportedSchemaKeys[k] {
				continue
			}
			out[k] = sanitizeSchema(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeSchema(val)
		}
		return out
	default:
		return v
	}
}
