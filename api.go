// Package llmtoolkit is a provider-agnostic LLM invocation layer: one request
// shape for OpenAI, Azure OpenAI, Gemini and Bedrock, a one-shot model
// fallback, and a tool-calling loop with optional session persistence.
package llmtoolkit

import (
	"context"
	"encoding/json"
	"fmt"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/loop"
	"github.com/alessiogrespi/llmtoolkit/internal/tools"
	"github.com/alessiogrespi/llmtoolkit/internal/util"
)

type (
	Message       = core.Message
	ContentBlock  = core.ContentBlock
	ToolCall      = core.ToolCall
	ToolResult    = core.ToolResult
	ToolSpec      = core.ToolSpec
	ModelRequest  = core.ModelRequest
	ModelResponse = core.ModelResponse
	Usage         = core.Usage
	Binding       = core.Binding
	Adapter       = core.Adapter
	Role          = core.Role

	// ToolHandler runs a tool with model-supplied arguments.
	ToolHandler = tools.Handler
	// ToolOutput is the explicit success or failure value a ToolHandler returns.
	ToolOutput = tools.Result
	// ToolValidator checks model-supplied arguments before a tool runs.
	ToolValidator = tools.Validator
	// TurnResult describes a completed turn, tool rounds included.
	TurnResult = loop.Result
)

const (
	RoleSystem    = core.RoleSystem
	RoleUser      = core.RoleUser
	RoleAssistant = core.RoleAssistant
	RoleTool      = core.RoleTool
)

func UserMessage(text string) Message   { return core.UserMessage(text) }
func SystemMessage(text string) Message { return core.SystemMessage(text) }

func AssistantMessage(text string, calls []ToolCall) Message {
	return core.AssistantMessage(text, calls)
}

// OK reports a successful tool run.
func OK(payload any) ToolOutput { return tools.OK(payload) }

// Fail reports a failed tool run; the error text is shown to the model.
func Fail(err error) ToolOutput { return tools.Fail(err) }

// Decode parses the response content into T. If T is string, the raw text is
// returned. Fenced or padded JSON is repaired before giving up.
func Decode[T any](resp ModelResponse) (T, error) {
	var zero T
	if util.IsStringType[T]() {
		return any(resp.Content).(T), nil
	}
	var out T
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		if repaired, ok := util.RepairJSON(resp.Content); ok {
			if err2 := json.Unmarshal([]byte(repaired), &out); err2 == nil {
				return out, nil
			}
		}
		return zero, fmt.Errorf("%w: %v", moderr.ErrStructuredOutput, err)
	}
	return out, nil
}

// InvokeJSON asks for a response matching the JSON schema of T and decodes it.
func InvokeJSON[T any](ctx context.Context, c *Client, prompt, modelID string, opts ...CallOption) (T, ModelResponse, error) {
	var zero T
	if !util.IsStringType[T]() {
		var zeroPtr *T
		opts = append(opts, withSchemaInstruction(util.GenerateJSONSchema(zeroPtr)))
	}
	resp, err := c.Invoke(ctx, prompt, modelID, opts...)
	if err != nil {
		return zero, resp, err
	}
	out, err := Decode[T](resp)
	return out, resp, err
}

// AddTool registers a tool whose parameters are described by the fields of T.
func AddTool[T any](c *Client, name, description string, fn func(ctx context.Context, args T) (any, error)) error {
	return tools.RegisterTyped(c.tools, name, description, fn)
}
