package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the explicit outcome of a tool handler.
type Result struct {
	Success bool
	Payload any
	Error   string
}

// OK reports a successful run carrying payload.
func OK(payload any) Result { return Result{Success: true, Payload: payload} }

// Fail reports a failed run.
func Fail(err error) Result {
	if err == nil {
		return Result{Error: "unknown error"}
	}
	return Result{Error: err.Error()}
}

// Failf reports a failed run with a formatted message.
func Failf(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

type envelope struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON encodes the result as the payload sent back to the model:
// {"success":true,"result":...} or {"success":false,"error":"..."}.
func (r Result) JSON() json.RawMessage {
	env := envelope{Success: r.Success}
	if r.Success {
		env.Result = r.Payload
	} else {
		env.Error = r.Error
	}
	b, err := json.Marshal(env)
	if err != nil {
		b, _ = json.Marshal(envelope{Error: fmt.Sprintf("tool result is not JSON-serializable: %v", err)})
	}
	return b
}
