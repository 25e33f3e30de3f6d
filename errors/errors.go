package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnrecognizedModel = errors.New("unrecognized model")
	ErrUnknownTool       = errors.New("unknown tool requested")
	ErrToolExecution     = errors.New("tool execution failed")
	ErrFollowUpFailure   = errors.New("follow-up call after tool execution failed")
	ErrProviderTimeout   = errors.New("provider call timed out")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrSessionBusy       = errors.New("session already has a turn in flight")
	ErrStructuredOutput  = errors.New("structured output required but invalid")
)

// ProviderError is returned by adapters for transport, auth and rate-limit failures.
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a retryable ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// FallbackError is raised when both the requested model and the fallback model failed.
type FallbackError struct {
	Model         string
	Err           error
	FallbackModel string
	FallbackErr   error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("model router: original model %q failed: %v; fallback model %q also failed: %v",
		e.Model, e.Err, e.FallbackModel, e.FallbackErr)
}

func (e *FallbackError) Unwrap() []error { return []error{e.Err, e.FallbackErr} }
