package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFallbackErrorMatchesBothCauses(t *testing.T) {
	orig := fmt.Errorf("%w: unknown-model-xyz", ErrUnrecognizedModel)
	fb := &ProviderError{Provider: "aws", Err: errors.New("access denied")}
	err := error(&FallbackError{Model: "unknown-model-xyz", Err: orig, FallbackModel: "mistral-small", FallbackErr: fb})

	if !errors.Is(err, ErrUnrecognizedModel) {
		t.Fatalf("expected ErrUnrecognizedModel in chain: %v", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "aws" {
		t.Fatalf("expected provider error in chain: %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"unknown-model-xyz", "mistral-small", "access denied"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable", &ProviderError{Provider: "p", Err: ErrProviderTimeout, Retryable: true}, true},
		{"wrapped retryable", fmt.Errorf("call: %w", &ProviderError{Provider: "p", Err: ErrProviderTimeout, Retryable: true}), true},
		{"not retryable", &ProviderError{Provider: "p", Err: errors.New("bad request")}, false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
