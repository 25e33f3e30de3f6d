//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/alessiogrespi/llmtoolkit"
)

func TestBedrock_DefaultConfigFallback(t *testing.T) {
	token := requireEnv(t, "AWS_BEARER_TOKEN_BEDROCK")
	c := newClient(t, `llm:
  providers:
    aws:
      kind: bedrock
      region: ${AWS_REGION}
      api_key: `+token+`
`)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()
	resp, err := c.Invoke(ctx, "Reply with the single word ok.", "not-a-real-model", llmtoolkit.WithMaxTokens(20))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !resp.FallbackUsed || resp.ModelID != "mistral-small" {
		t.Fatalf("expected fallback to mistral-small, got %+v", resp)
	}
}
