package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("LLM_CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	ResetForTest()
	defer ResetForTest()

	_, err := Load()
	require.Error(t, err)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`llm:
  fallback_model: small
  request_timeout: 15s
  max_tool_rounds: 2
  providers:
    local:
      kind: openai
      base_url: http://localhost:9999/v1
      api_key: ${TEST_LLM_KEY}
      rate_limit: 2.5
      burst: 3
  models:
    small:
      provider: local
      model: gpt-4o-mini
      max_output_tokens: 512
      default_temperature: 0.2
  families:
    - match: gpt-
      provider: local
  sessions:
    backend: redis
    redis:
      addr: ${TEST_REDIS_ADDR}
      ttl: 1h
`), 0o600))
	t.Setenv("TEST_LLM_KEY", "sk-test")
	t.Setenv("TEST_REDIS_ADDR", "localhost:6379")
	t.Setenv("LLM__TOOL_CONCURRENCY", "8")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "small", cfg.FallbackModel)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.MaxToolRounds)
	assert.Equal(t, 8, cfg.ToolConcurrency)

	p := cfg.Providers["local"]
	assert.Equal(t, "openai", p.Kind)
	assert.Equal(t, "sk-test", p.APIKey)
	assert.Equal(t, 2.5, p.RateLimit)
	assert.Equal(t, 3, p.Burst)

	m := cfg.Models["small"]
	assert.Equal(t, "gpt-4o-mini", m.Model)
	assert.Equal(t, 512, m.MaxOutputTokens)
	require.NotNil(t, m.DefaultTemperature)
	assert.Equal(t, 0.2, *m.DefaultTemperature)

	require.Len(t, cfg.Families, 1)
	assert.Equal(t, "gpt-", cfg.Families[0].Match)

	assert.Equal(t, "redis", cfg.Sessions.Backend)
	assert.Equal(t, "localhost:6379", cfg.Sessions.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Sessions.Redis.TTL)
	assert.Equal(t, "conversation:", cfg.Sessions.Redis.KeyPrefix)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultFallbackModel, cfg.FallbackModel)
	assert.Equal(t, "aws", cfg.Models[DefaultFallbackModel].Provider)
	assert.Equal(t, "azure", cfg.Models["gpt-4.1-mini"].Provider)
	assert.Equal(t, "bedrock", cfg.Providers["aws"].Kind)
	assert.Equal(t, 1, cfg.MaxToolRounds)
	assert.Equal(t, "memory", cfg.Sessions.Backend)
	assert.NotEmpty(t, cfg.Families)
}

func TestDefaultsSkipMissingProviders(t *testing.T) {
	cfg := LLMConfig{Providers: map[string]ProviderConfig{"azure": {Kind: "azure"}}}
	applyDefaults(&cfg)
	for id, m := range cfg.Models {
		assert.Equal(t, "azure", m.Provider, id)
	}
	assert.Contains(t, cfg.Models, "gpt-4.1-mini")
	for _, f := range cfg.Families {
		assert.Equal(t, "azure", f.Provider)
	}
	assert.NotEmpty(t, cfg.Families)
}

func TestResolveEnvString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVar   string
		envValue string
		setEnv   bool
		expected string
	}{
		{
			name:     "replaces set environment variable",
			input:    "api-${API_KEY}-suffix",
			envVar:   "API_KEY",
			envValue: "test123",
			setEnv:   true,
			expected: "api-test123-suffix",
		},
		{
			name:     "handles empty environment variable",
			input:    "prefix-${EMPTY_VAR}-suffix",
			envVar:   "EMPTY_VAR",
			envValue: "",
			setEnv:   true,
			expected: "prefix--suffix",
		},
		{
			name:     "handles unset environment variable",
			input:    "prefix-${UNSET_VAR}-suffix",
			envVar:   "UNSET_VAR",
			setEnv:   false,
			expected: "prefix--suffix",
		},
		{
			name:     "no substitution needed",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envVar != "" {
				if tt.setEnv {
					t.Setenv(tt.envVar, tt.envValue)
				} else {
					os.Unsetenv(tt.envVar)
				}
			}
			result := resolveEnvString(tt.input)
			if result != tt.expected {
				t.Errorf("resolveEnvString(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestResolveEnvStringMultiple(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "")
	if got := resolveEnvString("${HOST}:${PORT}"); got != "localhost:" {
		t.Fatalf("got %q", got)
	}
}
