//go:build integration
// +build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	"github.com/alessiogrespi/llmtoolkit"
)

// init loads the nearest .env so API keys need no shell export.
// Existing env vars are not overwritten.
func init() {
	for _, p := range []string{
		".env",
		filepath.Join("..", ".env"),
		filepath.Join("..", "..", ".env"),
	} {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

func requireEnv(t *testing.T, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("%s not set; skipping integration test", key)
	}
	return v
}

func newClient(t *testing.T, yaml string, opts ...llmtoolkit.Option) *llmtoolkit.Client {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := llmtoolkit.NewFromPath(cfgPath, opts...)
	if err != nil {
		t.Fatalf("NewFromPath: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
