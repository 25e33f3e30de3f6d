package httpcall

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/providers/retry"
)

func fastTransport(attempts int) *Transport {
	t := New("test", &http.Client{Timeout: 5 * time.Second}, config.ProviderConfig{MaxAttempts: attempts})
	t.Retry.BaseDelay = time.Millisecond
	t.Retry.MaxDelay = 2 * time.Millisecond
	return t
}

func TestPostJSONRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(b))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := fastTransport(5)
	status, body, err := tr.PostJSON(context.Background(), srv.URL, map[string]string{"api-key": "secret", "x-empty": ""}, []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.EqualValues(t, 3, calls.Load())
}

func TestPostJSONClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	_, _, err := fastTransport(5).PostJSON(context.Background(), srv.URL, nil, []byte(`{}`))
	var he *retry.HTTPStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Status)
	assert.Equal(t, "bad key", he.Body)
	assert.EqualValues(t, 1, calls.Load())

	wrapped := Wrap("azure", err)
	assert.False(t, moderr.IsRetryable(wrapped))
	assert.True(t, moderr.IsRetryable(Wrap("azure", retry.NewHTTPStatusError(429, "", "azure"))))
	assert.NoError(t, Wrap("azure", nil))
}

func TestRateLimiterConfigured(t *testing.T) {
	tr := New("test", nil, config.ProviderConfig{RateLimit: 2, Burst: 0})
	require.NotNil(t, tr.Limiter)
	assert.Equal(t, 1, tr.Limiter.Burst())
	assert.Nil(t, New("test", nil, config.ProviderConfig{}).Limiter)
}

func TestRateLimiterHonoursCancellation(t *testing.T) {
	tr := New("test", nil, config.ProviderConfig{RateLimit: 0.001, Burst: 1})
	tr.Limiter.Allow() // drain the only token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := tr.PostJSON(ctx, "http://127.0.0.1:1", nil, []byte(`{}`))
	require.Error(t, err)
}
