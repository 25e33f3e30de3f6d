// Package httpcall is the JSON-over-HTTPS transport shared by provider adapters.
package httpcall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/providers/retry"
)

// Transport posts JSON bodies with rate limiting and transient-failure retries.
type Transport struct {
	Source     string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Retry      retry.Config
}

// New builds a Transport for one provider. A zero RateLimit disables limiting.
func New(source string, hc *http.Client, pc config.ProviderConfig) *Transport {
	if hc == nil {
		hc = http.DefaultClient
	}
	t := &Transport{
		Source:     source,
		HTTPClient: hc,
		Retry:      retry.DefaultConfig().WithAttempts(pc.MaxAttempts),
	}
	if pc.RateLimit > 0 {
		burst := pc.Burst
		if burst <= 0 {
			burst = 1
		}
		t.Limiter = rate.NewLimiter(rate.Limit(pc.RateLimit), burst)
	}
	return t
}

// PostJSON sends body to url and returns the status and response body of the
// first non-transient outcome. Non-2xx responses are returned as *retry.HTTPStatusError.
func (t *Transport) PostJSON(ctx context.Context, url string, headers map[string]string, body []byte) (int, []byte, error) {
	var (
		status int
		out    []byte
	)
	err := retry.Do(ctx, t.Retry, func() error {
		if t.Limiter != nil {
			if err := t.Limiter.Wait(ctx); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			if v == "" {
				continue
			}
			req.Header.Set(k, v)
		}

		resp, err := t.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s read body: %w", t.Source, err)
		}
		if resp.StatusCode >= 400 {
			return retry.FromResponse(resp, b, t.Source)
		}
		status, out = resp.StatusCode, b
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return status, out, nil
}

// Wrap converts a transport error into a ProviderError, classifying
// retryability from the error type.
func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &moderr.ProviderError{Provider: provider, Err: err, Retryable: retry.IsTransient(err)}
}
