// Package retry re-runs provider HTTP calls on transient failures with capped
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"
)

// Config bounds the retry loop. MaxAttempts counts the first call.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterRatio float64
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    3 * time.Second,
		JitterRatio: 0.25,
	}
}

// WithAttempts returns a copy of c with MaxAttempts set when n is positive.
func (c Config) WithAttempts(n int) Config {
	if n > 0 {
		c.MaxAttempts = n
	}
	return c
}

// Backoff returns the un-jittered delay before retry number attempt (1-based).
func (c Config) Backoff(attempt int) time.Duration {
	delay := c.BaseDelay << (attempt - 1)
	if delay <= 0 || delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// delay picks the wait before the next attempt. A server Retry-After hint
// replaces the backoff, capped at MaxDelay.
func (c Config) delay(attempt int, err error) time.Duration {
	var se *HTTPStatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return min(se.RetryAfter, c.MaxDelay)
	}
	d := c.Backoff(attempt)
	return d + time.Duration(rand.Float64()*c.JitterRatio*float64(d))
}

// Do calls fn until it succeeds, returns a non-transient error, the attempts
// run out or ctx ends.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsTransient(err) || attempt >= cfg.MaxAttempts {
			return err
		}
		timer := time.NewTimer(cfg.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// HTTPStatusError is a non-2xx provider response.
type HTTPStatusError struct {
	Status     int
	Body       string
	Source     string
	RetryAfter time.Duration
}

func NewHTTPStatusError(status int, body, source string) *HTTPStatusError {
	return &HTTPStatusError{Status: status, Body: body, Source: source}
}

// FromResponse builds an HTTPStatusError from a failed response. Retry-After
// is read in both its seconds and HTTP-date forms.
func FromResponse(resp *http.Response, body []byte, source string) *HTTPStatusError {
	se := NewHTTPStatusError(resp.StatusCode, string(body), source)
	se.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	return se
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return 0
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Source, e.Status, e.Body)
}

// IsTransient reports whether err is worth another attempt: throttling,
// request timeouts, 5xx responses, network timeouts and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests ||
			se.Status == http.StatusRequestTimeout ||
			se.Status >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF)
}
