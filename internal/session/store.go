// Package session persists conversation history between turns.
package session

import (
	"context"
	"fmt"
	"sync"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
)

// Store keeps the ordered messages of each session.
type Store interface {
	Append(ctx context.Context, sessionID string, msgs ...core.Message) error
	ReadAll(ctx context.Context, sessionID string) ([]core.Message, error)
	Clear(ctx context.Context, sessionID string) error
}

// New builds the store selected by cfg.Backend.
func New(cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// Turns serializes turns per session.
type Turns struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewTurns() *Turns {
	return &Turns{active: make(map[string]struct{})}
}

// Acquire marks sessionID busy until release is called. It fails fast with
// ErrSessionBusy when another turn holds the session.
func (t *Turns) Acquire(sessionID string) (release func(), err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.active[sessionID]; busy {
		return nil, fmt.Errorf("%w: %s", moderr.ErrSessionBusy, sessionID)
	}
	t.active[sessionID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.active, sessionID)
			t.mu.Unlock()
		})
	}, nil
}
