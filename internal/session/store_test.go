package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
)

func sampleTurn() []core.Message {
	call := core.ToolCall{ID: "c1", Name: "GetFigures", Input: map[string]any{"source": "bbc"}}
	return []core.Message{
		core.UserMessage("get bbc figures"),
		core.AssistantMessage("checking", []core.ToolCall{call}),
		core.ToolMessage(core.ToolResult{CallID: "c1", Name: "GetFigures", Payload: json.RawMessage(`{"success":true,"result":1}`)}),
		core.AssistantMessage("1 visitor", nil),
	}
}

// exerciseStore checks the Store contract against any backend.
func exerciseStore(t *testing.T, s Store, id string) {
	t.Helper()
	ctx := context.Background()

	msgs, err := s.ReadAll(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	turn := sampleTurn()
	require.NoError(t, s.Append(ctx, id, turn[:2]...))
	require.NoError(t, s.Append(ctx, id, turn[2:]...))
	require.NoError(t, s.Append(ctx, id))

	got, err := s.ReadAll(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "get bbc figures", got[0].Text())
	assert.Equal(t, turn[1].ToolCalls(), got[1].ToolCalls())
	assert.Equal(t, "c1", got[2].ToolCallID)
	assert.JSONEq(t, `{"success":true,"result":1}`, string(got[2].Content[0].ToolResult.Payload))
	assert.Equal(t, core.RoleAssistant, got[3].Role)

	require.NoError(t, s.Clear(ctx, id))
	got, err = s.ReadAll(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(), "s1")
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "a", core.UserMessage("one")))
	got, _ := s.ReadAll(ctx, "a")
	got[0] = core.UserMessage("changed")
	again, _ := s.ReadAll(ctx, "a")
	assert.Equal(t, "one", again[0].Text())
}

func newMiniRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(config.RedisConfig{Addr: mr.Addr(), TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := newMiniRedisStore(t, time.Minute)
	exerciseStore(t, s, uuid.NewString())
}

func TestRedisStoreKeyLayoutAndTTL(t *testing.T) {
	s, mr := newMiniRedisStore(t, time.Minute)
	ctx := context.Background()

	turn := sampleTurn()
	require.NoError(t, s.Append(ctx, "s1", turn[:2]...))

	items, err := mr.List("conversation:s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	var first core.Message
	require.NoError(t, json.Unmarshal([]byte(items[0]), &first))
	assert.Equal(t, "get bbc figures", first.Text())
	assert.Equal(t, time.Minute, mr.TTL("conversation:s1"))

	mr.FastForward(40 * time.Second)
	require.NoError(t, s.Append(ctx, "s1", turn[2:]...))
	assert.Equal(t, time.Minute, mr.TTL("conversation:s1"), "append refreshes the ttl")

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("conversation:s1"))
	got, err := s.ReadAll(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStoreWithClientPrefixNoTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, "chat:", 0)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Append(context.Background(), "x", core.UserMessage("hi")))
	assert.True(t, mr.Exists("chat:x"))
	assert.False(t, mr.Exists("conversation:x"))
	assert.Zero(t, mr.TTL("chat:x"))
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	s, mr := newMiniRedisStore(t, 0)
	_, err := mr.Push("conversation:bad", "not json")
	require.NoError(t, err)
	_, err = s.ReadAll(context.Background(), "bad")
	assert.ErrorContains(t, err, "decode message 0")
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedisStore(config.RedisConfig{Addr: addr})
	assert.ErrorContains(t, err, "connect redis")
}

func TestNewBackends(t *testing.T) {
	s, err := New(config.SessionConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = New(config.SessionConfig{Backend: "redis"})
	assert.Error(t, err, "redis without an address")

	mr := miniredis.RunT(t)
	s, err = New(config.SessionConfig{Backend: "redis", Redis: config.RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	_ = s.(*RedisStore).Close()

	_, err = New(config.SessionConfig{Backend: "sqlite"})
	assert.Error(t, err)
}

func TestTurnsAcquire(t *testing.T) {
	turns := NewTurns()
	release, err := turns.Acquire("s")
	require.NoError(t, err)

	_, err = turns.Acquire("s")
	assert.ErrorIs(t, err, moderr.ErrSessionBusy)

	other, err := turns.Acquire("t")
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := turns.Acquire("s")
	require.NoError(t, err)
	again()
}

func TestTurnsConcurrent(t *testing.T) {
	turns := NewTurns()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	releases := make(chan func(), 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if rel, err := turns.Acquire("shared"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				releases <- rel
			}
		}()
	}
	close(start)
	wg.Wait()
	close(releases)
	assert.Equal(t, 1, wins)
	for rel := range releases {
		rel()
	}
}
