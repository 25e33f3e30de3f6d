// Package coretest provides a scriptable in-memory Adapter for tests.
package coretest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/alessiogrespi/llmtoolkit/internal/core"
)

// ReplyFunc produces the response for one invocation.
type ReplyFunc func(ctx context.Context, req core.ModelRequest, b core.Binding) (core.ModelResponse, error)

// Adapter records every request it translates and answers through Reply.
// The wire body only references the recorded request, so translation is lossless.
type Adapter struct {
	ProviderName string
	Reply        ReplyFunc

	mu      sync.Mutex
	pending []Call
	replies map[int]core.ModelResponse
	invoked []Call
}

// Call is one recorded request.
type Call struct {
	Request core.ModelRequest
	Binding core.Binding
}

func New(name string, reply ReplyFunc) *Adapter {
	return &Adapter{ProviderName: name, Reply: reply, replies: map[int]core.ModelResponse{}}
}

var _ core.Adapter = (*Adapter)(nil)

func (a *Adapter) Name() string { return a.ProviderName }

type ref struct {
	Call int `json:"call"`
}

func (a *Adapter) TranslateRequest(req core.ModelRequest, b core.Binding) (core.NativeRequest, error) {
	a.mu.Lock()
	id := len(a.pending)
	a.pending = append(a.pending, Call{Request: req, Binding: b})
	a.mu.Unlock()
	body, err := json.Marshal(ref{Call: id})
	if err != nil {
		return core.NativeRequest{}, err
	}
	return core.NativeRequest{Model: b.NativeModel, Body: body}, nil
}

func (a *Adapter) Invoke(ctx context.Context, nr core.NativeRequest) (core.NativeResponse, error) {
	var r ref
	if err := json.Unmarshal(nr.Body, &r); err != nil {
		return core.NativeResponse{}, err
	}
	a.mu.Lock()
	if r.Call < 0 || r.Call >= len(a.pending) {
		a.mu.Unlock()
		return core.NativeResponse{}, fmt.Errorf("coretest: unknown call %d", r.Call)
	}
	c := a.pending[r.Call]
	a.invoked = append(a.invoked, c)
	a.mu.Unlock()

	if a.Reply == nil {
		return core.NativeResponse{}, errors.New("coretest: no reply configured")
	}
	resp, err := a.Reply(ctx, c.Request, c.Binding)
	if err != nil {
		return core.NativeResponse{}, err
	}
	a.mu.Lock()
	a.replies[r.Call] = resp
	a.mu.Unlock()
	return core.NativeResponse{Model: nr.Model, Status: 200, Body: nr.Body}, nil
}

func (a *Adapter) TranslateResponse(nr core.NativeResponse) (core.ModelResponse, error) {
	var r ref
	if err := json.Unmarshal(nr.Body, &r); err != nil {
		return core.ModelResponse{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	resp, ok := a.replies[r.Call]
	if !ok {
		return core.ModelResponse{}, fmt.Errorf("coretest: no reply for call %d", r.Call)
	}
	return resp, nil
}

// Invocations reports how many times Invoke was called.
func (a *Adapter) Invocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.invoked)
}

// Calls returns the invoked requests in order.
func (a *Adapter) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.invoked...)
}

// Script replies with responses in order and fails once they run out.
func Script(responses ...core.ModelResponse) ReplyFunc {
	var (
		mu sync.Mutex
		i  int
	)
	return func(context.Context, core.ModelRequest, core.Binding) (core.ModelResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(responses) {
			return core.ModelResponse{}, errors.New("coretest: script exhausted")
		}
		resp := responses[i]
		i++
		return resp, nil
	}
}

// Fail always returns err.
func Fail(err error) ReplyFunc {
	return func(context.Context, core.ModelRequest, core.Binding) (core.ModelResponse, error) {
		return core.ModelResponse{}, err
	}
}

// Echo replies with the text of the last message, or the prompt.
func Echo() ReplyFunc {
	return func(_ context.Context, req core.ModelRequest, _ core.Binding) (core.ModelResponse, error) {
		msgs := req.Conversation()
		text := msgs[len(msgs)-1].Text()
		return core.ModelResponse{Content: text, Usage: core.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}}, nil
	}
}

// Block waits for ctx to end and returns its error.
func Block() ReplyFunc {
	return func(ctx context.Context, _ core.ModelRequest, _ core.Binding) (core.ModelResponse, error) {
		<-ctx.Done()
		return core.ModelResponse{}, ctx.Err()
	}
}
