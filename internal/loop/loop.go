// Package loop drives the tool-calling protocol: call the model, run the tools
// it asks for, feed the results back and return the follow-up answer.
package loop

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/conversation"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/tools"
)

const defaultConcurrency = 4

// Invoker sends one normalized request to a model.
type Invoker interface {
	Invoke(ctx context.Context, req core.ModelRequest) (core.ModelResponse, error)
}

// Executor runs one tool call.
type Executor interface {
	Execute(ctx context.Context, call core.ToolCall) tools.Result
}

// ToolOutcome is the result of one executed call.
type ToolOutcome struct {
	Call   core.ToolCall
	Result tools.Result
}

// Result describes a completed turn.
type Result struct {
	// Response is the final answer: the last follow-up, or the response that
	// requested tools when the follow-up failed.
	Response core.ModelResponse
	// Initial is the first response of the turn.
	Initial  core.ModelResponse
	Outcomes []ToolOutcome
	// Usage accumulates every model call of the turn.
	Usage     core.Usage
	Rounds    int
	ToolCalls int
	// FollowUpErr wraps ErrFollowUpFailure when a follow-up call failed.
	FollowUpErr error
}

type Loop struct {
	invoker     Invoker
	tools       Executor
	maxRounds   int
	concurrency int
	logger      *slog.Logger
}

// Option allows functional configuration.
type Option func(*Loop)

// WithLogger sets a custom slog logger.
func WithLogger(l *slog.Logger) Option { return func(lp *Loop) { lp.logger = l } }

// WithMaxToolRounds sets how many tool rounds one turn may run.
func WithMaxToolRounds(n int) Option { return func(lp *Loop) { lp.maxRounds = n } }

// WithToolConcurrency bounds how many tool calls of one response run at once.
func WithToolConcurrency(n int) Option { return func(lp *Loop) { lp.concurrency = n } }

func New(invoker Invoker, executor Executor, opts ...Option) *Loop {
	l := &Loop{
		invoker:     invoker,
		tools:       executor,
		maxRounds:   1,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.maxRounds <= 0 {
		l.maxRounds = 1
	}
	if l.concurrency <= 0 {
		l.concurrency = defaultConcurrency
	}
	return l
}

// Run executes one turn against state. A non-empty req.Prompt is appended to
// state as a user message first; the request then carries the whole history.
// Tool failures and follow-up failures do not fail the turn.
func (l *Loop) Run(ctx context.Context, state *conversation.State, req core.ModelRequest) (Result, error) {
	if req.Prompt != "" {
		state.Append(core.UserMessage(req.Prompt))
		req.Prompt = ""
	}
	req.Messages = state.Messages()

	resp, err := l.invoker.Invoke(ctx, req)
	if err != nil {
		return Result{}, err
	}
	res := Result{Response: resp, Initial: resp, Usage: resp.Usage}

	// Follow-ups stay on the model that produced the tool calls.
	model := resp.ModelID
	if model == "" {
		model = req.ModelID
	}

	for round := 0; ; round++ {
		if !resp.HasToolCalls() || round >= l.maxRounds {
			state.Append(core.AssistantMessage(resp.Content, nil))
			res.Response = resp
			return res, nil
		}

		state.Append(core.AssistantMessage(resp.Content, resp.ToolCalls))
		outcomes, err := l.runTools(ctx, resp.ToolCalls)
		if err != nil {
			return Result{}, err
		}
		failed := 0
		for _, o := range outcomes {
			if !o.Result.Success {
				failed++
			}
			state.Append(core.ToolMessage(core.ToolResult{
				CallID:  o.Call.ID,
				Name:    o.Call.Name,
				Payload: o.Result.JSON(),
				IsError: !o.Result.Success,
			}))
		}
		res.Outcomes = append(res.Outcomes, outcomes...)
		res.ToolCalls += len(outcomes)
		res.Rounds++
		l.logger.Info("tool round",
			slog.Int("round", res.Rounds),
			slog.Int("calls", len(outcomes)),
			slog.Int("failed", failed),
			slog.String("model", model),
		)

		follow := req
		follow.ModelID = model
		follow.Messages = state.Messages()
		next, err := l.invoker.Invoke(ctx, follow)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			l.logger.Warn("follow-up call failed", slog.String("model", model), slog.String("error", err.Error()))
			res.Response = resp
			res.FollowUpErr = fmt.Errorf("%w: %w", moderr.ErrFollowUpFailure, err)
			return res, nil
		}
		res.Usage = res.Usage.Add(next.Usage)
		resp = next
	}
}

// runTools executes calls concurrently and returns outcomes in call order.
// Tools run detached from ctx; if ctx ends first their results are dropped.
func (l *Loop) runTools(ctx context.Context, calls []core.ToolCall) ([]ToolOutcome, error) {
	out := make([]ToolOutcome, len(calls))
	done := make(chan struct{})
	toolCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(l.concurrency)
		for i, call := range calls {
			i, call := i, call
			g.Go(func() error {
				out[i] = ToolOutcome{Call: call, Result: l.tools.Execute(toolCtx, call)}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
