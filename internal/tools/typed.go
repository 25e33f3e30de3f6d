package tools

import (
	"context"
	"encoding/json"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/util"
)

// Typed builds a spec from the fields of T and a handler that decodes the
// model's arguments into T before calling fn.
func Typed[T any](name, description string, fn func(ctx context.Context, args T) (any, error)) (core.ToolSpec, Handler) {
	var zero T
	props, required := util.ToolParameters(&zero)
	spec := core.ToolSpec{
		Name:        name,
		Description: description,
		Parameters:  props,
		Required:    required,
	}
	h := func(ctx context.Context, raw map[string]any) Result {
		var args T
		b, err := json.Marshal(raw)
		if err != nil {
			return Failf("%v: %s: encode arguments: %v", moderr.ErrToolExecution, name, err)
		}
		if err := json.Unmarshal(b, &args); err != nil {
			return Failf("%v: %s: decode arguments: %v", moderr.ErrToolExecution, name, err)
		}
		out, err := fn(ctx, args)
		if err != nil {
			return Fail(err)
		}
		return OK(out)
	}
	return spec, h
}

// RegisterTyped registers a Typed tool.
func RegisterTyped[T any](r *Registry, name, description string, fn func(ctx context.Context, args T) (any, error)) error {
	spec, h := Typed(name, description, fn)
	return r.Register(spec, h)
}
