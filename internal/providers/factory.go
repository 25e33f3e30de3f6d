package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	moderr "github.com/alessiogrespi/llmtoolkit/errors"
	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/providers/bedrock"
	"github.com/alessiogrespi/llmtoolkit/internal/providers/gemini"
	"github.com/alessiogrespi/llmtoolkit/internal/providers/openai"
)

// NewAdapter builds the adapter for one configured provider, selected by its kind.
func NewAdapter(name string, pc config.ProviderConfig, hc *http.Client, logger *slog.Logger) (core.Adapter, error) {
	switch pc.Kind {
	case "openai", "azure":
		return openai.New(name, pc, hc, logger), nil
	case "gemini":
		return gemini.New(name, pc, hc, logger), nil
	case "bedrock":
		return bedrock.New(name, pc, hc, logger), nil
	default:
		return nil, fmt.Errorf("%w: provider %q has kind %q", moderr.ErrUnknownProvider, name, pc.Kind)
	}
}

// NewAdapters builds an adapter for every provider in cfg.
func NewAdapters(cfg config.LLMConfig, hc *http.Client, logger *slog.Logger) (map[string]core.Adapter, error) {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]core.Adapter, len(names))
	for _, name := range names {
		a, err := NewAdapter(name, cfg.Providers[name], hc, logger)
		if err != nil {
			return nil, err
		}
		out[name] = a
	}
	return out, nil
}
