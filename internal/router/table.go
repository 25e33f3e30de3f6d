package router

import (
	"strings"

	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/core"
)

// Family routes any model id containing Match (case-insensitively) to Provider.
type Family struct {
	Match    string
	Provider string
}

// Table is the model id mapping a Router is built from.
type Table struct {
	Models   map[string]core.Binding
	Families []Family
}

// TableFromConfig builds the mapping table from the models and families sections.
func TableFromConfig(cfg config.LLMConfig) Table {
	t := Table{Models: make(map[string]core.Binding, len(cfg.Models))}
	for id, mc := range cfg.Models {
		native := mc.Model
		if native == "" {
			native = id
		}
		t.Models[id] = core.Binding{
			ModelID:            id,
			Provider:           mc.Provider,
			NativeModel:        native,
			MaxOutputTokens:    mc.MaxOutputTokens,
			DefaultTemperature: mc.DefaultTemperature,
		}
	}
	for _, f := range cfg.Families {
		t.Families = append(t.Families, Family{Match: f.Match, Provider: f.Provider})
	}
	return t
}

func (t Table) clone() Table {
	out := Table{
		Models:   make(map[string]core.Binding, len(t.Models)),
		Families: append([]Family(nil), t.Families...),
	}
	for k, v := range t.Models {
		out.Models[k] = v
	}
	return out
}

// resolve checks exact entries first, then family rules in declared order.
// A family match uses the model id itself as the native model.
func (t Table) resolve(modelID string) (core.Binding, bool) {
	if b, ok := t.Models[modelID]; ok {
		return b, true
	}
	lower := strings.ToLower(modelID)
	for _, f := range t.Families {
		if f.Match == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(f.Match)) {
			return core.Binding{ModelID: modelID, Provider: f.Provider, NativeModel: modelID}, true
		}
	}
	return core.Binding{}, false
}
