package gemini

import (
	"strings"

	"github.com/star64ccs/CardStrategy-sub008/internal/config"
)

// defaultPricing is USD per thousand tokens for the models this service uses.
var defaultPricing = map[string]config.ModelPricing{
	"gemini-2.0-flash":      {InputPer1K: 0.0001, OutputPer1K: 0.0004},
	"gemini-2.0-flash-lite": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
	"gemini-1.5-flash":      {InputPer1K: 0.000075, OutputPer1K: 0.0003},
	"gemini-1.5-pro":        {InputPer1K: 0.00125, OutputPer1K: 0.005},
}

// PriceTable resolves per-model prices, configured entries first.
type PriceTable map[string]config.ModelPricing

// NewPriceTable merges overrides on top of the built-in prices.
func NewPriceTable(overrides map[string]config.ModelPricing) PriceTable {
	table := make(PriceTable, len(defaultPricing)+len(overrides))
	for model, p := range defaultPricing {
		table[model] = p
	}
	for model, p := range overrides {
		table[strings.ToLower(model)] = p
	}
	return table
}

// Cost prices a call. Versioned model names such as "gemini-1.5-pro-002"
// fall back to the longest configured prefix; unknown models cost nothing.
func (t PriceTable) Cost(model string, inputTokens, outputTokens int64) float64 {
	p, ok := t.lookup(strings.ToLower(model))
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
}

func (t PriceTable) lookup(model string) (config.ModelPricing, bool) {
	if p, ok := t[model]; ok {
		return p, true
	}
	best := ""
	for name := range t {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return config.ModelPricing{}, false
	}
	return t[best], true
}
