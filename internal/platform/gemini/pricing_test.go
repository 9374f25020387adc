package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/star64ccs/CardStrategy-sub008/internal/config"
)

func TestPriceTable_Cost(t *testing.T) {
	table := NewPriceTable(map[string]config.ModelPricing{
		"Gemini-2.0-Flash": {InputPer1K: 1, OutputPer1K: 2},
		"custom-model":     {InputPer1K: 0.5, OutputPer1K: 0.5},
	})

	tests := []struct {
		name          string
		model         string
		input, output int64
		want          float64
	}{
		{"override wins", "gemini-2.0-flash", 1000, 1000, 3},
		{"custom", "custom-model", 2000, 0, 1},
		{"versioned prefix", "gemini-1.5-pro-002", 1000, 1000, 0.00625},
		{"longest prefix", "gemini-2.0-flash-lite-001", 1000, 0, 0.000075},
		{"unknown model", "gpt-4o", 1000, 1000, 0},
		{"no tokens", "gemini-1.5-pro", 0, 0, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, table.Cost(tt.model, tt.input, tt.output), 1e-12, tt.name)
	}
}
