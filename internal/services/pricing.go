package services

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/voxnote/voxnote-backend/internal/types"
)

// Rates is the price card for one model, USD. Token rates are per token,
// Minute is per transcribed minute.
type Rates struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
	Minute float64 `yaml:"minute"`
}

// PricingService turns usage into an advisory cost figure. Unknown models
// cost 0; pricing must never block or fail the primary response.
type PricingService struct {
	rates map[string]Rates
}

func defaultRates() map[string]Rates {
	return map[string]Rates{
		"gpt-4o-mini":            {Input: 0.15 / 1_000_000, Output: 0.60 / 1_000_000},
		"whisper-1":              {Minute: 0.006},
		"text-embedding-3-small": {Input: 0.02 / 1_000_000},
		"gemini-flash-latest":    {Input: 0.10 / 1_000_000, Output: 0.40 / 1_000_000},
	}
}

// NewPricingService loads the built-in rate card, optionally overlaid with
// entries from a YAML file (PRICING_FILE).
func NewPricingService(overridePath string) (*PricingService, error) {
	rates := defaultRates()
	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read pricing file: %w", err)
		}
		var overrides map[string]Rates
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return nil, fmt.Errorf("parse pricing file: %w", err)
		}
		for model, r := range overrides {
			rates[model] = r
		}
	}
	return &PricingService{rates: rates}, nil
}

// TokenCost prices one generation call.
func (p *PricingService) TokenCost(model string, usage types.Usage) float64 {
	r, ok := p.rates[model]
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)*r.Input + float64(usage.CompletionTokens)*r.Output
}

// MinuteCost prices a transcription of the given duration in seconds.
func (p *PricingService) MinuteCost(model string, durationSeconds float64) float64 {
	r, ok := p.rates[model]
	if !ok {
		return 0
	}
	return durationSeconds / 60 * r.Minute
}

// EmbeddingCost is a rough estimate of one embedding call from the vector
// dimensionality (about 4 bytes per dimension of input budget).
func (p *PricingService) EmbeddingCost(model string, dimensions int) float64 {
	r, ok := p.rates[model]
	if !ok {
		return 0
	}
	return float64(dimensions*4) / 1_000_000 * r.Input
}

// FormatCost renders a cost figure the way the API reports it.
func FormatCost(cost float64) string {
	return strconv.FormatFloat(cost, 'f', 6, 64)
}
