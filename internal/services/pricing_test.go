package services

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxnote/voxnote-backend/internal/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestTokenCost(t *testing.T) {
	pricing, err := NewPricingService("")
	if err != nil {
		t.Fatalf("NewPricingService() error = %v", err)
	}

	usage := types.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}

	got := pricing.TokenCost("gpt-4o-mini", usage)
	want := 1000*0.15/1_000_000 + 500*0.60/1_000_000
	if !almostEqual(got, want) {
		t.Errorf("TokenCost(gpt-4o-mini) = %v, want %v", got, want)
	}

	if got := pricing.TokenCost("some-unknown-model", usage); got != 0 {
		t.Errorf("TokenCost(unknown) = %v, want 0", got)
	}
}

func TestMinuteCost(t *testing.T) {
	pricing, err := NewPricingService("")
	if err != nil {
		t.Fatalf("NewPricingService() error = %v", err)
	}

	got := pricing.MinuteCost("whisper-1", 90)
	if !almostEqual(got, 1.5*0.006) {
		t.Errorf("MinuteCost(whisper-1, 90s) = %v, want %v", got, 1.5*0.006)
	}
	if got := pricing.MinuteCost("unknown", 90); got != 0 {
		t.Errorf("MinuteCost(unknown) = %v, want 0", got)
	}
}

func TestEmbeddingCost(t *testing.T) {
	pricing, err := NewPricingService("")
	if err != nil {
		t.Fatalf("NewPricingService() error = %v", err)
	}

	got := pricing.EmbeddingCost("text-embedding-3-small", 1536)
	want := float64(1536*4) / 1_000_000 * (0.02 / 1_000_000)
	if !almostEqual(got, want) {
		t.Errorf("EmbeddingCost() = %v, want %v", got, want)
	}
}

func TestPricingOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	content := "gpt-4o-mini:\n  input: 0.000001\n  output: 0.000002\ncustom-model:\n  minute: 0.01\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}

	pricing, err := NewPricingService(path)
	if err != nil {
		t.Fatalf("NewPricingService() error = %v", err)
	}

	usage := types.Usage{PromptTokens: 100, CompletionTokens: 100}
	got := pricing.TokenCost("gpt-4o-mini", usage)
	if !almostEqual(got, 100*0.000001+100*0.000002) {
		t.Errorf("overridden TokenCost = %v", got)
	}
	if got := pricing.MinuteCost("custom-model", 60); !almostEqual(got, 0.01) {
		t.Errorf("custom-model MinuteCost = %v, want 0.01", got)
	}
	// Untouched defaults survive the overlay.
	if got := pricing.MinuteCost("whisper-1", 60); !almostEqual(got, 0.006) {
		t.Errorf("whisper-1 MinuteCost = %v, want 0.006", got)
	}
}

func TestPricingOverrideFileMissing(t *testing.T) {
	if _, err := NewPricingService(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing override file")
	}
}

func TestFormatCost(t *testing.T) {
	if got := FormatCost(0.0001234567); got != "0.000123" {
		t.Errorf("FormatCost() = %q, want %q", got, "0.000123")
	}
	if got := FormatCost(0); got != "0.000000" {
		t.Errorf("FormatCost(0) = %q, want %q", got, "0.000000")
	}
}
