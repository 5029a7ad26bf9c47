package usage_test

import (
	"testing"

	"github.com/axle-run/axle/usage"
)

func TestEstimate_NonZeroForNonEmptyText(t *testing.T) {
	got := usage.Estimate("The quick brown fox jumps over the lazy dog.", "gpt-4o")
	if got <= 0 {
		t.Errorf("expected positive token estimate, got %d", got)
	}
}

func TestEstimate_EmptyTextIsZero(t *testing.T) {
	got := usage.Estimate("", "gpt-4o")
	if got != 0 {
		t.Errorf("expected 0 for empty text, got %d", got)
	}
}

func TestEstimate_UnknownModelFallsBack(t *testing.T) {
	got := usage.Estimate("some text to encode", "totally-unknown-model-xyz")
	if got <= 0 {
		t.Errorf("expected a fallback estimate, got %d", got)
	}
}

func TestEncodingNameForModel_KnownPrefixes(t *testing.T) {
	if got := usage.EncodingNameForModel("gpt-4o"); got != "o200k_base" {
		t.Errorf("got %q", got)
	}
	if got := usage.EncodingNameForModel("gpt-4"); got != "cl100k_base" {
		t.Errorf("got %q", got)
	}
}

func TestEncodingNameForModel_UnknownDefaultsToCl100k(t *testing.T) {
	if got := usage.EncodingNameForModel("some-future-model"); got != "cl100k_base" {
		t.Errorf("got %q", got)
	}
}
