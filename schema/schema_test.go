package schema_test

import (
	"testing"

	"github.com/axle-run/axle/parser"
	"github.com/axle-run/axle/schema"
)

type reportOutput struct {
	Title string   `json:"title" jsonschema:"required"`
	Tags  []string `json:"tags,omitempty"`
	Score float64  `json:"score,omitempty"`
}

func TestFromStruct_RequiredFieldsAreNotOptional(t *testing.T) {
	s, err := schema.FromStruct(reportOutput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	title, ok := s["title"]
	if !ok {
		t.Fatal("expected title field")
	}
	if title.Kind == parser.KindOptional {
		t.Error("expected title to be required, not optional")
	}
}

func TestFromStruct_NonRequiredFieldsAreOptional(t *testing.T) {
	s, err := schema.FromStruct(reportOutput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tags, ok := s["tags"]
	if !ok {
		t.Fatal("expected tags field")
	}
	if tags.Kind != parser.KindOptional {
		t.Errorf("expected tags to be optional, got %v", tags.Kind)
	}
	if tags.Inner != parser.KindStringArray {
		t.Errorf("expected inner kind string array, got %v", tags.Inner)
	}
}

func TestFromStruct_FieldKindMapping(t *testing.T) {
	s, err := schema.FromStruct(reportOutput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	score, ok := s["score"]
	if !ok {
		t.Fatal("expected score field")
	}
	if score.Kind != parser.KindOptional || score.Inner != parser.KindNumber {
		t.Errorf("expected optional<number>, got kind=%v inner=%v", score.Kind, score.Inner)
	}
}

func TestPromptBlock_ProducesFencedJSON(t *testing.T) {
	block, err := schema.PromptBlock(reportOutput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(block) == 0 {
		t.Fatal("expected non-empty prompt block")
	}
	if block[:7] != "```json" {
		t.Errorf("expected fenced json block, got prefix %q", block[:7])
	}
}
