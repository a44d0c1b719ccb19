package param_parser

import (
	"encoding/json"
	"errors"
	"testing"

	"diffusion_session_bot/entities"
)

func TestParseDocumentParamsAndSize(t *testing.T) {
	patch, err := ParseDocument(`{"params": {"prompt": "x"}, "size": {"width": 256, "height": 256}}`)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	if patch.Prompt == nil || *patch.Prompt != "x" {
		t.Errorf("Prompt = %v, want \"x\"", patch.Prompt)
	}

	if patch.Width == nil || *patch.Width != 256 {
		t.Errorf("Width = %v, want 256", patch.Width)
	}

	if patch.Height == nil || *patch.Height != 256 {
		t.Errorf("Height = %v, want 256", patch.Height)
	}
}

func TestParseDocumentInputSizeWins(t *testing.T) {
	patch, err := ParseDocument(`{"input_size": {"width": 640, "height": 480}, "size": {"width": 1, "height": 1}}`)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	if patch.Width == nil || *patch.Width != 640 {
		t.Errorf("Width = %v, want 640 from input_size", patch.Width)
	}

	if patch.Height == nil || *patch.Height != 480 {
		t.Errorf("Height = %v, want 480 from input_size", patch.Height)
	}
}

func TestParseDocumentUnknownFieldsPassThrough(t *testing.T) {
	patch, err := ParseDocument(`{"params": {"prompt": "x", "someFutureField": true}, "other": 1}`)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	if patch.Prompt == nil || *patch.Prompt != "x" {
		t.Errorf("Prompt = %v, want \"x\"", patch.Prompt)
	}
}

func TestParseDocumentMalformed(t *testing.T) {
	_, err := ParseDocument(`{"params": `)
	if err == nil {
		t.Fatal("ParseDocument() should fail on invalid JSON")
	}

	if !errors.Is(err, &MalformedDocumentError{}) {
		t.Errorf("error %v should be a MalformedDocumentError", err)
	}
}

func TestParseDocumentEmptyObject(t *testing.T) {
	patch, err := ParseDocument(`{}`)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	if !patch.IsEmpty() {
		t.Errorf("patch = %+v, want empty", patch)
	}
}

// A full parameter set written in the document shape must come back intact.
func TestDocumentRoundTrip(t *testing.T) {
	params := entities.GenerationParams{
		Prompt:         "a cat",
		NegativePrompt: "blurry",
		Steps:          20,
		CfgScale:       7,
		Seed:           42,
		Scheduler:      "ddim",
		Width:          512,
		Height:         768,
		BatchSize:      2,
		Eta:            0.5,
	}

	document, err := json.Marshal(map[string]any{
		"params": params,
		"size": entities.Size{
			Width:  params.Width,
			Height: params.Height,
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	patch, err := ParseDocument(string(document))
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	if got := patch.Apply(entities.GenerationParams{}); got != params {
		t.Errorf("round trip = %+v, want %+v", got, params)
	}
}

func TestLooksLikeJSON(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{`{"a": 1}`, true},
		{"{\"a\": 1}\n  ", true},
		{"a cat\nSteps: 20", false},
		{`{"unterminated": `, false},
		{" {\"leading\": 1}", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := LooksLikeJSON(tt.text); got != tt.want {
			t.Errorf("LooksLikeJSON(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseCommentClassifies(t *testing.T) {
	jsonPatch, err := ParseComment(`{"params": {"steps": 12}}`)
	if err != nil {
		t.Fatalf("ParseComment() error: %v", err)
	}

	if jsonPatch.Steps == nil || *jsonPatch.Steps != 12 {
		t.Errorf("Steps = %v, want 12 via document parser", jsonPatch.Steps)
	}

	grammarPatch, err := ParseComment("a cat\nSteps: 20")
	if err != nil {
		t.Fatalf("ParseComment() error: %v", err)
	}

	if grammarPatch.Prompt == nil || *grammarPatch.Prompt != "a cat" {
		t.Errorf("Prompt = %v, want \"a cat\" via grammar parser", grammarPatch.Prompt)
	}

	// Committed to the JSON strategy, a parse failure must surface.
	_, err = ParseComment(`{"broken": }`)
	if !errors.Is(err, &MalformedDocumentError{}) {
		t.Errorf("error %v should be a MalformedDocumentError", err)
	}
}
