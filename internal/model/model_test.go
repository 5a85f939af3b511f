package model

import (
	"encoding/json"
	"testing"
)

func TestTemplateKinds_Order(t *testing.T) {
	kinds := TemplateKinds(TemplateStudy)
	if len(kinds) != 8 {
		t.Fatalf("study kinds = %d, want 8", len(kinds))
	}
	if kinds[0] != BlockSummary {
		t.Errorf("first kind = %q, want %q", kinds[0], BlockSummary)
	}

	// Returned slice must be a copy; mutating it must not corrupt the template.
	kinds[0] = "mutated"
	if TemplateKinds(TemplateStudy)[0] != BlockSummary {
		t.Error("TemplateKinds returned shared backing array")
	}
}

func TestTemplateKinds_UnknownFallsBackToStudy(t *testing.T) {
	kinds := TemplateKinds("no-such-template")
	if len(kinds) != 8 {
		t.Errorf("fallback kinds = %d, want 8", len(kinds))
	}
	if ValidTemplate("no-such-template") {
		t.Error("ValidTemplate should reject unknown template")
	}
	if !ValidTemplate(TemplateExam) {
		t.Error("ValidTemplate should accept exam")
	}
}

func TestStructuredKind(t *testing.T) {
	structured := []string{BlockFlashcards, BlockQuiz, BlockKeyTerms}
	for _, k := range structured {
		if !StructuredKind(k) {
			t.Errorf("StructuredKind(%q) = false, want true", k)
		}
	}
	for _, k := range []string{BlockSummary, BlockInsights, BlockOutline, BlockArgument, BlockMainQuestion} {
		if StructuredKind(k) {
			t.Errorf("StructuredKind(%q) = true, want false", k)
		}
	}
}

func TestDocumentUsable(t *testing.T) {
	d := NewDocument("d1", "s1", "notes", "some text", ExtractionCompleted)
	if !d.Usable() {
		t.Error("completed document with text should be usable")
	}
	d.Text = ""
	if d.Usable() {
		t.Error("empty document should not be usable")
	}
	d.Text = "x"
	d.ExtractionStatus = ExtractionPending
	if d.Usable() {
		t.Error("pending document should not be usable")
	}
}

func TestMarshalPayload_WireShapes(t *testing.T) {
	got := MarshalPayload(QuizPayload{Questions: []QuizItem{
		{Question: "q", Options: []string{"a", "b"}, CorrectIndex: 1},
	}})

	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if _, ok := decoded["questions"]; !ok {
		t.Errorf("quiz payload missing questions key: %s", got)
	}
}
