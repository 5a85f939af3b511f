package engine

import (
	"strings"
	"testing"

	"github.com/yangwenmai/studydo/internal/model"
)

func doc(name, text string) model.Document {
	return model.Document{Name: name, Text: text, ExtractionStatus: model.ExtractionCompleted}
}

func TestBuildContext_EmptyInput(t *testing.T) {
	got, truncated := BuildContext(nil, ModeBalanced, 1000, true)
	if got != "" || truncated {
		t.Errorf("BuildContext(nil) = (%q, %v), want (\"\", false)", got, truncated)
	}

	whitespaceOnly := []model.Document{doc("a", "   \n\t  ")}
	got, truncated = BuildContext(whitespaceOnly, ModeBalanced, 1000, true)
	if got != "" || truncated {
		t.Errorf("BuildContext(whitespace) = (%q, %v), want (\"\", false)", got, truncated)
	}
}

func TestBuildContext_Deterministic(t *testing.T) {
	docs := []model.Document{
		doc("one", strings.Repeat("alpha ", 5000)),
		doc("two", strings.Repeat("beta ", 5000)),
		doc("three", "short"),
	}
	a, at := BuildContext(docs, ModeBalanced, 20000, true)
	b, bt := BuildContext(docs, ModeBalanced, 20000, true)
	if a != b || at != bt {
		t.Error("repeated builds differ on identical input")
	}
}

func TestBuildContext_BalancedFairness(t *testing.T) {
	docs := []model.Document{
		doc("small", strings.Repeat("a", 100)),
		doc("big1", strings.Repeat("b", 50000)),
		doc("big2", strings.Repeat("c", 50000)),
	}
	got, truncated := BuildContext(docs, ModeBalanced, 3000, false)
	if !truncated {
		t.Error("truncated = false, want true")
	}
	parts := strings.Split(got, docSeparator)
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	// The small document is untouched; each big one is capped at the fair
	// per-document budget, never squeezed out by its position.
	if len(parts[0]) != 100 {
		t.Errorf("small document length = %d, want 100 (never truncated)", len(parts[0]))
	}
	for i, p := range parts[1:] {
		if len(p) > 1000 {
			t.Errorf("big document %d contributes %d chars, want <= 1000", i+1, len(p))
		}
	}
}

func TestBuildContext_BalancedMinimumBudget(t *testing.T) {
	// 30 documents with maxChars 3000 would give 100 chars each; the floor
	// guarantees 1000 per document instead.
	var docs []model.Document
	for i := 0; i < 30; i++ {
		docs = append(docs, doc("d", strings.Repeat("x", 2000)))
	}
	got, truncated := BuildContext(docs, ModeBalanced, 3000, false)
	if !truncated {
		t.Error("truncated = false, want true")
	}
	parts := strings.Split(got, docSeparator)
	for i, p := range parts {
		if len(p) != 1000 {
			t.Errorf("document %d contributes %d chars, want the 1000 floor", i, len(p))
		}
	}
}

func TestBuildContext_FullModeDropsWholeDocuments(t *testing.T) {
	docs := []model.Document{
		doc("first", strings.Repeat("a", 400)),
		doc("second", strings.Repeat("b", 400)),
		doc("third", strings.Repeat("c", 400)),
	}
	got, truncated := BuildContext(docs, ModeFull, 900, false)
	if !truncated {
		t.Error("truncated = false, want true")
	}
	if strings.Contains(got, "c") {
		t.Error("third document should have been dropped whole")
	}
	if !strings.Contains(got, "a") || !strings.Contains(got, "b") {
		t.Error("first two documents should be present in full")
	}
}

func TestBuildContext_Headers(t *testing.T) {
	docs := []model.Document{doc("Chapter 1", "content here")}
	got, _ := BuildContext(docs, ModeFull, 1000, true)
	if !strings.HasPrefix(got, "## Chapter 1\n\n") {
		t.Errorf("missing name header: %q", got)
	}
	got, _ = BuildContext(docs, ModeFull, 1000, false)
	if strings.Contains(got, "Chapter 1") {
		t.Errorf("header present when disabled: %q", got)
	}
}
