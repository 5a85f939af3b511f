package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/yangwenmai/studydo/internal/model"
)

// Context assembly modes.
const (
	// ModeBalanced gives every document a fair per-document budget of
	// max(minDocBudget, maxChars/n) characters.
	ModeBalanced = "balanced"
	// ModeFull concatenates documents whole under the overall cap; a
	// document that would push past the cap is dropped along with
	// everything after it.
	ModeFull = "full"
)

const (
	minDocBudget = 1000
	docSeparator = "\n\n---\n\n"
)

// BuildContext assembles a bounded text context from usable documents,
// reporting whether any truncation occurred. Output is deterministic for a
// given input: documents are consumed in the order given (callers pass them
// sorted by creation), budgets depend only on maxChars and the document
// count, and no wall-clock state is involved. Empty input yields ("", false).
func BuildContext(docs []model.Document, mode string, maxChars int, includeHeaders bool) (string, bool) {
	type piece struct {
		name string
		text string
	}
	var usable []piece
	for _, d := range docs {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		usable = append(usable, piece{name: d.Name, text: text})
	}
	if len(usable) == 0 {
		return "", false
	}

	truncated := false
	var parts []string

	switch mode {
	case ModeFull:
		total := 0
		for _, p := range usable {
			seg := segment(p.name, p.text, includeHeaders)
			n := utf8.RuneCountInString(seg)
			if total+n > maxChars {
				truncated = true
				break
			}
			parts = append(parts, seg)
			total += n + len(docSeparator)
		}
	default:
		budget := maxChars / len(usable)
		if budget < minDocBudget {
			budget = minDocBudget
		}
		for _, p := range usable {
			text := p.text
			if utf8.RuneCountInString(text) > budget {
				text = strings.TrimSpace(cutRunes(text, budget))
				truncated = true
			}
			parts = append(parts, segment(p.name, text, includeHeaders))
		}
	}

	return strings.TrimSpace(strings.Join(parts, docSeparator)), truncated
}

func segment(name, text string, includeHeaders bool) string {
	if includeHeaders && name != "" {
		return "## " + name + "\n\n" + text
	}
	return text
}

// cutRunes truncates s to n runes without splitting a multi-byte rune.
func cutRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
