// Package parse converts loosely structured model output into validated
// payload values. Delimited-text parsing drops bad records and keeps good
// ones; JSON parsing (remote backends) is all-or-nothing.
package parse

import (
	"strings"

	"github.com/yangwenmai/studydo/internal/model"
)

// Minimum item counts below which the engine issues its single reformat
// retry before accepting the result as final.
const (
	MinFlashcards = 4
	MinQuizItems  = 3
)

// Option count bounds for one quiz item.
const (
	minQuizOptions = 2
	maxQuizOptions = 6
)

// recordSeparator reports whether a line separates two records (a run of
// three or more dashes, possibly with surrounding whitespace).
func recordSeparator(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 3 {
		return false
	}
	for _, r := range line {
		if r != '-' {
			return false
		}
	}
	return true
}

// fieldValue returns the value of a "Label: value" line when the label
// matches (case-insensitive), and whether it matched.
func fieldValue(line, label string) (string, bool) {
	rest, ok := cutPrefixFold(strings.TrimSpace(line), label)
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.TrimSpace(rest[1:]), true
}

// cutPrefixFold is strings.CutPrefix with ASCII case folding.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// Flashcards parses repeated Front:/Back: records separated by --- lines.
// Records missing either field are dropped; blank lines and stray whitespace
// are tolerated. Continuation lines extend the most recent field.
func Flashcards(raw string) []model.Card {
	var cards []model.Card
	var cur model.Card
	last := "" // which field a continuation line extends

	flush := func() {
		if cur.Front != "" && cur.Back != "" {
			cards = append(cards, cur)
		}
		cur = model.Card{}
		last = ""
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case recordSeparator(trimmed):
			flush()
		default:
			if v, ok := fieldValue(trimmed, "Front"); ok {
				if cur.Front != "" && cur.Back != "" {
					// New Front without a separator starts the next record.
					flush()
				}
				cur.Front = v
				last = "front"
			} else if v, ok := fieldValue(trimmed, "Back"); ok {
				cur.Back = v
				last = "back"
			} else {
				switch last {
				case "front":
					cur.Front += " " + trimmed
				case "back":
					cur.Back += " " + trimmed
				}
			}
		}
	}
	flush()
	return cards
}

// QuizItems parses repeated multiple-choice records: a Q: line, lettered
// options (A) … D)), and a Correct: letter line, separated by --- lines.
// Records with missing fields, too few or too many options, or an
// out-of-range correct letter are dropped.
func QuizItems(raw string) []model.QuizItem {
	var items []model.QuizItem
	var cur model.QuizItem
	correct := -1

	flush := func() {
		if cur.Question != "" &&
			len(cur.Options) >= minQuizOptions && len(cur.Options) <= maxQuizOptions &&
			correct >= 0 && correct < len(cur.Options) {
			cur.CorrectIndex = correct
			items = append(items, cur)
		}
		cur = model.QuizItem{}
		correct = -1
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case recordSeparator(trimmed):
			flush()
		default:
			if v, ok := fieldValue(trimmed, "Q"); ok {
				if cur.Question != "" {
					flush()
				}
				cur.Question = v
			} else if v, ok := fieldValue(trimmed, "Question"); ok {
				if cur.Question != "" {
					flush()
				}
				cur.Question = v
			} else if idx, v, ok := optionLine(trimmed); ok {
				// Options must arrive in order; a gap means garbage we skip.
				if idx == len(cur.Options) {
					cur.Options = append(cur.Options, v)
				}
			} else if v, ok := fieldValue(trimmed, "Correct"); ok {
				correct = letterIndex(v)
			}
		}
	}
	flush()
	return items
}

// optionLine parses "A) text" / "b. text" into (index, text, true).
func optionLine(line string) (int, string, bool) {
	if len(line) < 3 {
		return 0, "", false
	}
	idx := letterIndex(line[:1])
	if idx < 0 {
		return 0, "", false
	}
	sep := line[1]
	if sep != ')' && sep != '.' && sep != ':' {
		return 0, "", false
	}
	text := strings.TrimSpace(line[2:])
	if text == "" {
		return 0, "", false
	}
	return idx, text, true
}

// letterIndex maps an option letter ("A", "b", "C)") to its index, -1 if
// it is not a single option letter.
func letterIndex(s string) int {
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ").:"))
	if len(s) != 1 {
		return -1
	}
	c := s[0]
	switch {
	case c >= 'A' && c <= 'F':
		return int(c - 'A')
	case c >= 'a' && c <= 'f':
		return int(c - 'a')
	}
	return -1
}
