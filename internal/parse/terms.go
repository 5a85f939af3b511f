package parse

import (
	"regexp"
	"strings"

	"github.com/yangwenmai/studydo/internal/model"
)

// maxDefinitionLen is the hard cap on a key-term definition.
const maxDefinitionLen = 300

// benchmarkClause matches comparison/benchmark language that small models
// like to append to definitions ("…, outperforms GPT by 12%").
var benchmarkClause = regexp.MustCompile(`(?i)(\d+(\.\d+)?\s*%|\boutperform(s|ed|ing)?\b|\bmatch(es|ed|ing)?\b)`)

// KeyTerms parses one "Term: Definition" line per record, tolerating an
// optional leading bullet marker. It repairs the small-model failure mode
// where the literal labels "Term" and "Definition" appear on their own
// lines instead of being substituted, splicing the real values back into
// one record. Definitions are stripped of trailing benchmark language and
// hard-capped in length.
func KeyTerms(raw string) []model.Term {
	var terms []model.Term
	pendingTerm := "" // value of a literal "Term: X" line awaiting its Definition line

	for _, line := range strings.Split(raw, "\n") {
		trimmed := stripBullet(strings.TrimSpace(line))
		if trimmed == "" {
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			pendingTerm = ""
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			pendingTerm = ""
			continue
		}

		// Label-swap repair: "Term: X" followed by "Definition: Y" is one
		// record (X, Y), not two records keyed by the literal labels.
		if strings.EqualFold(key, "Term") {
			pendingTerm = value
			continue
		}
		if strings.EqualFold(key, "Definition") {
			if pendingTerm != "" {
				terms = appendTerm(terms, pendingTerm, value)
				pendingTerm = ""
			}
			continue
		}
		pendingTerm = ""
		terms = appendTerm(terms, key, value)
	}
	return terms
}

func appendTerm(terms []model.Term, term, definition string) []model.Term {
	definition = cleanDefinition(definition)
	if term == "" || definition == "" {
		return terms
	}
	return append(terms, model.Term{Term: term, Definition: definition})
}

// cleanDefinition drops trailing clauses containing benchmark language and
// enforces the definition length cap.
func cleanDefinition(def string) string {
	clauses := strings.Split(def, ",")
	// Walk backwards dropping benchmark clauses; stop at the first clean one
	// so legitimate mid-definition commas survive.
	end := len(clauses)
	for end > 1 && benchmarkClause.MatchString(clauses[end-1]) {
		end--
	}
	def = strings.TrimSpace(strings.Join(clauses[:end], ","))
	def = strings.TrimRight(def, " ,;")

	// Cut on runes so the cap cannot split a multi-byte character.
	if r := []rune(def); len(r) > maxDefinitionLen {
		def = strings.TrimSpace(string(r[:maxDefinitionLen]))
	}
	return def
}

// stripBullet removes one leading bullet marker from a line.
func stripBullet(line string) string {
	for _, marker := range []string{"- ", "* ", "• "} {
		if rest, ok := strings.CutPrefix(line, marker); ok {
			return strings.TrimSpace(rest)
		}
	}
	return line
}
