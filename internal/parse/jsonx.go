package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yangwenmai/studydo/internal/model"
)

// Sentinel errors for the JSON path. Unlike delimited-text parsing, JSON
// parsing has no partial-record tolerance: any violation fails the whole
// operation.
var (
	ErrNoJSON     = errors.New("no JSON object found in output")
	ErrValidation = errors.New("structured output failed validation")
)

// ExtractJSONObject returns the first balanced brace-delimited object in
// raw, tolerating fenced code blocks and surrounding prose.
func ExtractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}

// CardsFromJSON decodes a {"cards":[{front,back}]} object, validating every
// record. Any empty field fails the whole operation.
func CardsFromJSON(raw string) ([]model.Card, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var payload model.CardsPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}
	if len(payload.Cards) == 0 {
		return nil, fmt.Errorf("%w: no cards", ErrValidation)
	}
	for i, c := range payload.Cards {
		if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
			return nil, fmt.Errorf("%w: card %d has an empty field", ErrValidation, i)
		}
	}
	return payload.Cards, nil
}

// QuizFromJSON decodes a {"questions":[{question,options,correctIndex}]}
// object, validating option counts and correct-index bounds. Any violation
// fails the whole operation.
func QuizFromJSON(raw string) ([]model.QuizItem, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var payload model.QuizPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrValidation)
	}
	for i, q := range payload.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("%w: question %d is empty", ErrValidation, i)
		}
		if len(q.Options) < minQuizOptions || len(q.Options) > maxQuizOptions {
			return nil, fmt.Errorf("%w: question %d has %d options", ErrValidation, i, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d correct index %d out of range", ErrValidation, i, q.CorrectIndex)
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return nil, fmt.Errorf("%w: question %d has an empty option", ErrValidation, i)
			}
		}
	}
	return payload.Questions, nil
}

// TermsFromJSON decodes a {"terms":[{term,definition}]} object. Definitions
// get the same cleanup as the delimited path (benchmark stripping, length
// cap); empty fields fail the whole operation.
func TermsFromJSON(raw string) ([]model.Term, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var payload model.TermsPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, fmt.Errorf("decode terms: %w", err)
	}
	if len(payload.Terms) == 0 {
		return nil, fmt.Errorf("%w: no terms", ErrValidation)
	}
	out := make([]model.Term, 0, len(payload.Terms))
	for i, tm := range payload.Terms {
		def := cleanDefinition(strings.TrimSpace(tm.Definition))
		if strings.TrimSpace(tm.Term) == "" || def == "" {
			return nil, fmt.Errorf("%w: term %d has an empty field", ErrValidation, i)
		}
		out = append(out, model.Term{Term: strings.TrimSpace(tm.Term), Definition: def})
	}
	return out, nil
}
