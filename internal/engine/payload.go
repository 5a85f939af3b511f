package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/yangwenmai/studydo/internal/backend"
	"github.com/yangwenmai/studydo/internal/model"
	"github.com/yangwenmai/studydo/internal/parse"
)

var errMalformedOutput = errors.New("model output could not be parsed")

// minItems is the kind-specific acceptance threshold. Below it, the parse
// counts as under-threshold and triggers the single reformat retry.
func minItems(kind string) int {
	switch kind {
	case model.BlockFlashcards:
		return parse.MinFlashcards
	case model.BlockQuiz:
		return parse.MinQuizItems
	}
	return 1
}

// decodePayload turns raw model output into the block's persisted JSON
// payload and reports how many items it carries. jsonMode selects the
// strict JSON path (remote backend) over the lenient delimited path.
func decodePayload(jsonMode bool, kind, raw string) (payload string, items int, err error) {
	switch kind {
	case model.BlockFlashcards:
		var cards []model.Card
		if jsonMode {
			cards, err = parse.CardsFromJSON(raw)
			if err != nil {
				return "", 0, err
			}
		} else {
			cards = parse.Flashcards(raw)
		}
		if len(cards) == 0 {
			return "", 0, errMalformedOutput
		}
		return model.MarshalPayload(model.CardsPayload{Cards: cards}), len(cards), nil

	case model.BlockQuiz:
		var qs []model.QuizItem
		if jsonMode {
			qs, err = parse.QuizFromJSON(raw)
			if err != nil {
				return "", 0, err
			}
		} else {
			qs = parse.QuizItems(raw)
		}
		if len(qs) == 0 {
			return "", 0, errMalformedOutput
		}
		return model.MarshalPayload(model.QuizPayload{Questions: qs}), len(qs), nil

	case model.BlockKeyTerms:
		var terms []model.Term
		if jsonMode {
			terms, err = parse.TermsFromJSON(raw)
			if err != nil {
				return "", 0, err
			}
		} else {
			terms = parse.KeyTerms(raw)
		}
		if len(terms) == 0 {
			return "", 0, errMalformedOutput
		}
		return model.MarshalPayload(model.TermsPayload{Terms: terms}), len(terms), nil

	default:
		text := strings.TrimSpace(raw)
		if text == "" {
			return "", 0, backend.ErrEmptyOutput
		}
		return model.MarshalPayload(model.TextPayload{Text: text}), 1, nil
	}
}

// buildPayload decodes raw output, applying the bounded repair protocol for
// structured kinds: a parse failure or under-threshold item count triggers
// exactly one reformat call on the same backend with its own prior output,
// and the re-parse result stands regardless of count. An under-threshold
// first parse is kept as fallback if the reformat round fails outright.
func buildPayload(ctx context.Context, b backend.Backend, kind, raw string) (string, error) {
	jsonMode := b.Name() == model.BackendRemote
	payload, n, err := decodePayload(jsonMode, kind, raw)
	if err == nil && n >= minItems(kind) {
		return payload, nil
	}
	if !model.StructuredKind(kind) {
		if err != nil {
			return "", err
		}
		return payload, nil
	}

	rf, ok := b.(backend.Reformatter)
	if !ok {
		if err != nil {
			return "", err
		}
		return payload, nil
	}
	fixed, rerr := rf.Reformat(ctx, kind, raw)
	if rerr != nil {
		if err == nil {
			return payload, nil
		}
		return "", err
	}
	payload2, _, err2 := decodePayload(jsonMode, kind, fixed)
	if err2 == nil {
		return payload2, nil
	}
	if err == nil {
		return payload, nil
	}
	return "", err2
}

// failureMessage maps an operation error to the short human-readable text
// stored on the failed block or question.
func failureMessage(err error) string {
	var rae *backend.RemoteAPIError
	switch {
	case errors.As(err, &rae):
		return rae.Message
	case errors.Is(err, backend.ErrMissingCredential):
		return "remote API key is not configured"
	case errors.Is(err, backend.ErrInvalidCredential):
		return "remote API key was rejected"
	case errors.Is(err, backend.ErrUnavailable):
		return "generation backend is unavailable"
	case errors.Is(err, backend.ErrEmptyOutput):
		return "the model returned no output"
	case errors.Is(err, errMalformedOutput), errors.Is(err, parse.ErrNoJSON), errors.Is(err, parse.ErrValidation):
		return "the model output could not be parsed"
	case err == nil:
		return ""
	}
	return err.Error()
}
