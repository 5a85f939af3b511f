package model

import (
	"encoding/json"
	"time"
)

// Block kind constants.
const (
	BlockSummary      = "summary"
	BlockFlashcards   = "flashcards"
	BlockQuiz         = "quiz"
	BlockKeyTerms     = "key_terms"
	BlockMainQuestion = "main_question"
	BlockInsights     = "insights"
	BlockArgument     = "argument"
	BlockOutline      = "outline"
)

// Block status constants. Lifecycle: idle → generating → {ready, failed}.
// A ready block is never re-entered by routine generation; only an explicit
// user reset returns it to idle.
const (
	BlockIdle       = "idle"
	BlockGenerating = "generating"
	BlockReady      = "ready"
	BlockFailed     = "failed"
)

// Block is one generated artifact of a specific kind for a space.
// Payload is an opaque JSON string, present only when ready.
type Block struct {
	ID        string `json:"id"`
	SpaceID   string `json:"space_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Payload   string `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// NewBlock creates an idle Block.
func NewBlock(id, spaceID, kind string) Block {
	return Block{
		ID:        id,
		SpaceID:   spaceID,
		Kind:      kind,
		Status:    BlockIdle,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// StructuredKind reports whether kind produces a structured payload that
// must be parsed from model output (as opposed to plain text).
func StructuredKind(kind string) bool {
	switch kind {
	case BlockFlashcards, BlockQuiz, BlockKeyTerms:
		return true
	}
	return false
}

// Payload wire shapes. Blocks persist one of these as JSON.

// TextPayload is the payload for all single-text block kinds.
type TextPayload struct {
	Text string `json:"text"`
}

// Card is one front/back flashcard.
type Card struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// CardsPayload is the flashcards payload.
type CardsPayload struct {
	Cards []Card `json:"cards"`
}

// QuizItem is one multiple-choice question.
type QuizItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// QuizPayload is the quiz payload.
type QuizPayload struct {
	Questions []QuizItem `json:"questions"`
}

// Term is one term/definition pair.
type Term struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// TermsPayload is the key-terms payload.
type TermsPayload struct {
	Terms []Term `json:"terms"`
}

// MarshalPayload serializes a payload value to its JSON wire form.
func MarshalPayload(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
