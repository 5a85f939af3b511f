package model

import "time"

// Question status constants. Lifecycle: pending → answering → {answered, failed}.
// answered and failed are terminal.
const (
	QuestionPending   = "pending"
	QuestionAnswering = "answering"
	QuestionAnswered  = "answered"
	QuestionFailed    = "failed"
)

// Question is a user question tied to one space.
type Question struct {
	ID        string `json:"id"`
	SpaceID   string `json:"space_id"`
	Text      string `json:"text"`
	Status    string `json:"status"`
	Answer    string `json:"answer,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NewQuestion creates a pending Question.
func NewQuestion(id, spaceID, text string) Question {
	now := time.Now().UTC().Format(time.RFC3339)
	return Question{
		ID:        id,
		SpaceID:   spaceID,
		Text:      text,
		Status:    QuestionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
