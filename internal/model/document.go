package model

import "time"

// Document extraction status constants. Extraction is owned by the intake
// side; the generation engine only ever reads completed documents.
const (
	ExtractionPending   = "pending"
	ExtractionCompleted = "completed"
	ExtractionFailed    = "failed"
)

// Document is one source unit (imported file, URL, or pasted text)
// belonging to exactly one space.
type Document struct {
	ID               string `json:"id"`
	SpaceID          string `json:"space_id"`
	Name             string `json:"name"`
	Text             string `json:"text"`
	Digest           string `json:"digest,omitempty"`
	ExtractionStatus string `json:"extraction_status"`
	CreatedAt        string `json:"created_at"`
}

// NewDocument creates a Document with the given extraction status.
func NewDocument(id, spaceID, name, text, extractionStatus string) Document {
	return Document{
		ID:               id,
		SpaceID:          spaceID,
		Name:             name,
		Text:             text,
		ExtractionStatus: extractionStatus,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
}

// Usable reports whether the document may contribute to generation context.
func (d Document) Usable() bool {
	return d.ExtractionStatus == ExtractionCompleted && d.Text != ""
}
