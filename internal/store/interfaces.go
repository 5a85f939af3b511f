package store

import (
	"context"

	"github.com/yangwenmai/studydo/internal/model"
)

// SpaceStore provides access to spaces.
type SpaceStore interface {
	CreateSpace(ctx context.Context, sp model.Space) error
	GetSpace(ctx context.Context, id string) (*model.Space, error)
	ListSpaces(ctx context.Context) ([]model.Space, error)
	UpdateSpaceSettings(ctx context.Context, id, backendPref, template string) error
}

// DocumentStore provides access to documents.
type DocumentStore interface {
	CreateDocument(ctx context.Context, d model.Document) error
	ListDocuments(ctx context.Context, spaceID string) ([]model.Document, error)
	ListUsableDocuments(ctx context.Context, spaceID string) ([]model.Document, error)
	SetDocumentDigest(ctx context.Context, id, digest string) error
	UpdateDocumentExtraction(ctx context.Context, id, status, text string) error
}

// BlockStore provides block lifecycle persistence. ClaimBlock is the
// conditional idle→generating write that makes generation at-most-once.
type BlockStore interface {
	SeedBlocks(ctx context.Context, spaceID string, kinds []string) error
	GetBlock(ctx context.Context, spaceID, kind string) (*model.Block, error)
	ListBlocks(ctx context.Context, spaceID string) ([]model.Block, error)
	ClaimBlock(ctx context.Context, id string) (bool, error)
	MarkBlockReady(ctx context.Context, id, payload string) error
	MarkBlockFailed(ctx context.Context, id, message string) error
	RetryBlock(ctx context.Context, id string) (bool, error)
	ResetBlocks(ctx context.Context, spaceID string) error
	ResetStaleGenerating(ctx context.Context, cutoff string) (int64, error)
}

// QuestionStore provides question lifecycle persistence.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q model.Question) error
	GetQuestion(ctx context.Context, id string) (*model.Question, error)
	ListQuestions(ctx context.Context, spaceID string) ([]model.Question, error)
	ListAnswerable(ctx context.Context, spaceID string) ([]model.Question, error)
	ClaimQuestion(ctx context.Context, id string) (bool, error)
	ResetStaleAnswering(ctx context.Context, cutoff string) (int64, error)
	MarkQuestionAnswered(ctx context.Context, id, answer string) error
	MarkQuestionFailed(ctx context.Context, id, message string) error
}

// Repository combines everything the API layer needs.
type Repository interface {
	SpaceStore
	DocumentStore
	BlockStore
	QuestionStore
}
