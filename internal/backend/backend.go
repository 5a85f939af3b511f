// Package backend provides the pluggable text-generation backends. Two
// variants exist: a remote chat-completions API client and a local Ollama
// client. Each variant owns its own prompt construction and output format;
// the engine parses whatever comes back.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Operation failure kinds. Every backend call fails with one of these (or a
// *RemoteAPIError for HTTP-layer failures, which are surfaced distinctly
// from empty or malformed output).
var (
	ErrUnavailable       = errors.New("generation backend unavailable")
	ErrEmptyOutput       = errors.New("backend returned empty output")
	ErrMissingCredential = errors.New("remote API credential not configured")
	ErrInvalidCredential = errors.New("remote API credential rejected")
)

// RemoteAPIError is an HTTP-layer failure from the remote API, translated
// from the provider's error envelope when one is recognized.
type RemoteAPIError struct {
	StatusCode int
	Message    string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("remote API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Backend is the capability contract both variants implement. Context is the
// bounded document text assembled by the engine; the return value is raw
// model output the caller parses.
type Backend interface {
	Name() string
	GenerateSummary(ctx context.Context, contextText string) (string, error)
	GenerateFlashcards(ctx context.Context, contextText string) (string, error)
	GenerateQuiz(ctx context.Context, contextText string) (string, error)
	GenerateKeyTerms(ctx context.Context, contextText string) (string, error)
	GenerateMainQuestion(ctx context.Context, contextText string) (string, error)
	GenerateInsights(ctx context.Context, contextText string) (string, error)
	GenerateArgument(ctx context.Context, contextText string) (string, error)
	GenerateOutline(ctx context.Context, contextText string) (string, error)
	AnswerQuestion(ctx context.Context, contextText, question string) (string, error)
}

// Reformatter is implemented by backends that can reformat their own prior
// raw output into the expected structure. The engine uses it for the single
// bounded repair retry on under-threshold structured output.
type Reformatter interface {
	Reformat(ctx context.Context, kind, raw string) (string, error)
}

// Digester is implemented by the local backend, whose context strategy is a
// compact digest of each document rather than raw concatenation.
type Digester interface {
	Digest(ctx context.Context, text string) (string, error)
}

// Credential health states for the remote backend.
const (
	HealthUnset    = "unset"
	HealthChecking = "checking"
	HealthValid    = "valid"
	HealthInvalid  = "invalid"
)

// HealthSource reports the live credential-health status of the remote
// backend. Health can change asynchronously, so callers must re-read it on
// every resolution pass.
type HealthSource interface {
	Health() string
}
