package backend

import (
	"context"
	"sync"

	"github.com/yangwenmai/studydo/internal/model"
)

// Stub is a canned-output backend for development and tests. Outputs maps a
// block kind (or "answer", "reformat:<kind>", "digest") to the raw text
// returned for it; unset kinds fall back to a generic line. Err, when set,
// fails every call; Errs fails individual kinds. Calls records the
// operations invoked, in order.
type Stub struct {
	Outputs map[string]string
	Err     error
	Errs    map[string]error

	mu    sync.Mutex
	Calls []string
}

func (s *Stub) Name() string { return "stub" }

func (s *Stub) respond(op, kind string) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, op)
	s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if err, ok := s.Errs[kind]; ok {
		return "", err
	}
	if out, ok := s.Outputs[kind]; ok {
		return out, nil
	}
	return "stub output for " + kind, nil
}

// CallCount returns how many recorded calls match op.
func (s *Stub) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (s *Stub) GenerateSummary(_ context.Context, _ string) (string, error) {
	return s.respond("summary", model.BlockSummary)
}

func (s *Stub) GenerateFlashcards(_ context.Context, _ string) (string, error) {
	return s.respond("flashcards", model.BlockFlashcards)
}

func (s *Stub) GenerateQuiz(_ context.Context, _ string) (string, error) {
	return s.respond("quiz", model.BlockQuiz)
}

func (s *Stub) GenerateKeyTerms(_ context.Context, _ string) (string, error) {
	return s.respond("key_terms", model.BlockKeyTerms)
}

func (s *Stub) GenerateMainQuestion(_ context.Context, _ string) (string, error) {
	return s.respond("main_question", model.BlockMainQuestion)
}

func (s *Stub) GenerateInsights(_ context.Context, _ string) (string, error) {
	return s.respond("insights", model.BlockInsights)
}

func (s *Stub) GenerateArgument(_ context.Context, _ string) (string, error) {
	return s.respond("argument", model.BlockArgument)
}

func (s *Stub) GenerateOutline(_ context.Context, _ string) (string, error) {
	return s.respond("outline", model.BlockOutline)
}

func (s *Stub) AnswerQuestion(_ context.Context, _, _ string) (string, error) {
	return s.respond("answer", "answer")
}

func (s *Stub) Reformat(_ context.Context, kind, _ string) (string, error) {
	return s.respond("reformat", "reformat:"+kind)
}

func (s *Stub) Digest(_ context.Context, _ string) (string, error) {
	return s.respond("digest", "digest")
}

var (
	_ Backend     = (*Stub)(nil)
	_ Reformatter = (*Stub)(nil)
	_ Digester    = (*Stub)(nil)
)
