package store

import (
	"context"
	"testing"

	"github.com/yangwenmai/studydo/internal/model"
)

func TestClaimQuestion_PendingOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sp := makeSpace(t, s, model.TemplateStudy)

	q := model.NewQuestion("q1", sp.ID, "what is photosynthesis?")
	if err := s.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}

	won, err := s.ClaimQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("ClaimQuestion: %v", err)
	}
	if !won {
		t.Fatal("pending question should be claimable")
	}

	// An answering question holds the claim; a second caller must lose even
	// though no answer is stored yet.
	won, err = s.ClaimQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("ClaimQuestion: %v", err)
	}
	if won {
		t.Error("answering question must not be claimable again")
	}

	if err := s.MarkQuestionAnswered(ctx, "q1", "it converts light to energy"); err != nil {
		t.Fatalf("MarkQuestionAnswered: %v", err)
	}

	// Terminal states are never claimed.
	won, err = s.ClaimQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("ClaimQuestion: %v", err)
	}
	if won {
		t.Error("answered question must not be claimable")
	}
}

func TestResetStaleAnswering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sp := makeSpace(t, s, model.TemplateStudy)

	for _, q := range []model.Question{
		model.NewQuestion("q1", sp.ID, "fresh claim"),
		model.NewQuestion("q2", sp.ID, "orphaned claim"),
		model.NewQuestion("q3", sp.ID, "crashed after answer write"),
	} {
		if err := s.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
		if won, err := s.ClaimQuestion(ctx, q.ID); err != nil || !won {
			t.Fatalf("ClaimQuestion %s: won=%v err=%v", q.ID, won, err)
		}
	}
	if _, err := s.db.Exec(`UPDATE questions SET answer = 'kept' WHERE id = 'q3'`); err != nil {
		t.Fatalf("plant answer: %v", err)
	}

	// A cutoff in the past touches nothing.
	n, err := s.ResetStaleAnswering(ctx, "2000-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("ResetStaleAnswering: %v", err)
	}
	if n != 0 {
		t.Errorf("reset %d questions with past cutoff, want 0", n)
	}

	// A future cutoff releases the orphans but leaves the row with a stored
	// answer for the engine's crash-recovery path.
	n, err = s.ResetStaleAnswering(ctx, "2999-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("ResetStaleAnswering: %v", err)
	}
	if n != 2 {
		t.Errorf("reset %d questions, want 2", n)
	}
	for _, want := range []struct{ id, status string }{
		{"q1", model.QuestionPending},
		{"q2", model.QuestionPending},
		{"q3", model.QuestionAnswering},
	} {
		got, err := s.GetQuestion(ctx, want.id)
		if err != nil {
			t.Fatalf("GetQuestion %s: %v", want.id, err)
		}
		if got.Status != want.status {
			t.Errorf("%s status = %q, want %q", want.id, got.Status, want.status)
		}
	}
}

func TestListAnswerable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sp := makeSpace(t, s, model.TemplateStudy)

	for _, q := range []model.Question{
		model.NewQuestion("q1", sp.ID, "first"),
		model.NewQuestion("q2", sp.ID, "second"),
		model.NewQuestion("q3", sp.ID, "third"),
		model.NewQuestion("q4", sp.ID, "fourth"),
	} {
		if err := s.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
	}

	// q2 answered, q3 failed, q4 stuck answering (no answer yet).
	s.ClaimQuestion(ctx, "q2")
	s.MarkQuestionAnswered(ctx, "q2", "done")
	s.ClaimQuestion(ctx, "q3")
	s.MarkQuestionFailed(ctx, "q3", "no content")
	s.ClaimQuestion(ctx, "q4")

	answerable, err := s.ListAnswerable(ctx, sp.ID)
	if err != nil {
		t.Fatalf("ListAnswerable: %v", err)
	}
	if len(answerable) != 2 {
		t.Fatalf("answerable = %d, want 2", len(answerable))
	}
	if answerable[0].ID != "q1" || answerable[1].ID != "q4" {
		t.Errorf("answerable = %s,%s, want q1,q4", answerable[0].ID, answerable[1].ID)
	}
}

func TestMarkQuestionFailed_ClearsAnswer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sp := makeSpace(t, s, model.TemplateStudy)

	q := model.NewQuestion("q1", sp.ID, "anything")
	s.CreateQuestion(ctx, q)
	s.ClaimQuestion(ctx, "q1")

	if err := s.MarkQuestionFailed(ctx, "q1", "the backend returned an empty answer"); err != nil {
		t.Fatalf("MarkQuestionFailed: %v", err)
	}

	got, err := s.GetQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if got.Status != model.QuestionFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Answer != "" {
		t.Errorf("Answer = %q, want empty", got.Answer)
	}
	if got.Error == "" {
		t.Error("failed question should carry an error message")
	}
}
