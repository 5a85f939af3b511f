package engine

import (
	"context"
	"strings"

	"github.com/yangwenmai/studydo/internal/model"
)

// Question failure messages. Each empty-input case gets its own text so the
// user can tell what went wrong.
const (
	msgEmptyQuestion = "question text is empty"
	msgEmptyContext  = "no content available to answer from"
	msgEmptyAnswer   = "the model returned an empty answer"
)

// AnswerQuestion drives one question to a terminal state. Crash recovery: a
// question stuck in answering with an answer already stored is resolved to
// answered directly, without another backend call. The claim only wins from
// pending, so a question whose answer is in flight on another goroutine is
// left alone rather than billed twice.
func (e *Engine) AnswerQuestion(ctx context.Context, questionID string) error {
	q, err := e.store.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	switch q.Status {
	case model.QuestionAnswered, model.QuestionFailed:
		return nil
	case model.QuestionAnswering:
		if strings.TrimSpace(q.Answer) != "" {
			return e.store.MarkQuestionAnswered(ctx, q.ID, q.Answer)
		}
	}

	claimed, err := e.store.ClaimQuestion(ctx, q.ID)
	if err != nil || !claimed {
		return err
	}

	if strings.TrimSpace(q.Text) == "" {
		return e.store.MarkQuestionFailed(ctx, q.ID, msgEmptyQuestion)
	}

	space, err := e.store.GetSpace(ctx, q.SpaceID)
	if err != nil {
		return err
	}
	docs, err := e.store.ListUsableDocuments(ctx, q.SpaceID)
	if err != nil {
		return err
	}

	resolved := Resolve(space.BackendPref, e.health.Health())
	b := e.pick(resolved)

	var material string
	if resolved == model.BackendRemote {
		material, _ = BuildContext(docs, ModeBalanced, e.maxChars, true)
	} else {
		material, _ = BuildContext(e.digestedDocs(ctx, docs), ModeFull, e.maxChars, true)
	}
	if material == "" {
		return e.store.MarkQuestionFailed(ctx, q.ID, msgEmptyContext)
	}

	answer, err := b.AnswerQuestion(ctx, material, q.Text)
	if err != nil {
		e.logger.Warn("answer question", "question_id", q.ID, "backend", b.Name(), "error", err)
		return e.store.MarkQuestionFailed(ctx, q.ID, failureMessage(err))
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return e.store.MarkQuestionFailed(ctx, q.ID, msgEmptyAnswer)
	}
	return e.store.MarkQuestionAnswered(ctx, q.ID, answer)
}

// AnswerPendingQuestions sweeps a space's outstanding questions: pending
// ones, and answering ones left over from a crash. Each question commits
// independently; one failure does not stop the sweep.
func (e *Engine) AnswerPendingQuestions(ctx context.Context, spaceID string) error {
	questions, err := e.store.ListAnswerable(ctx, spaceID)
	if err != nil {
		return err
	}
	for _, q := range questions {
		if err := e.AnswerQuestion(ctx, q.ID); err != nil {
			e.logger.Error("answer pending question", "question_id", q.ID, "error", err)
		}
	}
	return nil
}
