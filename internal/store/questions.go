package store

import (
	"context"

	"github.com/yangwenmai/studydo/internal/model"
)

const questionColumns = `id, space_id, text, status, answer, error, created_at, updated_at`

// CreateQuestion inserts a new question.
func (s *Store) CreateQuestion(ctx context.Context, q model.Question) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (id, space_id, text, status, answer, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.SpaceID, q.Text, q.Status, q.Answer, q.Error, q.CreatedAt, q.UpdatedAt,
	)
	return err
}

// GetQuestion returns a question by id.
func (s *Store) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	var q model.Question
	if err := row.Scan(&q.ID, &q.SpaceID, &q.Text, &q.Status, &q.Answer, &q.Error, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuestions returns all questions of a space in creation order.
func (s *Store) ListQuestions(ctx context.Context, spaceID string) ([]model.Question, error) {
	return s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE space_id = ? ORDER BY created_at ASC, id ASC`,
		spaceID)
}

// ListAnswerable returns the questions an answering sweep should consider:
// pending ones plus answering ones. An answering row with a stored answer
// is a crash leftover the engine resolves directly to answered; one without
// an answer is either live (the pending-only claim loses) or waiting on the
// staleness reset.
func (s *Store) ListAnswerable(ctx context.Context, spaceID string) ([]model.Question, error) {
	return s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE space_id = ? AND (status = ? OR status = ?)
		 ORDER BY created_at ASC, id ASC`,
		spaceID, model.QuestionPending, model.QuestionAnswering)
}

func (s *Store) queryQuestions(ctx context.Context, query string, args ...any) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SpaceID, &q.Text, &q.Status, &q.Answer, &q.Error, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ClaimQuestion atomically transitions a pending question to answering.
// Any other status loses the claim, so a question with a live in-flight
// answer cannot be claimed a second time. Answering rows orphaned by a
// crash come back through ResetStaleAnswering.
func (s *Store) ClaimQuestion(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = ?, error = '', updated_at = ?
		 WHERE id = ? AND status = ?`,
		model.QuestionAnswering, nowRFC3339(), id, model.QuestionPending,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ResetStaleAnswering returns questions stuck in answering since before the
// cutoff to pending, so a later sweep can claim them again. Rows that
// already carry a stored answer are left alone; the engine resolves those
// to answered without another model call.
func (s *Store) ResetStaleAnswering(ctx context.Context, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = ?, updated_at = ?
		 WHERE status = ? AND answer = '' AND updated_at < ?`,
		model.QuestionPending, nowRFC3339(), model.QuestionAnswering, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkQuestionAnswered commits the answer and terminal answered status in
// one UPDATE.
func (s *Store) MarkQuestionAnswered(ctx context.Context, id, answer string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = ?, answer = ?, error = '', updated_at = ? WHERE id = ?`,
		model.QuestionAnswered, answer, nowRFC3339(), id,
	)
	return err
}

// MarkQuestionFailed commits the terminal failed status with a
// human-readable message.
func (s *Store) MarkQuestionFailed(ctx context.Context, id, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = ?, answer = '', error = ?, updated_at = ? WHERE id = ?`,
		model.QuestionFailed, message, nowRFC3339(), id,
	)
	return err
}
