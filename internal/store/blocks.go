package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/yangwenmai/studydo/internal/model"
)

// SeedBlocks creates an idle block row for every template kind that does not
// exist yet. Existing rows are left untouched (one block per (space, kind)).
func (s *Store) SeedBlocks(ctx context.Context, spaceID string, kinds []string) error {
	for _, kind := range kinds {
		b := model.NewBlock(uuid.New().String(), spaceID, kind)
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO blocks (id, space_id, kind, status, payload, error, updated_at)
			VALUES (?, ?, ?, ?, '', '', ?)
			ON CONFLICT(space_id, kind) DO NOTHING`,
			b.ID, b.SpaceID, b.Kind, b.Status, b.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetBlock returns the block of the given kind for a space.
func (s *Store) GetBlock(ctx context.Context, spaceID, kind string) (*model.Block, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, space_id, kind, status, payload, error, updated_at
		 FROM blocks WHERE space_id = ? AND kind = ?`, spaceID, kind)
	return scanBlock(row)
}

// ListBlocks returns all blocks of a space.
func (s *Store) ListBlocks(ctx context.Context, spaceID string) ([]model.Block, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, space_id, kind, status, payload, error, updated_at
		 FROM blocks WHERE space_id = ? ORDER BY kind ASC`, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []model.Block
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.ID, &b.SpaceID, &b.Kind, &b.Status, &b.Payload, &b.Error, &b.UpdatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// ClaimBlock atomically transitions a block from idle to generating.
// It reports false when the block is in any other state, which makes
// concurrent orchestration passes race-safe: only one caller wins the claim.
// Stale payload is preserved; the error field is cleared on start.
func (s *Store) ClaimBlock(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE blocks SET status = ?, error = '', updated_at = ? WHERE id = ? AND status = ?`,
		model.BlockGenerating, nowRFC3339(), id, model.BlockIdle,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkBlockReady commits a successful generation: status, payload, cleared
// error, and timestamp land in one UPDATE so no observer ever sees ready
// without a payload.
func (s *Store) MarkBlockReady(ctx context.Context, id, payload string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE blocks SET status = ?, payload = ?, error = '', updated_at = ? WHERE id = ?`,
		model.BlockReady, payload, nowRFC3339(), id,
	)
	return err
}

// MarkBlockFailed commits a failed generation: the payload is cleared and a
// human-readable message is stored, again in one UPDATE.
func (s *Store) MarkBlockFailed(ctx context.Context, id, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE blocks SET status = ?, payload = '', error = ?, updated_at = ? WHERE id = ?`,
		model.BlockFailed, message, nowRFC3339(), id,
	)
	return err
}

// RetryBlock returns a failed block to idle so the next pass picks it up.
func (s *Store) RetryBlock(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE blocks SET status = ?, error = '', updated_at = ? WHERE id = ? AND status = ?`,
		model.BlockIdle, nowRFC3339(), id, model.BlockFailed,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ResetBlocks bulk-transitions all of a space's blocks to idle, clearing
// payload and error. This is the explicit user regenerate action and the only
// way a ready block ever leaves ready.
func (s *Store) ResetBlocks(ctx context.Context, spaceID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE blocks SET status = ?, payload = '', error = '', updated_at = ? WHERE space_id = ?`,
		model.BlockIdle, nowRFC3339(), spaceID,
	)
	return err
}

// ResetStaleGenerating returns blocks stuck in generating since before the
// cutoff to idle. Timestamps are RFC 3339 so string comparison orders them.
func (s *Store) ResetStaleGenerating(ctx context.Context, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE blocks SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?`,
		model.BlockIdle, nowRFC3339(), model.BlockGenerating, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanBlock(row *sql.Row) (*model.Block, error) {
	var b model.Block
	if err := row.Scan(&b.ID, &b.SpaceID, &b.Kind, &b.Status, &b.Payload, &b.Error, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
