package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yangwenmai/studydo/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ SpaceStore    = (*Store)(nil)
	_ DocumentStore = (*Store)(nil)
	_ BlockStore    = (*Store)(nil)
	_ QuestionStore = (*Store)(nil)
)

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
		s.migrateV2, // v1 → v2: add per-document digest column
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS spaces (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		backend_pref TEXT NOT NULL,
		template     TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id                TEXT PRIMARY KEY,
		space_id          TEXT NOT NULL REFERENCES spaces(id),
		name              TEXT NOT NULL,
		text              TEXT NOT NULL,
		extraction_status TEXT NOT NULL,
		created_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_space ON documents(space_id, created_at ASC);

	CREATE TABLE IF NOT EXISTS blocks (
		id         TEXT PRIMARY KEY,
		space_id   TEXT NOT NULL REFERENCES spaces(id),
		kind       TEXT NOT NULL,
		status     TEXT NOT NULL,
		payload    TEXT NOT NULL DEFAULT '',
		error      TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_blocks_unique ON blocks(space_id, kind);
	CREATE INDEX IF NOT EXISTS idx_blocks_status ON blocks(status, updated_at);

	CREATE TABLE IF NOT EXISTS questions (
		id         TEXT PRIMARY KEY,
		space_id   TEXT NOT NULL REFERENCES spaces(id),
		text       TEXT NOT NULL,
		status     TEXT NOT NULL,
		answer     TEXT NOT NULL DEFAULT '',
		error      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_questions_space ON questions(space_id, created_at ASC);
	CREATE INDEX IF NOT EXISTS idx_questions_status ON questions(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the digest column used by the local backend's
// per-document preprocessing (v1 → v2).
func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`ALTER TABLE documents ADD COLUMN digest TEXT NOT NULL DEFAULT ''`)
	return err
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ---------------------------------------------------------------------------
// Spaces
// ---------------------------------------------------------------------------

// CreateSpace inserts a new space.
func (s *Store) CreateSpace(ctx context.Context, sp model.Space) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spaces (id, name, backend_pref, template, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.Name, sp.BackendPref, sp.Template, sp.CreatedAt, sp.UpdatedAt,
	)
	return err
}

// GetSpace returns a space by id.
func (s *Store) GetSpace(ctx context.Context, id string) (*model.Space, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, backend_pref, template, created_at, updated_at FROM spaces WHERE id = ?`, id)
	var sp model.Space
	if err := row.Scan(&sp.ID, &sp.Name, &sp.BackendPref, &sp.Template, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListSpaces returns all spaces, newest first.
func (s *Store) ListSpaces(ctx context.Context) ([]model.Space, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, backend_pref, template, created_at, updated_at FROM spaces ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spaces []model.Space
	for rows.Next() {
		var sp model.Space
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.BackendPref, &sp.Template, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, err
		}
		spaces = append(spaces, sp)
	}
	return spaces, rows.Err()
}

// UpdateSpaceSettings changes the backend preference and template of a space.
func (s *Store) UpdateSpaceSettings(ctx context.Context, id, backendPref, template string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE spaces SET backend_pref = ?, template = ?, updated_at = ? WHERE id = ?`,
		backendPref, template, nowRFC3339(), id,
	)
	return err
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// CreateDocument inserts a new document.
func (s *Store) CreateDocument(ctx context.Context, d model.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, space_id, name, text, digest, extraction_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SpaceID, d.Name, d.Text, d.Digest, d.ExtractionStatus, d.CreatedAt,
	)
	return err
}

// ListDocuments returns all documents of a space in creation order.
func (s *Store) ListDocuments(ctx context.Context, spaceID string) ([]model.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT id, space_id, name, text, digest, extraction_status, created_at
		 FROM documents WHERE space_id = ? ORDER BY created_at ASC, id ASC`, spaceID)
}

// ListUsableDocuments returns extraction-completed documents with non-empty
// text, in creation order. This is the only document view the engine consumes.
func (s *Store) ListUsableDocuments(ctx context.Context, spaceID string) ([]model.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT id, space_id, name, text, digest, extraction_status, created_at
		 FROM documents WHERE space_id = ? AND extraction_status = ? AND text != ''
		 ORDER BY created_at ASC, id ASC`, spaceID, model.ExtractionCompleted)
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.SpaceID, &d.Name, &d.Text, &d.Digest, &d.ExtractionStatus, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SetDocumentDigest stores the compact digest produced by the local
// backend's per-document preprocessing.
func (s *Store) SetDocumentDigest(ctx context.Context, id, digest string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET digest = ? WHERE id = ?`, digest, id)
	return err
}

// UpdateDocumentExtraction records the outcome of an extraction attempt.
func (s *Store) UpdateDocumentExtraction(ctx context.Context, id, status, text string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET extraction_status = ?, text = ? WHERE id = ?`, status, text, id)
	return err
}
