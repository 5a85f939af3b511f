// Package ingest is the document intake side: pasted text, local files, and
// web URLs all end up as documents with an extraction status. The
// generation engine consumes completed documents read-only.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nurl "net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yangwenmai/studydo/internal/model"
	"github.com/yangwenmai/studydo/internal/store"
)

// ErrEmptyText is returned when a paste or file carries no usable text.
var ErrEmptyText = errors.New("document text is empty")

// Intake stores incoming documents for a space.
type Intake struct {
	store     store.DocumentStore
	extractor *Extractor
	logger    *slog.Logger
}

// New creates an Intake.
func New(st store.DocumentStore, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		store:     st,
		extractor: NewExtractor(),
		logger:    logger,
	}
}

// AddPaste stores pasted text as a completed document.
func (in *Intake) AddPaste(ctx context.Context, spaceID, name, text string) (model.Document, error) {
	text = normalizeText(text)
	if text == "" {
		return model.Document{}, ErrEmptyText
	}
	if name == "" {
		name = "Pasted text"
	}
	d := model.NewDocument(uuid.NewString(), spaceID, name, text, model.ExtractionCompleted)
	if err := in.store.CreateDocument(ctx, d); err != nil {
		return model.Document{}, err
	}
	return d, nil
}

// AddFile reads a local file and stores its contents as a completed
// document named after the file.
func (in *Intake) AddFile(ctx context.Context, spaceID, path string) (model.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read file: %w", err)
	}
	return in.AddPaste(ctx, spaceID, filepath.Base(path), string(raw))
}

// AddURL stores a pending document for url, then extracts the page's
// readable content. The document ends up completed with the extracted text,
// or failed if extraction does not produce usable content.
func (in *Intake) AddURL(ctx context.Context, spaceID, url string) (model.Document, error) {
	d := model.NewDocument(uuid.NewString(), spaceID, displayName(url), "", model.ExtractionPending)
	if err := in.store.CreateDocument(ctx, d); err != nil {
		return model.Document{}, err
	}

	_, text, err := in.extractor.Extract(ctx, url)
	if err != nil {
		in.logger.Warn("url extraction failed", "url", url, "error", err)
		if uerr := in.store.UpdateDocumentExtraction(ctx, d.ID, model.ExtractionFailed, ""); uerr != nil {
			return model.Document{}, uerr
		}
		d.ExtractionStatus = model.ExtractionFailed
		return d, nil
	}

	if err := in.store.UpdateDocumentExtraction(ctx, d.ID, model.ExtractionCompleted, text); err != nil {
		return model.Document{}, err
	}
	d.Text = text
	d.ExtractionStatus = model.ExtractionCompleted
	return d, nil
}

// displayName derives a readable fallback name from a URL.
func displayName(url string) string {
	if u, err := nurl.Parse(url); err == nil && u.Host != "" {
		name := u.Host + strings.TrimRight(u.Path, "/")
		return name
	}
	return url
}
