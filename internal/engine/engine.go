// Package engine is the generation orchestrator. It decides which blocks
// need generating, builds bounded context from a space's documents, selects
// between the local and remote backends, drives each block through its
// status lifecycle exactly once, and repairs malformed structured output
// with a single bounded reformat retry.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yangwenmai/studydo/internal/backend"
	"github.com/yangwenmai/studydo/internal/model"
	"github.com/yangwenmai/studydo/internal/store"
)

// ErrPassRunning is returned when a generation pass is requested for a
// space that already has one in flight.
var ErrPassRunning = errors.New("a generation pass is already running for this space")

// DefaultMaxContextChars bounds the built context when no override is set.
const DefaultMaxContextChars = 20000

// Engine orchestrates block generation and question answering for spaces.
type Engine struct {
	store    store.Repository
	local    backend.Backend
	remote   backend.Backend
	health   backend.HealthSource
	logger   *slog.Logger
	maxChars int

	mu      sync.Mutex
	running map[string]bool
}

// Option configures the engine.
type Option func(*Engine)

// WithMaxContextChars overrides the context size bound.
func WithMaxContextChars(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

// New creates an engine over the given store and backends.
func New(st store.Repository, local, remote backend.Backend, health backend.HealthSource, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:    st,
		local:    local,
		remote:   remote,
		health:   health,
		logger:   logger,
		maxChars: DefaultMaxContextChars,
		running:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsRunning reports whether a generation pass is in flight for spaceID.
func (e *Engine) IsRunning(spaceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running[spaceID]
}

func (e *Engine) tryLock(spaceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[spaceID] {
		return false
	}
	e.running[spaceID] = true
	return true
}

func (e *Engine) unlock(spaceID string) {
	e.mu.Lock()
	delete(e.running, spaceID)
	e.mu.Unlock()
}

// pick returns the backend matching a resolved name.
func (e *Engine) pick(resolved string) backend.Backend {
	if resolved == model.BackendRemote {
		return e.remote
	}
	return e.local
}

// RunGenerationPass drives one generation pass for a space: seeds any
// missing blocks for its template, resolves the effective backend, and
// generates every idle block. Safe to invoke repeatedly; claims are
// conditional writes, so a block already generating or ready is left alone.
func (e *Engine) RunGenerationPass(ctx context.Context, spaceID string) error {
	if !e.tryLock(spaceID) {
		return ErrPassRunning
	}
	defer e.unlock(spaceID)

	space, err := e.store.GetSpace(ctx, spaceID)
	if err != nil {
		return err
	}
	kinds := model.TemplateKinds(space.Template)
	if err := e.store.SeedBlocks(ctx, spaceID, kinds); err != nil {
		return err
	}
	docs, err := e.store.ListUsableDocuments(ctx, spaceID)
	if err != nil {
		return err
	}

	resolved := Resolve(space.BackendPref, e.health.Health())
	e.logger.Info("generation pass",
		"space_id", spaceID,
		"backend", resolved,
		"documents", len(docs))

	if resolved == model.BackendRemote {
		return e.runConcurrent(ctx, spaceID, kinds, docs)
	}
	return e.runSequential(ctx, spaceID, kinds, docs)
}

// runSequential generates blocks one at a time in template order, the
// single-flight policy the local model needs. Context is built in full mode
// over per-document digests, which are ensured before the first block.
func (e *Engine) runSequential(ctx context.Context, spaceID string, kinds []string, docs []model.Document) error {
	b := e.local
	var material string
	materialBuilt := false

	for _, kind := range kinds {
		block, err := e.store.GetBlock(ctx, spaceID, kind)
		if err != nil {
			e.logger.Error("fetch block", "space_id", spaceID, "kind", kind, "error", err)
			continue
		}
		if block.Status != model.BlockIdle {
			continue
		}
		claimed, err := e.store.ClaimBlock(ctx, block.ID)
		if err != nil || !claimed {
			continue
		}

		if !materialBuilt {
			material, _ = BuildContext(e.digestedDocs(ctx, docs), ModeFull, e.maxChars, true)
			materialBuilt = true
		}
		e.generateBlock(ctx, b, block.ID, kind, material)
	}
	return nil
}

// runConcurrent claims every idle block up front, then fans the claimed
// kinds out as independent operations over one shared balanced context.
// Each kind commits its own outcome; one failure never blocks the rest.
func (e *Engine) runConcurrent(ctx context.Context, spaceID string, kinds []string, docs []model.Document) error {
	b := e.remote

	var claimed []*model.Block
	for _, kind := range kinds {
		block, err := e.store.GetBlock(ctx, spaceID, kind)
		if err != nil {
			e.logger.Error("fetch block", "space_id", spaceID, "kind", kind, "error", err)
			continue
		}
		if block.Status != model.BlockIdle {
			continue
		}
		ok, err := e.store.ClaimBlock(ctx, block.ID)
		if err != nil || !ok {
			continue
		}
		claimed = append(claimed, block)
	}
	if len(claimed) == 0 {
		return nil
	}

	material, _ := BuildContext(docs, ModeBalanced, e.maxChars, true)
	if material == "" {
		for _, block := range claimed {
			e.failBlock(ctx, block.ID, block.Kind, "no content available")
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, block := range claimed {
		g.Go(func() error {
			e.generateBlock(gctx, b, block.ID, block.Kind, material)
			return nil
		})
	}
	return g.Wait()
}

// generateBlock runs one claimed block to its terminal state. Every failure
// is committed as a failed block; nothing escapes.
func (e *Engine) generateBlock(ctx context.Context, b backend.Backend, blockID, kind, material string) {
	if material == "" {
		e.failBlock(ctx, blockID, kind, "no content available")
		return
	}
	raw, err := invoke(ctx, b, kind, material)
	if err != nil {
		e.failBlock(ctx, blockID, kind, failureMessage(err))
		return
	}
	payload, err := buildPayload(ctx, b, kind, raw)
	if err != nil {
		e.failBlock(ctx, blockID, kind, failureMessage(err))
		return
	}
	if err := e.store.MarkBlockReady(ctx, blockID, payload); err != nil {
		e.logger.Error("commit block", "block_id", blockID, "kind", kind, "error", err)
	}
}

func (e *Engine) failBlock(ctx context.Context, blockID, kind, message string) {
	e.logger.Warn("block failed", "block_id", blockID, "kind", kind, "reason", message)
	if err := e.store.MarkBlockFailed(ctx, blockID, message); err != nil {
		e.logger.Error("commit block failure", "block_id", blockID, "error", err)
	}
}

// invoke dispatches one generation operation by kind.
func invoke(ctx context.Context, b backend.Backend, kind, material string) (string, error) {
	switch kind {
	case model.BlockSummary:
		return b.GenerateSummary(ctx, material)
	case model.BlockFlashcards:
		return b.GenerateFlashcards(ctx, material)
	case model.BlockQuiz:
		return b.GenerateQuiz(ctx, material)
	case model.BlockKeyTerms:
		return b.GenerateKeyTerms(ctx, material)
	case model.BlockMainQuestion:
		return b.GenerateMainQuestion(ctx, material)
	case model.BlockInsights:
		return b.GenerateInsights(ctx, material)
	case model.BlockArgument:
		return b.GenerateArgument(ctx, material)
	case model.BlockOutline:
		return b.GenerateOutline(ctx, material)
	}
	return "", errors.New("unknown block kind: " + kind)
}

// digestedDocs substitutes each document's compact digest for its raw text,
// computing and persisting missing digests first. Digesting is best effort;
// a document whose digest cannot be produced contributes raw text instead.
func (e *Engine) digestedDocs(ctx context.Context, docs []model.Document) []model.Document {
	dg, ok := e.local.(backend.Digester)
	if !ok {
		return docs
	}
	out := make([]model.Document, len(docs))
	copy(out, docs)
	for i := range out {
		if strings.TrimSpace(out[i].Digest) != "" {
			out[i].Text = out[i].Digest
			continue
		}
		digest, err := dg.Digest(ctx, out[i].Text)
		if err != nil || strings.TrimSpace(digest) == "" {
			e.logger.Warn("digest document", "document_id", out[i].ID, "error", err)
			continue
		}
		if err := e.store.SetDocumentDigest(ctx, out[i].ID, digest); err != nil {
			e.logger.Error("persist digest", "document_id", out[i].ID, "error", err)
		}
		out[i].Digest = digest
		out[i].Text = digest
	}
	return out
}

// ResetBlocks returns every block of a space to idle, clearing payloads and
// errors. It takes the space's run lock for the duration of the reset, so a
// running pass refuses the reset and a reset keeps a pass from starting and
// claiming blocks mid-wipe.
func (e *Engine) ResetBlocks(ctx context.Context, spaceID string) error {
	if !e.tryLock(spaceID) {
		return ErrPassRunning
	}
	defer e.unlock(spaceID)
	return e.store.ResetBlocks(ctx, spaceID)
}
