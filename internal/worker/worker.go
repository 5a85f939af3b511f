// Package worker runs the background sweep: answering outstanding
// questions, releasing blocks stuck in generating past the staleness
// window, and refreshing remote credential health.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yangwenmai/studydo/internal/model"
)

// Answerer drives a space's outstanding questions to terminal states.
type Answerer interface {
	AnswerPendingQuestions(ctx context.Context, spaceID string) error
	IsRunning(spaceID string) bool
}

// SweepStore provides the persistence operations a sweep needs.
type SweepStore interface {
	ListSpaces(ctx context.Context) ([]model.Space, error)
	ResetStaleGenerating(ctx context.Context, cutoff string) (int64, error)
	ResetStaleAnswering(ctx context.Context, cutoff string) (int64, error)
}

// HealthRefresher re-probes remote credential health.
type HealthRefresher interface {
	Check(ctx context.Context) string
}

// Worker polls on a fixed interval.
type Worker struct {
	store     SweepStore
	answerer  Answerer
	health    HealthRefresher
	interval  time.Duration
	staleness time.Duration
	logger    *slog.Logger
}

// New creates a Worker.
func New(store SweepStore, answerer Answerer, health HealthRefresher, interval, staleness time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:     store,
		answerer:  answerer,
		health:    health,
		interval:  interval,
		staleness: staleness,
		logger:    logger,
	}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("worker started", "interval", w.interval.String(), "staleness_window", w.staleness.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		default:
		}

		w.Sweep(ctx)

		select {
		case <-ctx.Done():
		case <-time.After(w.interval):
		}
	}
}

// Sweep runs one pass of the background work.
func (w *Worker) Sweep(ctx context.Context) {
	if w.health != nil {
		w.health.Check(ctx)
	}

	// Blocks stuck in generating longer than the staleness window mean a
	// crashed or interrupted pass; release them so a later pass can claim
	// them again. A live pass keeps its timestamps fresh and is unaffected.
	cutoff := time.Now().UTC().Add(-w.staleness).Format(time.RFC3339)
	if n, err := w.store.ResetStaleGenerating(ctx, cutoff); err != nil {
		w.logger.Error("reset stale blocks", "error", err)
	} else if n > 0 {
		w.logger.Info("released stale generating blocks", "count", n)
	}

	// Same for questions orphaned in answering with no stored answer. The
	// claim is pending-only, so these stay stuck until returned to pending.
	if n, err := w.store.ResetStaleAnswering(ctx, cutoff); err != nil {
		w.logger.Error("reset stale questions", "error", err)
	} else if n > 0 {
		w.logger.Info("released stale answering questions", "count", n)
	}

	spaces, err := w.store.ListSpaces(ctx)
	if err != nil {
		w.logger.Error("list spaces", "error", err)
		return
	}
	for _, sp := range spaces {
		if w.answerer.IsRunning(sp.ID) {
			continue
		}
		if err := w.answerer.AnswerPendingQuestions(ctx, sp.ID); err != nil {
			w.logger.Error("answer pending questions", "space_id", sp.ID, "error", err)
		}
	}
}
