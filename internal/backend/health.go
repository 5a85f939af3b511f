package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// HealthChecker tracks the remote credential's health by running a probe
// (normally Remote.CheckCredential) and caching the verdict. It is safe for
// concurrent use; resolution passes read Health while checks run.
type HealthChecker struct {
	probe  func(context.Context) error
	logger *slog.Logger

	mu    sync.Mutex
	state string
}

// NewHealthChecker creates a checker in the unset state.
func NewHealthChecker(probe func(context.Context) error, logger *slog.Logger) *HealthChecker {
	return &HealthChecker{
		probe:  probe,
		logger: logger,
		state:  HealthUnset,
	}
}

// Health returns the current credential-health state.
func (h *HealthChecker) Health() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Check runs the probe and returns the resulting state. While the probe is
// in flight the state reads as checking. A transport failure proves nothing
// about the credential itself, so it keeps the last definitive verdict.
func (h *HealthChecker) Check(ctx context.Context) string {
	h.mu.Lock()
	prev := h.state
	h.state = HealthChecking
	h.mu.Unlock()

	err := h.probe(ctx)

	next := prev
	switch {
	case err == nil:
		next = HealthValid
	case errors.Is(err, ErrMissingCredential):
		next = HealthUnset
	case errors.Is(err, ErrInvalidCredential):
		next = HealthInvalid
	default:
		if h.logger != nil {
			h.logger.Warn("credential probe inconclusive", "error", err)
		}
		if prev == HealthChecking {
			next = HealthUnset
		}
	}

	h.mu.Lock()
	h.state = next
	h.mu.Unlock()
	return next
}

var _ HealthSource = (*HealthChecker)(nil)
