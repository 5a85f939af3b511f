package engine

import (
	"github.com/yangwenmai/studydo/internal/backend"
	"github.com/yangwenmai/studydo/internal/model"
)

// Resolve maps a space's backend preference and the live remote credential
// health to the effective backend for one pass. A health re-check in flight
// counts as usable so passes are not blocked on every probe; only a
// definitive unset or invalid verdict falls back to local.
//
// Pure function, recomputed on every pass because health changes
// asynchronously.
func Resolve(pref, health string) string {
	if pref != model.BackendRemote {
		return model.BackendLocal
	}
	switch health {
	case backend.HealthValid, backend.HealthChecking:
		return model.BackendRemote
	}
	return model.BackendLocal
}
