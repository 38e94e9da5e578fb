package store

import (
	"context"
	"errors"

	"kabbalah-code-system/models"
)

var (
	// ErrNotFound is returned when the requested account or daily record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write collides with state that already
	// exists (duplicate daily record, already-verified prediction). Callers
	// may retry with fresh state.
	ErrConflict = errors.New("conflicting write")
)

// Ledger is the persistence contract for the reward engine. The engine never
// knows which implementation is active; both the in-memory store and the
// PostgreSQL store satisfy the same atomicity guarantees:
//
//   - every single-account write is applied as a unit (a reader never sees a
//     torn points/xp/level triple),
//   - UpdateAccounts commits all-or-nothing across the touched set,
//   - RecordSpin and MarkPredictionVerified are check-and-set operations, so
//     of two concurrent same-day calls exactly one succeeds.
type Ledger interface {
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	PutAccount(ctx context.Context, acc *models.Account) error
	// AllAccounts returns a stable-ordered snapshot of every account for
	// leaderboard and referral-stat aggregation. The snapshot may lag
	// concurrent writers.
	AllAccounts(ctx context.Context) ([]models.Account, error)

	// UpdateAccounts loads the accounts for ids (missing ids are silently
	// absent from the map handed to fn), applies fn, and persists every
	// account in the map. If fn returns an error nothing is written.
	// Implementations lock the affected accounts in ascending userID order so
	// overlapping cascades cannot deadlock or lose updates.
	UpdateAccounts(ctx context.Context, ids []string, fn func(accs map[string]*models.Account) error) error

	GetDailyPrediction(ctx context.Context, userID, day string) (*models.DailyPrediction, error)
	// CreateDailyPrediction stores a freshly issued prediction. ErrConflict if
	// a record for (user, day) already exists — the caller re-fetches.
	CreateDailyPrediction(ctx context.Context, p *models.DailyPrediction) error
	// MarkPredictionVerified flips the verified flag false→true. ErrNotFound
	// if no record exists, ErrConflict if it was already verified.
	MarkPredictionVerified(ctx context.Context, userID, day string) error

	HasSpun(ctx context.Context, userID, day string) (bool, error)
	// RecordSpin consumes the daily spin gate. ErrConflict if a spin record
	// for (user, day) already exists.
	RecordSpin(ctx context.Context, userID, day string, points int64) error
}
