// Package store persists plan versions, adherence records and the per-user
// revision timestamp, and serializes plan writes per user.
package store

import (
	"context"
	"errors"
	"time"

	"lg/stride-api/engine"
)

var (
	// ErrNotFound is returned when a user has no stored plan.
	ErrNotFound = errors.New("store: not found")
	// ErrVersionConflict is returned by AppendPlan when the plan's version is
	// not exactly one past the latest stored version.
	ErrVersionConflict = errors.New("store: plan version conflict")
)

// StoredPlan is one persisted plan version.
type StoredPlan struct {
	ID        string      `json:"id"`
	UserID    int         `json:"user_id"`
	Version   int         `json:"version"`
	Plan      engine.Plan `json:"plan"`
	CreatedAt time.Time   `json:"created_at"`
}

// PlanStore is the persistence boundary for generated plans. Implementations
// give read-after-write consistency for a single user.
type PlanStore interface {
	// LatestPlan returns the highest version for userID or ErrNotFound.
	LatestPlan(ctx context.Context, userID int) (StoredPlan, error)

	// AppendPlan stores plan as a new version. plan.Version must be the
	// latest stored version plus one (1 for a first plan), otherwise
	// ErrVersionConflict.
	AppendPlan(ctx context.Context, userID int, plan engine.Plan) (StoredPlan, error)

	// LastRevisionAt returns the zero time when the user was never revised.
	LastRevisionAt(ctx context.Context, userID int) (time.Time, error)
	SetLastRevisionAt(ctx context.Context, userID int, at time.Time) error

	// CommitRevision stores plan as the next version, appends rec when it is
	// non-nil and sets the revision clock to at. Either all three writes land
	// or none do.
	CommitRevision(ctx context.Context, userID int, plan engine.Plan, rec *engine.AdherenceRecord, at time.Time) (StoredPlan, error)

	// AppendAdherence adds one record; records are never updated.
	AppendAdherence(ctx context.Context, userID int, rec engine.AdherenceRecord) error

	// AdherenceHistory returns up to limit of the most recent records,
	// oldest first. limit <= 0 returns all of them.
	AdherenceHistory(ctx context.Context, userID int, limit int) ([]engine.AdherenceRecord, error)

	// UserIDs lists users that have at least one stored plan.
	UserIDs(ctx context.Context) ([]int, error)

	Close() error
}

// Locker serializes plan generation and revision for one user. The returned
// unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, userID int) (unlock func(), err error)
}
