package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lg/stride-api/engine"
)

// planLockNamespace is the first key of the two-key advisory lock form, so
// plan locks never collide with other advisory locks on the database.
const planLockNamespace = 7301

// planWriteNamespace keys the transaction-scoped lock taken by plan writes.
// It must differ from planLockNamespace: PGAdvisoryLocker holds that key on
// another pooled connection while the writes run.
const planWriteNamespace = 7302

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// Postgres implements PlanStore on the tables in db/. The pool is owned by
// the caller; Close is a no-op.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// planRow is the shape of a plan_versions row.
type planRow struct {
	ID        string    `db:"id"`
	UserID    int       `db:"user_id"`
	Version   int       `db:"version"`
	Body      []byte    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

func (r planRow) decode() (StoredPlan, error) {
	sp := StoredPlan{ID: r.ID, UserID: r.UserID, Version: r.Version, CreatedAt: r.CreatedAt}
	if err := json.Unmarshal(r.Body, &sp.Plan); err != nil {
		return StoredPlan{}, fmt.Errorf("decode plan %s: %w", r.ID, err)
	}
	return sp, nil
}

func (s *Postgres) LatestPlan(ctx context.Context, userID int) (StoredPlan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, version, body, created_at
		FROM plan_versions
		WHERE user_id = @user_id
		ORDER BY version DESC
		LIMIT 1
	`, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return StoredPlan{}, fmt.Errorf("query latest plan: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[planRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredPlan{}, ErrNotFound
	}
	if err != nil {
		return StoredPlan{}, fmt.Errorf("scan latest plan: %w", err)
	}
	return row.decode()
}

// pgQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// writeTx runs fn in a transaction holding the user's plan-write lock.
func (s *Postgres) writeTx(ctx context.Context, userID int, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(@ns, @user_id)`,
		pgx.NamedArgs{"ns": planWriteNamespace, "user_id": userID}); err != nil {
		return fmt.Errorf("lock plan writes: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AppendPlan checks the expected version under the plan-write lock; the
// (user_id, version) unique index backs it up.
func (s *Postgres) AppendPlan(ctx context.Context, userID int, plan engine.Plan) (StoredPlan, error) {
	var sp StoredPlan
	err := s.writeTx(ctx, userID, func(tx pgx.Tx) error {
		var err error
		sp, err = insertPlan(ctx, tx, userID, plan)
		return err
	})
	if err != nil {
		return StoredPlan{}, err
	}
	return sp, nil
}

// CommitRevision writes the plan version, the optional adherence record and
// the revision clock in one transaction.
func (s *Postgres) CommitRevision(ctx context.Context, userID int, plan engine.Plan, rec *engine.AdherenceRecord, at time.Time) (StoredPlan, error) {
	var sp StoredPlan
	err := s.writeTx(ctx, userID, func(tx pgx.Tx) error {
		var err error
		if sp, err = insertPlan(ctx, tx, userID, plan); err != nil {
			return err
		}
		if rec != nil {
			if err := insertAdherence(ctx, tx, userID, *rec); err != nil {
				return err
			}
		}
		return setRevisionAt(ctx, tx, userID, at)
	})
	if err != nil {
		return StoredPlan{}, err
	}
	return sp, nil
}

func insertPlan(ctx context.Context, q pgQuerier, userID int, plan engine.Plan) (StoredPlan, error) {
	body, err := json.Marshal(plan)
	if err != nil {
		return StoredPlan{}, fmt.Errorf("encode plan: %w", err)
	}

	var latest int
	if err := q.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM plan_versions WHERE user_id = @user_id`,
		pgx.NamedArgs{"user_id": userID}).Scan(&latest); err != nil {
		return StoredPlan{}, fmt.Errorf("read latest version: %w", err)
	}
	if plan.Version != latest+1 {
		return StoredPlan{}, fmt.Errorf("%w: have %d, got %d", ErrVersionConflict, latest, plan.Version)
	}

	rows, err := q.Query(ctx, `
		INSERT INTO plan_versions (id, user_id, version, body)
		VALUES (@id, @user_id, @version, @body)
		RETURNING id, user_id, version, body, created_at
	`, pgx.NamedArgs{
		"id":      uuid.NewString(),
		"user_id": userID,
		"version": plan.Version,
		"body":    string(body),
	})
	if err != nil {
		return StoredPlan{}, fmt.Errorf("insert plan: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[planRow])
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return StoredPlan{}, ErrVersionConflict
		}
		return StoredPlan{}, fmt.Errorf("insert plan: %w", err)
	}
	return row.decode()
}

func (s *Postgres) LastRevisionAt(ctx context.Context, userID int) (time.Time, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx, `SELECT last_revision_at FROM plan_revision_state WHERE user_id = @user_id`,
		pgx.NamedArgs{"user_id": userID}).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last revision: %w", err)
	}
	return at.UTC(), nil
}

func (s *Postgres) SetLastRevisionAt(ctx context.Context, userID int, at time.Time) error {
	return setRevisionAt(ctx, s.pool, userID, at)
}

func (s *Postgres) AppendAdherence(ctx context.Context, userID int, rec engine.AdherenceRecord) error {
	return insertAdherence(ctx, s.pool, userID, rec)
}

func setRevisionAt(ctx context.Context, q pgQuerier, userID int, at time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO plan_revision_state (user_id, last_revision_at)
		VALUES (@user_id, @at)
		ON CONFLICT (user_id) DO UPDATE SET last_revision_at = EXCLUDED.last_revision_at
	`, pgx.NamedArgs{"user_id": userID, "at": at.UTC()})
	if err != nil {
		return fmt.Errorf("set last revision: %w", err)
	}
	return nil
}

func insertAdherence(ctx context.Context, q pgQuerier, userID int, rec engine.AdherenceRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode adherence record: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO adherence_records (id, user_id, week_start, week_end, adherence_score, body)
		VALUES (@id, @user_id, @week_start, @week_end, @score, @body)
	`, pgx.NamedArgs{
		"id":         uuid.NewString(),
		"user_id":    userID,
		"week_start": rec.WeekStart.UTC(),
		"week_end":   rec.WeekEnd.UTC(),
		"score":      rec.AdherenceScore,
		"body":       string(body),
	})
	if err != nil {
		return fmt.Errorf("insert adherence record: %w", err)
	}
	return nil
}

func (s *Postgres) AdherenceHistory(ctx context.Context, userID int, limit int) ([]engine.AdherenceRecord, error) {
	if limit <= 0 {
		limit = 1 << 30
	}
	rows, err := s.pool.Query(ctx, `
		SELECT body FROM adherence_records
		WHERE user_id = @user_id
		ORDER BY week_end DESC, created_at DESC
		LIMIT @limit
	`, pgx.NamedArgs{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("query adherence history: %w", err)
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan adherence history: %w", err)
	}
	out := make([]engine.AdherenceRecord, len(bodies))
	for i, b := range bodies {
		if err := json.Unmarshal(b, &out[i]); err != nil {
			return nil, fmt.Errorf("decode adherence record: %w", err)
		}
	}
	slices.Reverse(out)
	return out, nil
}

func (s *Postgres) UserIDs(ctx context.Context) ([]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT user_id FROM plan_versions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query plan users: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (s *Postgres) Close() error { return nil }
