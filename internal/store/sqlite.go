package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"lg/stride-api/engine"
)

// SQLite implements PlanStore on a local database file. It backs the plangen
// CLI and tests.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at dbPath and applies the schema.
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer keeps version checks and inserts in the same transaction
	// from racing each other.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS plan_versions (
		id         TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL,
		version    INTEGER NOT NULL,
		body       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (user_id, version)
	);
	CREATE TABLE IF NOT EXISTS adherence_records (
		id              TEXT PRIMARY KEY,
		user_id         INTEGER NOT NULL,
		week_start      TEXT NOT NULL,
		week_end        TEXT NOT NULL,
		adherence_score REAL NOT NULL,
		body            TEXT NOT NULL,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_adherence_user ON adherence_records(user_id, week_end);
	CREATE TABLE IF NOT EXISTS plan_revision_state (
		user_id          INTEGER PRIMARY KEY,
		last_revision_at TEXT NOT NULL
	);
	`)
	return err
}

func (s *SQLite) LatestPlan(ctx context.Context, userID int) (StoredPlan, error) {
	var (
		sp        StoredPlan
		body      string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, version, body, created_at FROM plan_versions
		 WHERE user_id = ? ORDER BY version DESC LIMIT 1`, userID).
		Scan(&sp.ID, &sp.UserID, &sp.Version, &body, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredPlan{}, ErrNotFound
	}
	if err != nil {
		return StoredPlan{}, fmt.Errorf("query latest plan: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &sp.Plan); err != nil {
		return StoredPlan{}, fmt.Errorf("decode plan %s: %w", sp.ID, err)
	}
	sp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return sp, nil
}

// sqlQuerier is satisfied by *sql.DB and *sql.Tx. Inside a transaction only
// the tx may be used: the pool holds a single connection.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) writeTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) AppendPlan(ctx context.Context, userID int, plan engine.Plan) (StoredPlan, error) {
	var sp StoredPlan
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		var err error
		sp, err = sqliteInsertPlan(ctx, tx, userID, plan)
		return err
	})
	if err != nil {
		return StoredPlan{}, err
	}
	return sp, nil
}

// CommitRevision writes the plan version, the optional adherence record and
// the revision clock in one transaction.
func (s *SQLite) CommitRevision(ctx context.Context, userID int, plan engine.Plan, rec *engine.AdherenceRecord, at time.Time) (StoredPlan, error) {
	var sp StoredPlan
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		var err error
		if sp, err = sqliteInsertPlan(ctx, tx, userID, plan); err != nil {
			return err
		}
		if rec != nil {
			if err := sqliteInsertAdherence(ctx, tx, userID, *rec); err != nil {
				return err
			}
		}
		return sqliteSetRevisionAt(ctx, tx, userID, at)
	})
	if err != nil {
		return StoredPlan{}, err
	}
	return sp, nil
}

func sqliteInsertPlan(ctx context.Context, q sqlQuerier, userID int, plan engine.Plan) (StoredPlan, error) {
	body, err := json.Marshal(plan)
	if err != nil {
		return StoredPlan{}, fmt.Errorf("encode plan: %w", err)
	}

	var latest int
	if err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM plan_versions WHERE user_id = ?`, userID).Scan(&latest); err != nil {
		return StoredPlan{}, fmt.Errorf("read latest version: %w", err)
	}
	if plan.Version != latest+1 {
		return StoredPlan{}, fmt.Errorf("%w: have %d, got %d", ErrVersionConflict, latest, plan.Version)
	}

	sp := StoredPlan{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Version:   plan.Version,
		Plan:      plan,
		CreatedAt: time.Now().UTC(),
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO plan_versions (id, user_id, version, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		sp.ID, userID, plan.Version, string(body), sp.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return StoredPlan{}, ErrVersionConflict
		}
		return StoredPlan{}, fmt.Errorf("insert plan: %w", err)
	}
	return sp, nil
}

func (s *SQLite) LastRevisionAt(ctx context.Context, userID int) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_revision_at FROM plan_revision_state WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last revision: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last revision %q: %w", raw, err)
	}
	return at, nil
}

func (s *SQLite) SetLastRevisionAt(ctx context.Context, userID int, at time.Time) error {
	return sqliteSetRevisionAt(ctx, s.db, userID, at)
}

func (s *SQLite) AppendAdherence(ctx context.Context, userID int, rec engine.AdherenceRecord) error {
	return sqliteInsertAdherence(ctx, s.db, userID, rec)
}

func sqliteSetRevisionAt(ctx context.Context, q sqlQuerier, userID int, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO plan_revision_state (user_id, last_revision_at) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET last_revision_at = excluded.last_revision_at`,
		userID, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set last revision: %w", err)
	}
	return nil
}

func sqliteInsertAdherence(ctx context.Context, q sqlQuerier, userID int, rec engine.AdherenceRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode adherence record: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO adherence_records (id, user_id, week_start, week_end, adherence_score, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ulid.Make().String(), userID,
		rec.WeekStart.UTC().Format(time.RFC3339Nano), rec.WeekEnd.UTC().Format(time.RFC3339Nano),
		rec.AdherenceScore, string(body), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert adherence record: %w", err)
	}
	return nil
}

// AdherenceHistory orders by ULID as a tie-breaker; ULIDs sort by creation time.
func (s *SQLite) AdherenceHistory(ctx context.Context, userID int, limit int) ([]engine.AdherenceRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM adherence_records WHERE user_id = ?
		 ORDER BY week_end DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query adherence history: %w", err)
	}
	defer rows.Close()

	var out []engine.AdherenceRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var rec engine.AdherenceRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("decode adherence record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func (s *SQLite) UserIDs(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM plan_versions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query plan users: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
