// Command migrate applies pending SQL migrations from db/ in filename order.
// Applied files are recorded in the migrations table; each file and its
// record insert share one transaction.
//
// Usage: go run ./cmd/migrate [-dir db] [-dry-run]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"lg/stride-api/internal/logger"
)

var filenamePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{3}-`)

func main() {
	dir := flag.String("dir", "db", "directory holding *.sql migrations")
	dryRun := flag.Bool("dry-run", false, "list pending migrations without applying them")
	flag.Parse()

	_ = godotenv.Load()
	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(context.Background(), log, *dir, *dryRun); err != nil {
		log.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, dir string, dryRun bool) error {
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return errors.New("DB_URL is required")
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migration files found in %s", dir)
	}

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return err
	}

	todo := pendingMigrations(files, applied)
	if len(todo) == 0 {
		log.Info("no pending migrations")
		return nil
	}
	for _, f := range todo {
		name := filepath.Base(f)
		if dryRun {
			log.Info("pending", "migration", name)
			continue
		}
		if err := apply(ctx, conn, f); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		log.Info("applied", "migration", name)
	}
	if !dryRun {
		log.Info("migrations applied", "count", len(todo))
	}
	return nil
}

// appliedMigrations reads the migrations table. A missing table means a
// fresh database: nothing is applied yet.
func appliedMigrations(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	var exists bool
	if err := conn.QueryRow(ctx, "SELECT to_regclass('migrations') IS NOT NULL").Scan(&exists); err != nil {
		return nil, fmt.Errorf("check migrations table: %w", err)
	}
	applied := make(map[string]bool)
	if !exists {
		return applied, nil
	}
	rows, err := conn.Query(ctx, "SELECT migration FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

// pendingMigrations returns files not yet applied, sorted by name.
func pendingMigrations(files []string, applied map[string]bool) []string {
	var todo []string
	for _, f := range files {
		if !applied[filepath.Base(f)] {
			todo = append(todo, f)
		}
	}
	sort.Strings(todo)
	return todo
}

func apply(ctx context.Context, conn *pgx.Conn, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO migrations (migration, description) VALUES ($1, $2)",
		name, descriptionFromFilename(name)); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit(ctx)
}

// descriptionFromFilename strips the YYYY-MM-DD-NNN- prefix and .sql suffix.
func descriptionFromFilename(filename string) string {
	name := filenamePrefix.ReplaceAllString(strings.TrimSuffix(filename, ".sql"), "")
	return strings.ReplaceAll(name, "-", " ")
}
