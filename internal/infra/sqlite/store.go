// Package sqlite is the SpendLog persistence layer on an embedded SQLite
// database (pure-Go driver), with schema managed by golang-migrate.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlite")

const timestampLayout = time.RFC3339Nano

// Store implements port.Store on SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open creates the database file if needed, applies migrations and
// returns a ready Store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite store ready", zap.String("path", path))
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("sqlite: rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// ============================================================
// Scanning helpers
// ============================================================

type scanner interface {
	Scan(dest ...any) error
}

func parseTimestamp(v string) time.Time {
	t, err := time.Parse(timestampLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDate(v string) domain.Date {
	d, err := domain.ParseDate(v)
	if err != nil {
		return domain.Date{}
	}
	return d
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// rangeClause appends the date bounds of r for column col.
func rangeClause(col string, r domain.DateRange, where []string, args []any) ([]string, []any) {
	if !r.Start.IsZero() {
		where = append(where, col+" >= ?")
		args = append(args, r.Start.String())
	}
	if !r.End.IsZero() {
		where = append(where, col+" <= ?")
		args = append(args, r.End.String())
	}
	return where, args
}

// orderClause renders an ORDER BY for an allowlisted column, with id as a
// stable tie-breaker.
func orderClause(p domain.ListParams, columns map[string]string) string {
	col, ok := columns[p.SortBy]
	if !ok {
		col = "id"
	}
	dir := "DESC"
	if p.Order == domain.OrderAsc {
		dir = "ASC"
	}
	if col == "id" {
		return fmt.Sprintf(" ORDER BY id %s", dir)
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}
