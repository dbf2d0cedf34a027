package sql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
	"github.com/bcnelson/oxidized-inventory-sync/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
	}
	return err
}

// gooseLogger routes migration output through zap.
type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.Infof(strings.TrimSpace(format), v...)
}

// gooseMu serializes goose's package-level configuration.
var gooseMu sync.Mutex

// Store implements the storage.Storage interface using SQL. The database is
// contacted on first use; until a connection succeeds and the schema is
// migrated every operation fails and the next call tries again.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger

	mu    sync.Mutex
	ready bool
}

// Ensure Store implements Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store. It does not connect; see Migrate.
func New(driver, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == "sqlite3" {
		// A single writer avoids SQLITE_BUSY between the sync loop and readers.
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, driver: driver, logger: logger}, nil
}

// NewFromDB wraps an existing connection without running migrations.
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db, driver: db.DriverName(), logger: zap.NewNop(), ready: true}
}

// Migrate connects to the database and brings the schema up to date. It is
// a no-op once it has succeeded.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{s.logger.Named("migrations").Sugar()})
	if err := goose.SetDialect(s.driver); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.ready = true
	s.logger.Info("database schema ready", zap.String("driver", s.driver))
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ============================================
// Devices
// ============================================

const deviceColumns = `name, ip, model, port, username, password, enable, input, device_group`

func listDevices(ctx context.Context, db dbInterface) ([]domain.Device, error) {
	var devices []domain.Device
	err := db.SelectContext(ctx, &devices, `SELECT `+deviceColumns+` FROM devices ORDER BY ip`)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *Store) CurrentSnapshot(ctx context.Context) (domain.Snapshot, error) {
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	devices, err := listDevices(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("reading devices: %w", err)
	}
	return domain.NewSnapshot(devices...), nil
}

func replaceDevices(ctx context.Context, db dbInterface, snap domain.Snapshot) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM devices`); err != nil {
		return fmt.Errorf("clearing devices: %w", err)
	}
	for _, d := range snap.Devices() {
		_, err := sqlx.NamedExecContext(ctx, db,
			`INSERT INTO devices (`+deviceColumns+`)
			 VALUES (:name, :ip, :model, :port, :username, :password, :enable, :input, :device_group)`, d)
		if err != nil {
			return fmt.Errorf("inserting device %s: %w", d.IP, wrapUniqueError(err))
		}
	}
	return nil
}

// ReplaceSnapshot deletes every stored device and inserts snap in one
// transaction.
func (s *Store) ReplaceSnapshot(ctx context.Context, snap domain.Snapshot) (err error) {
	if err = s.Migrate(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = replaceDevices(ctx, tx, snap); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (s *Store) CountDevices(ctx context.Context) (int, error) {
	if err := s.Migrate(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM devices`); err != nil {
		return 0, err
	}
	return n, nil
}

// ============================================
// Sync runs
// ============================================

const syncRunColumns = `id, status, fetched, skipped, duplicates, devices, notified, notify_error, error_message, started_at, finished_at`

func (s *Store) RecordSyncRun(ctx context.Context, run *domain.SyncResult) error {
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	row := *run
	row.StartedAt = row.StartedAt.UTC()
	row.FinishedAt = row.FinishedAt.UTC()

	_, err := sqlx.NamedExecContext(ctx, s.db,
		`INSERT INTO sync_runs (`+syncRunColumns+`)
		 VALUES (:id, :status, :fetched, :skipped, :duplicates, :devices, :notified, :notify_error, :error_message, :started_at, :finished_at)`, &row)
	return wrapUniqueError(err)
}

func (s *Store) ListSyncRuns(ctx context.Context, limit, offset int) ([]*domain.SyncResult, error) {
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	var runs []*domain.SyncResult
	err := s.db.SelectContext(ctx, &runs, s.db.Rebind(
		`SELECT `+syncRunColumns+` FROM sync_runs ORDER BY started_at DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		r.StartedAt = r.StartedAt.In(time.UTC)
		r.FinishedAt = r.FinishedAt.In(time.UTC)
	}
	return runs, nil
}

// PruneSyncRuns keeps only the newest keep runs.
func (s *Store) PruneSyncRuns(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM sync_runs WHERE id NOT IN (
			SELECT id FROM sync_runs ORDER BY started_at DESC LIMIT ?
		)`), keep)
	return err
}
