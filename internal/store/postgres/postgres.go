// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/groblegark/audittrail/internal/model"
	"github.com/groblegark/audittrail/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) LoadEvents(ctx context.Context) ([]model.AuditEvent, error) {
	return queryLoadEvents(ctx, s.db)
}

func (s *PostgresStore) CountEvents(ctx context.Context) (int64, error) {
	return queryCountEvents(ctx, s.db)
}

func (s *PostgresStore) CountDistinct(ctx context.Context) (int64, int64, error) {
	return queryCountDistinct(ctx, s.db)
}

func (s *PostgresStore) GetEvent(ctx context.Context, id int64) (*model.AuditEvent, error) {
	return queryGetEvent(ctx, s.db, id)
}

func (s *PostgresStore) ListFirstPage(ctx context.Context, f model.EventFilter, limit int) ([]model.AuditEvent, error) {
	return queryListFirstPage(ctx, s.db, f, limit)
}

func (s *PostgresStore) FindBoundary(ctx context.Context, f model.EventFilter, offset int) (*model.Cursor, error) {
	return queryFindBoundary(ctx, s.db, f, offset)
}

func (s *PostgresStore) ListAfterCursor(ctx context.Context, f model.EventFilter, cur model.Cursor, limit int) ([]model.AuditEvent, error) {
	return queryListAfterCursor(ctx, s.db, f, cur, limit)
}

// InsertEvents writes a batch of rows in one transaction through a prepared
// statement. The seeder calls this once per generation batch; a failed batch
// rolls back whole so a partially written batch never reaches readers.
func (s *PostgresStore) InsertEvents(ctx context.Context, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_events (
			id, created_at, actor_id, action, resource_type, resource_id,
			payload_offset, payload_length
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			ev.ID,
			ev.CreatedAt,
			ev.ActorID,
			string(ev.Action),
			string(ev.ResourceType),
			ev.ResourceID,
			ev.Locator.Offset,
			ev.Locator.Length,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert event %d: %w", ev.ID, err)
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close insert statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
