// Package store defines the persistence interface for audit event metadata.
package store

import (
	"context"
	"errors"

	"github.com/groblegark/audittrail/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for audit event metadata.
//
// LoadEvents is the bulk read used once per snapshot build and returns rows
// already in canonical order. The keyset methods back the storage-side
// pagination strategy and must order rows identically to the snapshot
// (created_at DESC, id DESC) so both strategies produce the same pages.
// InsertEvents exists for the seeder; the dataset is append-mostly and
// rebuilt by re-seeding, there is no general write path.
type Store interface {
	// Bulk snapshot read
	LoadEvents(ctx context.Context) ([]model.AuditEvent, error)
	CountEvents(ctx context.Context) (int64, error)
	CountDistinct(ctx context.Context) (actors, actions int64, err error)

	// Row lookup
	GetEvent(ctx context.Context, id int64) (*model.AuditEvent, error)

	// Keyset pagination
	ListFirstPage(ctx context.Context, f model.EventFilter, limit int) ([]model.AuditEvent, error)
	FindBoundary(ctx context.Context, f model.EventFilter, offset int) (*model.Cursor, error)
	ListAfterCursor(ctx context.Context, f model.EventFilter, cur model.Cursor, limit int) ([]model.AuditEvent, error)

	// Seeding
	InsertEvents(ctx context.Context, events []model.AuditEvent) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
