package postgres

import (
	"database/sql"

	"github.com/groblegark/audittrail/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.AuditEvent.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.AuditEvent, error) {
	var ev model.AuditEvent
	err := row.Scan(
		&ev.ID,
		&ev.CreatedAt,
		&ev.ActorID,
		&ev.Action,
		&ev.ResourceType,
		&ev.ResourceID,
		&ev.Locator.Offset,
		&ev.Locator.Length,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// scanEvents scans multiple rows into a slice of audit events. Events are
// returned by value so the snapshot index stores them contiguously.
func scanEvents(rows *sql.Rows) ([]model.AuditEvent, error) {
	var events []model.AuditEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
