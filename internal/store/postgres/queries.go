package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/groblegark/audittrail/internal/model"
	"github.com/groblegark/audittrail/internal/store"
)

// eventColumns is the column list used for SELECT statements on the
// audit_events table.
const eventColumns = `id, created_at, actor_id, action, resource_type, resource_id,
	payload_offset, payload_length`

// canonicalOrder sorts newest first with id breaking timestamp ties. Every
// listing query uses it so page boundaries line up with the in-memory index.
const canonicalOrder = ` ORDER BY created_at DESC, id DESC`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// filterWhere builds the WHERE clause for an event filter. The time window is
// always present with closed bounds on both ends, matching the snapshot index;
// actor and action predicates are appended only when set.
func filterWhere(f model.EventFilter) (string, []any) {
	clause := `WHERE created_at BETWEEN $1 AND $2`
	args := []any{f.FromTS, f.ToTS}

	if f.ActorID != nil {
		clause += fmt.Sprintf(` AND actor_id = $%d`, len(args)+1)
		args = append(args, *f.ActorID)
	}
	if f.Action != nil {
		clause += fmt.Sprintf(` AND action = $%d`, len(args)+1)
		args = append(args, string(*f.Action))
	}
	return clause, args
}

func queryLoadEvents(ctx context.Context, db executor) ([]model.AuditEvent, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+eventColumns+` FROM audit_events`+canonicalOrder)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func queryCountEvents(ctx context.Context, db executor) (int64, error) {
	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func queryCountDistinct(ctx context.Context, db executor) (int64, int64, error) {
	var actors, actions int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT actor_id), COUNT(DISTINCT action) FROM audit_events`,
	).Scan(&actors, &actions)
	if err != nil {
		return 0, 0, fmt.Errorf("count distinct attributes: %w", err)
	}
	return actors, actions, nil
}

func queryGetEvent(ctx context.Context, db executor, id int64) (*model.AuditEvent, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM audit_events WHERE id = $1`, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return ev, nil
}

func queryListFirstPage(ctx context.Context, db executor, f model.EventFilter, limit int) ([]model.AuditEvent, error) {
	where, args := filterWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM audit_events %s%s LIMIT $%d`,
		eventColumns, where, canonicalOrder, len(args)+1)
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list first page: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// queryFindBoundary returns the (created_at, id) pair of the last row before
// the requested page, i.e. the row at position offset-1 in canonical order.
// A nil cursor with nil error means the offset lies past the end of the
// filtered set.
func queryFindBoundary(ctx context.Context, db executor, f model.EventFilter, offset int) (*model.Cursor, error) {
	where, args := filterWhere(f)
	query := fmt.Sprintf(`SELECT created_at, id FROM audit_events %s%s OFFSET $%d LIMIT 1`,
		where, canonicalOrder, len(args)+1)
	args = append(args, offset-1)

	var cur model.Cursor
	err := db.QueryRowContext(ctx, query, args...).Scan(&cur.CreatedAt, &cur.ID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find boundary at offset %d: %w", offset, err)
	}
	return &cur, nil
}

// queryListAfterCursor returns rows strictly after the cursor in canonical
// order. The row-value comparison makes ties on created_at break on id, so a
// page never repeats or skips rows across the boundary.
func queryListAfterCursor(ctx context.Context, db executor, f model.EventFilter, cur model.Cursor, limit int) ([]model.AuditEvent, error) {
	where, args := filterWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM audit_events %s AND (created_at, id) < ($%d, $%d)%s LIMIT $%d`,
		eventColumns, where, len(args)+1, len(args)+2, canonicalOrder, len(args)+3)
	args = append(args, cur.CreatedAt, cur.ID, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list after cursor: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}
