package model

// EventQuery is one list-events request: a closed created_at window,
// optional equality filters, and a page position. Absent filters serialize
// as explicit JSON nulls so the response echo is unambiguous.
type EventQuery struct {
	FromTS   int64   `json:"from_ts"`
	ToTS     int64   `json:"to_ts"`
	ActorID  *int64  `json:"actor_id"`
	Action   *Action `json:"action"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// QueryError reports an invalid query parameter. It is rejected before any
// index or storage work and maps to a 400 at the HTTP layer.
type QueryError string

func (e QueryError) Error() string {
	return string(e)
}

// Validate checks the pagination parameters. The time window is not
// validated: an inverted or empty window is a legitimate query that matches
// nothing.
func (q EventQuery) Validate() error {
	if q.Page < 1 {
		return QueryError("page must be >= 1")
	}
	if q.PageSize < 1 {
		return QueryError("page_size must be >= 1")
	}
	return nil
}

// Offset returns the number of rows in canonical order preceding the
// requested page.
func (q EventQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Filter returns the storage-level predicate for the query.
func (q EventQuery) Filter() EventFilter {
	return EventFilter{FromTS: q.FromTS, ToTS: q.ToTS, ActorID: q.ActorID, Action: q.Action}
}

// EventFilter is the row predicate shared by the in-memory and keyset
// strategies: a closed created_at window plus optional equality filters.
type EventFilter struct {
	FromTS  int64
	ToTS    int64
	ActorID *int64
	Action  *Action
}

// Matches reports whether ev satisfies the predicate.
func (f EventFilter) Matches(ev AuditEvent) bool {
	if ev.CreatedAt < f.FromTS || ev.CreatedAt > f.ToTS {
		return false
	}
	if f.ActorID != nil && ev.ActorID != *f.ActorID {
		return false
	}
	if f.Action != nil && ev.Action != *f.Action {
		return false
	}
	return true
}

// EventPage is the response for one list-events request: the echoed query,
// the page of events with payloads attached, and the event count.
type EventPage struct {
	Query  EventQuery   `json:"query"`
	Events []AuditEvent `json:"events"`
	Count  int          `json:"count"`
}
