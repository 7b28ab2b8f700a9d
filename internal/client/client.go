// Package client provides a transport-agnostic interface for the audit read
// API and an HTTP/JSON implementation that talks to the trail server.
package client

import (
	"context"

	"github.com/groblegark/audittrail/internal/model"
)

// AuditClient is the interface that all trail CLI commands use to communicate
// with the audit server. It is implemented by HTTPClient (default) and can be
// backed by any transport.
type AuditClient interface {
	// Events
	ListEvents(ctx context.Context, req *ListEventsRequest) (*model.EventPage, error)
	GetEvent(ctx context.Context, id int64) (*model.AuditEvent, error)

	// Introspection
	Stats(ctx context.Context) (*model.Stats, error)
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// ListEventsRequest holds parameters for listing audit events. Nil pointer
// fields are omitted from the request so the server applies its defaults.
type ListEventsRequest struct {
	FromTS   *int64
	ToTS     *int64
	ActorID  *int64
	Action   string
	Page     int
	PageSize int
}
