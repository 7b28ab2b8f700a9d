// Package server exposes the audit read API over HTTP/JSON.
package server

import (
	"context"
	"log/slog"

	"github.com/groblegark/audittrail/internal/audit"
)

// Pinger reports whether backing storage is reachable. The health endpoint
// uses it so load balancers see database trouble before requests do.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handlers' dependencies.
type Server struct {
	service *audit.Service
	pinger  Pinger
	logger  *slog.Logger
}

// NewServer returns a Server backed by the given service. pinger may be nil;
// the health endpoint then reports ok whenever the process is up.
func NewServer(service *audit.Service, pinger Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{service: service, pinger: pinger, logger: logger}
}
