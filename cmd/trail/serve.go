package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/audittrail/internal/audit"
	"github.com/groblegark/audittrail/internal/config"
	"github.com/groblegark/audittrail/internal/cursor"
	"github.com/groblegark/audittrail/internal/events"
	"github.com/groblegark/audittrail/internal/payload"
	"github.com/groblegark/audittrail/internal/server"
	"github.com/groblegark/audittrail/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "system",
	Short:   "Run the audit trail HTTP server",
	Long: `Run the audit trail HTTP server.

Configuration comes from the environment: AUDIT_DB_URL (required),
AUDIT_LISTEN_ADDR, AUDIT_TOKEN, AUDIT_PAYLOAD_BACKEND, AUDIT_PAGINATION,
AUDIT_NATS_URL and friends. The snapshot build starts in the background
at startup; with --lazy it is deferred to the first read request.`,
	// Skip the client setup; serve runs server-side and never dials itself.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		lazy, _ := cmd.Flags().GetBool("lazy")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)

		strategy, err := audit.ParseStrategy(cfg.Pagination)
		if err != nil {
			return err
		}

		st, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer st.Close()

		reader, err := newPayloadReader(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("opening payload backend: %w", err)
		}
		defer reader.Close()

		var boundaries cursor.Cache
		if cfg.RedisAddr != "" {
			rc, err := cursor.NewRedis(cfg.RedisAddr, cfg.BoundaryTTL)
			if err != nil {
				return fmt.Errorf("connecting to redis: %w", err)
			}
			boundaries = rc
			logger.Info("boundary cache enabled", "backend", "redis", "addr", cfg.RedisAddr)
		} else {
			boundaries = cursor.NewMemory(cfg.BoundaryTTL)
			logger.Info("boundary cache enabled", "backend", "memory")
		}
		defer boundaries.Close()

		var publisher events.Publisher = &events.NoopPublisher{}
		if cfg.NATSURL != "" {
			np, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connecting to nats: %w", err)
			}
			publisher = np
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (AUDIT_NATS_URL not set)")
		}
		defer publisher.Close()

		svc := audit.New(st, reader, boundaries, publisher, logger, audit.Options{
			Strategy:     strategy,
			MaxIndexRows: cfg.MaxIndexRows,
		})

		srv := server.NewServer(svc, st, logger)
		httpServer := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: srv.NewHTTPHandler(cfg.AuthToken),
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("http server listening", "addr", cfg.ListenAddr, "strategy", strategy)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		refreshCtx, refreshCancel := context.WithCancel(context.Background())
		defer refreshCancel()

		// Build in the background so health answers during a long build. A
		// failed build is retried by the first read request.
		if !lazy {
			go func() {
				if err := svc.Initialize(refreshCtx); err != nil {
					logger.Error("startup snapshot build failed", "error", err)
				}
			}()
		}

		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("subscribing to nats: %w", err)
			}
			go runRefreshSubscriber(refreshCtx, sub, svc, logger)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}

		refreshCancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("lazy", false, "defer the snapshot build to the first read request")
}

// newPayloadReader opens the payload backend named by the config.
func newPayloadReader(ctx context.Context, cfg *config.Config) (payload.Reader, error) {
	switch cfg.PayloadBackend {
	case "s3":
		return payload.NewS3Reader(ctx, cfg.S3Bucket, cfg.S3Key, cfg.S3Region, cfg.S3Endpoint)
	default:
		return payload.NewFileReader(cfg.PayloadFile, cfg.PayloadPool)
	}
}

// runRefreshSubscriber rebuilds the snapshot whenever a seed run announces
// completion, so a long-lived server picks up fresh datasets without a
// restart.
func runRefreshSubscriber(ctx context.Context, sub events.Subscriber, svc *audit.Service, logger *slog.Logger) {
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicSeedCompleted)
	if err != nil {
		logger.Error("subscribing to seed completions", "error", err)
		return
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			var sc events.SeedCompleted
			if err := json.Unmarshal(data, &sc); err != nil {
				logger.Warn("ignoring malformed seed completion", "error", err)
				continue
			}
			logger.Info("seed completed, rebuilding snapshot", "rows", sc.Rows, "seed", sc.Seed)
			if err := svc.Refresh(ctx); err != nil {
				logger.Error("snapshot rebuild failed", "error", err)
			}
		}
	}
}
