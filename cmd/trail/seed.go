package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/audittrail/internal/config"
	"github.com/groblegark/audittrail/internal/events"
	"github.com/groblegark/audittrail/internal/payload"
	"github.com/groblegark/audittrail/internal/seed"
	"github.com/groblegark/audittrail/internal/store/postgres"
)

var seedCmd = &cobra.Command{
	Use:     "seed",
	GroupID: "data",
	Short:   "Generate a deterministic synthetic dataset",
	Long: `Generate a deterministic synthetic dataset: rows in postgres,
payloads in the payload log. The same seed always produces the same
dataset.

Run 'trail migrate' first. With --upload (or AUDIT_PAYLOAD_BACKEND=s3)
the payload log is also copied to S3 so a server on another host can
read it.`,
	// Skip the client setup; seed talks to postgres directly.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, _ := cmd.Flags().GetInt("rows")
		seedVal, _ := cmd.Flags().GetInt64("seed")
		batch, _ := cmd.Flags().GetInt("batch")
		upload, _ := cmd.Flags().GetBool("upload")
		payloadFile, _ := cmd.Flags().GetString("payload-file")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if payloadFile != "" {
			cfg.PayloadFile = payloadFile
		}
		logger := newLogger(cfg.LogLevel)

		st, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer st.Close()

		var publisher events.Publisher = &events.NoopPublisher{}
		if cfg.NATSURL != "" {
			np, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connecting to nats: %w", err)
			}
			publisher = np
		}
		defer publisher.Close()

		w, err := payload.NewWriter(cfg.PayloadFile)
		if err != nil {
			return fmt.Errorf("opening payload log: %w", err)
		}

		res, err := seed.New(st, logger, publisher).Run(context.Background(), w, seed.Options{
			Rows:      rows,
			Seed:      seedVal,
			BatchSize: batch,
		})
		if err != nil {
			w.Close()
			return fmt.Errorf("seeding: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("closing payload log: %w", err)
		}

		if upload || cfg.PayloadBackend == "s3" {
			if cfg.S3Bucket == "" {
				return fmt.Errorf("uploading payload log: AUDIT_S3_BUCKET is not set")
			}
			if err := payload.UploadS3(context.Background(), cfg.PayloadFile, cfg.S3Bucket, cfg.S3Key, cfg.S3Region, cfg.S3Endpoint); err != nil {
				return err
			}
			logger.Info("payload log uploaded", "bucket", cfg.S3Bucket, "key", cfg.S3Key)
		}

		fmt.Printf("seeded %d events (%d payload bytes) in %s\n",
			res.Rows, res.PayloadBytes, res.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("rows", seed.DefaultRows, "number of events to generate")
	seedCmd.Flags().Int64("seed", seed.DefaultSeed, "random seed")
	seedCmd.Flags().Int("batch", seed.DefaultBatchSize, "insert batch size")
	seedCmd.Flags().String("payload-file", "", "payload log path (default: AUDIT_PAYLOAD_FILE)")
	seedCmd.Flags().Bool("upload", false, "upload the payload log to S3 after seeding")
}
