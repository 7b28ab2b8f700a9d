package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string // AUDIT_DB_URL (required)
	ListenAddr  string // AUDIT_LISTEN_ADDR (default ":8080")
	AuthToken   string // AUDIT_TOKEN (optional, empty = auth disabled)
	NATSURL     string // AUDIT_NATS_URL (optional, empty = no events)
	LogLevel    string // AUDIT_LOG_LEVEL (default "info")

	// Payload log settings
	PayloadBackend string // AUDIT_PAYLOAD_BACKEND ("file" or "s3", default "file")
	PayloadFile    string // AUDIT_PAYLOAD_FILE (default "audit_payload.log")
	PayloadPool    int    // AUDIT_PAYLOAD_POOL (default 8 pooled handles)
	S3Bucket       string // AUDIT_S3_BUCKET (required when the backend is "s3")
	S3Key          string // AUDIT_S3_KEY (default "audit/payload.log")
	S3Region       string // AUDIT_S3_REGION (default "us-east-1")
	S3Endpoint     string // AUDIT_S3_ENDPOINT (custom endpoint for MinIO)

	// Pagination settings
	Pagination   string        // AUDIT_PAGINATION ("indexed" or "keyset", default "indexed")
	MaxIndexRows int64         // AUDIT_MAX_INDEX_ROWS (rows above this fall back to keyset; 0 = no cap)
	RedisAddr    string        // AUDIT_REDIS_ADDR (optional, empty = in-process boundary cache)
	BoundaryTTL  time.Duration // AUDIT_BOUNDARY_TTL (default 10m; 0 = no expiry)
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("AUDIT_DB_URL"),
		ListenAddr:     envOrDefault("AUDIT_LISTEN_ADDR", ":8080"),
		AuthToken:      os.Getenv("AUDIT_TOKEN"),
		NATSURL:        os.Getenv("AUDIT_NATS_URL"),
		LogLevel:       envOrDefault("AUDIT_LOG_LEVEL", "info"),
		PayloadBackend: envOrDefault("AUDIT_PAYLOAD_BACKEND", "file"),
		PayloadFile:    envOrDefault("AUDIT_PAYLOAD_FILE", "audit_payload.log"),
		S3Bucket:       os.Getenv("AUDIT_S3_BUCKET"),
		S3Key:          envOrDefault("AUDIT_S3_KEY", "audit/payload.log"),
		S3Region:       envOrDefault("AUDIT_S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("AUDIT_S3_ENDPOINT"),
		Pagination:     envOrDefault("AUDIT_PAGINATION", "indexed"),
		RedisAddr:      os.Getenv("AUDIT_REDIS_ADDR"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("AUDIT_DB_URL is required")
	}

	switch c.PayloadBackend {
	case "file":
	case "s3":
		if c.S3Bucket == "" {
			return nil, fmt.Errorf("AUDIT_S3_BUCKET is required when AUDIT_PAYLOAD_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("AUDIT_PAYLOAD_BACKEND: unknown backend %q", c.PayloadBackend)
	}

	pool, err := envInt("AUDIT_PAYLOAD_POOL", 8)
	if err != nil {
		return nil, err
	}
	if pool < 1 {
		return nil, fmt.Errorf("AUDIT_PAYLOAD_POOL must be >= 1")
	}
	c.PayloadPool = pool

	maxRows, err := envInt64("AUDIT_MAX_INDEX_ROWS", 0)
	if err != nil {
		return nil, err
	}
	if maxRows < 0 {
		return nil, fmt.Errorf("AUDIT_MAX_INDEX_ROWS must be >= 0")
	}
	c.MaxIndexRows = maxRows

	ttl, err := envDuration("AUDIT_BOUNDARY_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	c.BoundaryTTL = ttl

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
