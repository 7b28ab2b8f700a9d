package events

import (
	"context"
)

// Event topic constants
const (
	TopicSnapshotBuilt = "audit.snapshot.built"
	TopicSeedCompleted = "audit.seed.completed"
)

// Event types

type SnapshotBuilt struct {
	Rows     int    `json:"rows"`
	BuildMS  int64  `json:"build_ms"`
	Strategy string `json:"strategy"`
}

type SeedCompleted struct {
	Rows         int    `json:"rows"`
	Seed         int64  `json:"seed"`
	PayloadBytes int64  `json:"payload_bytes"`
	PayloadPath  string `json:"payload_path,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
