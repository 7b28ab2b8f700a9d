// Package cursor caches keyset boundaries so deep pages can skip the
// offset-walking query on repeat visits.
package cursor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/groblegark/audittrail/internal/model"
)

// Cache stores the canonical sort key of the row preceding a page, keyed by
// the query shape that produced it. Only (created_at, id) pairs are stored;
// event data and payload bytes never enter the cache.
type Cache interface {
	Get(ctx context.Context, key string) (model.Cursor, bool, error)
	Set(ctx context.Context, key string, cur model.Cursor) error
	Close() error
}

// Key derives the cache key for a filter and row offset. Absent filters are
// encoded as "-" so "no actor" and any literal actor id never collide.
func Key(f model.EventFilter, offset int) string {
	actor := "-"
	if f.ActorID != nil {
		actor = strconv.FormatInt(*f.ActorID, 10)
	}
	action := "-"
	if f.Action != nil {
		action = string(*f.Action)
	}
	return fmt.Sprintf("boundary:%d:%d:%s:%s:%d", f.FromTS, f.ToTS, actor, action, offset)
}

// Memory is an in-process Cache with lazy TTL expiry. A ttl of zero or less
// means entries never expire.
type Memory struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	cur       model.Cursor
	expiresAt time.Time
}

// NewMemory creates an in-process boundary cache.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) (model.Cursor, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return model.Cursor{}, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return model.Cursor{}, false, nil
	}
	return e.cur, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, cur model.Cursor) error {
	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = time.Now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{cur: cur, expiresAt: expiresAt}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
