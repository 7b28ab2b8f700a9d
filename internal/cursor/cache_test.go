package cursor

import (
	"context"
	"testing"
	"time"

	"github.com/groblegark/audittrail/internal/model"
)

func TestKey(t *testing.T) {
	actor := int64(42)
	zero := int64(0)
	action := model.ActionUpdate

	base := model.EventFilter{FromTS: 100, ToTS: 200}

	keys := map[string]string{
		"bare":        Key(base, 50),
		"otherOffset": Key(base, 60),
		"actor":       Key(model.EventFilter{FromTS: 100, ToTS: 200, ActorID: &actor}, 50),
		"actorZero":   Key(model.EventFilter{FromTS: 100, ToTS: 200, ActorID: &zero}, 50),
		"action":      Key(model.EventFilter{FromTS: 100, ToTS: 200, Action: &action}, 50),
	}

	seen := make(map[string]string)
	for name, key := range keys {
		if prev, ok := seen[key]; ok {
			t.Errorf("key collision between %s and %s: %q", prev, name, key)
		}
		seen[key] = name
	}

	if got := Key(base, 50); got != keys["bare"] {
		t.Errorf("key not deterministic: %q vs %q", got, keys["bare"])
	}
}

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	if _, ok, err := m.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	want := model.Cursor{CreatedAt: 200, ID: 5}
	if err := m.Set(ctx, "k", want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	if err := m.Set(ctx, "k", model.Cursor{CreatedAt: 200, ID: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Backdate the entry past its TTL.
	m.mu.Lock()
	e := m.entries["k"]
	e.expiresAt = time.Now().Add(-time.Second)
	m.entries["k"] = e
	m.mu.Unlock()

	if _, ok, err := m.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected expired miss, got ok=%v err=%v", ok, err)
	}

	m.mu.Lock()
	_, still := m.entries["k"]
	m.mu.Unlock()
	if still {
		t.Fatal("expired entry was not evicted")
	}
}

func TestMemory_NoTTL(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	if err := m.Set(ctx, "k", model.Cursor{CreatedAt: 1, ID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("expected hit for non-expiring entry")
	}
}
