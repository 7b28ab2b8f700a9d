package cursor

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/groblegark/audittrail/internal/model"
)

func setupTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, time.Minute)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedis_GetSet(t *testing.T) {
	r := setupTestRedis(t)
	ctx := context.Background()

	if _, ok, err := r.Get(ctx, "boundary:0:100:-:-:50"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	want := model.Cursor{CreatedAt: 200, ID: 5}
	if err := r.Set(ctx, "boundary:0:100:-:-:50", want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := r.Get(ctx, "boundary:0:100:-:-:50")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRedis_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, time.Minute)
	defer r.Close()
	ctx := context.Background()

	if err := r.Set(ctx, "k", model.Cursor{CreatedAt: 1, ID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok, err := r.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected expired miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedis_CorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, time.Minute)
	defer r.Close()

	mr.Set("k", "not json")

	if _, _, err := r.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected an error for a corrupt entry")
	}
}
