package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/store"
	"github.com/nhle/ticketboard/tests/testutil"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return store.NewRedisStoreWithClient(client, "board:test", ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	if _, err := s.LoadBoard(ctx); !errors.Is(err, store.ErrNoSnapshot) {
		t.Fatalf("LoadBoard before save: err = %v, want ErrNoSnapshot", err)
	}

	want := testutil.SampleBoard()
	if err := s.SaveBoard(ctx, want); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}
	if !mr.Exists("board:test") {
		t.Fatal("snapshot key not written")
	}
	if ttl := mr.TTL("board:test"); ttl <= 0 || ttl > time.Hour {
		t.Errorf("unexpected TTL: %v", ttl)
	}

	got, err := s.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	assertBoardsEqual(t, got, want)

	if _, err := s.SavedAt(ctx); err != nil {
		t.Errorf("SavedAt: %v", err)
	}
}

func TestRedisStoreNoTTL(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	if err := s.SaveBoard(context.Background(), testutil.SampleBoard()); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}
	if ttl := mr.TTL("board:test"); ttl != 0 {
		t.Errorf("TTL = %v, want none", ttl)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()
	if err := s.SaveBoard(ctx, testutil.SampleBoard()); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.LoadBoard(ctx); !errors.Is(err, store.ErrNoSnapshot) {
		t.Errorf("LoadBoard after expiry: err = %v, want ErrNoSnapshot", err)
	}
}

func TestRedisStoreCorruptSnapshot(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	if err := mr.Set("board:test", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.LoadBoard(context.Background()); !errors.Is(err, store.ErrNoSnapshot) {
		t.Fatalf("LoadBoard on corrupt data: err = %v, want ErrNoSnapshot", err)
	}
	if mr.Exists("board:test") {
		t.Error("corrupt snapshot was not deleted")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	mr.Close()
	err := s.SaveBoard(context.Background(), model.NewBoardState())
	if err == nil {
		t.Fatal("SaveBoard against a closed server should fail")
	}
	if errors.Is(err, store.ErrNoSnapshot) {
		t.Errorf("connection failure reported as missing snapshot: %v", err)
	}
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := store.NewRedisStore(addr, "k", 0); err == nil {
		t.Error("NewRedisStore should fail when redis is unreachable")
	}
}
