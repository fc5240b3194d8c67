package verification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisStoreSaveSetsTTL(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "a@x.com", "123456"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mr.TTL(DefaultRedisPrefix + "a@x.com"); got != DefaultTTL {
		t.Fatalf("expected ttl %v, got %v", DefaultTTL, got)
	}

	mr.FastForward(DefaultTTL + time.Second)
	if _, ok, err := store.Find(ctx, "a@x.com"); err != nil || ok {
		t.Fatalf("expected expired code to be absent, ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreSaveOverwrites(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	_ = store.Save(ctx, "a@x.com", "111111")
	if err := store.Save(ctx, "a@x.com", "222222"); err != nil {
		t.Fatalf("save: %v", err)
	}
	value, ok, err := store.Find(ctx, "a@x.com")
	if err != nil || !ok || value != "222222" {
		t.Fatalf("expected latest code, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestRedisStoreValidateAndDelete(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "a@x.com", "123456"); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := store.ValidateAndDelete(ctx, "a@x.com", "000000")
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
	value, found, err := store.Find(ctx, "a@x.com")
	if err != nil || !found || value != "123456" {
		t.Fatalf("mismatch must not consume the code: %q %v %v", value, found, err)
	}

	ok, err = store.ValidateAndDelete(ctx, "a@x.com", "123456")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if _, found, _ := store.Find(ctx, "a@x.com"); found {
		t.Fatal("expected code to be consumed")
	}

	ok, err = store.ValidateAndDelete(ctx, "a@x.com", "123456")
	if err != nil || ok {
		t.Fatalf("expected second consume to fail, ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreValidateIsCaseSensitive(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	_ = store.Save(ctx, "a@x.com", "AbC123")
	if ok, _ := store.ValidateAndDelete(ctx, "a@x.com", "abc123"); ok {
		t.Fatal("expected case-sensitive comparison")
	}
	if ok, _ := store.ValidateAndDelete(ctx, "a@x.com", "AbC123"); !ok {
		t.Fatal("expected exact candidate to match")
	}
}

func TestRedisStoreConcurrentValidateSucceedsOnce(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "a@x.com", "123456"); err != nil {
		t.Fatalf("save: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := store.ValidateAndDelete(ctx, "a@x.com", "123456"); err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", wins)
	}
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	_ = store.Save(ctx, "a@x.com", "123456")
	if err := store.Delete(ctx, "a@x.com"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "a@x.com"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, found, _ := store.Find(ctx, "a@x.com"); found {
		t.Fatal("expected absent after delete")
	}
}

func TestRedisStoreBackendDownIsUnavailable(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	mr.Close()
	ctx := context.Background()

	if err := store.Save(ctx, "a@x.com", "1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("save: expected ErrUnavailable, got %v", err)
	}
	if _, _, err := store.Find(ctx, "a@x.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("find: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.ValidateAndDelete(ctx, "a@x.com", "1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("validate: expected ErrUnavailable, got %v", err)
	}
}

func TestRedisStoreCustomPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, WithRedisPrefix("codes:"), WithRedisTTL(time.Minute))
	if err := store.Save(context.Background(), "k", "v"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("codes:k") {
		t.Fatal("expected prefixed key")
	}
	if got := mr.TTL("codes:k"); got != time.Minute {
		t.Fatalf("expected custom ttl, got %v", got)
	}
}

func TestRedisStoreConsumeOutcomes(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	if got, err := store.Consume(ctx, "a@x.com", "123456"); err != nil || got != Absent {
		t.Fatalf("absent key: %v %v", got, err)
	}
	if err := store.Save(ctx, "a@x.com", "123456"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, err := store.Consume(ctx, "a@x.com", "000000"); err != nil || got != Mismatch {
		t.Fatalf("wrong code: %v %v", got, err)
	}
	if got, err := store.Consume(ctx, "a@x.com", ""); err != nil || got != Mismatch {
		t.Fatalf("empty candidate: %v %v", got, err)
	}
	if got, err := store.Consume(ctx, "a@x.com", "123456"); err != nil || got != Consumed {
		t.Fatalf("right code: %v %v", got, err)
	}
	if got, _ := store.Consume(ctx, "a@x.com", "123456"); got != Absent {
		t.Fatalf("second consume: %v", got)
	}
}
