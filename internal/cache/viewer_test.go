package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/clube-madua/internal/model"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*ViewerCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := NewViewerCache("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("NewViewerCache failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, s
}

func TestNewViewerCache_BadURL(t *testing.T) {
	if _, err := NewViewerCache("not a url", time.Minute); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestSetAndGet(t *testing.T) {
	c, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	_, gen, err := c.Get(ctx, 42)
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}

	in := model.Viewer{
		UserID:             42,
		Status:             model.SubscriptionActive,
		PurchasedCourseIDs: map[int64]struct{}{3: {}, 9: {}},
	}
	if err := c.Set(ctx, in, gen); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, _, err := c.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != 42 || got.Status != model.SubscriptionActive {
		t.Fatalf("unexpected viewer: %+v", got)
	}
	if !got.HasPurchased(3) || !got.HasPurchased(9) || got.HasPurchased(4) {
		t.Fatalf("unexpected purchases: %v", got.PurchasedCourseIDs)
	}
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestCache(t, time.Minute)

	_, gen, err := c.Get(context.Background(), 1)
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
	if gen != 0 {
		t.Fatalf("generation = %d, want 0", gen)
	}
}

func TestGet_Expired(t *testing.T) {
	c, s := setupTestCache(t, time.Second)
	ctx := context.Background()

	if err := c.Set(ctx, model.Viewer{UserID: 5, Status: model.SubscriptionDemo}, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	if _, _, err := c.Get(ctx, 5); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss after ttl", err)
	}
}

func TestInvalidate(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, model.Viewer{UserID: 7, Status: model.SubscriptionActive}, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !s.Exists("viewer:7:0") {
		t.Fatal("expected key viewer:7:0 in redis")
	}

	if err := c.Invalidate(ctx, 7); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	_, gen, err := c.Get(ctx, 7)
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss after invalidate", err)
	}
	if gen != 1 {
		t.Fatalf("generation = %d, want 1", gen)
	}
}

func TestSet_WriteBehindInvalidateIsNotServed(t *testing.T) {
	c, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	_, gen, err := c.Get(ctx, 3)
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}

	// Подписка отменена, пока снимок читался из базы.
	if err := c.Invalidate(ctx, 3); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if err := c.Set(ctx, model.Viewer{UserID: 3, Status: model.SubscriptionActive}, gen); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if v, _, err := c.Get(ctx, 3); !errors.Is(err, ErrMiss) {
		t.Fatalf("stale snapshot served: %+v, err %v", v, err)
	}
}

func TestGet_UnknownStatusFailsClosed(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	c := NewViewerCacheWithClient(client, 0)
	defer c.Close()

	if err := s.Set("viewer:8:0", `{"status":"GOLD","purchased":[]}`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, _, err := c.Get(context.Background(), 8)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.HasActiveSubscription() {
		t.Fatalf("unknown status must not grant subscription, got %q", got.Status)
	}
}

func TestPing(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	s.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error after redis stopped")
	}
}
