package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Errorf("Get = %q, %v; want v, true", got, ok)
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache()
	currentTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.timeNow = func() time.Time { return currentTime }
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 30*time.Second)

	currentTime = currentTime.Add(29 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("entry expired early")
	}

	currentTime = currentTime.Add(2 * time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("entry should have expired")
	}
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache()
	currentTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.timeNow = func() time.Time { return currentTime }
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	currentTime = currentTime.Add(1000 * time.Hour)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("zero-TTL entry must not expire")
	}
}

func TestNew_FallsBackToMemory(t *testing.T) {
	if _, ok := New("").(*MemoryCache); !ok {
		t.Error("empty URL should yield the memory cache")
	}
	if _, ok := New("://not-a-url").(*MemoryCache); !ok {
		t.Error("unparseable URL should yield the memory cache")
	}
}
