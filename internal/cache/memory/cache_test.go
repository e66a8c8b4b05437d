package memory

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	cache := New(10)
	defer cache.Stop()

	ctx := context.Background()
	cache.Set(ctx, "test-key", []byte("test-value"), 5*time.Second)

	got, ok := cache.Get(ctx, "test-key")
	if !ok {
		t.Error("Get() should return ok=true for existing key")
	}
	if string(got) != "test-value" {
		t.Errorf("Get() = %q, want %q", got, "test-value")
	}
}

func TestCache_GetNonExistent(t *testing.T) {
	cache := New(10)
	defer cache.Stop()

	got, ok := cache.Get(context.Background(), "non-existent")
	if ok {
		t.Error("Get() should return ok=false for non-existent key")
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := New(10)
	defer cache.Stop()

	ctx := context.Background()
	cache.Set(ctx, "expiring-key", []byte("v"), 50*time.Millisecond)

	if _, ok := cache.Get(ctx, "expiring-key"); !ok {
		t.Error("key should exist before TTL expiration")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get(ctx, "expiring-key"); ok {
		t.Error("key should be expired after TTL")
	}

	// expired hit is removed lazily
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after lazy removal", cache.Len())
	}
}

func TestCache_Remove(t *testing.T) {
	cache := New(10)
	defer cache.Stop()

	ctx := context.Background()
	cache.Set(ctx, "key", []byte("v"), time.Minute)
	cache.Remove(ctx, "key")

	if _, ok := cache.Get(ctx, "key"); ok {
		t.Error("Get() should miss after Remove()")
	}
}

func TestCache_Clear(t *testing.T) {
	cache := New(10)
	defer cache.Stop()

	ctx := context.Background()
	cache.Set(ctx, "a", []byte("1"), time.Minute)
	cache.Set(ctx, "b", []byte("2"), time.Minute)

	cache.Clear(ctx)

	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after Clear()", cache.Len())
	}
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	cache := New(3)
	defer cache.Stop()

	ctx := context.Background()
	cache.Set(ctx, "first", []byte("1"), time.Minute)
	time.Sleep(5 * time.Millisecond)
	cache.Set(ctx, "second", []byte("2"), time.Minute)
	time.Sleep(5 * time.Millisecond)
	cache.Set(ctx, "third", []byte("3"), time.Minute)
	time.Sleep(5 * time.Millisecond)
	cache.Set(ctx, "fourth", []byte("4"), time.Minute)

	if cache.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cache.Len())
	}
	if _, ok := cache.Get(ctx, "first"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := cache.Get(ctx, "fourth"); !ok {
		t.Error("newest entry should still be present")
	}
}

func TestCache_Overwrite(t *testing.T) {
	cache := New(10)
	defer cache.Stop()

	ctx := context.Background()
	cache.Set(ctx, "key", []byte("old"), time.Minute)
	cache.Set(ctx, "key", []byte("new"), time.Minute)

	got, ok := cache.Get(ctx, "key")
	if !ok || string(got) != "new" {
		t.Errorf("Get() = %q, want %q", got, "new")
	}
}
