package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always return a nil miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "nested", "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "layout:abc", []byte(`{"steps":3}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "layout:abc")
	if err != nil || !hit {
		t.Fatalf("Get after Set = hit %v, err %v", hit, err)
	}
	if string(data) != `{"steps":3}` {
		t.Errorf("Get = %s", data)
	}

	if err := c.Delete(ctx, "layout:abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "layout:abc"); hit {
		t.Error("entry survived Delete")
	}
	if err := c.Delete(ctx, "layout:abc"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheSharding(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("some-key")
	rel, err := filepath.Rel(c.Dir(), path)
	if err != nil {
		t.Fatal(err)
	}
	hash := Hash([]byte("some-key"))
	want := filepath.Join(hash[:2], hash[2:]+".json")
	if rel != want {
		t.Errorf("path = %s, want %s", rel, want)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Fatal("fresh entry should hit")
	}

	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := LayoutKeyOpts{Dimensions: 2, Gravity: -12, Repulsion: "pairwise", Seed: 1, MaxSteps: 500}

	key := k.LayoutKey("hash123", base)
	if !strings.HasPrefix(key, "layout:") {
		t.Errorf("LayoutKey should start with layout: got %s", key)
	}
	if key != k.LayoutKey("hash123", base) {
		t.Error("LayoutKey should be deterministic")
	}
	if key == k.LayoutKey("hash456", base) {
		t.Error("Different graphs should produce different keys")
	}

	tests := []struct {
		name   string
		mutate func(*LayoutKeyOpts)
	}{
		{"dimensions", func(o *LayoutKeyOpts) { o.Dimensions = 3 }},
		{"gravity", func(o *LayoutKeyOpts) { o.Gravity = -1 }},
		{"theta", func(o *LayoutKeyOpts) { o.Theta = 0.5 }},
		{"repulsion", func(o *LayoutKeyOpts) { o.Repulsion = "barneshut" }},
		{"seed", func(o *LayoutKeyOpts) { o.Seed = 2 }},
		{"max steps", func(o *LayoutKeyOpts) { o.MaxSteps = 100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.mutate(&opts)
			if k.LayoutKey("hash123", opts) == key {
				t.Errorf("changing %s should change the key", tt.name)
			}
		})
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "forcegraph:")

	opts := LayoutKeyOpts{Dimensions: 2}
	got := scoped.LayoutKey("h", opts)
	if got != "forcegraph:"+inner.LayoutKey("h", opts) {
		t.Errorf("ScopedKeyer LayoutKey unexpected: %s", got)
	}

	nilInner := NewScopedKeyer(nil, "p:")
	if got := nilInner.LayoutKey("h", opts); got != "p:"+inner.LayoutKey("h", opts) {
		t.Errorf("Unexpected key with nil inner: %s", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrUnavailable)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("Retryable should unwrap to the cause")
	}
	if err.Error() != ErrUnavailable.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func withFastRetry(t *testing.T) {
	t.Helper()
	old := retryDelay
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = old })
}

func TestRetryWithBackoff(t *testing.T) {
	withFastRetry(t)
	ctx := context.Background()
	errPermanent := errors.New("permanent")

	tests := []struct {
		name      string
		fails     int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"success first try", 0, nil, 1, nil},
		{"non-retryable stops", 5, errPermanent, 1, errPermanent},
		{"retry then succeed", 1, Retryable(ErrUnavailable), 2, nil},
		{"gives up after three", 5, Retryable(ErrUnavailable), 3, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.fails {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrUnavailable)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
