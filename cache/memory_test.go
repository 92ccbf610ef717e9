package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryBackend_GetSet(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	if _, ok, err := m.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = (%v, %v), want miss", ok, err)
	}

	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get(k) = (%q, %v, %v)", got, ok, err)
	}

	got[0] = 'x'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "v" {
		t.Errorf("Get returned aliased bytes: %q", again)
	}
}

func TestMemoryBackend_TTL(t *testing.T) {
	m := NewMemoryBackend()
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.Set(ctx, "short", []byte("x"), time.Second)
	_ = m.Set(ctx, "forever", []byte("y"), 0)

	if _, ok, _ := m.Get(ctx, "short"); !ok {
		t.Fatal("value expired early")
	}

	now = now.Add(time.Second)
	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Error("value should have expired")
	}
	if _, ok, _ := m.Get(ctx, "forever"); !ok {
		t.Error("value without TTL expired")
	}
	if n := m.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestMemoryBackend_Incr(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := m.Incr(ctx, "Cache.store")
		if err != nil || got != want {
			t.Fatalf("Incr() = (%d, %v), want %d", got, err, want)
		}
	}

	raw, _, _ := m.Get(ctx, "Cache.store")
	if string(raw) != "3" {
		t.Errorf("counter stored as %q, want \"3\"", raw)
	}

	_ = m.Set(ctx, "text", []byte("abc"), 0)
	if _, err := m.Incr(ctx, "text"); !errors.Is(err, ErrNotInteger) {
		t.Errorf("Incr(text) = %v, want ErrNotInteger", err)
	}
}

func TestMemoryBackend_Lists(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	if err := m.RPush(ctx, "l", "a", "b", "c"); err != nil {
		t.Fatalf("RPush() error: %v", err)
	}
	_ = m.RPush(ctx, "l", "d")

	tests := []struct {
		start, stop int64
		want        []string
	}{
		{0, -1, []string{"a", "b", "c", "d"}},
		{1, 2, []string{"b", "c"}},
		{-2, -1, []string{"c", "d"}},
		{0, 100, []string{"a", "b", "c", "d"}},
		{-100, 0, []string{"a"}},
		{3, 1, []string{}},
		{10, 20, []string{}},
	}
	for _, tt := range tests {
		got, err := m.LRange(ctx, "l", tt.start, tt.stop)
		if err != nil {
			t.Fatalf("LRange(%d, %d) error: %v", tt.start, tt.stop, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("LRange(%d, %d) mismatch (-want +got):\n%s", tt.start, tt.stop, diff)
		}
	}

	got, err := m.LRange(ctx, "missing", 0, -1)
	if err != nil || len(got) != 0 {
		t.Errorf("LRange(missing) = (%v, %v), want empty", got, err)
	}
}

func TestMemoryBackend_WrongType(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	_ = m.RPush(ctx, "list", "a")
	_ = m.Set(ctx, "str", []byte("a"), 0)

	if _, _, err := m.Get(ctx, "list"); !errors.Is(err, ErrWrongType) {
		t.Errorf("Get(list) = %v, want ErrWrongType", err)
	}
	if _, err := m.Incr(ctx, "list"); !errors.Is(err, ErrWrongType) {
		t.Errorf("Incr(list) = %v, want ErrWrongType", err)
	}
	if err := m.RPush(ctx, "str", "b"); !errors.Is(err, ErrWrongType) {
		t.Errorf("RPush(str) = %v, want ErrWrongType", err)
	}
	if _, err := m.LRange(ctx, "str", 0, -1); !errors.Is(err, ErrWrongType) {
		t.Errorf("LRange(str) = %v, want ErrWrongType", err)
	}
}

func TestMemoryBackend_FlushDB(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	_ = m.Set(ctx, "a", []byte("1"), 0)
	_ = m.RPush(ctx, "b", "x")
	if err := m.FlushDB(ctx); err != nil {
		t.Fatalf("FlushDB() error: %v", err)
	}
	if n := m.Len(); n != 0 {
		t.Errorf("Len() after flush = %d, want 0", n)
	}
}

func TestMemoryBackend_ConcurrentIncr(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Incr(ctx, "n")
			_ = m.RPush(ctx, "l", "x")
		}()
	}
	wg.Wait()

	raw, _, _ := m.Get(ctx, "n")
	if string(raw) != "50" {
		t.Errorf("counter = %q, want 50", raw)
	}
	items, _ := m.LRange(ctx, "l", 0, -1)
	if len(items) != 50 {
		t.Errorf("list length = %d, want 50", len(items))
	}
}
