package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestReplay_PrintsHistory(t *testing.T) {
	c, _ := newTestCache(t, WithKeyGenerator(sequenceKeys()))
	ctx := context.Background()

	_, _ = c.Store(ctx, "foo")
	_, _ = c.Store(ctx, []byte("bar"))
	_, _ = c.Store(ctx, 42)

	var buf bytes.Buffer
	if err := Replay(ctx, &buf, c, OpStore); err != nil {
		t.Fatalf("Replay() error: %v", err)
	}

	want := `Cache.store was called 3 times:
Cache.store("foo") -> key-1
Cache.store([]byte("bar")) -> key-2
Cache.store(42) -> key-3
`
	if got := buf.String(); got != want {
		t.Errorf("Replay() output:\n%s\nwant:\n%s", got, want)
	}
}

func TestReplay_ZeroCalls(t *testing.T) {
	c, _ := newTestCache(t)

	var buf bytes.Buffer
	if err := Replay(context.Background(), &buf, c, OpStore); err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	if got, want := buf.String(), "Cache.store was called 0 times:\n"; got != want {
		t.Errorf("Replay() = %q, want %q", got, want)
	}
}

func TestReplay_SilentNoOps(t *testing.T) {
	ctx := context.Background()
	instrumented, _ := newTestCache(t)
	_, _ = instrumented.Store(ctx, "x")

	noRecorder, err := New(ctx, plainBackend{m: NewMemoryBackend()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		name string
		c    *InstrumentedCache
		op   string
	}{
		{"nil cache", nil, OpStore},
		{"zero cache", &InstrumentedCache{}, OpStore},
		{"unknown operation", instrumented, "delete"},
		{"uninstrumented operation", instrumented, OpRetrieve},
		{"empty operation", instrumented, ""},
		{"backend without history", noRecorder, OpStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Replay(ctx, &buf, tt.c, tt.op); err != nil {
				t.Fatalf("Replay() error: %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("Replay() wrote %q, want nothing", buf.String())
			}
		})
	}
}

func TestReplay_StoreErrorWritesNothing(t *testing.T) {
	b := &faultyBackend{MemoryBackend: NewMemoryBackend()}
	ctx := context.Background()
	c, err := New(ctx, b)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b.getErr = errStoreDown

	var buf bytes.Buffer
	if err := Replay(ctx, &buf, c, OpStore); !errors.Is(err, errStoreDown) {
		t.Fatalf("Replay() = %v, want errStoreDown", err)
	}
	if buf.Len() != 0 {
		t.Errorf("partial output written: %q", buf.String())
	}
}
