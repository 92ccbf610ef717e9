package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/jonwraymond/kvops/cache"
	"github.com/jonwraymond/kvops/config"
	"github.com/jonwraymond/kvops/logstats"
)

type fakeLogSource struct {
	counts  map[string]int64
	ips     []logstats.IPCount
	pingErr error
	closed  bool
}

func (f *fakeLogSource) CountDocuments(_ context.Context, filter logstats.Filter) (int64, error) {
	var parts []string
	for _, k := range filter.Keys() {
		parts = append(parts, k+"="+filter[k])
	}
	return f.counts[strings.Join(parts, ",")], nil
}

func (f *fakeLogSource) TopIPs(_ context.Context, limit int) ([]logstats.IPCount, error) {
	return f.ips[:min(limit, len(f.ips))], nil
}

func (f *fakeLogSource) Ping(context.Context) error { return f.pingErr }

func (f *fakeLogSource) Close(context.Context) error {
	f.closed = true
	return nil
}

func sampleSource() *fakeLogSource {
	return &fakeLogSource{
		counts: map[string]int64{
			"":                        94778,
			"method=GET":              93842,
			"method=POST":             229,
			"method=PUT":              0,
			"method=PATCH":            0,
			"method=DELETE":           0,
			"method=GET,path=/status": 47415,
		},
		ips: []logstats.IPCount{
			{IP: "172.31.63.67", Count: 15805},
			{IP: "172.31.2.14", Count: 15083},
		},
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, backend cache.Backend, src logSource, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	r := newRootCommand(&stdout, &stderr)
	r.newBackend = func(config.Redis) (cache.Backend, error) { return backend, nil }
	r.newLogSource = func(context.Context, config.Mongo) (logSource, error) { return src, nil }

	code := r.execute(context.Background(), args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestCacheStoreAndReplay(t *testing.T) {
	backend := cache.NewMemoryBackend()

	res := execute(t, backend, nil, "cache", "store", "foo", "42", "--typed")
	if res.code != 0 {
		t.Fatalf("store exit code = %d, stderr = %s", res.code, res.stderr)
	}
	keys := strings.Fields(res.stdout)
	if len(keys) != 2 {
		t.Fatalf("store printed %d keys, want 2: %q", len(keys), res.stdout)
	}
	for _, k := range keys {
		if _, err := uuid.Parse(k); err != nil {
			t.Errorf("key %q is not a UUID: %v", k, err)
		}
	}

	res = execute(t, backend, nil, "cache", "replay")
	if res.code != 0 {
		t.Fatalf("replay exit code = %d, stderr = %s", res.code, res.stderr)
	}
	want := fmt.Sprintf("Cache.store was called 2 times:\n"+
		"Cache.store(\"foo\") -> %s\n"+
		"Cache.store(42) -> %s\n", keys[0], keys[1])
	if diff := cmp.Diff(want, res.stdout); diff != "" {
		t.Errorf("replay mismatch (-want +got):\n%s", diff)
	}

	res = execute(t, backend, nil, "cache", "get", keys[1], "--as", "int")
	if res.code != 0 || res.stdout != "42\n" {
		t.Errorf("get --as int = %d, %q; want 0, \"42\\n\"", res.code, res.stdout)
	}
	res = execute(t, backend, nil, "cache", "get", keys[0])
	if res.code != 0 || res.stdout != "foo\n" {
		t.Errorf("get = %d, %q; want 0, \"foo\\n\"", res.code, res.stdout)
	}
}

func TestCacheStore_FlushAndKeep(t *testing.T) {
	backend := cache.NewMemoryBackend()

	execute(t, backend, nil, "cache", "store", "a", "b")
	execute(t, backend, nil, "cache", "store", "c", "--keep")
	res := execute(t, backend, nil, "cache", "replay")
	if !strings.HasPrefix(res.stdout, "Cache.store was called 3 times:\n") {
		t.Errorf("after --keep: %q", res.stdout)
	}

	execute(t, backend, nil, "cache", "store", "d")
	res = execute(t, backend, nil, "cache", "replay")
	if !strings.HasPrefix(res.stdout, "Cache.store was called 1 times:\n") {
		t.Errorf("after flush: %q", res.stdout)
	}
}

func TestCacheStore_Replay(t *testing.T) {
	res := execute(t, cache.NewMemoryBackend(), nil, "cache", "store", "x", "--replay")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	lines := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), res.stdout)
	}
	if lines[1] != "Cache.store was called 1 times:" {
		t.Errorf("line 2 = %q", lines[1])
	}
	if lines[2] != `Cache.store("x") -> `+lines[0] {
		t.Errorf("line 3 = %q", lines[2])
	}
}

func TestCacheGet_InstrumentedReads(t *testing.T) {
	backend := cache.NewMemoryBackend()
	key := strings.TrimSpace(execute(t, backend, nil, "cache", "store", "v").stdout)

	execute(t, backend, nil, "cache", "get", key, "--instrument-reads")
	execute(t, backend, nil, "cache", "get", "missing", "--instrument-reads")

	res := execute(t, backend, nil, "cache", "replay", "--op", "retrieve", "--instrument-reads")
	want := "Cache.retrieve was called 2 times:\n" +
		fmt.Sprintf("Cache.retrieve(%q) -> v\n", key) +
		"Cache.retrieve(\"missing\") -> nil\n"
	if diff := cmp.Diff(want, res.stdout); diff != "" {
		t.Errorf("replay mismatch (-want +got):\n%s", diff)
	}

	// without the flag retrieve is not instrumented, so replay is silent
	res = execute(t, backend, nil, "cache", "replay", "--op", "retrieve")
	if res.code != 0 || res.stdout != "" {
		t.Errorf("uninstrumented replay = %d, %q; want 0, empty", res.code, res.stdout)
	}
}

func TestCache_Errors(t *testing.T) {
	backend := cache.NewMemoryBackend()

	tests := []struct {
		name       string
		args       []string
		wantStderr string
	}{
		{name: "missing key", args: []string{"cache", "get", "nope"}, wantStderr: errKeyNotFound.Error()},
		{name: "bad decoder", args: []string{"cache", "get", "k", "--as", "yaml"}, wantStderr: "unknown --as"},
		{name: "no values", args: []string{"cache", "store"}, wantStderr: "requires at least 1 arg"},
		{name: "bad log level", args: []string{"cache", "replay", "--log-level", "loud"}, wantStderr: "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, backend, nil, tt.args...)
			if res.code != 1 {
				t.Errorf("exit code = %d, want 1", res.code)
			}
			if !strings.Contains(res.stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want substring %q", res.stderr, tt.wantStderr)
			}
		})
	}
}

type downBackend struct{ *cache.MemoryBackend }

func (downBackend) FlushDB(context.Context) error { return errors.New("connection refused") }
func (downBackend) Ping(context.Context) error    { return errors.New("connection refused") }

func TestCache_StoreUnreachable(t *testing.T) {
	res := execute(t, downBackend{cache.NewMemoryBackend()}, nil, "cache", "store", "x")
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	if !strings.Contains(res.stderr, "flush backing store") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		arg   string
		typed bool
		want  any
	}{
		{"42", false, "42"},
		{"42", true, int64(42)},
		{"-7", true, int64(-7)},
		{"3.5", true, 3.5},
		{"foo", true, "foo"},
		{"", true, ""},
	}

	for _, tt := range tests {
		if got := parseValue(tt.arg, tt.typed); got != tt.want {
			t.Errorf("parseValue(%q, %v) = %#v, want %#v", tt.arg, tt.typed, got, tt.want)
		}
	}
}

func TestLogstats(t *testing.T) {
	src := sampleSource()

	res := execute(t, nil, src, "logstats", "--indent", "spaces", "--top-ips", "1")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	want := "94778 logs\n" +
		"Methods:\n" +
		"    method GET: 93842\n" +
		"    method POST: 229\n" +
		"    method PUT: 0\n" +
		"    method PATCH: 0\n" +
		"    method DELETE: 0\n" +
		"47415 status check\n" +
		"IPs:\n" +
		"    172.31.63.67: 15805\n"
	if diff := cmp.Diff(want, res.stdout); diff != "" {
		t.Errorf("logstats mismatch (-want +got):\n%s", diff)
	}
	if !src.closed {
		t.Error("log source was not closed")
	}
}

func TestLogstats_NoIPs(t *testing.T) {
	res := execute(t, nil, sampleSource(), "logstats", "--top-ips", "0")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	if strings.Contains(res.stdout, "IPs:") {
		t.Errorf("output has IPs section: %q", res.stdout)
	}
	if !strings.Contains(res.stdout, "\tmethod GET: 93842\n") {
		t.Errorf("output not tab indented: %q", res.stdout)
	}
}

func TestLogstats_BadIndent(t *testing.T) {
	res := execute(t, nil, sampleSource(), "logstats", "--indent", "2")
	if res.code != 1 || !strings.Contains(res.stderr, "unknown --indent") {
		t.Errorf("exit code = %d, stderr = %q", res.code, res.stderr)
	}
}

func TestHealth(t *testing.T) {
	res := execute(t, cache.NewMemoryBackend(), sampleSource(), "health", "--slow", "0")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	lines := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), res.stdout)
	}
	if !strings.HasPrefix(lines[0], "redis: healthy") || !strings.HasPrefix(lines[1], "mongo: healthy") {
		t.Errorf("lines = %q", lines)
	}
	if lines[2] != "overall: healthy" {
		t.Errorf("overall = %q", lines[2])
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	src := sampleSource()
	src.pingErr = errors.New("server selection timeout")

	res := execute(t, cache.NewMemoryBackend(), src, "health")
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	if !strings.Contains(res.stdout, "mongo: unhealthy") {
		t.Errorf("stdout = %q", res.stdout)
	}
	if !strings.Contains(res.stderr, errUnhealthy.Error()) {
		t.Errorf("stderr = %q", res.stderr)
	}
	if !src.closed {
		t.Error("log source was not closed")
	}
}

func TestCacheStore_MemoryBackend(t *testing.T) {
	// the injected Redis factory returns a nil backend, which cache.New rejects
	res := execute(t, nil, nil, "cache", "store", "a", "b", "--backend", "memory", "--replay")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "Cache.store was called 2 times:\n") {
		t.Errorf("stdout = %q", res.stdout)
	}

	res = execute(t, nil, nil, "cache", "replay", "--backend", "etcd")
	if res.code != 1 || !strings.Contains(res.stderr, "unknown --backend") {
		t.Errorf("exit code = %d, stderr = %q", res.code, res.stderr)
	}
}
