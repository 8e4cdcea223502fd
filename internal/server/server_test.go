package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogulcanaydogan/kwscore/internal/store"
)

type fakeSource struct {
	runs      []store.RunEntry
	err       error
	bestCalls atomic.Int32
	module    string
	release   chan struct{}
}

func (f *fakeSource) Runs(_ context.Context, module string) ([]store.RunEntry, error) {
	f.module = module
	return f.runs, f.err
}

func (f *fakeSource) Best(context.Context) ([]store.RunEntry, error) {
	f.bestCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return store.BestRuns(f.runs), f.err
}

func pass(v float64) *float64 { return &v }

func sampleRuns() []store.RunEntry {
	return []store.RunEntry{
		{ID: 1, RunID: "r1", Key: "m02_v1_gpt4o", Module: "m02", PromptVersion: "v1", Model: "gpt-4o", PassRate: pass(70), Records: 10, Metrics: map[string]float64{"f1": 70}},
		{ID: 2, RunID: "r2", Key: "m02_v1_gpt4o", Module: "m02", PromptVersion: "v1", Model: "gpt-4o", PassRate: pass(90), Records: 12, Metrics: map[string]float64{"f1": 88}},
	}
}

func newTestServer(t *testing.T, src RunSource, ttl int) (*Server, http.Handler) {
	t.Helper()
	s, err := New(src, Config{CacheTTLSeconds: ttl})
	if err != nil {
		t.Fatal(err)
	}
	return s, s.Handler()
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, rec.Body.String()
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t, &fakeSource{}, 0)
	code, body := get(t, h, "/healthz")
	if code != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Errorf("healthz = %d %s", code, body)
	}
}

func TestRuns(t *testing.T) {
	src := &fakeSource{runs: sampleRuns()}
	_, h := newTestServer(t, src, 0)

	code, body := get(t, h, "/runs?module=m02")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if src.module != "m02" {
		t.Errorf("module filter = %q", src.module)
	}
	var runs []store.RunEntry
	if err := json.Unmarshal([]byte(body), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}

	src.runs = nil
	if _, body := get(t, h, "/runs"); strings.TrimSpace(body) != "[]" {
		t.Errorf("empty history should encode as [], got %s", body)
	}
}

func TestBestIsCached(t *testing.T) {
	src := &fakeSource{runs: sampleRuns()}
	s, h := newTestServer(t, src, 60)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		code, body := get(t, h, "/runs/best")
		if code != http.StatusOK || !strings.Contains(body, `"run_id":"r2"`) {
			t.Fatalf("best = %d %s", code, body)
		}
	}
	if n := src.bestCalls.Load(); n != 1 {
		t.Errorf("Best called %d times, want 1", n)
	}

	now = now.Add(2 * time.Minute)
	get(t, h, "/runs/best")
	if n := src.bestCalls.Load(); n != 2 {
		t.Errorf("Best called %d times after expiry, want 2", n)
	}
}

func TestBestCoalescesConcurrentRequests(t *testing.T) {
	src := &fakeSource{runs: sampleRuns(), release: make(chan struct{})}
	s, _ := newTestServer(t, src, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.best(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	// Let the callers pile up behind the first lookup.
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()
	if n := src.bestCalls.Load(); n < 1 || n > 5 {
		t.Errorf("Best called %d times", n)
	}
}

func TestErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("database is locked")}
	_, h := newTestServer(t, src, 60)
	for _, path := range []string{"/runs", "/runs/best", "/metrics"} {
		code, body := get(t, h, path)
		if code != http.StatusInternalServerError || !strings.Contains(body, "database is locked") {
			t.Errorf("%s = %d %s", path, code, body)
		}
	}
}

func TestMetrics(t *testing.T) {
	_, h := newTestServer(t, &fakeSource{runs: sampleRuns()}, 0)
	code, body := get(t, h, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, want := range []string{
		`kwscore_module_metric{key="m02_v1_gpt4o",metric="f1",model="gpt-4o",module="m02"} 88`,
		`kwscore_module_records{key="m02_v1_gpt4o",module="m02"} 12`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestServesHistoryStore(t *testing.T) {
	hist, err := store.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()
	if _, err := hist.Record(context.Background(), sampleRuns()); err != nil {
		t.Fatal(err)
	}

	_, h := newTestServer(t, hist, 0)
	_, body := get(t, h, "/runs/best")
	var best []store.RunEntry
	if err := json.Unmarshal([]byte(body), &best); err != nil {
		t.Fatal(err)
	}
	if len(best) != 1 || best[0].RunID != "r2" {
		t.Errorf("best = %+v", best)
	}
}

func TestBestCache(t *testing.T) {
	if c := newBestCache(0); c != nil {
		t.Fatal("zero ttl should disable the cache")
	}
	var disabled *bestCache
	disabled.put(sampleRuns(), time.Now())
	if _, ok := disabled.fresh(time.Now()); ok {
		t.Fatal("nil cache should never hit")
	}

	now := time.Now()
	c := newBestCache(time.Minute)
	if _, ok := c.fresh(now); ok {
		t.Fatal("empty cache should miss")
	}
	c.put(nil, now)
	if runs, ok := c.fresh(now.Add(30 * time.Second)); !ok || runs == nil {
		t.Fatal("expected fresh empty answer")
	}
	if _, ok := c.fresh(now.Add(time.Minute)); ok {
		t.Fatal("expected expiry at ttl")
	}
}
