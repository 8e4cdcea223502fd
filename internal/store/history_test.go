package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

func f(v float64) *float64 { return &v }

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func ts(day int) time.Time {
	return time.Date(2025, 6, day, 12, 0, 0, 0, time.UTC)
}

func TestHistoryRecordAndRuns(t *testing.T) {
	ctx := context.Background()
	h := openTestHistory(t)

	entries := []RunEntry{
		{RunID: "r1", Key: "m02_v1_gpt4o", Module: "M02_v1", PromptVersion: "v1", Model: "gpt-4o", Timestamp: ts(2), PassRate: f(80), Records: 10, Metrics: map[string]float64{"f1": 75}},
		{RunID: "r1", Key: "m05_v1_gpt4o", Module: "m05", PromptVersion: "v1", Model: "gpt-4o", Timestamp: ts(1), Records: 4, Metrics: map[string]float64{}},
	}
	n, err := h.Record(ctx, entries)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted %d, want 2", n)
	}

	all, err := h.Runs(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Key != "m05_v1_gpt4o" {
		t.Fatalf("runs should be ordered by timestamp: %+v", all)
	}
	if all[0].PassRate != nil {
		t.Error("missing pass rate should stay nil")
	}

	m02, err := h.Runs(ctx, "m02")
	if err != nil {
		t.Fatal(err)
	}
	if len(m02) != 1 {
		t.Fatalf("got %d m02 runs, want 1", len(m02))
	}
	got := m02[0]
	if got.Module != "m02" {
		t.Errorf("module = %q, want normalized m02", got.Module)
	}
	if !got.Timestamp.Equal(ts(2)) || *got.PassRate != 80 || got.Metrics["f1"] != 75 {
		t.Errorf("unexpected entry: %+v", got)
	}

	// Same run and key replaces.
	entries[0].Records = 11
	if _, err := h.Record(ctx, entries[:1]); err != nil {
		t.Fatal(err)
	}
	m02, _ = h.Runs(ctx, "m02")
	if len(m02) != 1 || m02[0].Records != 11 {
		t.Errorf("re-recording should replace: %+v", m02)
	}
}

func TestHistoryBest(t *testing.T) {
	ctx := context.Background()
	h := openTestHistory(t)

	_, err := h.Record(ctx, []RunEntry{
		{RunID: "r1", Key: "a", Module: "m02", PromptVersion: "v1", Model: "gpt-4o", Timestamp: ts(1), PassRate: f(70)},
		{RunID: "r2", Key: "a", Module: "m02", PromptVersion: "v1", Model: "gpt-4o", Timestamp: ts(2), PassRate: f(90)},
		{RunID: "r3", Key: "a", Module: "m02", PromptVersion: "v1", Model: "gpt-4o", Timestamp: ts(3), PassRate: f(85)},
		{RunID: "r4", Key: "b", Module: "m02", PromptVersion: "v2", Model: "gpt-4o", Timestamp: ts(1), PassRate: f(60)},
		{RunID: "r5", Key: "b", Module: "m02", PromptVersion: "v2", Model: "gpt-4o", Timestamp: ts(4), PassRate: f(60)},
		{RunID: "r6", Key: "c", Module: "m05", PromptVersion: "v1", Model: "gpt-4o", Timestamp: ts(5)},
	})
	if err != nil {
		t.Fatal(err)
	}

	best, err := h.Best(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, b := range best {
		got = append(got, b.Module+"/"+b.PromptVersion+"/"+b.RunID)
	}
	want := []string{"m02/v1/r2", "m02/v2/r5", "m05/v1/r6"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("best runs (-want +got):\n%s", diff)
	}
}

func TestBestRunsGroupsNormalizedModules(t *testing.T) {
	got := BestRuns([]RunEntry{
		{ID: 1, Key: "x", Module: "m04_gemini", PassRate: f(50)},
		{ID: 2, Key: "y", Module: "m04", PassRate: f(50)},
	})
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("expected the later insert to win a full tie, got %+v", got)
	}
}

func TestRunEntriesFromSummary(t *testing.T) {
	s := types.Summary{
		RunID:       "run-1",
		GeneratedAt: "2025-06-10T00:00:00Z",
		Results: []types.ModuleResult{
			{
				Key: "m02_v1_gpt4o", Module: "m02", Model: "gpt-4o", PromptVersion: "v1", Records: 2, PassRate: f(50),
				Sources: []types.SourceInfo{{Timestamp: ts(1)}, {Timestamp: ts(3)}},
			},
			{Key: "m05", Module: "m05", Records: 1},
			{Key: "m99", Module: "m99", Error: "unknown module"},
		},
	}
	got := RunEntriesFromSummary(s)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2 (errors skipped)", len(got))
	}
	if !got[0].Timestamp.Equal(ts(3)) {
		t.Errorf("timestamp = %v, want newest source", got[0].Timestamp)
	}
	if want := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC); !got[1].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want generation time", got[1].Timestamp)
	}
	if got[0].RunID != "run-1" || got[0].Metrics["pass_rate"] != 50 {
		t.Errorf("unexpected entry: %+v", got[0])
	}
}

func TestOpenHistoryBadPath(t *testing.T) {
	if _, err := OpenHistory(filepath.Join(t.TempDir(), "missing", "dir", "h.db")); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
