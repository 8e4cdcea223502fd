package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ogulcanaydogan/kwscore/internal/config"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

// RunEntry is one scored module run as kept in the history database.
type RunEntry struct {
	ID            int64              `json:"id"`
	RunID         string             `json:"run_id"`
	Key           string             `json:"key"`
	Module        string             `json:"module"`
	PromptVersion string             `json:"prompt_version"`
	Model         string             `json:"model"`
	Dataset       string             `json:"dataset"`
	Timestamp     time.Time          `json:"timestamp"`
	PassRate      *float64           `json:"pass_rate"`
	MatchRate     *float64           `json:"match_rate"`
	Records       int                `json:"records"`
	Metrics       map[string]float64 `json:"metrics"`
}

type History struct {
	db *sql.DB
}

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL,
	result_key     TEXT NOT NULL,
	module         TEXT NOT NULL,
	prompt_version TEXT DEFAULT '',
	model          TEXT DEFAULT '',
	dataset        TEXT DEFAULT '',
	recorded_at    TEXT NOT NULL,
	pass_rate      REAL,
	match_rate     REAL,
	records        INTEGER NOT NULL DEFAULT 0,
	metrics        TEXT NOT NULL DEFAULT '{}',
	UNIQUE(run_id, result_key)
);
CREATE INDEX IF NOT EXISTS idx_runs_module ON runs(module);
CREATE INDEX IF NOT EXISTS idx_runs_recorded_at ON runs(recorded_at);
`

// OpenHistory opens (and creates when needed) the SQLite history at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history %s: %w", path, err)
	}
	return &History{db: db}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// Record inserts entries in one transaction. Re-recording the same run and key
// replaces the earlier row.
func (h *History) Record(ctx context.Context, entries []RunEntry) (int, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, result_key, module, prompt_version, model, dataset, recorded_at, pass_rate, match_rate, records, metrics)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		metrics, err := json.Marshal(e.Metrics)
		if err != nil {
			return inserted, fmt.Errorf("encode metrics for %s: %w", e.Key, err)
		}
		_, err = stmt.ExecContext(ctx,
			e.RunID, e.Key, config.NormalizeModuleID(e.Module), e.PromptVersion, e.Model, e.Dataset,
			e.Timestamp.UTC().Format(time.RFC3339Nano), nullFloat(e.PassRate), nullFloat(e.MatchRate),
			e.Records, string(metrics),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert run %s: %w", e.Key, err)
		}
		inserted++
	}
	return inserted, tx.Commit()
}

// Runs returns recorded runs oldest first, limited to module when set.
func (h *History) Runs(ctx context.Context, module string) ([]RunEntry, error) {
	query := `SELECT id, run_id, result_key, module, prompt_version, model, dataset, recorded_at, pass_rate, match_rate, records, metrics
		FROM runs`
	var args []any
	if module != "" {
		query += ` WHERE module = ?`
		args = append(args, config.NormalizeModuleID(module))
	}
	query += ` ORDER BY recorded_at, id`

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunEntry
	for rows.Next() {
		var (
			e                   RunEntry
			recordedAt, metrics string
			passRate, matchRate sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Key, &e.Module, &e.PromptVersion, &e.Model, &e.Dataset,
			&recordedAt, &passRate, &matchRate, &e.Records, &metrics); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("run %d timestamp: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(metrics), &e.Metrics); err != nil {
			return nil, fmt.Errorf("run %d metrics: %w", e.ID, err)
		}
		e.PassRate = floatPtr(passRate)
		e.MatchRate = floatPtr(matchRate)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Best keeps one run per module, prompt version, model and dataset: the one
// with the highest pass rate, then the most recent.
func (h *History) Best(ctx context.Context) ([]RunEntry, error) {
	runs, err := h.Runs(ctx, "")
	if err != nil {
		return nil, err
	}
	return BestRuns(runs), nil
}

func BestRuns(runs []RunEntry) []RunEntry {
	type group struct{ module, prompt, model, dataset string }
	best := map[group]RunEntry{}
	for _, r := range runs {
		g := group{config.NormalizeModuleID(r.Module), r.PromptVersion, r.Model, r.Dataset}
		cur, ok := best[g]
		if !ok || better(r, cur) {
			best[g] = r
		}
	}
	out := make([]RunEntry, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func better(a, b RunEntry) bool {
	pa, pb := rate(a.PassRate), rate(b.PassRate)
	if pa != pb {
		return pa > pb
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

func rate(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

// RunEntriesFromSummary converts the successful results of a summary into
// history rows. A run is stamped with its newest source file, else the
// summary generation time.
func RunEntriesFromSummary(s types.Summary) []RunEntry {
	generated, _ := time.Parse(time.RFC3339, s.GeneratedAt)
	var out []RunEntry
	for _, r := range s.Results {
		if r.Error != "" {
			continue
		}
		ts := generated
		var latest time.Time
		for _, src := range r.Sources {
			if src.Timestamp.After(latest) {
				latest = src.Timestamp
			}
		}
		if !latest.IsZero() {
			ts = latest
		}
		out = append(out, RunEntry{
			RunID:         s.RunID,
			Key:           r.Key,
			Module:        r.Module,
			PromptVersion: r.PromptVersion,
			Model:         r.Model,
			Dataset:       r.Dataset,
			Timestamp:     ts.UTC(),
			PassRate:      r.PassRate,
			MatchRate:     r.MatchRate,
			Records:       r.Records,
			Metrics:       r.MetricValues(),
		})
	}
	return out
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
