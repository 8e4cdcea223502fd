package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/ogulcanaydogan/kwscore/internal/config"
	"github.com/ogulcanaydogan/kwscore/internal/confusion"
	"github.com/ogulcanaydogan/kwscore/internal/hash"
	"github.com/ogulcanaydogan/kwscore/internal/metrics"
	"github.com/ogulcanaydogan/kwscore/internal/records"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
	"golang.org/x/sync/errgroup"
)

var now = time.Now

// ScoreCorpus reduces a loaded corpus to the module's metrics. It performs no
// I/O.
func ScoreCorpus(cfg types.ModuleScoreConfig, c *records.Corpus) types.ModuleResult {
	r := types.ModuleResult{
		Module:     cfg.ID,
		Name:       cfg.Name,
		Mode:       cfg.Mode,
		Sources:    c.Files,
		Records:    c.Len(),
		Skipped:    c.Skipped,
		Duplicates: c.Duplicates,
	}
	info := config.RunInfo{PromptVersion: config.DefaultPromptVersion, Model: config.DefaultModel}
	if latest, ok := c.Latest(); ok {
		r.Model = latest.Model
		r.Dataset = latest.Dataset
		r.PromptVersion = latest.PromptVersion
		if latest.Model != "" {
			info.Model = latest.Model
		}
		if latest.PromptVersion != "" {
			info.PromptVersion = latest.PromptVersion
		}
	}
	r.Key = config.RunKey(cfg.ID, info)

	switch cfg.Mode {
	case types.ModeBinary:
		m := confusion.BuildBinary(c.Records, cfg)
		b := metrics.FromMatrix(m, cfg.Labels)
		r.Binary = &b
	case types.ModeMultiClass:
		m := confusion.BuildMultiClass(c.Records, cfg)
		mc := metrics.MultiClass(m, cfg.ClassNames)
		r.MultiClass = &mc
	}

	if rubrics := metrics.RubricBreakdown(c.Records); len(rubrics) > 0 {
		r.Rubrics = rubrics
	}
	r.PassRate = metrics.PassRate(c.Records)
	if cfg.PrimaryRubric != "" {
		r.MatchRate = metrics.MatchRate(c.Records, cfg.PrimaryRubric)
	}
	return r
}

type Options struct {
	Module           string
	Locations        []string
	Table            config.Table
	Records          records.Options
	DeterminismCheck int
}

var loadCorpus = records.Load

// ScoreModule loads the module's result files and scores them. With a
// determinism check of N > 1 the load and reduction run N times and must
// produce the same canonical hash.
func ScoreModule(ctx context.Context, opts Options) (types.ModuleResult, error) {
	if len(opts.Locations) == 0 {
		return types.ModuleResult{}, fmt.Errorf("module %s: no result locations", opts.Module)
	}
	table := opts.Table
	if table == nil {
		table = config.DefaultTable()
	}
	cfg, err := table.Lookup(opts.Module)
	if err != nil {
		return types.ModuleResult{}, err
	}
	result, err := scoreOnce(ctx, cfg, opts)
	if err != nil {
		return types.ModuleResult{}, err
	}

	if opts.DeterminismCheck > 1 {
		first, _, err := hash.HashCanonicalJSON(result)
		if err != nil {
			return types.ModuleResult{}, err
		}
		for i := 0; i < opts.DeterminismCheck-1; i++ {
			again, err := scoreOnce(ctx, cfg, opts)
			if err != nil {
				return types.ModuleResult{}, err
			}
			next, _, err := hash.HashCanonicalJSON(again)
			if err != nil {
				return types.ModuleResult{}, err
			}
			if first != next {
				return types.ModuleResult{}, fmt.Errorf("determinism check failed: %s != %s", first, next)
			}
		}
	}
	return result, nil
}

func scoreOnce(ctx context.Context, cfg types.ModuleScoreConfig, opts Options) (types.ModuleResult, error) {
	corpus, err := loadCorpus(ctx, opts.Locations, opts.Records)
	if err != nil {
		return types.ModuleResult{}, fmt.Errorf("load %s: %w", cfg.ID, err)
	}
	return ScoreCorpus(cfg, corpus), nil
}

type Job struct {
	Module    string
	Locations []string
}

// JobsFromDiscovery turns a module-to-files mapping into jobs in module order.
func JobsFromDiscovery(found map[string][]string) []Job {
	jobs := make([]Job, 0, len(found))
	for module, files := range found {
		jobs = append(jobs, Job{Module: module, Locations: files})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Module < jobs[j].Module })
	return jobs
}

type AllOptions struct {
	Table            config.Table
	Records          records.Options
	Concurrency      int
	DeterminismCheck int
}

// ScoreAll scores every job with bounded parallelism. A failing job records
// its error on its own result and does not stop the others.
func ScoreAll(ctx context.Context, jobs []Job, opts AllOptions) types.Summary {
	log := clog.FromContext(ctx)
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	var mu sync.Mutex
	byModule := make(map[int]types.ModuleResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			r, err := ScoreModule(gctx, Options{
				Module:           job.Module,
				Locations:        job.Locations,
				Table:            opts.Table,
				Records:          opts.Records,
				DeterminismCheck: opts.DeterminismCheck,
			})
			if err != nil {
				log.Warnf("scoring %s failed: %v", job.Module, err)
				id := config.NormalizeModuleID(job.Module)
				r = types.ModuleResult{Key: id, Module: id, Error: err.Error()}
			}
			mu.Lock()
			byModule[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s := types.Summary{
		RunID:       uuid.NewString(),
		GeneratedAt: now().UTC().Format(time.RFC3339),
		Results:     make([]types.ModuleResult, 0, len(jobs)),
	}
	for i := range jobs {
		r := byModule[i]
		if r.Error != "" {
			s.Failures++
		}
		s.Results = append(s.Results, r)
	}
	sort.SliceStable(s.Results, func(i, j int) bool {
		if s.Results[i].Module != s.Results[j].Module {
			return s.Results[i].Module < s.Results[j].Module
		}
		return s.Results[i].Key < s.Results[j].Key
	})
	return s
}
