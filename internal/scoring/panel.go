package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ogulcanaydogan/kwscore/internal/poll"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
	"golang.org/x/sync/errgroup"
)

// ScorePanel loads each judge's result files and aggregates their verdicts by
// majority vote. judges maps a judge name to its result locations.
func ScorePanel(ctx context.Context, rubricID string, judges map[string][]string, opts AllOptions) (types.PanelResult, error) {
	if len(judges) < 2 {
		return types.PanelResult{}, fmt.Errorf("a panel needs at least two judges, got %d", len(judges))
	}
	var mu sync.Mutex
	loaded := make(map[string][]types.EvaluationRecord, len(judges))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for name, locations := range judges {
		g.Go(func() error {
			c, err := loadCorpus(gctx, locations, opts.Records)
			if err != nil {
				return fmt.Errorf("judge %s: %w", name, err)
			}
			mu.Lock()
			loaded[name] = c.Records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.PanelResult{}, err
	}

	res := types.PanelResult{RubricID: rubricID, Verdicts: poll.Panel(rubricID, loaded)}
	for name := range loaded {
		res.Judges = append(res.Judges, name)
	}
	sort.Strings(res.Judges)
	summary, err := poll.Rollup(res.Verdicts)
	if err != nil {
		return res, err
	}
	res.Summary = summary
	return res, nil
}
