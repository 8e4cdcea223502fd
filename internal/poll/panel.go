package poll

import (
	"sort"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

type panelKey struct {
	sample string
	rubric string
}

// VoteFromVerdict converts a judge's rubric verdict into a vote.
func VoteFromVerdict(judge string, v types.RubricVerdict) types.Vote {
	vote := types.Vote{Judge: judge, Reasoning: v.Reasoning}
	switch v.Verdict {
	case types.VerdictPass:
		vote.Label = types.LabelPass
	case types.VerdictFail:
		vote.Label = types.LabelFail
	default:
		vote.Error = "judge returned no usable verdict"
	}
	return vote
}

// Panel aggregates the verdicts several judges gave on the same samples.
// judges maps a judge name to the records it produced. With an empty
// rubricID every rubric seen is aggregated separately. A judge that has no
// verdict for a (sample, rubric) pair casts no vote on it. Results are
// ordered by sample key, then rubric.
func Panel(rubricID string, judges map[string][]types.EvaluationRecord) []types.AggregatedVerdict {
	names := make([]string, 0, len(judges))
	for name := range judges {
		names = append(names, name)
	}
	sort.Strings(names)

	votes := map[panelKey][]types.Vote{}
	for _, judge := range names {
		seen := map[panelKey]struct{}{}
		for _, rec := range judges[judge] {
			for _, v := range rec.Verdicts {
				if rubricID != "" && v.RubricID != rubricID {
					continue
				}
				k := panelKey{sample: rec.SampleKey, rubric: v.RubricID}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				name := judge
				if v.Judge != "" && v.Judge != judge {
					name = judge + "/" + v.Judge
				}
				votes[k] = append(votes[k], VoteFromVerdict(name, v))
			}
		}
	}

	keys := make([]panelKey, 0, len(votes))
	for k := range votes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].sample != keys[j].sample {
			return keys[i].sample < keys[j].sample
		}
		return keys[i].rubric < keys[j].rubric
	})

	out := make([]types.AggregatedVerdict, 0, len(keys))
	for _, k := range keys {
		agg := Aggregate(votes[k])
		agg.SampleKey = k.sample
		agg.RubricID = k.rubric
		out = append(out, agg)
	}
	return out
}
