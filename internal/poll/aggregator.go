package poll

import (
	"errors"

	"github.com/ogulcanaydogan/kwscore/internal/metrics"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

var ErrNoResults = errors.New("no results")

const (
	reasonNoVotes     = "No results to aggregate"
	reasonAllFailed   = "All judges failed"
	reasonNoReasoning = "No reasoning"
	reasonNotGiven    = "No reasoning provided"
)

// Aggregate reduces one sample's votes to a single label by strict majority.
// Ties and vote sets without any valid vote resolve to Fail.
func Aggregate(votes []types.Vote) types.AggregatedVerdict {
	if len(votes) == 0 {
		return types.AggregatedVerdict{FinalLabel: types.LabelFail, Reasoning: reasonNoVotes, Error: true}
	}

	valid := make([]types.Vote, 0, len(votes))
	for _, v := range votes {
		if v.Error == "" && (v.Label == types.LabelPass || v.Label == types.LabelFail) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return types.AggregatedVerdict{
			FinalLabel: types.LabelFail,
			Reasoning:  reasonAllFailed,
			Error:      true,
			Votes:      votes,
		}
	}

	pass := 0
	for _, v := range valid {
		if v.Label == types.LabelPass {
			pass++
		}
	}
	fail := len(valid) - pass

	label := types.LabelFail
	majority := fail
	if pass > fail {
		label = types.LabelPass
		majority = pass
	}

	reasoning := reasonNoReasoning
	for _, v := range valid {
		if v.Label == label {
			reasoning = reasonNotGiven
			if v.Reasoning != nil {
				reasoning = *v.Reasoning
			}
			break
		}
	}

	agreement := pass == len(valid) || fail == len(valid)
	return types.AggregatedVerdict{
		FinalLabel:    label,
		Reasoning:     reasoning,
		Agreement:     agreement,
		AgreementRate: metrics.Round(float64(majority)/float64(len(valid)), 2),
		PassVotes:     pass,
		FailVotes:     fail,
		NeedsReview:   !agreement,
		Votes:         votes,
	}
}

// Rollup summarizes a batch of aggregated verdicts.
func Rollup(results []types.AggregatedVerdict) (types.BatchAgreement, error) {
	if len(results) == 0 {
		return types.BatchAgreement{}, ErrNoResults
	}
	out := types.BatchAgreement{TotalEvaluations: len(results)}
	sumRate := 0.0
	for _, r := range results {
		if r.Agreement {
			out.UnanimousCount++
		}
		if r.NeedsReview {
			out.NeedsReview++
		}
		if r.Error {
			out.Errors++
		}
		sumRate += r.AgreementRate
	}
	n := float64(len(results))
	out.SplitDecisions = out.TotalEvaluations - out.UnanimousCount
	out.UnanimousRate = metrics.Round(float64(out.UnanimousCount)/n, 3)
	out.AvgAgreementRate = metrics.Round(sumRate/n, 3)
	return out, nil
}
