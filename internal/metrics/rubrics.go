package metrics

import "github.com/ogulcanaydogan/kwscore/pkg/types"

// RubricBreakdown tallies verdicts per rubric across records.
func RubricBreakdown(records []types.EvaluationRecord) map[string]types.RubricStats {
	out := map[string]types.RubricStats{}
	for _, rec := range records {
		for _, v := range rec.Verdicts {
			id := v.RubricID
			if id == "" {
				id = "unknown"
			}
			s := out[id]
			s.Total++
			switch v.Verdict {
			case types.VerdictPass:
				s.Pass++
			case types.VerdictFail:
				s.Fail++
			default:
				s.Error++
			}
			out[id] = s
		}
	}
	for id, s := range out {
		s.PassRate = Round(pct(s.Pass, s.Total), 2)
		out[id] = s
	}
	return out
}

// PassRate is the share of PASS verdicts across every rubric. It is nil when
// there are no verdicts at all.
func PassRate(records []types.EvaluationRecord) *float64 {
	pass, total := 0, 0
	for _, rec := range records {
		for _, v := range rec.Verdicts {
			total++
			if v.Verdict == types.VerdictPass {
				pass++
			}
		}
	}
	if total == 0 {
		return nil
	}
	r := Round(pct(pass, total), 2)
	return &r
}

// MatchRate is the pass rate of the primary rubric alone.
func MatchRate(records []types.EvaluationRecord, primaryRubric string) *float64 {
	if primaryRubric == "" {
		return nil
	}
	pass, total := 0, 0
	for _, rec := range records {
		v, ok := rec.Verdict(primaryRubric)
		if !ok {
			continue
		}
		total++
		if v.Verdict == types.VerdictPass {
			pass++
		}
	}
	if total == 0 {
		return nil
	}
	r := Round(pct(pass, total), 2)
	return &r
}
