package agreement

import (
	"errors"
	"math"
	"sort"

	"github.com/ogulcanaydogan/kwscore/internal/metrics"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

var ErrNoCommonSamples = errors.New("no common samples")

const noCommonSamplesMessage = "No common samples found"

// Dimensions are compared in this order. Helpfulness is loaded but not
// scored.
var Dimensions = []string{"overall", "accuracy", "completeness", "clarity", "relevance"}

const (
	DefaultTolerance = 1.0

	calibratedAt  = 85.0
	needsTuningAt = 70.0
)

// Score compares human and LLM ratings over the samples both have rated.
// When there is no overlap the returned report carries the error message and
// ErrNoCommonSamples is returned alongside it.
func Score(human, llm map[string]types.Scores, tolerance float64) (types.AgreementReport, error) {
	ids := make([]string, 0, len(human))
	for id := range human {
		if _, ok := llm[id]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return types.AgreementReport{Error: noCommonSamplesMessage}, ErrNoCommonSamples
	}
	sort.Strings(ids)

	r := types.AgreementReport{
		TotalSamples:      len(ids),
		Tolerance:         tolerance,
		Dimensions:        append([]string(nil), Dimensions...),
		ExactAgreement:    make(map[string]float64, len(Dimensions)),
		WithinTolerance:   make(map[string]float64, len(Dimensions)),
		MeanAbsoluteError: make(map[string]float64, len(Dimensions)),
		Correlation:       make(map[string]types.Correlation, len(Dimensions)),
		Details:           make([]types.SampleDiff, 0, len(ids)),
	}
	n := float64(len(ids))
	for _, dim := range Dimensions {
		hs := make([]float64, len(ids))
		ls := make([]float64, len(ids))
		exact, within := 0, 0
		absSum := 0.0
		for i, id := range ids {
			hs[i], _ = human[id].Dimension(dim)
			ls[i], _ = llm[id].Dimension(dim)
			d := math.Abs(hs[i] - ls[i])
			if d == 0 {
				exact++
			}
			if d <= tolerance {
				within++
			}
			absSum += d
		}
		r.ExactAgreement[dim] = metrics.Round(float64(exact)/n*100, 1)
		r.WithinTolerance[dim] = metrics.Round(float64(within)/n*100, 1)
		r.MeanAbsoluteError[dim] = metrics.Round(absSum/n, 2)
		r.Correlation[dim] = Pearson(hs, ls)
	}

	for _, id := range ids {
		h, l := human[id], llm[id]
		r.Details = append(r.Details, types.SampleDiff{
			SampleID:     id,
			HumanOverall: h.Overall,
			LLMOverall:   l.Overall,
			Diff:         l.Overall - h.Overall,
			HumanNotes:   h.Notes,
		})
	}
	r.Verdict = Verdict(r.WithinTolerance["overall"])
	return r, nil
}

// Pearson returns the correlation of two equal-length series rounded to three
// decimals. It is undefined when either series is constant.
func Pearson(xs, ys []float64) types.Correlation {
	if len(xs) != len(ys) || constant(xs) || constant(ys) {
		return types.Correlation{}
	}
	n := float64(len(xs))
	mx, my := 0.0, 0.0
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n
	num, dx, dy := 0.0, 0.0, 0.0
	for i := range xs {
		a, b := xs[i]-mx, ys[i]-my
		num += a * b
		dx += a * a
		dy += b * b
	}
	den := math.Sqrt(dx) * math.Sqrt(dy)
	if den == 0 {
		return types.Correlation{Valid: true}
	}
	return types.Correlation{Value: metrics.Round(num/den, 3), Valid: true}
}

func constant(xs []float64) bool {
	if len(xs) == 0 {
		return true
	}
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func Verdict(overallWithin float64) types.CalibrationVerdict {
	switch {
	case overallWithin >= calibratedAt:
		return types.Calibrated
	case overallWithin >= needsTuningAt:
		return types.NeedsTuning
	default:
		return types.NotCalibrated
	}
}
