package agreement

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ogulcanaydogan/kwscore/internal/confusion"
	"github.com/ogulcanaydogan/kwscore/internal/labels"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

var (
	ErrLengthMismatch = errors.New("label lists must have the same length")
	ErrNoSamples      = errors.New("no samples to compare")
)

// nullLabel stands in for a missing or null value so that "no label" is a
// category of its own.
const nullLabel = "null"

// Kappa computes Cohen's kappa between two raters over the union of their
// labels. When chance agreement is already total the raters can only agree,
// and kappa is 1.
func Kappa(a, b []string) (types.KappaResult, error) {
	m, err := countPairs(a, b)
	if err != nil {
		return types.KappaResult{}, err
	}
	n := float64(len(a))
	observed := float64(m.Correct()) / n
	expected := 0.0
	for _, l := range m.Classes {
		expected += float64(m.RowSum(l)) / n * float64(m.ColSum(l)) / n
	}
	return kappaResult(m, observed, expected, false), nil
}

// WeightedKappa computes kappa with quadratic weights over the sorted label
// set, for ordinal labels where near misses should count partially.
func WeightedKappa(a, b []string) (types.KappaResult, error) {
	m, err := countPairs(a, b)
	if err != nil {
		return types.KappaResult{}, err
	}
	k := len(m.Classes)
	weight := func(i, j int) float64 {
		if k == 1 {
			return 1
		}
		d := float64(i - j)
		return 1 - d*d/float64((k-1)*(k-1))
	}
	n := float64(len(a))
	observed, expected := 0.0, 0.0
	for i, l1 := range m.Classes {
		for j, l2 := range m.Classes {
			w := weight(i, j)
			observed += w * float64(m.Count(l1, l2))
			expected += w * float64(m.RowSum(l1)) / n * float64(m.ColSum(l2)) / n
		}
	}
	return kappaResult(m, observed/n, expected, true), nil
}

func countPairs(a, b []string) (confusion.CountMatrix, error) {
	if len(a) != len(b) {
		return confusion.CountMatrix{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return confusion.CountMatrix{}, ErrNoSamples
	}
	set := map[string]struct{}{}
	for i := range a {
		set[a[i]] = struct{}{}
		set[b[i]] = struct{}{}
	}
	classes := make([]string, 0, len(set))
	for l := range set {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	m := confusion.NewCountMatrix(classes)
	for i := range a {
		m.Add(a[i], b[i])
	}
	return m, nil
}

func kappaResult(m confusion.CountMatrix, observed, expected float64, weighted bool) types.KappaResult {
	kappa := 1.0
	if expected != 1 {
		kappa = (observed - expected) / (1 - expected)
	}
	agreements := m.Correct()
	return types.KappaResult{
		Kappa:             kappa,
		ObservedAgreement: observed,
		ExpectedAgreement: expected,
		Interpretation:    Interpret(kappa),
		Weighted:          weighted,
		Samples:           m.Total(),
		Agreements:        agreements,
		Disagreements:     m.Total() - agreements,
		Labels:            m.Classes,
		ConfusionMatrix:   m.Cells,
	}
}

// Interpret places kappa on the Landis and Koch scale.
func Interpret(kappa float64) string {
	switch {
	case kappa < 0:
		return "Poor (less than chance)"
	case kappa < 0.20:
		return "Slight"
	case kappa < 0.40:
		return "Fair"
	case kappa < 0.60:
		return "Moderate"
	case kappa < 0.80:
		return "Substantial"
	default:
		return "Almost Perfect"
	}
}

// TruthLabels pairs each record's ground truth with the model's output for
// the same field. Records are taken in corpus order.
func TruthLabels(records []types.EvaluationRecord, expectedFields, outputFields []string) (truth, model []string) {
	truth = make([]string, 0, len(records))
	model = make([]string, 0, len(records))
	for _, rec := range records {
		truth = append(truth, labelString(labels.Lookup(rec.Expected, expectedFields)))
		model = append(model, labelString(labels.Lookup(rec.Output, outputFields)))
	}
	return truth, model
}

// ModelLabels pairs two runs' outputs on the samples both of them judged,
// ordered by sample key.
func ModelLabels(a, b []types.EvaluationRecord, outputFields []string) (la, lb []string) {
	other := make(map[string]types.EvaluationRecord, len(b))
	for _, rec := range b {
		other[rec.SampleKey] = rec
	}
	keys := make([]string, 0, len(a))
	mine := make(map[string]types.EvaluationRecord, len(a))
	for _, rec := range a {
		if _, ok := other[rec.SampleKey]; !ok {
			continue
		}
		if _, dup := mine[rec.SampleKey]; dup {
			continue
		}
		mine[rec.SampleKey] = rec
		keys = append(keys, rec.SampleKey)
	}
	sort.Strings(keys)
	for _, k := range keys {
		la = append(la, labelString(labels.Lookup(mine[k].Output, outputFields)))
		lb = append(lb, labelString(labels.Lookup(other[k].Output, outputFields)))
	}
	return la, lb
}

func labelString(v any, ok bool) string {
	if !ok || v == nil {
		return nullLabel
	}
	switch vv := v.(type) {
	case string:
		if s := strings.TrimSpace(vv); s != "" {
			return s
		}
		return nullLabel
	case bool:
		return strconv.FormatBool(vv)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	default:
		return fmt.Sprint(vv)
	}
}
