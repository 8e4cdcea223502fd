package confusion

import (
	"github.com/ogulcanaydogan/kwscore/internal/labels"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

type Bucket string

const (
	TP Bucket = "tp"
	TN Bucket = "tn"
	FP Bucket = "fp"
	FN Bucket = "fn"
)

type BinaryMatrix struct {
	TP int `json:"tp"`
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`

	// Skipped counts records whose labels could not be scored, Excluded
	// those filtered out by the primary rubric.
	Skipped    int `json:"skipped"`
	Excluded   int `json:"excluded"`
	Duplicates int `json:"duplicates"`

	Samples map[Bucket][]string `json:"samples,omitempty"`
}

func (m BinaryMatrix) Total() int {
	return m.TP + m.TN + m.FP + m.FN
}

// Classify places one normalized (expected, actual) pair into a bucket.
// Two positives count as a true positive unless both are strings that name
// different values.
func Classify(expected, actual labels.Label) Bucket {
	switch {
	case expected.Positive && actual.Positive:
		if both, same := labels.SameString(expected.Raw, actual.Raw); both && !same {
			return FP
		}
		return TP
	case !expected.Positive && !actual.Positive:
		return TN
	case !expected.Positive && actual.Positive:
		return FP
	default:
		return FN
	}
}

// BuildBinary folds records into a binary confusion matrix. The first record
// seen for a sample key wins.
func BuildBinary(records []types.EvaluationRecord, cfg types.ModuleScoreConfig) BinaryMatrix {
	cfg.Mode = types.ModeBinary
	m := BinaryMatrix{Samples: map[Bucket][]string{}}
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.SampleKey]; dup {
			m.Duplicates++
			continue
		}
		seen[rec.SampleKey] = struct{}{}
		if !Participates(rec, cfg.PrimaryRubric) {
			m.Excluded++
			continue
		}
		expRaw, expOK := labels.Lookup(rec.Expected, cfg.ExpectedFields)
		actRaw, actOK := labels.Lookup(rec.Output, cfg.OutputFields)
		expected := labels.Normalize(expRaw, expOK, cfg, labels.Expected)
		actual := labels.Normalize(actRaw, actOK, cfg, labels.Actual)
		if !expected.Scoreable || !actual.Scoreable {
			m.Skipped++
			continue
		}
		b := Classify(expected, actual)
		switch b {
		case TP:
			m.TP++
		case TN:
			m.TN++
		case FP:
			m.FP++
		case FN:
			m.FN++
		}
		m.Samples[b] = append(m.Samples[b], rec.SampleKey)
	}
	return m
}

// Participates reports whether a record counts toward a module with the given
// primary rubric. Records without any verdicts are raw pipeline outputs and
// always participate; judged records need a verdict for exactly that rubric.
func Participates(rec types.EvaluationRecord, primaryRubric string) bool {
	if primaryRubric == "" || len(rec.Verdicts) == 0 {
		return true
	}
	return rec.HasRubric(primaryRubric)
}
