package types

import (
	"strings"
	"time"
)

type Verdict string

const (
	VerdictPass  Verdict = "PASS"
	VerdictFail  Verdict = "FAIL"
	VerdictError Verdict = "ERROR"
)

// ParseVerdict maps a judge's raw verdict string onto PASS, FAIL or ERROR.
func ParseVerdict(raw string) Verdict {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PASS":
		return VerdictPass
	case "FAIL":
		return VerdictFail
	default:
		return VerdictError
	}
}

type RubricVerdict struct {
	RubricID  string  `json:"rubric_id"`
	Criterion string  `json:"criterion,omitempty"`
	Verdict   Verdict `json:"verdict"`
	Reasoning *string `json:"reasoning,omitempty"`
	Judge     string  `json:"judge,omitempty"`
}

type EvaluationRecord struct {
	SampleKey string          `json:"sample_key"`
	SampleID  string          `json:"sample_id,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	Output    map[string]any  `json:"output,omitempty"`
	Expected  map[string]any  `json:"expected,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Verdicts  []RubricVerdict `json:"verdicts,omitempty"`
	Source    string          `json:"source,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (r EvaluationRecord) Verdict(rubricID string) (RubricVerdict, bool) {
	for _, v := range r.Verdicts {
		if v.RubricID == rubricID {
			return v, true
		}
	}
	return RubricVerdict{}, false
}

func (r EvaluationRecord) HasRubric(rubricID string) bool {
	_, ok := r.Verdict(rubricID)
	return ok
}
