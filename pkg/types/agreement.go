package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Scores holds per-dimension ratings for one sample from one rater.
type Scores struct {
	Overall      float64 `json:"overall"`
	Accuracy     float64 `json:"accuracy"`
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
	Relevance    float64 `json:"relevance"`
	Helpfulness  float64 `json:"helpfulness"`
	Notes        string  `json:"notes,omitempty"`
}

func (s Scores) Dimension(name string) (float64, bool) {
	switch name {
	case "overall":
		return s.Overall, true
	case "accuracy":
		return s.Accuracy, true
	case "completeness":
		return s.Completeness, true
	case "clarity":
		return s.Clarity, true
	case "relevance":
		return s.Relevance, true
	case "helpfulness":
		return s.Helpfulness, true
	default:
		return 0, false
	}
}

// Correlation is a Pearson coefficient that serializes as "N/A" when it is
// undefined.
type Correlation struct {
	Value float64
	Valid bool
}

func (c Correlation) String() string {
	if !c.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", c.Value)
}

func (c Correlation) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(c.Value)
}

func (c *Correlation) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		*c = Correlation{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode correlation: %w", err)
	}
	*c = Correlation{Value: v, Valid: true}
	return nil
}

type CalibrationVerdict string

const (
	Calibrated    CalibrationVerdict = "calibrated"
	NeedsTuning   CalibrationVerdict = "needs_tuning"
	NotCalibrated CalibrationVerdict = "not_calibrated"
)

type SampleDiff struct {
	SampleID     string  `json:"sample_id"`
	HumanOverall float64 `json:"human_overall"`
	LLMOverall   float64 `json:"llm_overall"`
	Diff         float64 `json:"diff"`
	HumanNotes   string  `json:"human_notes,omitempty"`
}

type AgreementReport struct {
	TotalSamples      int                    `json:"total_samples"`
	Tolerance         float64                `json:"tolerance"`
	Dimensions        []string               `json:"dimensions,omitempty"`
	ExactAgreement    map[string]float64     `json:"exact_agreement,omitempty"`
	WithinTolerance   map[string]float64     `json:"within_tolerance_agreement,omitempty"`
	MeanAbsoluteError map[string]float64     `json:"mean_absolute_error,omitempty"`
	Correlation       map[string]Correlation `json:"correlation,omitempty"`
	Details           []SampleDiff           `json:"details,omitempty"`
	Verdict           CalibrationVerdict     `json:"verdict,omitempty"`
	Error             string                 `json:"error,omitempty"`
}

// KappaResult is Cohen's kappa between two label series. ConfusionMatrix is
// indexed [first rater][second rater].
type KappaResult struct {
	Kappa             float64                   `json:"kappa"`
	ObservedAgreement float64                   `json:"observed_agreement"`
	ExpectedAgreement float64                   `json:"expected_agreement"`
	Interpretation    string                    `json:"interpretation"`
	Weighted          bool                      `json:"weighted,omitempty"`
	Samples           int                       `json:"n_samples"`
	Agreements        int                       `json:"agreements"`
	Disagreements     int                       `json:"disagreements"`
	Labels            []string                  `json:"labels"`
	ConfusionMatrix   map[string]map[string]int `json:"confusion_matrix"`
}
