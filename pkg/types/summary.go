package types

import "time"

type SourceInfo struct {
	Location      string    `json:"location"`
	Digest        string    `json:"digest,omitempty"`
	Module        string    `json:"module,omitempty"`
	Model         string    `json:"model,omitempty"`
	PromptVersion string    `json:"prompt_version,omitempty"`
	Dataset       string    `json:"dataset,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Entries       int       `json:"entries"`
	Skipped       int       `json:"skipped"`
}

type ModuleResult struct {
	Key           string                 `json:"key"`
	Module        string                 `json:"module"`
	Name          string                 `json:"name,omitempty"`
	Mode          ScoreMode              `json:"mode"`
	Model         string                 `json:"model,omitempty"`
	PromptVersion string                 `json:"prompt_version,omitempty"`
	Dataset       string                 `json:"dataset,omitempty"`
	Sources       []SourceInfo           `json:"sources,omitempty"`
	Records       int                    `json:"records"`
	Skipped       int                    `json:"skipped"`
	Duplicates    int                    `json:"duplicates"`
	Binary        *BinaryMetrics         `json:"binary,omitempty"`
	MultiClass    *MultiClassMetrics     `json:"multiclass,omitempty"`
	Rubrics       map[string]RubricStats `json:"rubrics,omitempty"`
	PassRate      *float64               `json:"pass_rate"`
	MatchRate     *float64               `json:"match_rate"`
	Error         string                 `json:"error,omitempty"`
}

// MetricValues flattens the headline numbers of a result into named values.
// Undefined metrics are absent rather than zero.
func (r ModuleResult) MetricValues() map[string]float64 {
	out := map[string]float64{
		"records":    float64(r.Records),
		"skipped":    float64(r.Skipped),
		"duplicates": float64(r.Duplicates),
	}
	if r.PassRate != nil {
		out["pass_rate"] = *r.PassRate
	}
	if r.MatchRate != nil {
		out["match_rate"] = *r.MatchRate
	}
	if b := r.Binary; b != nil {
		out["total"] = float64(b.Total)
		out["precision"] = b.Precision
		out["recall"] = b.Recall
		out["f1"] = b.F1
		out["mcc"] = b.MCC
		if b.Accuracy != nil {
			out["accuracy"] = *b.Accuracy
		}
	}
	if m := r.MultiClass; m != nil {
		out["total"] = float64(m.Total)
		out["macro_f1"] = m.MacroF1
		if m.Accuracy != nil {
			out["accuracy"] = *m.Accuracy
		}
		for class, cm := range m.PerClass {
			out["f1."+class] = cm.F1
			out["precision."+class] = cm.Precision
			out["recall."+class] = cm.Recall
		}
	}
	return out
}

type Summary struct {
	RunID       string         `json:"run_id"`
	GeneratedAt string         `json:"generated_at"`
	Results     []ModuleResult `json:"results"`
	Failures    int            `json:"failures"`
}

func (s Summary) Result(key string) (ModuleResult, bool) {
	for _, r := range s.Results {
		if r.Key == key {
			return r, true
		}
	}
	return ModuleResult{}, false
}
