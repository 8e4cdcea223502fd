package agreement

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

func TestScore(t *testing.T) {
	human := map[string]types.Scores{
		"s1": {Overall: 4, Accuracy: 4, Completeness: 3, Clarity: 5, Relevance: 4, Notes: "fine"},
		"s2": {Overall: 2, Accuracy: 2, Completeness: 3, Clarity: 5, Relevance: 4},
		"s3": {Overall: 5, Accuracy: 5, Completeness: 3, Clarity: 5, Relevance: 4},
		"s4": {Overall: 3, Accuracy: 3, Completeness: 3, Clarity: 5, Relevance: 4},
		"h5": {Overall: 1},
	}
	llm := map[string]types.Scores{
		"s1": {Overall: 4, Accuracy: 5, Completeness: 3, Clarity: 4, Relevance: 4},
		"s2": {Overall: 4, Accuracy: 2, Completeness: 3, Clarity: 4, Relevance: 5},
		"s3": {Overall: 5, Accuracy: 5, Completeness: 3, Clarity: 4, Relevance: 3},
		"s4": {Overall: 3, Accuracy: 3, Completeness: 3, Clarity: 4, Relevance: 4},
		"l6": {Overall: 1},
	}
	r, err := Score(human, llm, DefaultTolerance)
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalSamples != 4 {
		t.Fatalf("total_samples = %d, want 4", r.TotalSamples)
	}
	if r.ExactAgreement["overall"] != 75.0 {
		t.Errorf("exact overall = %v, want 75.0", r.ExactAgreement["overall"])
	}
	if r.WithinTolerance["overall"] != 75.0 {
		t.Errorf("within overall = %v, want 75.0", r.WithinTolerance["overall"])
	}
	if r.MeanAbsoluteError["overall"] != 0.5 {
		t.Errorf("mae overall = %v, want 0.5", r.MeanAbsoluteError["overall"])
	}
	if r.Verdict != types.NeedsTuning {
		t.Errorf("verdict = %s, want needs_tuning", r.Verdict)
	}
	if r.Correlation["completeness"].Valid {
		t.Error("constant completeness should have undefined correlation")
	}
	if r.Correlation["clarity"].Valid {
		t.Error("constant clarity should have undefined correlation")
	}
	if !r.Correlation["accuracy"].Valid {
		t.Error("accuracy correlation should be defined")
	}
	if r.WithinTolerance["accuracy"] != 100 || r.ExactAgreement["accuracy"] != 75 {
		t.Errorf("accuracy agreement = %v / %v", r.ExactAgreement["accuracy"], r.WithinTolerance["accuracy"])
	}

	wantDetails := []types.SampleDiff{
		{SampleID: "s1", HumanOverall: 4, LLMOverall: 4, Diff: 0, HumanNotes: "fine"},
		{SampleID: "s2", HumanOverall: 2, LLMOverall: 4, Diff: 2},
		{SampleID: "s3", HumanOverall: 5, LLMOverall: 5, Diff: 0},
		{SampleID: "s4", HumanOverall: 3, LLMOverall: 3, Diff: 0},
	}
	if diff := cmp.Diff(wantDetails, r.Details); diff != "" {
		t.Errorf("details (-want +got):\n%s", diff)
	}
}

func TestScoreNoOverlap(t *testing.T) {
	r, err := Score(map[string]types.Scores{"a": {}}, map[string]types.Scores{"b": {}}, 1)
	if !errors.Is(err, ErrNoCommonSamples) {
		t.Fatalf("err = %v, want ErrNoCommonSamples", err)
	}
	if r.Error != "No common samples found" {
		t.Fatalf("report error = %q", r.Error)
	}
}

func TestScoreBounds(t *testing.T) {
	human := map[string]types.Scores{"a": {Overall: 1}, "b": {Overall: 5}, "c": {Overall: 3}}
	llm := map[string]types.Scores{"a": {Overall: 5}, "b": {Overall: 1}, "c": {Overall: 2}}
	r, err := Score(human, llm, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, dim := range Dimensions {
		for name, v := range map[string]float64{"exact": r.ExactAgreement[dim], "within": r.WithinTolerance[dim]} {
			if v < 0 || v > 100 {
				t.Errorf("%s %s = %v out of range", name, dim, v)
			}
		}
		if r.MeanAbsoluteError[dim] < 0 {
			t.Errorf("mae %s negative", dim)
		}
		if c := r.Correlation[dim]; c.Valid && (c.Value < -1 || c.Value > 1) {
			t.Errorf("correlation %s = %v out of range", dim, c.Value)
		}
	}
	if r.Verdict != types.NotCalibrated {
		t.Errorf("verdict = %s, want not_calibrated", r.Verdict)
	}
}

func TestPearson(t *testing.T) {
	c := Pearson([]float64{1, 2, 3}, []float64{2, 4, 6})
	if !c.Valid || c.Value != 1 {
		t.Fatalf("perfect correlation = %+v", c)
	}
	c = Pearson([]float64{1, 2, 3}, []float64{3, 2, 1})
	if !c.Valid || c.Value != -1 {
		t.Fatalf("inverse correlation = %+v", c)
	}
	if Pearson([]float64{3, 3}, []float64{1, 2}).Valid {
		t.Fatal("constant series must be undefined")
	}
	if Pearson(nil, nil).Valid {
		t.Fatal("empty series must be undefined")
	}
}

func TestVerdictThresholds(t *testing.T) {
	tests := []struct {
		within float64
		want   types.CalibrationVerdict
	}{
		{100, types.Calibrated},
		{85, types.Calibrated},
		{84.9, types.NeedsTuning},
		{70, types.NeedsTuning},
		{69.9, types.NotCalibrated},
	}
	for _, tt := range tests {
		if got := Verdict(tt.within); got != tt.want {
			t.Errorf("Verdict(%v) = %s, want %s", tt.within, got, tt.want)
		}
	}
}

func TestReadHumanLabels(t *testing.T) {
	csvText := strings.Join([]string{
		"sample_id,human_score,human_accuracy,human_completeness,human_clarity,human_relevance,human_helpfulness,human_notes",
		"s1,4,4,3,5,4,3,solid answer",
		"s2,2.5,,,,,,",
		",3,3,3,3,3,3,no id",
		"s3,abc,3,3,3,3,3,bad score",
		"s4,4,x,3,3,3,3,bad accuracy",
	}, "\n")
	got, skipped, err := ReadHumanLabels(context.Background(), strings.NewReader(csvText))
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 3 {
		t.Errorf("skipped = %d, want 3", skipped)
	}
	want := map[string]types.Scores{
		"s1": {Overall: 4, Accuracy: 4, Completeness: 3, Clarity: 5, Relevance: 4, Helpfulness: 3, Notes: "solid answer"},
		"s2": {Overall: 2.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}

func TestReadHumanLabelsMissingColumn(t *testing.T) {
	_, _, err := ReadHumanLabels(context.Background(), strings.NewReader("sample_id,notes\ns1,x\n"))
	if err == nil || !strings.Contains(err.Error(), "human_score") {
		t.Fatalf("err = %v, want missing human_score", err)
	}
}

func TestParseLLMScores(t *testing.T) {
	raw := `{"results": [
		{"sample_id": "s1", "result": {"overall": 4, "scores": {"accuracy": 5, "completeness": 3, "clarity": 4, "relevance": 4, "reasoning": 2}}},
		{"sample_id": 7, "result": {"final_score": 3}},
		{"result": {"overall": 1}},
		{"sample_id": "s9", "result": {"scores": {"accuracy": "high"}}}
	]}`
	got, skipped, err := ParseLLMScores(context.Background(), []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	want := map[string]types.Scores{
		"s1": {Overall: 4, Accuracy: 5, Completeness: 3, Clarity: 4, Relevance: 4, Helpfulness: 2},
		"7":  {Overall: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}
}

func TestParseLLMScoresInvalidJSON(t *testing.T) {
	if _, _, err := ParseLLMScores(context.Background(), []byte("{")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	humanPath := filepath.Join(dir, "human_labels.csv")
	llmPath := filepath.Join(dir, "m11_multiagent.json")
	if err := os.WriteFile(humanPath, []byte("sample_id,human_score\na,4\nb,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(llmPath, []byte(`{"results":[{"sample_id":"a","result":{"overall":4}},{"sample_id":"b","result":{"overall":3}}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	human, _, err := LoadHumanLabels(context.Background(), humanPath)
	if err != nil {
		t.Fatal(err)
	}
	llm, _, err := LoadLLMScores(context.Background(), llmPath)
	if err != nil {
		t.Fatal(err)
	}
	r, err := Score(human, llm, DefaultTolerance)
	if err != nil {
		t.Fatal(err)
	}
	if r.WithinTolerance["overall"] != 100 || r.Verdict != types.Calibrated {
		t.Fatalf("unexpected report %+v", r)
	}
	if _, _, err := LoadHumanLabels(context.Background(), filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
