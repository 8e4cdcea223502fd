package agreement

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

func TestKappa(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		want     float64
		observed float64
		expected float64
		label    string
	}{
		{"perfect agreement", []string{"OB", "null", "OB", "null"}, []string{"OB", "null", "OB", "null"}, 1, 1, 0.5, "Almost Perfect"},
		{"chance agreement", []string{"x", "x", "y", "y"}, []string{"x", "y", "x", "y"}, 0, 0.5, 0.5, "Slight"},
		{"single shared label", []string{"OB", "OB", "OB"}, []string{"OB", "OB", "OB"}, 1, 1, 1, "Almost Perfect"},
		{"systematic disagreement", []string{"x", "y"}, []string{"y", "x"}, -1, 0, 0.5, "Poor (less than chance)"},
		{"partial agreement", []string{"R", "R", "N", "N", "N"}, []string{"R", "N", "N", "N", "N"}, 0.24 / 0.44, 0.8, 0.56, "Moderate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Kappa(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got.Kappa-tt.want) > 1e-9 {
				t.Errorf("kappa = %v, want %v", got.Kappa, tt.want)
			}
			if math.Abs(got.ObservedAgreement-tt.observed) > 1e-9 || math.Abs(got.ExpectedAgreement-tt.expected) > 1e-9 {
				t.Errorf("observed/expected = %v/%v, want %v/%v", got.ObservedAgreement, got.ExpectedAgreement, tt.observed, tt.expected)
			}
			if got.Interpretation != tt.label {
				t.Errorf("interpretation = %q, want %q", got.Interpretation, tt.label)
			}
			if got.Samples != len(tt.a) || got.Agreements+got.Disagreements != got.Samples {
				t.Errorf("samples/agreements/disagreements = %d/%d/%d", got.Samples, got.Agreements, got.Disagreements)
			}
		})
	}
}

func TestKappaConfusionMatrix(t *testing.T) {
	got, err := Kappa([]string{"R", "R", "N"}, []string{"R", "N", "N"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]map[string]int{
		"N": {"N": 1, "R": 0},
		"R": {"N": 1, "R": 1},
	}
	if diff := cmp.Diff(want, got.ConfusionMatrix); diff != "" {
		t.Errorf("confusion (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"N", "R"}, got.Labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}

func TestWeightedKappa(t *testing.T) {
	a := []string{"1", "2", "3"}
	b := []string{"1", "3", "3"}

	plain, err := Kappa(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(plain.Kappa-0.5) > 1e-9 {
		t.Fatalf("kappa = %v, want 0.5", plain.Kappa)
	}

	got, err := WeightedKappa(a, b)
	if err != nil {
		t.Fatal(err)
	}
	// A one-step miss earns 0.75 credit with three ordered labels.
	if math.Abs(got.Kappa-0.8) > 1e-9 {
		t.Errorf("weighted kappa = %v, want 0.8", got.Kappa)
	}
	if math.Abs(got.ObservedAgreement-2.75/3) > 1e-9 || math.Abs(got.ExpectedAgreement-5.25/9) > 1e-9 {
		t.Errorf("observed/expected = %v/%v", got.ObservedAgreement, got.ExpectedAgreement)
	}
	if !got.Weighted {
		t.Error("weighted flag not set")
	}

	single, err := WeightedKappa([]string{"x", "x"}, []string{"x", "x"})
	if err != nil {
		t.Fatal(err)
	}
	if single.Kappa != 1 {
		t.Errorf("single-label weighted kappa = %v, want 1", single.Kappa)
	}
}

func TestKappaErrors(t *testing.T) {
	if _, err := Kappa([]string{"a"}, []string{"a", "b"}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
	if _, err := Kappa(nil, nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("err = %v, want ErrNoSamples", err)
	}
	if _, err := WeightedKappa(nil, nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("weighted err = %v, want ErrNoSamples", err)
	}
}

func TestInterpret(t *testing.T) {
	tests := map[float64]string{
		-0.1: "Poor (less than chance)",
		0:    "Slight",
		0.2:  "Fair",
		0.45: "Moderate",
		0.6:  "Substantial",
		0.8:  "Almost Perfect",
	}
	for k, want := range tests {
		if got := Interpret(k); got != want {
			t.Errorf("Interpret(%v) = %q, want %q", k, got, want)
		}
	}
}

func kwRecord(key string, expected, output any) types.EvaluationRecord {
	rec := types.EvaluationRecord{SampleKey: key, Output: map[string]any{"branding_scope_1": output}}
	if expected != nil {
		rec.Expected = map[string]any{"branding_scope_1": expected}
	}
	return rec
}

func TestTruthLabels(t *testing.T) {
	fields := []string{"branding_scope_1"}
	recs := []types.EvaluationRecord{
		kwRecord("nike", "OB", "OB"),
		kwRecord("socks", "", nil),
		kwRecord("adidas", nil, "OB"),
		kwRecord("hat", true, 1.0),
	}
	truth, model := TruthLabels(recs, fields, fields)
	if diff := cmp.Diff([]string{"OB", "null", "null", "true"}, truth); diff != "" {
		t.Errorf("truth (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"OB", "null", "OB", "1"}, model); diff != "" {
		t.Errorf("model (-want +got):\n%s", diff)
	}
}

func TestModelLabels(t *testing.T) {
	fields := []string{"branding_scope_1"}
	a := []types.EvaluationRecord{
		kwRecord("socks", nil, ""),
		kwRecord("nike", nil, "OB"),
		kwRecord("only-a", nil, "OB"),
	}
	b := []types.EvaluationRecord{
		kwRecord("nike", nil, "OB"),
		kwRecord("socks", nil, "OB"),
		kwRecord("only-b", nil, ""),
	}
	la, lb := ModelLabels(a, b, fields)
	if diff := cmp.Diff([]string{"OB", "null"}, la); diff != "" {
		t.Errorf("first run (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"OB", "OB"}, lb); diff != "" {
		t.Errorf("second run (-want +got):\n%s", diff)
	}
}
