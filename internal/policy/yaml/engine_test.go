package yaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

func f(v float64) *float64 { return &v }

func summary() types.Summary {
	return types.Summary{Results: []types.ModuleResult{
		{Key: "m02_v1_gpt4o", Module: "m02", Mode: types.ModeBinary, Records: 20,
			Binary: &types.BinaryMetrics{F1: 80, MCC: 0.5, Accuracy: f(75)}},
		{Key: "m04_v1_gpt4o", Module: "m04", Mode: types.ModeBinary, Records: 10,
			Binary: &types.BinaryMetrics{F1: 40, MCC: 0.1, Accuracy: f(50)}},
		{Key: "m06_v1_gpt4o", Module: "m06", Mode: types.ModeRubric, Records: 5, PassRate: f(60)},
		{Key: "m13", Module: "m13", Error: "load results/m13: no such file"},
	}}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name  string
		gates []Gate
		want  []string
	}{{
		name:  "all pass",
		gates: []Gate{{ID: "G1", Modules: []string{"m02"}, Metric: "f1", Min: f(70)}},
		want:  []string{},
	}, {
		name:  "glob selects several modules",
		gates: []Gate{{ID: "G1", Modules: []string{"m0[24]"}, Metric: "f1", Min: f(70)}},
		want:  []string{"G1: m04_v1_gpt4o f1=40 below minimum 70"},
	}, {
		name:  "maximum",
		gates: []Gate{{ID: "G2", Modules: []string{"m02_v1_*"}, Metric: "mcc", Max: f(0.4), Message: "MCC too high"}},
		want:  []string{"MCC too high: m02_v1_gpt4o mcc=0.5 above maximum 0.4"},
	}, {
		name:  "missing metric",
		gates: []Gate{{ID: "G3", Modules: []string{"m06"}, Metric: "mcc", Min: f(0)}},
		want:  []string{"G3: m06_v1_gpt4o has no mcc"},
	}, {
		name:  "errored result",
		gates: []Gate{{ID: "G4", Modules: []string{"m13"}, Metric: "f1", Min: f(0)}},
		want:  []string{"G4: m13 failed: load results/m13: no such file"},
	}, {
		name:  "nothing selected",
		gates: []Gate{{ID: "G5", Modules: []string{"m15", "m16"}, Metric: "f1", Min: f(0)}},
		want:  []string{"G5: no results for m15, m16"},
	}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(Policy{Gates: tc.gates}, summary())
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("violations (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gates.yaml")
	os.WriteFile(path, []byte(`version: "1"
gates:
  - id: G001
    modules: ["m02*", "m04*"]
    metric: f1
    min: 70
    message: Binary modules must keep F1 above 70.
`), 0o644)
	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if len(p.Gates) != 1 || *p.Gates[0].Min != 70 || p.Gates[0].Max != nil {
		t.Errorf("unexpected policy: %+v", p)
	}
}

func TestLoadPolicyInvalid(t *testing.T) {
	cases := map[string]string{
		"no bound":     "gates:\n  - {id: G1, modules: [m02], metric: f1}\n",
		"no metric":    "gates:\n  - {id: G1, modules: [m02], min: 1}\n",
		"no modules":   "gates:\n  - {id: G1, metric: f1, min: 1}\n",
		"duplicate id": "gates:\n  - {id: G1, modules: [m02], metric: f1, min: 1}\n  - {id: G1, modules: [m04], metric: f1, min: 1}\n",
		"bad pattern":  "gates:\n  - {id: G1, modules: ['m0['], metric: f1, min: 1}\n",
		"bad yaml":     "gates: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "gates.yaml")
			os.WriteFile(path, []byte(body), 0o644)
			if _, err := LoadPolicy(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := LoadPolicy("/nonexistent/gates.yaml"); err == nil || !strings.Contains(err.Error(), "no such file") {
		t.Errorf("missing file error = %v", err)
	}
}

func TestRepositoryExamplePolicyIsValid(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join("..", "..", "..", "policy", "examples", "gates.yaml")); err != nil {
		t.Fatal(err)
	}
}
