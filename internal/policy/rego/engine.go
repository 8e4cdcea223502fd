package rego

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	oparego "github.com/open-policy-agent/opa/rego"

	"github.com/ogulcanaydogan/kwscore/internal/policy/yaml"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

const Query = "data.kwscore.gates.result"

type ResultView struct {
	Module  string             `json:"module"`
	Error   string             `json:"error,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

type Input struct {
	Results map[string]ResultView `json:"results"`
	Gates   []yaml.Gate           `json:"gates"`
}

type Result struct {
	Allow      bool     `json:"allow"`
	Violations []string `json:"violations"`
}

func BuildInput(policy yaml.Policy, s types.Summary) Input {
	in := Input{Results: make(map[string]ResultView, len(s.Results)), Gates: policy.Gates}
	if in.Gates == nil {
		in.Gates = []yaml.Gate{}
	}
	for _, r := range s.Results {
		view := ResultView{Module: r.Module, Error: r.Error}
		if r.Error == "" {
			view.Metrics = r.MetricValues()
		}
		in.Results[r.Key] = view
	}
	return in
}

func Evaluate(ctx context.Context, policyPath string, input Input) (Result, error) {
	raw, err := os.ReadFile(policyPath)
	if err != nil {
		return Result{}, fmt.Errorf("read rego policy: %w", err)
	}

	query, err := oparego.New(
		oparego.Query(Query),
		oparego.Module(filepath.Base(policyPath), string(raw)),
		oparego.Input(input),
	).PrepareForEval(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("prepare rego query: %w", err)
	}

	rs, err := query.Eval(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("eval rego policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Result{}, fmt.Errorf("rego policy returned no result")
	}
	return decodeResult(rs[0].Expressions[0].Value)
}

// decodeResult reads the policy's result object. Violations come back as a
// set, so they are sorted to match the YAML engine.
func decodeResult(v any) (Result, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("encode rego result: %w", err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("rego result must be {allow: bool, violations: [string]}: %w", err)
	}
	if res.Violations == nil {
		res.Violations = []string{}
	}
	sort.Strings(res.Violations)
	return res, nil
}
