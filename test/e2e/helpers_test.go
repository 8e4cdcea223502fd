//go:build e2e

package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("cannot resolve test file path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

func policyPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(repoRoot(t), "policy", "examples", name)
}

type sample struct {
	keyword, verdict, expected, output string
}

// writeRun writes one judge-result file with a single rubric and field.
func writeRun(t *testing.T, path, module, model, timestamp, rubric, field string, samples []sample) {
	t.Helper()
	entries := make([]string, 0, len(samples))
	for _, s := range samples {
		entries = append(entries, fmt.Sprintf(
			`{"input":{"keyword":%q},"rubric_id":%q,"verdict":%q,"expected":{%q:%q},"output":{%q:%q}}`,
			s.keyword, rubric, s.verdict, field, s.expected, field, s.output))
	}
	doc := fmt.Sprintf(`{"module":%q,"model":%q,"timestamp":%q,"evaluations":[%s]}`,
		module, model, timestamp, strings.Join(entries, ","))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

// brandRun is an own-brand classification run where every expected label is
// predicted correctly.
func brandRun(n int) []sample {
	out := make([]sample, 0, n)
	for i := 0; i < n; i++ {
		label := ""
		if i%2 == 0 {
			label = "OB"
		}
		out = append(out, sample{keyword: fmt.Sprintf("keyword %d", i), verdict: "PASS", expected: label, output: label})
	}
	return out
}
