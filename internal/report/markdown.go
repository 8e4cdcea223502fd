package report

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

func BuildMarkdown(s types.Summary) string {
	status := "PASS"
	if s.Failures > 0 {
		status = "FAIL"
	}
	var b strings.Builder
	b.WriteString("# Keyword Classification Scoring Report\n\n")
	b.WriteString(fmt.Sprintf("- Status: **%s**\n", status))
	b.WriteString(fmt.Sprintf("- Run: `%s`\n", s.RunID))
	b.WriteString(fmt.Sprintf("- Generated: `%s`\n", s.GeneratedAt))
	b.WriteString(fmt.Sprintf("- Modules: `%d` (%d failed)\n\n", len(s.Results), s.Failures))

	b.WriteString("## Modules\n\n")
	b.WriteString("| Module | Key | Model | Mode | Records | Accuracy | F1 | MCC | Macro F1 | Match Rate |\n")
	b.WriteString("|---|---|---|---|---:|---:|---:|---:|---:|---:|\n")
	for _, r := range s.Results {
		acc, f1, mcc, macro := "-", "-", "-", "-"
		if bm := r.Binary; bm != nil {
			acc = ptr(bm.Accuracy, 1)
			f1 = fmt.Sprintf("%.1f", bm.F1)
			mcc = fmt.Sprintf("%.3f", bm.MCC)
		}
		if mc := r.MultiClass; mc != nil {
			acc = ptr(mc.Accuracy, 1)
			macro = fmt.Sprintf("%.1f", mc.MacroF1)
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s | %s | %s | %s | %s |\n",
			r.Module, r.Key, dash(r.Model), dash(string(r.Mode)), r.Records, acc, f1, mcc, macro, ptr(r.MatchRate, 2)))
	}

	for _, r := range s.Results {
		if r.Binary == nil {
			continue
		}
		bm := r.Binary
		b.WriteString(fmt.Sprintf("\n### %s confusion matrix\n\n", r.Key))
		b.WriteString("| Bucket | Label | Count |\n")
		b.WriteString("|---|---|---:|\n")
		b.WriteString(fmt.Sprintf("| TP | %s | %d |\n", escape(dash(bm.Labels.TP)), bm.TP))
		b.WriteString(fmt.Sprintf("| TN | %s | %d |\n", escape(dash(bm.Labels.TN)), bm.TN))
		b.WriteString(fmt.Sprintf("| FP | %s | %d |\n", escape(dash(bm.Labels.FP)), bm.FP))
		b.WriteString(fmt.Sprintf("| FN | %s | %d |\n", escape(dash(bm.Labels.FN)), bm.FN))
		b.WriteString(fmt.Sprintf("\nPrecision `%.1f`, recall `%.1f`, skipped `%d`, excluded `%d`.\n", bm.Precision, bm.Recall, bm.Skipped, bm.Excluded))
	}

	for _, r := range s.Results {
		if r.MultiClass == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("\n### %s per-class\n\n", r.Key))
		b.WriteString(buildClassTable(*r.MultiClass))
	}

	var failed []types.ModuleResult
	for _, r := range s.Results {
		if r.Error != "" {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, r := range failed {
			b.WriteString(fmt.Sprintf("- %s: %s\n", r.Module, r.Error))
		}
	}
	return b.String()
}

func buildClassTable(mc types.MultiClassMetrics) string {
	var b strings.Builder
	b.WriteString("| Class | Name | Support | Precision | Recall | F1 |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|\n")
	for _, c := range mc.Classes {
		cm := mc.PerClass[c]
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %.1f | %.1f | %.1f |\n", c, escape(dash(cm.Name)), cm.Support, cm.Precision, cm.Recall, cm.F1))
	}
	b.WriteString(fmt.Sprintf("\nMacro F1 `%.1f`, accuracy `%s`, excluded `%d`.\n", mc.MacroF1, ptr(mc.Accuracy, 1), mc.Excluded))
	return b.String()
}

func WriteMarkdown(path string, s types.Summary) error {
	return os.WriteFile(path, []byte(BuildMarkdown(s)), 0o644)
}

func BuildAgreementMarkdown(r types.AgreementReport) string {
	var b strings.Builder
	b.WriteString("# Human/LLM Agreement Report\n\n")
	if r.Error != "" {
		b.WriteString(fmt.Sprintf("- Error: **%s**\n", r.Error))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("- Verdict: **%s**\n", r.Verdict))
	b.WriteString(fmt.Sprintf("- Samples: `%d`\n", r.TotalSamples))
	b.WriteString(fmt.Sprintf("- Tolerance: `±%g`\n\n", r.Tolerance))

	b.WriteString("| Dimension | Exact % | Within % | MAE | Correlation |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, dim := range r.Dimensions {
		b.WriteString(fmt.Sprintf("| %s | %.1f | %.1f | %.2f | %s |\n",
			dim, r.ExactAgreement[dim], r.WithinTolerance[dim], r.MeanAbsoluteError[dim], r.Correlation[dim]))
	}

	var disagreements []types.SampleDiff
	for _, d := range r.Details {
		if d.Diff != 0 {
			disagreements = append(disagreements, d)
		}
	}
	if len(disagreements) > 0 {
		sort.SliceStable(disagreements, func(i, j int) bool {
			return abs(disagreements[i].Diff) > abs(disagreements[j].Diff)
		})
		b.WriteString("\n## Disagreements\n\n")
		b.WriteString("| Sample | Human | LLM | Diff | Notes |\n")
		b.WriteString("|---|---:|---:|---:|---|\n")
		for _, d := range disagreements {
			b.WriteString(fmt.Sprintf("| %s | %g | %g | %+g | %s |\n", escape(d.SampleID), d.HumanOverall, d.LLMOverall, d.Diff, escape(dash(d.HumanNotes))))
		}
	}
	return b.String()
}

// BuildKappaMarkdown renders a kappa result with its rater-by-rater grid.
func BuildKappaMarkdown(title string, r types.KappaResult) string {
	name := "Cohen's Kappa"
	if r.Weighted {
		name = "Weighted Kappa"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", title))
	b.WriteString(fmt.Sprintf("**Samples:** %d\n\n", r.Samples))
	b.WriteString("## Results\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	b.WriteString(fmt.Sprintf("| %s | %.4f |\n", name, r.Kappa))
	b.WriteString(fmt.Sprintf("| Interpretation | %s |\n", r.Interpretation))
	b.WriteString(fmt.Sprintf("| Observed Agreement | %.4f |\n", r.ObservedAgreement))
	b.WriteString(fmt.Sprintf("| Expected Agreement | %.4f |\n", r.ExpectedAgreement))

	b.WriteString("\n## Confusion Matrix\n\n")
	b.WriteString("| A \\ B |")
	for _, l := range r.Labels {
		b.WriteString(fmt.Sprintf(" %s |", escape(l)))
	}
	b.WriteString("\n|---|" + strings.Repeat("---:|", len(r.Labels)) + "\n")
	for _, row := range r.Labels {
		b.WriteString(fmt.Sprintf("| %s |", escape(row)))
		for _, col := range r.Labels {
			b.WriteString(fmt.Sprintf(" %d |", r.ConfusionMatrix[row][col]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func ptr(v *float64, decimals int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
