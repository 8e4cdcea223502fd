package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/kwscore/internal/store"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// RenderTable prints one line per module result.
func RenderTable(w io.Writer, s types.Summary) error {
	t := newTable(w, []string{"Module", "Key", "Model", "Records", "TP", "TN", "FP", "FN", "Accuracy", "F1", "MCC", "Macro F1", "Match", "Error"})
	for _, r := range s.Results {
		row := []string{r.Module, r.Key, dash(r.Model), strconv.Itoa(r.Records)}
		if bm := r.Binary; bm != nil {
			row = append(row,
				strconv.Itoa(bm.TP), strconv.Itoa(bm.TN), strconv.Itoa(bm.FP), strconv.Itoa(bm.FN),
				ptr(bm.Accuracy, 1), fmt.Sprintf("%.1f", bm.F1), fmt.Sprintf("%.3f", bm.MCC), "-")
		} else if mc := r.MultiClass; mc != nil {
			row = append(row, "-", "-", "-", "-", ptr(mc.Accuracy, 1), "-", "-", fmt.Sprintf("%.1f", mc.MacroF1))
		} else {
			row = append(row, "-", "-", "-", "-", "-", "-", "-", "-")
		}
		row = append(row, ptr(r.MatchRate, 2), dash(r.Error))
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}

// RenderConfusionGrid prints the expected-by-predicted count grid of a
// multi-class result.
func RenderConfusionGrid(w io.Writer, mc types.MultiClassMetrics) error {
	headers := append([]string{"Expected \\ Predicted"}, mc.Classes...)
	t := newTable(w, headers)
	for _, exp := range mc.Classes {
		row := []string{exp}
		for _, act := range mc.Classes {
			row = append(row, strconv.Itoa(mc.ConfusionMatrix[exp][act]))
		}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}

func RenderAgreementTable(w io.Writer, r types.AgreementReport) error {
	t := newTable(w, []string{"Dimension", "Exact %", "Within %", "MAE", "Correlation"})
	for _, dim := range r.Dimensions {
		row := []string{
			dim,
			fmt.Sprintf("%.1f", r.ExactAgreement[dim]),
			fmt.Sprintf("%.1f", r.WithinTolerance[dim]),
			fmt.Sprintf("%.2f", r.MeanAbsoluteError[dim]),
			r.Correlation[dim].String(),
		}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}

// RenderKappaTable prints the grid of first-rater labels against
// second-rater labels.
func RenderKappaTable(w io.Writer, r types.KappaResult) error {
	t := newTable(w, append([]string{"A \\ B"}, r.Labels...))
	for _, row := range r.Labels {
		cells := []string{row}
		for _, col := range r.Labels {
			cells = append(cells, strconv.Itoa(r.ConfusionMatrix[row][col]))
		}
		if err := t.Append(cells); err != nil {
			return err
		}
	}
	return t.Render()
}

// RenderPanelTable prints the aggregated label of every sample judged by a
// panel, split decisions first.
func RenderPanelTable(w io.Writer, p types.PanelResult) error {
	t := newTable(w, []string{"Sample", "Rubric", "Label", "Pass", "Fail", "Agreement", "Review"})
	rows := make([]types.AggregatedVerdict, 0, len(p.Verdicts))
	for _, v := range p.Verdicts {
		if !v.Agreement {
			rows = append(rows, v)
		}
	}
	for _, v := range p.Verdicts {
		if v.Agreement {
			rows = append(rows, v)
		}
	}
	for _, v := range rows {
		label := string(v.FinalLabel)
		if v.Error {
			label += " (error)"
		}
		row := []string{
			v.SampleKey, v.RubricID, label,
			strconv.Itoa(v.PassVotes), strconv.Itoa(v.FailVotes),
			fmt.Sprintf("%.2f", v.AgreementRate), strconv.FormatBool(v.NeedsReview),
		}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}

// RenderRuns prints recorded history runs.
func RenderRuns(w io.Writer, runs []store.RunEntry) error {
	t := newTable(w, []string{"Run", "Key", "Module", "Prompt", "Model", "Dataset", "Timestamp", "Records", "Pass Rate", "Match Rate"})
	for _, r := range runs {
		row := []string{
			r.RunID, r.Key, r.Module, dash(r.PromptVersion), dash(r.Model), dash(r.Dataset),
			r.Timestamp.UTC().Format(time.RFC3339), strconv.Itoa(r.Records),
			ptr(r.PassRate, 2), ptr(r.MatchRate, 2),
		}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}
