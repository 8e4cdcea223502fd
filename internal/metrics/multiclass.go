package metrics

import (
	"github.com/ogulcanaydogan/kwscore/internal/confusion"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

// MultiClass derives one-vs-rest metrics for every class in the alphabet.
// Macro F1 is the unweighted mean of the rounded per-class F1 values over the
// whole alphabet, so classes without support pull the mean down.
func MultiClass(m confusion.CountMatrix, names []string) types.MultiClassMetrics {
	out := types.MultiClassMetrics{
		Classes:               append([]string(nil), m.Classes...),
		PerClass:              make(map[string]types.ClassMetrics, len(m.Classes)),
		Total:                 m.Total(),
		Correct:               m.Correct(),
		ConfusionMatrix:       make(map[string]map[string]int, len(m.Classes)),
		ExpectedDistribution:  make(map[string]int, len(m.Classes)),
		PredictedDistribution: make(map[string]int, len(m.Classes)),
		Excluded:              m.Excluded,
		Duplicates:            m.Duplicates,
	}
	if out.Total > 0 {
		acc := Round(pct(out.Correct, out.Total), 1)
		out.Accuracy = &acc
	}

	sumF1 := 0.0
	for i, class := range m.Classes {
		tp := m.Count(class, class)
		support := m.RowSum(class)
		predicted := m.ColSum(class)
		fp := predicted - tp
		fn := support - tp

		precision := pct(tp, tp+fp)
		recall := pct(tp, tp+fn)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		cm := types.ClassMetrics{
			TP:        tp,
			FP:        fp,
			FN:        fn,
			Support:   support,
			Precision: Round(precision, 1),
			Recall:    Round(recall, 1),
			F1:        Round(f1, 1),
		}
		if i < len(names) {
			cm.Name = names[i]
		}
		out.PerClass[class] = cm
		sumF1 += cm.F1

		row := make(map[string]int, len(m.Classes))
		for _, act := range m.Classes {
			row[act] = m.Count(class, act)
		}
		out.ConfusionMatrix[class] = row
		out.ExpectedDistribution[class] = support
		out.PredictedDistribution[class] = predicted
	}
	if len(m.Classes) > 0 {
		out.MacroF1 = Round(sumF1/float64(len(m.Classes)), 1)
	}
	return out
}
