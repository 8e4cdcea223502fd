package metrics

import (
	"math"
	"strconv"

	"github.com/ogulcanaydogan/kwscore/internal/confusion"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

// Round rounds the exact binary value of v to the given number of decimals,
// breaking ties to even.
func Round(v float64, decimals int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func pct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// Binary computes the headline metrics for a 2×2 matrix. Accuracy is nil for
// an empty matrix; precision, recall and F1 fall back to 0 when their
// denominators vanish, and MCC is 0 when any marginal is empty.
func Binary(tp, tn, fp, fn int) types.BinaryMetrics {
	total := tp + tn + fp + fn
	m := types.BinaryMetrics{TP: tp, TN: tn, FP: fp, FN: fn, Total: total}
	if total > 0 {
		acc := Round(pct(tp+tn, total), 1)
		m.Accuracy = &acc
	}
	precision := pct(tp, tp+fp)
	recall := pct(tp, tp+fn)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	m.Precision = Round(precision, 1)
	m.Recall = Round(recall, 1)
	m.F1 = Round(f1, 1)
	m.MCC = Round(mcc(tp, tn, fp, fn), 3)
	return m
}

func mcc(tp, tn, fp, fn int) float64 {
	TP, TN, FP, FN := float64(tp), float64(tn), float64(fp), float64(fn)
	den := math.Sqrt((TP + FP) * (TP + FN) * (TN + FP) * (TN + FN))
	if den == 0 {
		return 0
	}
	return (TP*TN - FP*FN) / den
}

// FromMatrix computes metrics for a built matrix and carries its
// diagnostic counters along.
func FromMatrix(m confusion.BinaryMatrix, labels types.BucketLabels) types.BinaryMetrics {
	out := Binary(m.TP, m.TN, m.FP, m.FN)
	out.Skipped = m.Skipped
	out.Excluded = m.Excluded
	out.Duplicates = m.Duplicates
	out.Labels = labels
	return out
}
