package confusion

import (
	"github.com/ogulcanaydogan/kwscore/internal/labels"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

// CountMatrix is an N×N grid over a fixed class alphabet, indexed
// [expected][actual].
type CountMatrix struct {
	Classes    []string                  `json:"classes"`
	Cells      map[string]map[string]int `json:"cells"`
	Excluded   int                       `json:"excluded"`
	Duplicates int                       `json:"duplicates"`
}

func NewCountMatrix(classes []string) CountMatrix {
	cells := make(map[string]map[string]int, len(classes))
	for _, exp := range classes {
		row := make(map[string]int, len(classes))
		for _, act := range classes {
			row[act] = 0
		}
		cells[exp] = row
	}
	return CountMatrix{Classes: append([]string(nil), classes...), Cells: cells}
}

func (m CountMatrix) Count(expected, actual string) int {
	return m.Cells[expected][actual]
}

// Add records one pair. Pairs outside the alphabet are ignored and reported
// as not added.
func (m *CountMatrix) Add(expected, actual string) bool {
	row, ok := m.Cells[expected]
	if !ok {
		return false
	}
	if _, ok := row[actual]; !ok {
		return false
	}
	row[actual]++
	return true
}

func (m CountMatrix) Total() int {
	n := 0
	for _, row := range m.Cells {
		for _, c := range row {
			n += c
		}
	}
	return n
}

func (m CountMatrix) Correct() int {
	n := 0
	for _, c := range m.Classes {
		n += m.Cells[c][c]
	}
	return n
}

// RowSum is the number of samples whose expected label is class.
func (m CountMatrix) RowSum(class string) int {
	n := 0
	for _, c := range m.Cells[class] {
		n += c
	}
	return n
}

// ColSum is the number of samples predicted as class.
func (m CountMatrix) ColSum(class string) int {
	n := 0
	for _, row := range m.Cells {
		n += row[class]
	}
	return n
}

// BuildMultiClass folds records into a count matrix over cfg.Classes. A
// record whose expected or actual label falls outside the alphabet is left
// out of the grid and every total.
func BuildMultiClass(records []types.EvaluationRecord, cfg types.ModuleScoreConfig) CountMatrix {
	cfg.Mode = types.ModeMultiClass
	m := NewCountMatrix(cfg.Classes)
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.SampleKey]; dup {
			m.Duplicates++
			continue
		}
		seen[rec.SampleKey] = struct{}{}
		if !Participates(rec, cfg.PrimaryRubric) {
			m.Excluded++
			continue
		}
		expRaw, expOK := labels.Lookup(rec.Expected, cfg.ExpectedFields)
		actRaw, actOK := labels.Lookup(rec.Output, cfg.OutputFields)
		expected := labels.Normalize(expRaw, expOK, cfg, labels.Expected)
		actual := labels.Normalize(actRaw, actOK, cfg, labels.Actual)
		if !expected.Scoreable || !actual.Scoreable || !m.Add(expected.Class, actual.Class) {
			m.Excluded++
		}
	}
	return m
}
