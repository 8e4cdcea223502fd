package agreement

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/ogulcanaydogan/kwscore/pkg/schema"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

var humanColumns = map[string]string{
	"human_accuracy":     "accuracy",
	"human_completeness": "completeness",
	"human_clarity":      "clarity",
	"human_relevance":    "relevance",
	"human_helpfulness":  "helpfulness",
}

// LoadHumanLabels reads a human-label CSV keyed by sample_id. Rows without a
// sample id or with an unparseable score are skipped and counted; a later
// row for the same sample replaces the earlier one.
func LoadHumanLabels(ctx context.Context, path string) (map[string]types.Scores, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open human labels %s: %w", path, err)
	}
	defer f.Close()
	return ReadHumanLabels(ctx, f)
}

func ReadHumanLabels(ctx context.Context, r io.Reader) (map[string]types.Scores, int, error) {
	log := clog.FromContext(ctx)
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read human label header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := col["sample_id"]; !ok {
		return nil, 0, fmt.Errorf("human labels missing sample_id column")
	}
	if _, ok := col["human_score"]; !ok {
		return nil, 0, fmt.Errorf("human labels missing human_score column")
	}

	out := map[string]types.Scores{}
	skipped := 0
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped++
			log.Warnf("human labels line %d: %v", line, err)
			continue
		}
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		id := field("sample_id")
		if id == "" {
			skipped++
			continue
		}
		s, err := parseHumanRow(field)
		if err != nil {
			skipped++
			log.Warnf("human labels line %d (%s): %v", line, id, err)
			continue
		}
		out[id] = s
	}
	return out, skipped, nil
}

func parseHumanRow(field func(string) string) (types.Scores, error) {
	var s types.Scores
	overall, err := strconv.ParseFloat(field("human_score"), 64)
	if err != nil {
		return s, fmt.Errorf("human_score: %w", err)
	}
	s.Overall = overall
	for column, dim := range humanColumns {
		raw := field(column)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %w", column, err)
		}
		switch dim {
		case "accuracy":
			s.Accuracy = v
		case "completeness":
			s.Completeness = v
		case "clarity":
			s.Clarity = v
		case "relevance":
			s.Relevance = v
		case "helpfulness":
			s.Helpfulness = v
		}
	}
	s.Notes = field("human_notes")
	return s, nil
}

type llmEntry struct {
	SampleID json.RawMessage `json:"sample_id"`
	Result   struct {
		Overall    *float64           `json:"overall"`
		FinalScore *float64           `json:"final_score"`
		Scores     map[string]float64 `json:"scores"`
	} `json:"result"`
}

// LoadLLMScores reads a judge score file ({"results": [...]}). Entries that
// fail validation are skipped and counted. The judge's "reasoning" score is
// carried as helpfulness.
func LoadLLMScores(ctx context.Context, path string) (map[string]types.Scores, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read llm scores %s: %w", path, err)
	}
	return ParseLLMScores(ctx, raw)
}

func ParseLLMScores(ctx context.Context, raw []byte) (map[string]types.Scores, int, error) {
	log := clog.FromContext(ctx)
	var doc struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, 0, fmt.Errorf("parse llm scores: %w", err)
	}
	v, err := schema.Load(schema.LLMScoreEntry)
	if err != nil {
		return nil, 0, err
	}

	out := make(map[string]types.Scores, len(doc.Results))
	skipped := 0
	for i, item := range doc.Results {
		var generic any
		if err := json.Unmarshal(item, &generic); err != nil {
			skipped++
			continue
		}
		violations, err := v.Validate(generic)
		if err != nil {
			return nil, 0, err
		}
		if len(violations) > 0 {
			skipped++
			log.Warnf("llm score entry %d: %s", i, strings.Join(violations, "; "))
			continue
		}
		var e llmEntry
		if err := json.Unmarshal(item, &e); err != nil {
			skipped++
			continue
		}
		id := sampleID(e.SampleID)
		if id == "" {
			skipped++
			continue
		}
		s := types.Scores{
			Accuracy:     e.Result.Scores["accuracy"],
			Completeness: e.Result.Scores["completeness"],
			Clarity:      e.Result.Scores["clarity"],
			Relevance:    e.Result.Scores["relevance"],
			Helpfulness:  e.Result.Scores["reasoning"],
		}
		switch {
		case e.Result.Overall != nil:
			s.Overall = *e.Result.Overall
		case e.Result.FinalScore != nil:
			s.Overall = *e.Result.FinalScore
		}
		out[id] = s
	}
	return out, skipped, nil
}

func sampleID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
