package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ogulcanaydogan/kwscore/internal/config"
	"github.com/ogulcanaydogan/kwscore/internal/hash"
	"github.com/ogulcanaydogan/kwscore/pkg/schema"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

// header carries the file-level fields of a judge-result document.
type header struct {
	Module        string `json:"module"`
	Model         string `json:"model"`
	PromptVersion string `json:"prompt_version"`
	Timestamp     string `json:"timestamp"`
	DataSource    string `json:"data_source"`
}

// parsedFile is one file reduced to records in first-appearance order.
type parsedFile struct {
	info       types.SourceInfo
	records    []types.EvaluationRecord
	duplicates int
}

type fileBuilder struct {
	validator  *schema.Validator
	judge      string
	timestamp  time.Time
	source     string
	index      map[string]int
	records    []types.EvaluationRecord
	skipped    int
	duplicates int
	entries    int
}

func newFileBuilder(v *schema.Validator, source, judge string, ts time.Time) *fileBuilder {
	return &fileBuilder{
		validator: v,
		judge:     judge,
		timestamp: ts,
		source:    source,
		index:     map[string]int{},
	}
}

// add folds one decoded entry into the file's records. Additional rubrics for
// a known sample append verdicts; a repeated (sample, rubric) pair keeps the
// first occurrence.
func (b *fileBuilder) add(entry map[string]any) error {
	b.entries++
	violations, err := b.validator.Validate(entry)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		b.skipped++
		return nil
	}
	sampleID := scalarString(entry["sample_id"])
	key := hash.SampleKey(entry["input"], sampleID)
	if key == "" {
		b.skipped++
		return nil
	}
	rubricID, _ := entry["rubric_id"].(string)
	var verdict *types.RubricVerdict
	if rubricID != "" {
		criterion, _ := entry["criterion"].(string)
		raw, _ := entry["verdict"].(string)
		var reasoning *string
		if s, ok := entry["reasoning"].(string); ok {
			reasoning = &s
		}
		verdict = &types.RubricVerdict{
			RubricID:  rubricID,
			Criterion: criterion,
			Verdict:   types.ParseVerdict(raw),
			Reasoning: reasoning,
			Judge:     b.judge,
		}
	}

	if i, ok := b.index[key]; ok {
		rec := &b.records[i]
		if verdict == nil || rec.HasRubric(rubricID) {
			b.duplicates++
			return nil
		}
		rec.Verdicts = append(rec.Verdicts, *verdict)
		return nil
	}
	rec := types.EvaluationRecord{
		SampleKey: key,
		SampleID:  sampleID,
		Input:     asObject(entry["input"]),
		Output:    asObject(entry["output"]),
		Expected:  asObject(entry["expected"]),
		Metadata:  asObject(entry["metadata"]),
		Source:    b.source,
		Timestamp: b.timestamp,
	}
	if verdict != nil {
		rec.Verdicts = []types.RubricVerdict{*verdict}
	}
	b.index[key] = len(b.records)
	b.records = append(b.records, rec)
	return nil
}

// parse decodes raw according to the location's extension.
func parse(v *schema.Validator, location string, raw []byte, modTime time.Time, meta *config.Meta) (parsedFile, error) {
	run := config.ParseRunInfo(location)
	h := header{Module: run.Module, Model: run.Model, PromptVersion: run.PromptVersion, Timestamp: run.Timestamp}
	if meta != nil {
		overlayMeta(&h, *meta)
	}

	var entries []map[string]any
	var skipped int
	var err error
	switch strings.ToLower(path.Ext(location)) {
	case ".jsonl":
		entries, skipped = decodeJSONL(raw)
	case ".csv":
		entries, skipped, err = decodeCSV(raw)
	default:
		var fileHeader header
		entries, fileHeader, skipped, err = decodeJSON(raw)
		overlayHeader(&h, fileHeader)
	}
	if err != nil {
		return parsedFile{}, err
	}

	ts := parseTimestamp(h.Timestamp, modTime)
	b := newFileBuilder(v, location, h.Model, ts)
	b.skipped = skipped
	b.entries = skipped
	for _, e := range entries {
		if err := b.add(e); err != nil {
			return parsedFile{}, err
		}
	}

	dataset := run.Dataset
	if h.DataSource != "" {
		base := path.Base(strings.ReplaceAll(h.DataSource, "\\", "/"))
		dataset = strings.TrimSuffix(base, path.Ext(base))
	}
	return parsedFile{
		info: types.SourceInfo{
			Location:      location,
			Digest:        hash.DigestBytes(raw),
			Module:        h.Module,
			Model:         h.Model,
			PromptVersion: h.PromptVersion,
			Dataset:       dataset,
			Timestamp:     ts,
			Entries:       b.entries,
			Skipped:       b.skipped,
		},
		records:    b.records,
		duplicates: b.duplicates,
	}, nil
}

func overlayHeader(h *header, from header) {
	if from.Module != "" {
		h.Module = from.Module
	}
	if from.Model != "" {
		h.Model = from.Model
	}
	if from.PromptVersion != "" {
		h.PromptVersion = from.PromptVersion
	}
	if from.Timestamp != "" {
		h.Timestamp = from.Timestamp
	}
	if from.DataSource != "" {
		h.DataSource = from.DataSource
	}
}

func overlayMeta(h *header, m config.Meta) {
	overlayHeader(h, header{Module: m.Module, Model: m.Model, Timestamp: m.Timestamp, DataSource: m.DatasetName})
}

// decodeJSON reads a judge-result document: an object with an evaluations,
// results or items list, or a bare list of entries.
func decodeJSON(raw []byte) ([]map[string]any, header, int, error) {
	var h header
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []any
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, h, 0, fmt.Errorf("parse json: %w", err)
		}
		entries, skipped := objects(list)
		return entries, h, skipped, nil
	}
	var doc struct {
		header
		Evaluations []any `json:"evaluations"`
		Results     []any `json:"results"`
		Items       []any `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, h, 0, fmt.Errorf("parse json: %w", err)
	}
	list := doc.Evaluations
	if list == nil {
		list = doc.Results
	}
	if list == nil {
		list = doc.Items
	}
	entries, skipped := objects(list)
	return entries, doc.header, skipped, nil
}

func objects(list []any) ([]map[string]any, int) {
	out := make([]map[string]any, 0, len(list))
	skipped := 0
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		out = append(out, m)
	}
	return out, skipped
}

// decodeJSONL reads one entry object per line. Blank lines are ignored and
// malformed lines are counted.
func decodeJSONL(raw []byte) ([]map[string]any, int) {
	var out []map[string]any
	skipped := 0
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil || m == nil {
			skipped++
			continue
		}
		out = append(out, m)
	}
	if sc.Err() != nil {
		skipped++
	}
	return out, skipped
}

var jsonColumns = map[string]bool{"input": true, "output": true, "expected": true, "metadata": true}

// decodeCSV reads an export with JSON-encoded input/output/expected/metadata
// columns. Rows with the wrong field count are counted as skipped.
func decodeCSV(raw []byte) ([]map[string]any, int, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cols, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(cols[i], "\ufeff"))
	}
	var out []map[string]any
	skipped := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || len(row) != len(cols) {
			skipped++
			continue
		}
		entry := map[string]any{}
		for i, name := range cols {
			cell := strings.TrimSpace(row[i])
			if cell == "" || name == "" {
				continue
			}
			if jsonColumns[name] {
				var v any
				if err := json.Unmarshal([]byte(cell), &v); err == nil {
					entry[name] = v
					continue
				}
			}
			entry[name] = cell
		}
		if _, ok := entry["sample_id"]; !ok {
			for _, alt := range []string{"id", "ASIN"} {
				if v, ok := entry[alt]; ok {
					entry["sample_id"] = v
					break
				}
			}
		}
		out = append(out, entry)
	}
	return out, skipped, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102_150405",
}

func parseTimestamp(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback.UTC()
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

// asObject keeps structured values as they are and wraps scalars so field
// lookup still finds them.
func asObject(v any) map[string]any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return t
	default:
		return map[string]any{"value": t}
	}
}
