package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	DefaultPromptVersion = "v1"
	DefaultModel         = "gpt-4o-mini"
)

// RunInfo describes an experiment as encoded in a result file name and its
// optional .meta.json sidecar.
type RunInfo struct {
	Module         string `json:"module,omitempty"`
	PromptVersion  string `json:"prompt_version"`
	DatasetVersion string `json:"dataset_version,omitempty"`
	Model          string `json:"model"`
	Dataset        string `json:"dataset,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// Meta is the sidecar written next to CSV exports.
type Meta struct {
	Module         string `json:"module"`
	Model          string `json:"model"`
	DatasetName    string `json:"dataset_name"`
	ExperimentName string `json:"braintrust_experiment_name"`
	Timestamp      string `json:"timestamp"`
}

var (
	promptVersionRe  = regexp.MustCompile(`_v(\d+)_`)
	datasetVersionRe = regexp.MustCompile(`_V(\d+)_`)
	experimentVerRe  = regexp.MustCompile(`[_\s]v(\d+)[_\s]`)
	datasetDateRe    = regexp.MustCompile(`_(\d{6})_`)
	modulePrefixRe   = regexp.MustCompile(`(?i)^(m\d{2}[a-z]?)(?:[_.]|$)`)

	modelPatterns = []struct {
		re    *regexp.Regexp
		model string
	}{
		{regexp.MustCompile(`(?i)gemini[-_]?2\.?0[-_]?flash`), "gemini-2.0-flash"},
		{regexp.MustCompile(`(?i)gpt[-_]?4o[-_]?mini`), "gpt-4o-mini"},
		{regexp.MustCompile(`(?i)gpt[-_]?4o`), "gpt-4o"},
		{regexp.MustCompile(`(?i)gpt[-_]?5`), "gpt-5"},
	}
)

// MetaPath returns the sidecar location for a result file.
func MetaPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".meta.json"
}

// ReadMeta loads the sidecar for path. ok is false when there is none or it
// cannot be parsed.
func ReadMeta(path string) (Meta, bool) {
	raw, err := os.ReadFile(MetaPath(path))
	if err != nil {
		return Meta{}, false
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return Meta{}, false
	}
	return m, true
}

// ParseRunInfo derives run information for a result file. Sidecar values
// win over anything read from the file name.
func ParseRunInfo(path string) RunInfo {
	info := RunInfo{PromptVersion: DefaultPromptVersion}
	if m, ok := ReadMeta(path); ok {
		info.Module = m.Module
		info.Model = m.Model
		info.Dataset = m.DatasetName
		info.Timestamp = m.Timestamp
		if v := experimentVerRe.FindStringSubmatch(m.ExperimentName); v != nil {
			info.PromptVersion = "v" + v[1]
		}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if info.PromptVersion == DefaultPromptVersion {
		if v := promptVersionRe.FindStringSubmatch(stem + "_"); v != nil {
			info.PromptVersion = "v" + v[1]
		}
	}
	if v := datasetVersionRe.FindStringSubmatch(stem + "_"); v != nil {
		info.DatasetVersion = "V" + v[1]
	}
	if info.Model == "" {
		info.Model = ModelFromName(stem)
	}
	if info.Dataset == "" {
		if d := datasetDateRe.FindStringSubmatch(stem + "_"); d != nil {
			info.Dataset = d[1]
		}
	}
	if info.Module == "" {
		info.Module = ModuleFromFilename(path)
	}
	return info
}

// ModelFromName returns the model named in s, or DefaultModel.
func ModelFromName(s string) string {
	for _, p := range modelPatterns {
		if p.re.MatchString(s) {
			return p.model
		}
	}
	return DefaultModel
}

// ModuleFromFilename returns the normalized module id that prefixes the file
// name ("M12b_v2_gemini_results.json" is m12b), or "".
func ModuleFromFilename(path string) string {
	m := modulePrefixRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return ""
	}
	return NormalizeModuleID(m[1])
}

// RunKey identifies a run for history: module, prompt version and a compact
// model tag.
func RunKey(module string, info RunInfo) string {
	model := strings.NewReplacer("-", "", ".", "", " ", "").Replace(info.Model)
	if len(model) > 10 {
		model = model[:10]
	}
	return NormalizeModuleID(module) + "_" + info.PromptVersion + "_" + model
}
