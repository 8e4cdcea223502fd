package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

// Table is the declarative per-module scoring configuration, keyed by
// normalized module id.
type Table map[string]types.ModuleScoreConfig

func binary(id, name, field, rubric string, labels types.BucketLabels) types.ModuleScoreConfig {
	return types.ModuleScoreConfig{
		ID:             id,
		Name:           name,
		Mode:           types.ModeBinary,
		ExpectedFields: []string{field},
		OutputFields:   []string{field},
		PrimaryRubric:  rubric,
		Labels:         labels,
	}
}

func rubricOnly(id, name, rubric string) types.ModuleScoreConfig {
	return types.ModuleScoreConfig{ID: id, Name: name, Mode: types.ModeRubric, PrimaryRubric: rubric}
}

func relevancyBinary(id, name, positive, rubric string, nullIsNegative bool, labels types.BucketLabels) types.ModuleScoreConfig {
	return types.ModuleScoreConfig{
		ID:               id,
		Name:             name,
		Mode:             types.ModeBinary,
		ExpectedFields:   []string{"relevancy"},
		OutputFields:     []string{"relevancy"},
		PositiveExpected: positive,
		PositiveOutput:   positive,
		NullIsNegative:   nullIsNegative,
		PrimaryRubric:    rubric,
		Labels:           labels,
	}
}

// DefaultTable returns the built-in module table for the keyword
// classification pipeline.
func DefaultTable() Table {
	ownBrand := types.BucketLabels{TP: "OB", TN: "Null", FP: "Null→OB", FN: "OB→Null"}
	compBrand := types.BucketLabels{TP: "CB", TN: "Null", FP: "Null→CB", FN: "CB→Null"}
	nonBranded := types.BucketLabels{TP: "NB", TN: "Branded", FP: "Brand→NB", FN: "NB→Brand"}

	modules := []types.ModuleScoreConfig{
		rubricOnly("m01", "Extract own brand entities", "M01_brand_extracted"),
		rubricOnly("m01a", "Extract own brand variations", "M01a_has_variations"),
		rubricOnly("m01b", "Extract brand related terms", ""),
		binary("m02", "Classify own brand", "branding_scope_1", "M02_correct_classification", ownBrand),
		binary("m02b", "Classify own brand (path B)", "branding_scope_1", "M02_correct_classification", ownBrand),
		rubricOnly("m03", "Generate competitor entities", ""),
		binary("m04", "Classify competitor brand", "branding_scope_2", "M04_correct_classification", compBrand),
		binary("m04b", "Classify competitor brand (path B)", "branding_scope_2", "M04_correct_classification", compBrand),
		binary("m05", "Classify non-branded", "branding_scope_3", "M05_correct_classification", nonBranded),
		binary("m05b", "Classify non-branded (path B)", "branding_scope_3", "M05_correct_classification", nonBranded),
		rubricOnly("m06", "Generate product type taxonomy", "M06_hierarchy_correct"),
		rubricOnly("m07", "Extract product attributes", "M07_attributes_from_listing"),
		rubricOnly("m08", "Assign attribute ranks", "M08_ranks_assigned"),
		rubricOnly("m09", "Identify primary intended use", "M09_captures_core_purpose"),
		rubricOnly("m10", "Validate primary intended use", "M10_invalid_correctly_flagged"),
		rubricOnly("m11", "Identify hard constraints", "M11_critical_not_missed"),
		{
			ID:               "m12",
			Name:             "Hard constraint violation check",
			Mode:             types.ModeBinary,
			ExpectedFields:   []string{"relevancy"},
			OutputFields:     []string{"violates_constraint"},
			PositiveExpected: "N",
			PositiveOutput:   true,
			NullIsNegative:   true,
			PrimaryRubric:    "M12_correct_classification",
			Labels:           types.BucketLabels{TP: "Violates", TN: "OK", FP: "OK→Violates", FN: "Violates→OK"},
		},
		{
			ID:             "m12b",
			Name:           "Combined relevancy classification",
			Mode:           types.ModeMultiClass,
			ExpectedFields: []string{"relevancy"},
			OutputFields:   []string{"relevancy"},
			Classes:        []string{"R", "N", "S", "C"},
			ClassNames:     []string{"Relevant", "Not Relevant", "Substitute", "Complementary"},
			PrimaryRubric:  "M12_correct_classification",
		},
		{
			ID:             "m13",
			Name:           "Product type check",
			Mode:           types.ModeBinary,
			ExpectedFields: []string{"same_type"},
			OutputFields:   []string{"same_product_type", "same_type"},
			PrimaryRubric:  "M13_same_type_correct",
			Labels:         types.BucketLabels{TP: "Match", TN: "Diff", FP: "Diff→Match", FN: "Match→Diff"},
		},
		relevancyBinary("m14", "Primary use check", "R", "M14_same_use_correct", false,
			types.BucketLabels{TP: "R", TN: "-", FP: "-", FN: "R→Other"}),
		relevancyBinary("m15", "Substitute check", "S", "M15_substitute_correct", true,
			types.BucketLabels{TP: "S", TN: "not-S", FP: "null→S", FN: "S→not-S"}),
		relevancyBinary("m16", "Complementary check", "C", "M16_complementary_correct", false,
			types.BucketLabels{TP: "C", TN: "-", FP: "-", FN: "C→N"}),
	}
	t := make(Table, len(modules))
	for _, m := range modules {
		t[m.ID] = m
	}
	return t
}

var (
	versionSuffix = regexp.MustCompile(`_v\d+.*$`)
	geminiSuffix  = regexp.MustCompile(`_gemini.*$`)
	gptSuffix     = regexp.MustCompile(`_gpt.*$`)
	splitSuffix   = regexp.MustCompile(`_(sd|gd)$`)
)

// NormalizeModuleID strips run decorations from a module id:
// "M01_v3_gemini" and "m01_gpt4omini" both become "m01".
func NormalizeModuleID(module string) string {
	base := strings.ToLower(strings.TrimSpace(module))
	base = versionSuffix.ReplaceAllString(base, "")
	base = geminiSuffix.ReplaceAllString(base, "")
	base = gptSuffix.ReplaceAllString(base, "")
	base = splitSuffix.ReplaceAllString(base, "")
	return base
}

func (t Table) Lookup(module string) (types.ModuleScoreConfig, error) {
	id := NormalizeModuleID(module)
	cfg, ok := t[id]
	if !ok {
		return types.ModuleScoreConfig{}, fmt.Errorf("unknown module %q", module)
	}
	return cfg, nil
}

// PrimaryRubric returns the module's primary rubric, or "" when the module is
// unknown or has none.
func (t Table) PrimaryRubric(module string) string {
	cfg, err := t.Lookup(module)
	if err != nil {
		return ""
	}
	return cfg.PrimaryRubric
}

func (t Table) IDs() []string {
	out := make([]string, 0, len(t))
	for id := range t {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Merge overlays module entries onto the table. Fields left empty in an
// override keep the table's value; the mode always comes from the override
// when set.
func (t Table) Merge(overrides []types.ModuleScoreConfig) (Table, error) {
	out := make(Table, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for _, o := range overrides {
		id := NormalizeModuleID(o.ID)
		if id == "" {
			return nil, fmt.Errorf("module override without id")
		}
		base := out[id]
		base.ID = id
		if o.Name != "" {
			base.Name = o.Name
		}
		if o.Mode != "" {
			base.Mode = o.Mode
		}
		if len(o.ExpectedFields) > 0 {
			base.ExpectedFields = o.ExpectedFields
		}
		if len(o.OutputFields) > 0 {
			base.OutputFields = o.OutputFields
		}
		if o.PositiveExpected != nil {
			base.PositiveExpected = o.PositiveExpected
		}
		if o.PositiveOutput != nil {
			base.PositiveOutput = o.PositiveOutput
		}
		if o.NullIsNegative {
			base.NullIsNegative = true
		}
		if o.SkipMissingExpected {
			base.SkipMissingExpected = true
		}
		if len(o.Classes) > 0 {
			base.Classes = o.Classes
			base.ClassNames = o.ClassNames
		}
		if o.PrimaryRubric != "" {
			base.PrimaryRubric = o.PrimaryRubric
		}
		if o.Labels != (types.BucketLabels{}) {
			base.Labels = o.Labels
		}
		if err := validate(base); err != nil {
			return nil, err
		}
		out[id] = base
	}
	return out, nil
}

func validate(m types.ModuleScoreConfig) error {
	switch m.Mode {
	case types.ModeBinary, types.ModeRubric:
		return nil
	case types.ModeMultiClass:
		if len(m.Classes) == 0 {
			return fmt.Errorf("module %s: multiclass mode requires classes", m.ID)
		}
		return nil
	case "":
		return fmt.Errorf("module %s: mode is required", m.ID)
	default:
		return fmt.Errorf("module %s: unsupported mode %q", m.ID, m.Mode)
	}
}
