package types

type ScoreMode string

const (
	ModeBinary     ScoreMode = "binary"
	ModeMultiClass ScoreMode = "multiclass"
	ModeRubric     ScoreMode = "rubric"
)

// BucketLabels are the display names a module uses for its confusion buckets.
type BucketLabels struct {
	TP string `yaml:"tp" json:"tp"`
	TN string `yaml:"tn" json:"tn"`
	FP string `yaml:"fp" json:"fp"`
	FN string `yaml:"fn" json:"fn"`
}

type ModuleScoreConfig struct {
	ID                  string       `yaml:"id" json:"id"`
	Name                string       `yaml:"name" json:"name"`
	Mode                ScoreMode    `yaml:"mode" json:"mode"`
	ExpectedFields      []string     `yaml:"expected_fields" json:"expected_fields,omitempty"`
	OutputFields        []string     `yaml:"output_fields" json:"output_fields,omitempty"`
	PositiveExpected    any          `yaml:"positive_expected" json:"positive_expected,omitempty"`
	PositiveOutput      any          `yaml:"positive_output" json:"positive_output,omitempty"`
	NullIsNegative      bool         `yaml:"null_is_negative" json:"null_is_negative,omitempty"`
	SkipMissingExpected bool         `yaml:"skip_missing_expected" json:"skip_missing_expected,omitempty"`
	Classes             []string     `yaml:"classes" json:"classes,omitempty"`
	ClassNames          []string     `yaml:"class_names" json:"class_names,omitempty"`
	PrimaryRubric       string       `yaml:"primary_rubric" json:"primary_rubric,omitempty"`
	Labels              BucketLabels `yaml:"labels" json:"labels"`
}

func (c ModuleScoreConfig) HasClass(label string) bool {
	for _, cl := range c.Classes {
		if cl == label {
			return true
		}
	}
	return false
}
