package schema

import (
	"embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const (
	EvaluationEntry = "evaluation_entry"
	LLMScoreEntry   = "llm_score_entry"
)

//go:embed v1/*.schema.json
var embedded embed.FS

// Validator holds a compiled schema so that large batches of entries do not
// re-parse it per document.
type Validator struct {
	name   string
	schema *gojsonschema.Schema
}

// Load compiles one of the schemas shipped with the binary.
func Load(name string) (*Validator, error) {
	raw, err := embedded.ReadFile("v1/" + name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Validator{name: name, schema: s}, nil
}

// LoadFile compiles a schema from disk, for projects whose result entries
// carry extra required fields.
func LoadFile(schemaPath string) (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewReferenceLoader("file://" + schemaPath))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", schemaPath, err)
	}
	return &Validator{name: schemaPath, schema: s}, nil
}

func (v *Validator) Validate(doc any) ([]string, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", v.name, err)
	}
	return collect(result), nil
}

func collect(result *gojsonschema.Result) []string {
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs
}
