package report

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

func WriteJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

var jsIdent = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// MarshalJS renders v as a JavaScript constant for dashboards that load data
// with a script tag.
func MarshalJS(varName string, v any) ([]byte, error) {
	if !jsIdent.MatchString(varName) {
		return nil, fmt.Errorf("invalid javascript identifier %q", varName)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(raw)+len(varName)+12)
	out = append(out, "const "+varName+" = "...)
	out = append(out, raw...)
	out = append(out, ";\n"...)
	return out, nil
}

func WriteJS(path, varName string, v any) error {
	raw, err := MarshalJS(varName, v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
