package hash

import "strings"

// SampleKey derives the identity of a judged sample: the input keyword when
// present, then the explicit sample id, then the input itself (verbatim for
// strings, canonical digest for structured input). An empty result means the
// sample cannot be identified.
func SampleKey(input any, sampleID string) string {
	if m, ok := input.(map[string]any); ok {
		if kw, ok := m["keyword"].(string); ok && strings.TrimSpace(kw) != "" {
			return kw
		}
	}
	if sampleID != "" {
		return sampleID
	}
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if len(v) == 0 {
			return ""
		}
	}
	digest, _, err := HashCanonicalJSON(input)
	if err != nil {
		return ""
	}
	return digest
}
