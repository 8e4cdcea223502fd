package labels

import (
	"testing"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

func TestIsPositive(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"true", true, true},
		{"false", false, false},
		{"string", "OB", true},
		{"blank string", "   ", false},
		{"empty string", "", false},
		{"zero", 0.0, false},
		{"number", 2.0, true},
		{"empty list", []any{}, false},
		{"list", []any{"x"}, true},
		{"empty object", map[string]any{}, false},
		{"typed slice", []string{"a"}, true},
		{"int64", int64(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPositive(tt.v); got != tt.want {
				t.Errorf("IsPositive(%#v) = %t, want %t", tt.v, got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	fields := map[string]any{"same_product_type": nil, "same_type": true, "zeta": "z"}
	v, ok := Lookup(fields, []string{"same_product_type", "same_type"})
	if !ok || v != true {
		t.Fatalf("Lookup = %v, %t; want true, true", v, ok)
	}
	if _, ok := Lookup(fields, []string{"missing"}); ok {
		t.Fatal("missing field should not be present")
	}
	v, ok = Lookup(map[string]any{"b": "second", "a": "first"}, nil)
	if !ok || v != "first" {
		t.Fatalf("fallback Lookup = %v, want first", v)
	}
	if _, ok := Lookup(nil, []string{"a"}); ok {
		t.Fatal("nil fields should not resolve")
	}
}

func TestNormalizeBinaryDefaultRule(t *testing.T) {
	cfg := types.ModuleScoreConfig{Mode: types.ModeBinary}
	l := Normalize("OB", true, cfg, Expected)
	if !l.Scoreable || !l.Positive {
		t.Fatalf("OB should be a scoreable positive: %+v", l)
	}
	l = Normalize(nil, false, cfg, Expected)
	if !l.Scoreable || l.Positive {
		t.Fatalf("missing value should be a scoreable negative: %+v", l)
	}
}

func TestNormalizeBinaryPositiveValue(t *testing.T) {
	cfg := types.ModuleScoreConfig{
		Mode:             types.ModeBinary,
		PositiveExpected: "N",
		PositiveOutput:   true,
	}
	if l := Normalize("N", true, cfg, Expected); !l.Positive {
		t.Error("N should be positive on the expected side")
	}
	if l := Normalize("R", true, cfg, Expected); l.Positive {
		t.Error("R should be negative on the expected side")
	}
	if l := Normalize(true, true, cfg, Actual); !l.Positive {
		t.Error("true should be positive on the actual side")
	}
	if l := Normalize("true", true, cfg, Actual); l.Positive {
		t.Error("string true must not equal boolean true")
	}
}

func TestNormalizeNullIsNegative(t *testing.T) {
	skip := types.ModuleScoreConfig{Mode: types.ModeBinary, SkipMissingExpected: true}
	if l := Normalize(nil, false, skip, Expected); l.Scoreable {
		t.Fatal("missing expected should be unscoreable when skipping")
	}
	if l := Normalize(nil, false, skip, Actual); !l.Scoreable || l.Positive {
		t.Fatal("missing actual is always a negative")
	}

	neg := skip
	neg.NullIsNegative = true
	missing := Normalize(nil, false, neg, Expected)
	explicit := Normalize(false, true, neg, Expected)
	if !missing.Scoreable || missing.Positive != explicit.Positive {
		t.Fatalf("missing %+v should match explicit negative %+v", missing, explicit)
	}
}

func TestNormalizeMultiClass(t *testing.T) {
	cfg := types.ModuleScoreConfig{Mode: types.ModeMultiClass, Classes: []string{"R", "N", "S", "C"}}
	if l := Normalize("S", true, cfg, Expected); !l.Scoreable || l.Class != "S" {
		t.Fatalf("S should normalize to class S: %+v", l)
	}
	for _, raw := range []any{"s", "X", nil, true, 1.0} {
		if l := Normalize(raw, raw != nil, cfg, Actual); l.Scoreable {
			t.Errorf("%#v should be unscoreable", raw)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal(1.0, 1) {
		t.Error("numbers should compare by value")
	}
	if Equal("1", 1) {
		t.Error("string and number should differ")
	}
	if !Equal("N", "N") {
		t.Error("identical strings should be equal")
	}
	if Equal(nil, "N") {
		t.Error("nil never equals a value")
	}
}

func TestSameString(t *testing.T) {
	both, same := SameString("OB ", "ob")
	if !both || !same {
		t.Errorf("SameString = %t, %t", both, same)
	}
	both, same = SameString("OB", "CB")
	if !both || same {
		t.Errorf("SameString = %t, %t", both, same)
	}
	if both, _ := SameString(true, "OB"); both {
		t.Error("bool is not a string")
	}
}
