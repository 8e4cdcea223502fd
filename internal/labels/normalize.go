package labels

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

type Side int

const (
	Expected Side = iota
	Actual
)

func (s Side) String() string {
	if s == Expected {
		return "expected"
	}
	return "actual"
}

// Label is a normalized ground-truth or judge value. Binary modules use
// Positive; multi-class modules use Class. A label that is not Scoreable
// must be left out of every count.
type Label struct {
	Raw       any
	Present   bool
	Positive  bool
	Class     string
	Scoreable bool
}

// Lookup returns the first non-null value among names. With no names it
// falls back to the lexically first key so single-field outputs work
// without configuration.
func Lookup(fields map[string]any, names []string) (any, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	if len(names) == 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		names = keys[:1]
	}
	for _, name := range names {
		if v, ok := fields[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// IsPositive applies the truthiness rule used for binary labels.
func IsPositive(v any) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case bool:
		return vv
	case string:
		return strings.TrimSpace(vv) != ""
	case float64:
		return vv != 0
	case int:
		return vv != 0
	case []any:
		return len(vv) > 0
	case map[string]any:
		return len(vv) > 0
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map, reflect.Array:
			return rv.Len() > 0
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int() != 0
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return rv.Uint() != 0
		case reflect.Float32:
			return rv.Float() != 0
		}
		return true
	}
}

// Normalize maps one raw field value onto a label according to the module's
// configuration. present reports whether the field existed with a non-null
// value.
func Normalize(raw any, present bool, cfg types.ModuleScoreConfig, side Side) Label {
	l := Label{Raw: raw, Present: present && raw != nil}
	switch cfg.Mode {
	case types.ModeMultiClass:
		s, ok := raw.(string)
		if ok && cfg.HasClass(s) {
			l.Class = s
			l.Scoreable = true
		}
		return l
	default:
		if !l.Present && side == Expected && cfg.SkipMissingExpected && !cfg.NullIsNegative {
			return l
		}
		l.Scoreable = true
		if !l.Present {
			return l
		}
		target := cfg.PositiveOutput
		if side == Expected {
			target = cfg.PositiveExpected
		}
		if target != nil {
			l.Positive = Equal(raw, target)
			return l
		}
		l.Positive = IsPositive(raw)
		return l
	}
}

// Equal compares a raw value against a configured positive value. Numbers
// decoded from JSON compare by value regardless of their Go type.
func Equal(raw, target any) bool {
	if raw == nil || target == nil {
		return raw == target
	}
	if rf, ok := asFloat(raw); ok {
		if tf, ok := asFloat(target); ok {
			return rf == tf
		}
		return false
	}
	if reflect.TypeOf(raw).Comparable() && reflect.TypeOf(target).Comparable() {
		return raw == target
	}
	return fmt.Sprint(raw) == fmt.Sprint(target)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// SameString reports whether a and b are both strings and, if so, whether
// they match after trimming and case folding.
func SameString(a, b any) (both bool, same bool) {
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return false, false
	}
	return true, strings.EqualFold(strings.TrimSpace(as), strings.TrimSpace(bs))
}
