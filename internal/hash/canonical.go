package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// CanonicalJSON encodes v with sorted object keys and no insignificant
// whitespace, so equal values always produce equal bytes.
func CanonicalJSON(v any) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encode(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HashCanonicalJSON returns the sha256 digest of the canonical encoding of v
// alongside the encoding itself.
func HashCanonicalJSON(v any) (string, []byte, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", nil, err
	}
	return DigestBytes(canonical), canonical, nil
}

func DigestBytes(raw []byte) string {
	sum := sha256.Sum256(raw)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// normalize round-trips v through encoding/json so that structs, typed maps
// and numbers all reduce to the generic JSON value types.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal for canonicalization: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode for canonicalization: %w", err)
	}
	return out, nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch vv := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(vv))
	case string:
		return encodeString(buf, vv)
	case json.Number:
		if _, err := strconv.ParseFloat(vv.String(), 64); err != nil {
			return fmt.Errorf("invalid number %q: %w", vv, err)
		}
		buf.WriteString(vv.String())
	case []any:
		buf.WriteByte('[')
		for i, item := range vv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encode(buf, vv[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported canonical value %T", v)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}
