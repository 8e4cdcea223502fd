package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCanonicalJSONDeterministic(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1}
	b := map[string]any{"a": 1, "b": 2}
	ha, _, err := HashCanonicalJSON(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _, err := HashCanonicalJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Fatalf("expected equal digests, got %s vs %s", ha, hb)
	}
}

func TestCanonicalJSONShape(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{
		"z":    []any{1, "two", nil, false},
		"a":    map[string]any{"y": 1.5, "x": true},
		"text": "a\"b",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":{"x":true,"y":1.5},"text":"a\"b","z":[1,"two",null,false]}`
	if string(got) != want {
		t.Fatalf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalJSONStruct(t *testing.T) {
	type row struct {
		B int    `json:"b"`
		A string `json:"a"`
	}
	got, err := CanonicalJSON(row{B: 2, A: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":"x","b":2}` {
		t.Fatalf("canonical = %s", got)
	}
}

func TestCanonicalJSONUnsupported(t *testing.T) {
	if _, err := CanonicalJSON(map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected marshal error for channel value")
	}
}

func TestDigestFile_KnownContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")
	content := []byte(`{"evaluations":[]}`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	h := sha256.Sum256(content)
	want := "sha256:" + hex.EncodeToString(h[:])

	digest, size, err := DigestFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if digest != want {
		t.Errorf("digest = %q, want %q", digest, want)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	if DigestBytes(content) != want {
		t.Errorf("DigestBytes disagrees with DigestFile")
	}
}

func TestDigestFile_Missing(t *testing.T) {
	_, _, err := DigestFile(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "open file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDigestSetOrderIndependent(t *testing.T) {
	a := DigestSet([]string{"sha256:aa", "sha256:bb"})
	b := DigestSet([]string{"sha256:bb", "sha256:aa"})
	if a != b {
		t.Fatalf("digest set depends on order: %s vs %s", a, b)
	}
	if a == DigestSet([]string{"sha256:aa"}) {
		t.Fatal("different sets must not collide")
	}
}

func TestSampleKey(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		sampleID string
		want     string
	}{
		{"keyword wins", map[string]any{"keyword": "nike shoes", "asin": "B01"}, "s-1", "nike shoes"},
		{"sample id when no keyword", map[string]any{"asin": "B01"}, "s-1", "s-1"},
		{"blank keyword ignored", map[string]any{"keyword": "  "}, "s-2", "s-2"},
		{"string input", "  adidas  ", "", "adidas"},
		{"nil input", nil, "", ""},
		{"empty object", map[string]any{}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleKey(tt.input, tt.sampleID); got != tt.want {
				t.Errorf("SampleKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSampleKeyDigestIsStable(t *testing.T) {
	a := SampleKey(map[string]any{"title": "x", "asin": "B01"}, "")
	b := SampleKey(map[string]any{"asin": "B01", "title": "x"}, "")
	if a == "" || a != b {
		t.Fatalf("digest keys differ: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "sha256:") {
		t.Fatalf("unexpected key %q", a)
	}
}
