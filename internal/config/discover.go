package config

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Discover walks root and maps every result file to the modules whose path
// rules match its slash-separated path relative to root's parent. Files that
// match no rule but carry a recognizable module prefix in their name are
// assigned by that prefix.
func Discover(root string, rules map[string][]string) (map[string][]string, error) {
	base := filepath.Dir(filepath.Clean(root))
	out := map[string][]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsResultFile(path) {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		modules := inferModules(rel, rules)
		if len(modules) == 0 {
			if id := ModuleFromFilename(path); id != "" {
				modules = []string{id}
			}
		}
		for _, m := range modules {
			out[m] = append(out[m], path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover results under %s: %w", root, err)
	}
	for m := range out {
		sort.Strings(out[m])
	}
	return out, nil
}

// IsResultFile reports whether path has a judge-result extension. Sidecar
// metadata files are not results.
func IsResultFile(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".meta.json") {
		return false
	}
	switch filepath.Ext(lower) {
	case ".json", ".jsonl", ".csv":
		return true
	}
	return false
}

func inferModules(path string, rules map[string][]string) []string {
	seen := make(map[string]struct{})
	for module, patterns := range rules {
		for _, p := range patterns {
			if matches(path, p) {
				seen[module] = struct{}{}
				break
			}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func matches(path, pattern string) bool {
	pattern = filepath.ToSlash(pattern)
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(path, prefix+"/") || path == prefix
	}
	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
