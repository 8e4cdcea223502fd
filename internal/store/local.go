package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ogulcanaydogan/kwscore/internal/hash"
)

const DefaultArchiveDir = ".kwscore/runs"

// Manifest lists the artifacts archived for one run.
type Manifest struct {
	RunID  string            `json:"run_id"`
	Files  map[string]string `json:"files"`
	Digest string            `json:"digest"`
}

// Archive copies report artifacts into dir/runID, writes a manifest.json with
// their digests and returns the copied paths.
func Archive(dir, runID string, files ...string) ([]string, error) {
	if runID == "" {
		return nil, fmt.Errorf("archive: empty run id")
	}
	dest := filepath.Join(dir, runID)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	m := Manifest{RunID: runID, Files: make(map[string]string, len(files))}
	out := make([]string, 0, len(files))
	for _, f := range files {
		p, err := copyInto(f, dest)
		if err != nil {
			return out, fmt.Errorf("archive %s: %w", f, err)
		}
		digest, _, err := hash.DigestFile(p)
		if err != nil {
			return out, err
		}
		m.Files[filepath.Base(p)] = digest
		out = append(out, p)
	}
	digests := make([]string, 0, len(m.Files))
	for _, d := range m.Files {
		digests = append(digests, d)
	}
	m.Digest = hash.DigestSet(digests)

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return out, err
	}
	if err := os.WriteFile(filepath.Join(dest, "manifest.json"), raw, 0o644); err != nil {
		return out, fmt.Errorf("write manifest: %w", err)
	}
	return out, nil
}

// ReadManifest loads the manifest of an archived run.
func ReadManifest(dir, runID string) (Manifest, error) {
	var m Manifest
	raw, err := os.ReadFile(filepath.Join(dir, runID, "manifest.json"))
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func copyInto(srcPath, dir string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	dst := filepath.Join(dir, filepath.Base(srcPath))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", err
	}
	return dst, out.Close()
}
