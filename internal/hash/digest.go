package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

func DigestReader(r io.Reader) (digest string, size int64, err error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), n, nil
}

func DigestFile(path string) (digest string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open file %s: %w", path, err)
	}
	defer f.Close()
	digest, size, err = DigestReader(f)
	if err != nil {
		return "", 0, fmt.Errorf("hash file %s: %w", path, err)
	}
	return digest, size, nil
}

// DigestSet combines per-source digests into one order-independent digest.
func DigestSet(digests []string) string {
	sorted := append([]string(nil), digests...)
	sort.Strings(sorted)
	return DigestBytes([]byte(strings.Join(sorted, "\n")))
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
