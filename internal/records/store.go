package records

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/ogulcanaydogan/kwscore/internal/config"
	"github.com/ogulcanaydogan/kwscore/pkg/schema"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

// Corpus is the deduplicated set of judged samples loaded from one or more
// result files. Records are sorted by sample key and must not be mutated.
type Corpus struct {
	Records    []types.EvaluationRecord `json:"records"`
	Files      []types.SourceInfo       `json:"files"`
	Skipped    int                      `json:"skipped"`
	Duplicates int                      `json:"duplicates"`
}

func (c *Corpus) Len() int { return len(c.Records) }

// Get returns the record for a sample key.
func (c *Corpus) Get(key string) (types.EvaluationRecord, bool) {
	i := sort.Search(len(c.Records), func(i int) bool { return c.Records[i].SampleKey >= key })
	if i < len(c.Records) && c.Records[i].SampleKey == key {
		return c.Records[i], true
	}
	return types.EvaluationRecord{}, false
}

// Latest returns the source with the newest timestamp.
func (c *Corpus) Latest() (types.SourceInfo, bool) {
	if len(c.Files) == 0 {
		return types.SourceInfo{}, false
	}
	return c.Files[len(c.Files)-1], true
}

type Options struct {
	S3 S3Options
	// EntrySchema replaces the built-in entry schema when set.
	EntrySchema string
}

// Load reads every location into a single corpus. Locations may be files,
// directories or s3:// references. Files that cannot be decoded are skipped
// and counted; a location that cannot be read is an error.
func Load(ctx context.Context, locations []string, opts Options) (*Corpus, error) {
	log := clog.FromContext(ctx)
	v, err := entryValidator(opts.EntrySchema)
	if err != nil {
		return nil, err
	}

	var store objectStore
	var files []parsedFile
	skippedFiles := 0
	for _, loc := range locations {
		var blobs []blob
		if strings.HasPrefix(loc, "s3://") {
			if store == nil {
				if store, err = newObjectStore(ctx, opts.S3); err != nil {
					return nil, fmt.Errorf("open s3 store: %w", err)
				}
			}
			blobs, err = fetchS3(ctx, store, loc)
		} else {
			blobs, err = readLocal(loc)
		}
		if err != nil {
			return nil, err
		}
		for _, b := range blobs {
			pf, err := parse(v, b.location, b.data, b.modTime, b.meta)
			if err != nil {
				skippedFiles++
				log.Warnf("skipping %s: %v", b.location, err)
				continue
			}
			files = append(files, pf)
		}
	}
	c := merge(files)
	c.Skipped += skippedFiles
	return c, nil
}

func entryValidator(path string) (*schema.Validator, error) {
	if path == "" {
		return schema.Load(schema.EvaluationEntry)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("entry schema %s: %w", path, err)
	}
	return schema.LoadFile(abs)
}

// merge applies files in ascending timestamp order. A record from a strictly
// later file replaces the earlier record with the same sample key.
func merge(files []parsedFile) *Corpus {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].info.Timestamp.Before(files[j].info.Timestamp)
	})
	c := &Corpus{Files: make([]types.SourceInfo, 0, len(files))}
	byKey := map[string]types.EvaluationRecord{}
	for _, f := range files {
		c.Files = append(c.Files, f.info)
		c.Skipped += f.info.Skipped
		c.Duplicates += f.duplicates
		for _, rec := range f.records {
			prev, ok := byKey[rec.SampleKey]
			if ok {
				c.Duplicates++
				if !rec.Timestamp.After(prev.Timestamp) {
					continue
				}
			}
			byKey[rec.SampleKey] = rec
		}
	}
	c.Records = make([]types.EvaluationRecord, 0, len(byKey))
	for _, rec := range byKey {
		c.Records = append(c.Records, rec)
	}
	sort.Slice(c.Records, func(i, j int) bool { return c.Records[i].SampleKey < c.Records[j].SampleKey })
	return c
}

type blob struct {
	location string
	data     []byte
	modTime  time.Time
	meta     *config.Meta
}

func readLocal(loc string) ([]blob, error) {
	st, err := os.Stat(loc)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", loc, err)
	}
	paths := []string{loc}
	if st.IsDir() {
		entries, err := os.ReadDir(loc)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", loc, err)
		}
		paths = paths[:0]
		for _, e := range entries {
			if e.IsDir() || !config.IsResultFile(e.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(loc, e.Name()))
		}
		sort.Strings(paths)
	}
	out := make([]blob, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		out = append(out, blob{location: p, data: raw, modTime: fi.ModTime()})
	}
	return out, nil
}
