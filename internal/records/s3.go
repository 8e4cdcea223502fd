package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ogulcanaydogan/kwscore/internal/config"
)

type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

type object struct {
	Key          string
	LastModified time.Time
}

type objectStore interface {
	List(ctx context.Context, bucket, prefix string) ([]object, error)
	Get(ctx context.Context, bucket, key string) ([]byte, time.Time, error)
}

var newObjectStore = func(ctx context.Context, opts S3Options) (objectStore, error) {
	return newS3Store(ctx, opts)
}

type s3Store struct {
	client *s3.Client
}

func newS3Store(ctx context.Context, opts S3Options) (*s3Store, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Store{client: client}, nil
}

func (s *s3Store) List(ctx context.Context, bucket, prefix string) ([]object, error) {
	var out []object
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, o := range page.Contents {
			obj := object{Key: aws.ToString(o.Key)}
			if o.LastModified != nil {
				obj.LastModified = *o.LastModified
			}
			out = append(out, obj)
		}
	}
	return out, nil
}

func (s *s3Store) Get(ctx context.Context, bucket, key string) ([]byte, time.Time, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	defer out.Body.Close()
	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, time.Time{}, err
	}
	var mod time.Time
	if out.LastModified != nil {
		mod = *out.LastModified
	}
	return raw, mod, nil
}

// parseS3Ref splits s3://bucket/key. A key that is empty or ends in "/" is a
// prefix.
func parseS3Ref(ref string) (bucket, key string, err error) {
	const p = "s3://"
	if !strings.HasPrefix(ref, p) {
		return "", "", fmt.Errorf("bad s3 ref (missing s3://): %q", ref)
	}
	s := strings.TrimPrefix(ref, p)
	bucket, key, _ = strings.Cut(s, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("bad s3 ref (missing bucket): %q", ref)
	}
	return bucket, key, nil
}

func fetchS3(ctx context.Context, store objectStore, ref string) ([]blob, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	keys := []string{key}
	if key == "" || strings.HasSuffix(key, "/") {
		objs, err := store.List(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", ref, err)
		}
		keys = keys[:0]
		for _, o := range objs {
			if config.IsResultFile(o.Key) {
				keys = append(keys, o.Key)
			}
		}
		sort.Strings(keys)
	}
	out := make([]blob, 0, len(keys))
	for _, k := range keys {
		raw, mod, err := store.Get(ctx, bucket, k)
		if err != nil {
			return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, k, err)
		}
		b := blob{location: "s3://" + bucket + "/" + k, data: raw, modTime: mod}
		if strings.HasSuffix(strings.ToLower(k), ".csv") {
			b.meta = fetchMeta(ctx, store, bucket, k)
		}
		out = append(out, b)
	}
	return out, nil
}

// fetchMeta returns the sidecar next to a CSV object, or nil when there is
// none.
func fetchMeta(ctx context.Context, store objectStore, bucket, key string) *config.Meta {
	raw, _, err := store.Get(ctx, bucket, config.MetaPath(key))
	if err != nil {
		return nil
	}
	var m config.Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return &m
}
