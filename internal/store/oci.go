package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/static"
	ggcrtypes "github.com/google/go-containerregistry/pkg/v1/types"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

const summaryMediaType = ggcrtypes.MediaType("application/vnd.kwscore.summary.v1+json")

// PublishOCI pushes a summary file as a single-layer OCI artifact and returns
// the digest-pinned reference.
func PublishOCI(ctx context.Context, summaryPath, ociRef string) (string, error) {
	raw, err := os.ReadFile(summaryPath)
	if err != nil {
		return "", fmt.Errorf("read summary: %w", err)
	}
	var s types.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decode summary %s: %w", summaryPath, err)
	}
	ref, err := name.ParseReference(ociRef, name.WithDefaultRegistry("ghcr.io"))
	if err != nil {
		return "", fmt.Errorf("parse oci ref: %w", err)
	}

	img, err := mutate.AppendLayers(empty.Image, static.NewLayer(raw, summaryMediaType))
	if err != nil {
		return "", fmt.Errorf("append layer: %w", err)
	}
	img = mutate.MediaType(img, ggcrtypes.OCIManifestSchema1)
	img = mutate.Annotations(img, map[string]string{
		"org.opencontainers.image.created": time.Now().UTC().Format(time.RFC3339),
		"dev.kwscore.run_id":               s.RunID,
	}).(v1.Image)

	opts := []remote.Option{remote.WithContext(ctx), remote.WithAuthFromKeychain(authn.DefaultKeychain)}
	if err := remote.Write(ref, img, opts...); err != nil {
		return "", fmt.Errorf("push oci artifact: %w", err)
	}
	digest, err := img.Digest()
	if err != nil {
		return "", fmt.Errorf("compute digest: %w", err)
	}
	return ref.Context().Digest(digest.String()).String(), nil
}

// PullOCI fetches a published summary and writes it to outPath.
func PullOCI(ctx context.Context, ociRef, outPath string) (types.Summary, error) {
	var s types.Summary
	ref, err := name.ParseReference(ociRef, name.WithDefaultRegistry("ghcr.io"))
	if err != nil {
		return s, fmt.Errorf("parse oci ref: %w", err)
	}
	img, err := remote.Image(ref, remote.WithContext(ctx), remote.WithAuthFromKeychain(authn.DefaultKeychain))
	if err != nil {
		return s, fmt.Errorf("pull oci artifact: %w", err)
	}
	layers, err := img.Layers()
	if err != nil {
		return s, fmt.Errorf("read layers: %w", err)
	}
	if len(layers) == 0 {
		return s, fmt.Errorf("oci artifact has no layers")
	}
	mt, err := layers[0].MediaType()
	if err != nil {
		return s, fmt.Errorf("read layer media type: %w", err)
	}
	if mt != summaryMediaType {
		return s, fmt.Errorf("unexpected layer media type %q", mt)
	}

	rc, err := layers[0].Uncompressed()
	if err != nil {
		return s, fmt.Errorf("read layer payload: %w", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return s, fmt.Errorf("read layer bytes: %w", err)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("decode pulled summary: %w", err)
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		return s, fmt.Errorf("write pulled summary: %w", err)
	}
	return s, nil
}
