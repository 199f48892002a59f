package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// FileFetcher resolves a job's source-file reference to raw bytes. The
// pipeline only depends on this interface; tests swap in an in-memory map.
type FileFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// ObjectFetcher reads source files from object storage. A ref may be a bare
// storage key or a public URL produced by GetURL; URLs are reduced to their
// trailing key.
type ObjectFetcher struct {
	storage ObjectStorage
	bucket  string
}

// NewObjectFetcher wraps an ObjectStorage as a FileFetcher. The bucket name
// is needed to strip the bucket prefix from endpoint-style URLs.
func NewObjectFetcher(s ObjectStorage, bucket string) *ObjectFetcher {
	return &ObjectFetcher{storage: s, bucket: bucket}
}

// Fetch downloads the object and returns its full contents.
func (f *ObjectFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	key := ref
	if strings.Contains(ref, "://") {
		// Strip scheme and host; what remains is either the key (public
		// URL form) or bucket/key (endpoint URL form).
		parts := strings.SplitN(ref, "://", 2)
		path := parts[1]
		if idx := strings.Index(path, "/"); idx != -1 {
			key = path[idx+1:]
		}
		if f.bucket != "" {
			key = strings.TrimPrefix(key, f.bucket+"/")
		}
	}

	rc, err := f.storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source file %q: %w", ref, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file %q: %w", ref, err)
	}
	return data, nil
}
