package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores each key as one object in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	owned  bool
}

// NewGCS creates a storage client and returns a store bound to bucket.
// Objects are written below prefix when it is non-empty.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient failed: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix, owned: true}, nil
}

// NewGCSWithClient wraps an existing client. Close leaves the client open.
func NewGCSWithClient(client *storage.Client, bucket, prefix string) *GCS {
	return &GCS{client: client, bucket: bucket, prefix: prefix}
}

func (g *GCS) objectName(key string) string {
	if g.prefix == "" {
		return key + ".json"
	}
	return path.Join(g.prefix, key+".json")
}

// Load downloads the object for key.
func (g *GCS) Load(ctx context.Context, key string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(g.objectName(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open gcs object %q: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %q: %w", key, err)
	}
	return data, nil
}

// Save uploads data, replacing any previous object.
func (g *GCS) Save(ctx context.Context, key string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(g.objectName(key)).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gcs object %q: %w", key, err)
	}
	return nil
}

// Close releases the client when this store created it.
func (g *GCS) Close() error {
	if !g.owned {
		return nil
	}
	return g.client.Close()
}
