package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"blogapi/internal/config"
)

// GCSBackend keeps uploaded images in a Google Cloud Storage bucket.
type GCSBackend struct {
	client    *gcs.Client
	bucket    string
	projectID string
}

// NewGCSBackend connects with the credentials file from cfg, or with
// application default credentials when none is set.
func NewGCSBackend(ctx context.Context, cfg config.GCSConfig) (*GCSBackend, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSBackend{client: client, bucket: cfg.Bucket, projectID: cfg.ProjectID}, nil
}

func (g *GCSBackend) handle() *gcs.BucketHandle {
	return g.client.Bucket(g.bucket)
}

// EnsureBucket creates the image bucket on first start. Creation needs a project id.
func (g *GCSBackend) EnsureBucket(ctx context.Context) error {
	_, err := g.handle().Attrs(ctx)
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(g.projectID) == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return g.handle().Create(ctx, g.projectID, nil)
}

// Put streams an image into the bucket with its sniffed content type.
func (g *GCSBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	w := g.handle().Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if size > 0 && size < int64(w.ChunkSize) {
		w.ChunkSize = 0
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Get opens key along with the content type recorded at upload.
func (g *GCSBackend) Get(ctx context.Context, key string) (*Object, error) {
	r, err := g.handle().Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Object{Body: r, ContentType: r.Attrs.ContentType, Size: r.Attrs.Size}, nil
}

// Delete removes key. A missing object is not an error.
func (g *GCSBackend) Delete(ctx context.Context, key string) error {
	err := g.handle().Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

// Bucket returns the configured bucket name.
func (g *GCSBackend) Bucket() string {
	return g.bucket
}
