package storage

import (
	"context"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"

	"github.com/af-corp/showcase-gateway/internal/config"
)

// GCSUploader writes objects to a Cloud Storage bucket.
type GCSUploader struct {
	client     *gcs.Client
	bucket     string
	prefix     string
	publicBase string
}

func NewGCSUploader(client *gcs.Client, cfg config.StorageConfig) *GCSUploader {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com/" + cfg.Bucket
	}
	return &GCSUploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, publicBase: base}
}

func (u *GCSUploader) Upload(ctx context.Context, id string, data []byte, caption string) (*Object, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	name := ObjectName(u.prefix, id)

	w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "image/jpeg"
	w.Metadata = map[string]string{
		"caption":    truncateCaption(caption),
		"session_id": id,
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close object %s: %w", name, err)
	}

	return &Object{
		Path:      name,
		PublicURL: u.publicBase + "/" + name,
		Size:      len(data),
	}, nil
}

func (u *GCSUploader) Delete(ctx context.Context, objectPath string) error {
	if err := u.client.Bucket(u.bucket).Object(objectPath).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %s: %w", objectPath, err)
	}
	return nil
}
