// Package storage uploads rendered showcase assets to object storage and returns
// their public URLs.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"

	"github.com/af-corp/showcase-gateway/internal/config"
)

// captionLimit bounds the caption kept in object metadata.
const captionLimit = 500

var ErrEmptyImage = errors.New("image data is empty")

// Object describes an uploaded asset.
type Object struct {
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
	Size      int    `json:"bytes"`
}

// Uploader stores an image under a name derived from id.
type Uploader interface {
	Upload(ctx context.Context, id string, data []byte, caption string) (*Object, error)
	Delete(ctx context.Context, objectPath string) error
}

// New builds the uploader selected by cfg.Storage.Backend. An empty backend
// disables uploads and returns a nil Uploader.
func New(ctx context.Context, cfg *config.Config) (Uploader, error) {
	switch cfg.Storage.Backend {
	case "":
		return nil, nil
	case "gcs":
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return NewGCSUploader(client, cfg.Storage), nil
	case "supabase":
		return NewSupabaseUploader(cfg.Supabase, cfg.Storage, nil), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// ObjectName is the storage path for a mockup with the given id.
func ObjectName(prefix, id string) string {
	name := "showcase_mockup_" + id + ".jpg"
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// DecodeImage accepts raw base64 or a data URL and returns the image bytes.
func DecodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data URL")
		}
		s = payload
	}
	if s == "" {
		return nil, ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("decode base64 image: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}

func truncateCaption(c string) string {
	r := []rune(c)
	if len(r) <= captionLimit {
		return c
	}
	return string(r[:captionLimit])
}
