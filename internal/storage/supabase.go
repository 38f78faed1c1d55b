package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/af-corp/showcase-gateway/internal/config"
)

// SupabaseUploader writes objects through the Supabase Storage REST API.
type SupabaseUploader struct {
	baseURL    string
	serviceKey string
	bucket     string
	prefix     string
	client     *http.Client
}

func NewSupabaseUploader(sb config.SupabaseConfig, cfg config.StorageConfig, client *http.Client) *SupabaseUploader {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = sb.Bucket
	}
	return &SupabaseUploader{
		baseURL:    strings.TrimRight(sb.URL, "/"),
		serviceKey: sb.ServiceKey,
		bucket:     bucket,
		prefix:     cfg.Prefix,
		client:     client,
	}
}

func (u *SupabaseUploader) Upload(ctx context.Context, id string, data []byte, caption string) (*Object, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	name := ObjectName(u.prefix, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.objectURL(name), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.serviceKey)
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("x-upsert", "true")
	if caption != "" {
		req.Header.Set("x-metadata-caption", truncateCaption(strings.ReplaceAll(caption, "\n", " ")))
	}

	if err := u.do(req); err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	return &Object{
		Path:      name,
		PublicURL: fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, u.bucket, name),
		Size:      len(data),
	}, nil
}

func (u *SupabaseUploader) Delete(ctx context.Context, objectPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.objectURL(objectPath), nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.serviceKey)
	if err := u.do(req); err != nil {
		return fmt.Errorf("delete %s: %w", objectPath, err)
	}
	return nil
}

func (u *SupabaseUploader) objectURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, name)
}

func (u *SupabaseUploader) do(req *http.Request) error {
	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
