package adapters

import (
	"encoding/base64"
	"errors"

	"google.golang.org/genai"

	"github.com/af-corp/showcase-gateway/internal/types"
)

// ErrNoImageData is returned when no extractor recognises the payload.
var ErrNoImageData = errors.New("no image data in response")

// Extractor pulls image references out of one known response shape. It returns
// nil when the shape does not match.
type Extractor func(payload any) []types.ImageRef

// DefaultExtractors are tried in order; the first non-empty result wins.
var DefaultExtractors = []Extractor{
	extractDataArray,
	extractOutputs,
	extractDirectURL,
	extractNestedImage,
	extractInlineData,
}

// ExtractImages runs DefaultExtractors over payload.
func ExtractImages(payload any) ([]types.ImageRef, error) {
	return ExtractWith(DefaultExtractors, payload)
}

func ExtractWith(extractors []Extractor, payload any) ([]types.ImageRef, error) {
	if payload == nil {
		return nil, ErrNoImageData
	}
	for _, ex := range extractors {
		if refs := ex(payload); len(refs) > 0 {
			return refs, nil
		}
	}
	return nil, ErrNoImageData
}

// {"data":[{"url":..., "b64_json":..., "revised_prompt":...}]}
func extractDataArray(payload any) []types.ImageRef {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	var refs []types.ImageRef
	for _, item := range asSlice(m["data"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		url := str(obj["url"])
		if url == "" {
			if b64 := str(obj["b64_json"]); b64 != "" {
				url = "data:image/png;base64," + b64
			}
		}
		if url == "" {
			continue
		}
		refs = append(refs, types.ImageRef{URL: url, RevisedPrompt: str(obj["revised_prompt"])})
	}
	return refs
}

// {"outputs":[{"seed":1,"image":{"url":...}}]} or {"image":{"presignedUrl":...}}
func extractOutputs(payload any) []types.ImageRef {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	var refs []types.ImageRef
	for _, item := range asSlice(m["outputs"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if url := imageObjectURL(obj["image"]); url != "" {
			refs = append(refs, types.ImageRef{URL: url})
			continue
		}
		if url := firstNonEmpty(str(obj["url"]), str(obj["presignedUrl"])); url != "" {
			refs = append(refs, types.ImageRef{URL: url})
		}
	}
	return refs
}

// {"url":...} / {"image_url":...} / {"presignedUrl":...}
func extractDirectURL(payload any) []types.ImageRef {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	url := firstNonEmpty(str(m["url"]), str(m["image_url"]), str(m["presignedUrl"]))
	if url == "" {
		return nil
	}
	return []types.ImageRef{{URL: url, RevisedPrompt: str(m["revised_prompt"])}}
}

// {"image":{"url":...}} or {"images":["...", {"url":...}]}
func extractNestedImage(payload any) []types.ImageRef {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	if url := imageObjectURL(m["image"]); url != "" {
		return []types.ImageRef{{URL: url}}
	}
	var refs []types.ImageRef
	for _, item := range asSlice(m["images"]) {
		switch v := item.(type) {
		case string:
			if v != "" {
				refs = append(refs, types.ImageRef{URL: v})
			}
		case map[string]any:
			if url := firstNonEmpty(str(v["url"]), str(v["presignedUrl"])); url != "" {
				refs = append(refs, types.ImageRef{URL: url})
			}
		}
	}
	return refs
}

// SDK responses carry the image bytes inline; they become data URLs.
func extractInlineData(payload any) []types.ImageRef {
	resp, ok := payload.(*genai.GenerateContentResponse)
	if !ok || resp == nil {
		return nil
	}
	var refs []types.ImageRef
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := firstNonEmpty(part.InlineData.MIMEType, "image/png")
			refs = append(refs, types.ImageRef{
				URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data),
			})
		}
	}
	return refs
}

func imageObjectURL(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	return firstNonEmpty(str(obj["url"]), str(obj["presignedUrl"]))
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
