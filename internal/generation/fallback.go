package generation

import (
	"github.com/af-corp/showcase-gateway/internal/types"
)

// FallbackInfo accompanies every result served from a catalog image.
const FallbackInfo = "AI image generation unavailable - using Shopify product image"

const unknownProduct = "Unknown Product"

// SelectFallback returns the first image of the first product that has one.
func SelectFallback(products []types.Product, prompt string) (types.ImageRef, bool) {
	for _, p := range products {
		for _, img := range p.Images {
			if img == "" {
				continue
			}
			title := p.TitleOr(unknownProduct)
			return types.ImageRef{
				URL:           img,
				RevisedPrompt: "Shopify product image for: " + title,
				Prompt:        prompt,
				IsFallback:    true,
				SourceLabel:   title,
			}, true
		}
	}
	return types.ImageRef{}, false
}
