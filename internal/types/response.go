package types

// SanitizedPrompt is the outcome of running a prompt through the safety filter.
type SanitizedPrompt struct {
	Raw       string `json:"raw"`
	Sanitized string `json:"sanitized,omitempty"`
	IsSafe    bool   `json:"is_safe"`
	Reason    string `json:"reason"`
}

// ImageRef points at one generated or substituted image.
type ImageRef struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Prompt        string `json:"prompt,omitempty"`
	IsFallback    bool   `json:"is_fallback"`
	SourceLabel   string `json:"source_label,omitempty"`
}

// GenerationResult is the per-prompt outcome. Images is non-empty exactly when Error is nil.
type GenerationResult struct {
	Prompt       string     `json:"prompt"`
	Images       []ImageRef `json:"images"`
	Error        *string    `json:"error"`
	ErrorCode    string     `json:"error_code,omitempty"`
	UsedFallback bool       `json:"used_fallback"`
	FallbackInfo string     `json:"fallback_info,omitempty"`
	Provider     string     `json:"provider,omitempty"`
}

// Valid reports whether the images/error invariant holds.
func (r GenerationResult) Valid() bool {
	return (len(r.Images) == 0) == (r.Error != nil)
}

// ParsedAIResponse is the structured view of a free-form text response.
type ParsedAIResponse struct {
	Summary             []string `json:"summary"`
	Caption             string   `json:"caption"`
	ImagePrompts        []string `json:"image_prompts"`
	EnhancedDescription string   `json:"enhanced_description"`
	Explanation         string   `json:"explanation"`
	Improvements        []string `json:"improvements"`
	RawResponse         string   `json:"raw_response"`
}

// ProductSummary is the product echo attached to text responses.
type ProductSummary struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Vendor string `json:"vendor"`
	Price  string `json:"price"`
	Stock  string `json:"stock"`
}

// TextResult is one product's text-generation outcome.
type TextResult struct {
	ParsedAIResponse
	Product *ProductSummary `json:"product,omitempty"`
	// OriginalProduct is set instead of Product for description enhancement.
	OriginalProduct     *ProductSummary `json:"original_product,omitempty"`
	OriginalDescription string          `json:"original_description,omitempty"`
	Error               string          `json:"error,omitempty"`
}
