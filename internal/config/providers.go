package config

import "time"

type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig describes one image or text provider. Type selects the adapter:
// "openai", "firefly", "gemini" for images and "writer", "gemini_text",
// "anthropic" for text.
type ProviderConfig struct {
	Type          string            `yaml:"type"`
	BaseURL       string            `yaml:"base_url"`
	APIKey        string            `yaml:"api_key"`
	ClientID      string            `yaml:"client_id,omitempty"`
	ClientSecret  string            `yaml:"client_secret,omitempty"`
	TokenURL      string            `yaml:"token_url,omitempty"`
	Scopes        []string          `yaml:"scopes,omitempty"`
	Model         string            `yaml:"model,omitempty"`
	ApplicationID string            `yaml:"application_id,omitempty"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	Timeout       time.Duration     `yaml:"timeout"`
	Headers       map[string]string `yaml:"headers,omitempty"`
}
