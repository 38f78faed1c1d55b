package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultKeyPrefix is the leading segment of every client key.
	DefaultKeyPrefix = "sc"
)

// GenerateKey creates a new client key with the format {prefix}-{env}-{32 random alphanumeric chars}.
func GenerateKey(prefix, env string) (string, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	random, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("generate random: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, env, random), nil
}

// HashKey returns the SHA-256 hex digest of a client key.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// KeyPrefix extracts a display-safe prefix: everything up to the second dash
// plus the first 8 random chars.
func KeyPrefix(key string) string {
	if len(key) < 16 {
		return key
	}
	dashes := 0
	for i, c := range key {
		if c == '-' {
			dashes++
			if dashes == 2 {
				return key[:min(i+9, len(key))]
			}
		}
	}
	return key[:16]
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}

// KeyMetadata holds the cached metadata for a client key.
type KeyMetadata struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	AllowedProviders []string  `json:"allowed_providers,omitempty"`
	RPMLimit         *int      `json:"rpm_limit,omitempty"`
	DailyImageQuota  *int      `json:"daily_image_quota,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// AllowsProvider reports whether the key may use the named provider. An empty
// allow list permits every provider.
func (km *KeyMetadata) AllowsProvider(name string) bool {
	return allowsProvider(km.AllowedProviders, name)
}

func allowsProvider(allowed []string, name string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, p := range allowed {
		if p == name || p == "*" {
			return true
		}
	}
	return false
}

// ParseDuration parses a duration string like "365d", "30d", "24h".
func ParseDuration(s string) (time.Duration, error) {
	if len(s) == 0 {
		return 0, errors.New("empty duration")
	}
	if s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, fmt.Errorf("parse days: %w", err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
