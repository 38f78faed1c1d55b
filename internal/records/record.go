// Package records persists showcase post records: which product an asset was made
// for, where the asset lives and how often it has been displayed.
package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AssetTypeInstagram  = "instagram"
	MockupInstagramPost = "instagram_post"
	DefaultUserName     = "AI Showcase"
)

var ErrNotFound = errors.New("record not found")

// Record is one generated asset and its display bookkeeping.
type Record struct {
	ID                string    `json:"id,omitempty" bson:"-"`
	SessionID         string    `json:"session_id" bson:"session_id"`
	ProductID         string    `json:"product_id" bson:"product_id"`
	ProductURL        string    `json:"product_url" bson:"product_url"`
	AssetCreatedAt    time.Time `json:"asset_created_at" bson:"asset_created_at"`
	AssetURL          []string  `json:"asset_url" bson:"asset_url"`
	Displayed         int       `json:"displayed" bson:"displayed"`
	UserName          string    `json:"user_name" bson:"user_name"`
	AssetType         string    `json:"asset_type" bson:"asset_type"`
	GetDisplayed      bool      `json:"get_displayed" bson:"get_displayed"`
	ProductName       string    `json:"product_name" bson:"product_name"`
	ProductCategory   string    `json:"product_category" bson:"product_category"`
	Caption           string    `json:"caption" bson:"caption"`
	MockupType        string    `json:"mockup_type" bson:"mockup_type"`
	HasCaptionOverlay bool      `json:"has_caption_overlay" bson:"has_caption_overlay"`
}

// Draft holds the caller-supplied fields of a new record.
type Draft struct {
	ProductID       string
	ProductURL      string
	AssetURLs       []string
	ProductName     string
	ProductCategory string
	Caption         string
	UserName        string
}

// NewRecord fills in the generated and defaulted fields of d. SessionID is a
// fresh UUID unless sessionID is non-empty.
func NewRecord(d Draft, sessionID string, now time.Time) *Record {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	user := d.UserName
	if user == "" {
		user = DefaultUserName
	}
	urls := d.AssetURLs
	if urls == nil {
		urls = []string{}
	}
	return &Record{
		SessionID:         sessionID,
		ProductID:         d.ProductID,
		ProductURL:        d.ProductURL,
		AssetCreatedAt:    now.UTC(),
		AssetURL:          urls,
		UserName:          user,
		AssetType:         AssetTypeInstagram,
		GetDisplayed:      true,
		ProductName:       d.ProductName,
		ProductCategory:   d.ProductCategory,
		Caption:           d.Caption,
		MockupType:        MockupInstagramPost,
		HasCaptionOverlay: strings.TrimSpace(d.Caption) != "",
	}
}

// Store is a record backend.
type Store interface {
	// Create persists r and returns the backend's record ID.
	Create(ctx context.Context, r *Record) (string, error)
	BySession(ctx context.Context, sessionID string) (*Record, error)
	// IncrementDisplayed adds by to the displayed counter. ErrNotFound when no
	// record has sessionID.
	IncrementDisplayed(ctx context.Context, sessionID string, by int) error
}
