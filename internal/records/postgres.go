package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps records in the showcase_records table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *Record) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO showcase_records (
			session_id, product_id, product_url, asset_created_at, asset_url, displayed,
			user_name, asset_type, get_displayed, product_name, product_category,
			caption, mockup_type, has_caption_overlay
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id::text
	`,
		r.SessionID, r.ProductID, r.ProductURL, r.AssetCreatedAt, r.AssetURL, r.Displayed,
		r.UserName, r.AssetType, r.GetDisplayed, r.ProductName, r.ProductCategory,
		r.Caption, r.MockupType, r.HasCaptionOverlay,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert showcase_records: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) BySession(ctx context.Context, sessionID string) (*Record, error) {
	var r Record
	err := s.db.QueryRow(ctx, `
		SELECT id::text, session_id, product_id, product_url, asset_created_at, asset_url,
		       displayed, user_name, asset_type, get_displayed, product_name,
		       product_category, caption, mockup_type, has_caption_overlay
		FROM showcase_records
		WHERE session_id = $1
	`, sessionID).Scan(
		&r.ID, &r.SessionID, &r.ProductID, &r.ProductURL, &r.AssetCreatedAt, &r.AssetURL,
		&r.Displayed, &r.UserName, &r.AssetType, &r.GetDisplayed, &r.ProductName,
		&r.ProductCategory, &r.Caption, &r.MockupType, &r.HasCaptionOverlay,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query showcase_records: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) IncrementDisplayed(ctx context.Context, sessionID string, by int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE showcase_records SET displayed = displayed + $2 WHERE session_id = $1`,
		sessionID, by)
	if err != nil {
		return fmt.Errorf("update showcase_records: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
