package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// SupabaseStore keeps records in a Supabase table through PostgREST.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

func NewSupabaseStore(url, serviceKey, table string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client, table: table}, nil
}

func (s *SupabaseStore) Create(_ context.Context, r *Record) (string, error) {
	row := *r
	row.ID = ""
	data, _, err := s.client.From(s.table).
		Insert(row, false, "", "representation", "").
		Execute()
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", s.table, err)
	}

	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return "", fmt.Errorf("parse insert response: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("insert %s: no row returned", s.table)
	}
	return rows[0].ID, nil
}

func (s *SupabaseStore) BySession(_ context.Context, sessionID string) (*Record, error) {
	data, _, err := s.client.From(s.table).
		Select("*", "exact", false).
		Eq("session_id", sessionID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}

	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse query response: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// IncrementDisplayed reads then writes the counter. PostgREST has no atomic
// increment without a stored procedure, so concurrent increments can be lost.
func (s *SupabaseStore) IncrementDisplayed(ctx context.Context, sessionID string, by int) error {
	r, err := s.BySession(ctx, sessionID)
	if err != nil {
		return err
	}
	_, _, err = s.client.From(s.table).
		Update(map[string]any{"displayed": r.Displayed + by}, "", "").
		Eq("session_id", sessionID).
		Execute()
	if err != nil {
		return fmt.Errorf("update %s: %w", s.table, err)
	}
	return nil
}
