package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/af-corp/showcase-gateway/internal/config"
)

// Open returns the store named by cfg.Records.Backend and a close func. db is
// only used by the postgres backend and may be nil otherwise.
func Open(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (Store, func(), error) {
	noop := func() {}
	switch cfg.Records.Backend {
	case "", "memory":
		return NewMemoryStore(), noop, nil
	case "postgres":
		if db == nil {
			return nil, noop, fmt.Errorf("records backend postgres requires database.enabled")
		}
		return NewPostgresStore(db), noop, nil
	case "mongo":
		s, err := ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	case "supabase":
		s, err := NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Table)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown records backend %q", cfg.Records.Backend)
	}
}
