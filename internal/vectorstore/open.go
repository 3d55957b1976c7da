package vectorstore

import (
	"context"

	"github.com/dgallion1/policyrag/internal/config"
)

// Open returns the Store selected by cfg.VectorBackend.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.VectorBackend {
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLiteDir, cfg.Collection)
	case config.BackendPGVector:
		return NewPGVectorStore(ctx, cfg.DatabaseURL, cfg.Collection)
	default:
		return nil, &config.ConfigurationError{
			Field:  "VECTOR_BACKEND",
			Value:  cfg.VectorBackend,
			Reason: "must be sqlite or pgvector",
		}
	}
}
