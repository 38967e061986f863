package app

import (
	"context"
	"fmt"

	"github.com/ToniPaltus/airflow-intro/internal/config"
	"github.com/ToniPaltus/airflow-intro/internal/load"
	"github.com/ToniPaltus/airflow-intro/internal/store/memstore"
	"github.com/ToniPaltus/airflow-intro/internal/store/mongo"
	"github.com/ToniPaltus/airflow-intro/internal/store/postgres"
)

// OpenBackend creates the backend named by the destination URI's scheme.
// It does not contact the store; Loader.Load pings before writing.
func OpenBackend(ctx context.Context, cfg config.DestConfig) (load.Backend, error) {
	scheme, err := config.BackendScheme(cfg.URI)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case config.SchemePostgres:
		store, err := postgres.Open(ctx, cfg.URI, postgres.PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.SchemeMongo:
		store, err := mongo.Open(cfg.URI, mongo.PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.SchemeMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unsupported destination scheme %q", scheme)
	}
}
