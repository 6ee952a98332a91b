package main

import (
	"context"
	"fmt"

	"github.com/samirrijal/geoanchor/internal/adapters/postgres"
	"github.com/samirrijal/geoanchor/internal/adapters/valkey"
	"github.com/samirrijal/geoanchor/internal/core/ports"
	"github.com/samirrijal/geoanchor/internal/pkg/config"
)

// openStorage connects the configured remote backend. Memory storage lives in the
// session process, so there is nothing for the worker to prune.
func openStorage(ctx context.Context, cfg *config.Config) (ports.KeyValueStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendValkey:
		store, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			return nil, nil, fmt.Errorf("valkey: %w", err)
		}
		return store, store.Close, nil
	case config.BackendPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		return postgres.NewKVStore(db), db.Close, nil
	}
	return nil, nil, fmt.Errorf("storage backend %q cannot be pruned out of process", cfg.Storage.Backend)
}
