package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/geoanchor/internal/adapters/memory"
	"github.com/samirrijal/geoanchor/internal/adapters/postgres"
	"github.com/samirrijal/geoanchor/internal/adapters/valkey"
	"github.com/samirrijal/geoanchor/internal/core/ports"
	"github.com/samirrijal/geoanchor/internal/pkg/config"
)

// storage is a key-value backend the readiness check can ping.
type storage interface {
	ports.KeyValueStore
	Ping(ctx context.Context) error
}

// openStorage connects the configured backend. The returned close func is never nil.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, anchors will not survive a restart")
		return memory.New(), func() {}, nil

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
		stop := make(chan struct{})
		go recordPoolMetrics(db, stop)
		return postgres.NewKVStore(db), func() {
			close(stop)
			db.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func recordPoolMetrics(db *postgres.DB, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			db.RecordPoolMetrics()
		case <-stop:
			return
		}
	}
}
