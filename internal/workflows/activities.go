package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/geoanchor/internal/core/ports"
	"github.com/samirrijal/geoanchor/internal/core/usecases"
)

// PruneResult reports what survived one key's pruning.
type PruneResult struct {
	Key  string
	Kept int
}

// RetentionActivities holds the activity implementations for the retention workflow.
type RetentionActivities struct {
	Store   ports.KeyValueStore
	Clock   ports.Clock
	History usecases.HistoryConfig // Key is replaced per call
	Logger  *slog.Logger
}

// PruneHistory loads the history stored under key, which drops records past their
// age, then saves it back bounded to the configured capacity.
func (a *RetentionActivities) PruneHistory(ctx context.Context, key string) (PruneResult, error) {
	cfg := a.History
	cfg.Key = key
	store := usecases.NewHistoryStore(a.Store, a.Clock, cfg, a.Logger)

	records, err := store.Load(ctx)
	if err != nil {
		return PruneResult{Key: key}, fmt.Errorf("prune %s: %w", key, err)
	}
	stored, err := store.Save(ctx, records)
	if err != nil {
		return PruneResult{Key: key}, fmt.Errorf("prune %s: %w", key, err)
	}
	return PruneResult{Key: key, Kept: len(stored)}, nil
}
