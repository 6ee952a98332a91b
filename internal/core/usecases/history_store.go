package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/ports"
	"github.com/samirrijal/geoanchor/internal/pkg/metrics"
	"github.com/samirrijal/geoanchor/internal/pkg/telemetry"
)

// DefaultHistoryKey is the key the anchor history is stored under.
const DefaultHistoryKey = "PersistentGeospatialAnchors"

// EvictionPolicy decides when a stored record is too old to keep.
type EvictionPolicy string

const (
	// EvictCalendarDay drops records created on an earlier calendar day than now.
	// A record from 23:59 yesterday is gone at 00:01 today.
	EvictCalendarDay EvictionPolicy = "calendar_day"
	// EvictRolling drops records older than HistoryConfig.MaxAge.
	EvictRolling EvictionPolicy = "rolling"
)

// HistoryConfig controls the history store's bounds.
type HistoryConfig struct {
	Key      string
	Limit    int
	Eviction EvictionPolicy
	MaxAge   time.Duration
	Timeout  time.Duration // per backend call; zero means no extra deadline
}

// DefaultHistoryConfig returns the stock history bounds.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Key:      DefaultHistoryKey,
		Limit:    5,
		Eviction: EvictCalendarDay,
		MaxAge:   24 * time.Hour,
	}
}

// HistoryStore keeps a capacity- and age-bounded anchor history in a key-value store.
type HistoryStore struct {
	kv     ports.KeyValueStore
	clock  ports.Clock
	cfg    HistoryConfig
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHistoryStore creates a HistoryStore.
func NewHistoryStore(kv ports.KeyValueStore, clock ports.Clock, cfg HistoryConfig, logger *slog.Logger) *HistoryStore {
	if cfg.Key == "" {
		cfg.Key = DefaultHistoryKey
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Eviction == "" {
		cfg.Eviction = EvictCalendarDay
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStore{
		kv:     kv,
		clock:  clock,
		cfg:    cfg,
		logger: logger.With("component", "history", "key", cfg.Key),
		tracer: telemetry.Tracer(),
	}
}

// Key returns the key the history is stored under.
func (h *HistoryStore) Key() string {
	return h.cfg.Key
}

// Limit returns the maximum number of stored records.
func (h *HistoryStore) Limit() int {
	return h.cfg.Limit
}

// Load reads the stored history, drops expired records and writes the result back.
// A missing key yields an empty collection. A blob that cannot be decoded is
// replaced by an empty collection.
func (h *HistoryStore) Load(ctx context.Context) (domain.HistoryCollection, error) {
	ctx, span := h.tracer.Start(ctx, "HistoryStore.Load",
		trace.WithAttributes(attribute.String(telemetry.AttrHistoryKey, h.cfg.Key)))
	defer span.End()
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	metrics.HistoryOperations.WithLabelValues("load").Inc()

	blob, ok, err := h.kv.GetString(ctx, h.cfg.Key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get")
		return domain.HistoryCollection{}, fmt.Errorf("load history: %w", err)
	}
	if !ok {
		return domain.HistoryCollection{}, nil
	}

	collection, err := decodeHistory(blob)
	if err != nil {
		metrics.HistoryCorruptBlobs.Inc()
		h.logger.Warn("stored history is corrupt, resetting", "error", err)
		collection = domain.HistoryCollection{}
	}

	now := h.clock.Now()
	kept := collection[:0]
	for _, rec := range collection {
		if verr := rec.Validate(); verr != nil {
			h.logger.Warn("dropping invalid history record", "error", verr)
			metrics.HistoryEvictions.WithLabelValues("invalid").Inc()
			continue
		}
		if h.expired(rec, now) {
			metrics.HistoryEvictions.WithLabelValues("age").Inc()
			continue
		}
		kept = append(kept, rec)
	}
	if evicted := len(collection) - len(kept); evicted > 0 {
		h.logger.Info("evicted expired anchors", "count", evicted)
	}
	span.SetAttributes(attribute.Int("history.kept", len(kept)))

	if err := h.persist(ctx, kept); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write back")
		return kept.Clone(), fmt.Errorf("write back history: %w", err)
	}
	return kept.Clone(), nil
}

// Save sorts the collection newest first, keeps at most Limit records and persists
// them. It returns what was stored; the input is left untouched.
func (h *HistoryStore) Save(ctx context.Context, c domain.HistoryCollection) (domain.HistoryCollection, error) {
	ctx, span := h.tracer.Start(ctx, "HistoryStore.Save",
		trace.WithAttributes(attribute.String(telemetry.AttrHistoryKey, h.cfg.Key)))
	defer span.End()
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	metrics.HistoryOperations.WithLabelValues("save").Inc()

	stored := c.Clone()
	stored.SortNewestFirst()
	if len(stored) > h.cfg.Limit {
		metrics.HistoryEvictions.WithLabelValues("capacity").Add(float64(len(stored) - h.cfg.Limit))
		stored = stored[:h.cfg.Limit]
	}
	span.SetAttributes(attribute.Int("history.stored", len(stored)))

	if err := h.persist(ctx, stored); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist")
		return stored, fmt.Errorf("save history: %w", err)
	}
	return stored, nil
}

// Clear stores an empty history.
func (h *HistoryStore) Clear(ctx context.Context) error {
	ctx, span := h.tracer.Start(ctx, "HistoryStore.Clear")
	defer span.End()
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	metrics.HistoryOperations.WithLabelValues("clear").Inc()

	if err := h.persist(ctx, domain.HistoryCollection{}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (h *HistoryStore) expired(rec domain.AnchorRecord, now time.Time) bool {
	if h.cfg.Eviction == EvictRolling {
		return now.Sub(rec.CreatedAt) > h.cfg.MaxAge
	}
	return calendarDaysBetween(rec.CreatedAt, now) > 0
}

func (h *HistoryStore) persist(ctx context.Context, c domain.HistoryCollection) error {
	blob, err := encodeHistory(c)
	if err != nil {
		return err
	}
	return h.kv.SetString(ctx, h.cfg.Key, blob)
}

func (h *HistoryStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, h.cfg.Timeout)
	}
	return ctx, func() {}
}

// calendarDaysBetween counts calendar-day boundaries between from and to, using
// to's location.
func calendarDaysBetween(from, to time.Time) int {
	y1, m1, d1 := from.In(to.Location()).Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func encodeHistory(c domain.HistoryCollection) (string, error) {
	if c == nil {
		c = domain.HistoryCollection{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	return string(data), nil
}

func decodeHistory(blob string) (domain.HistoryCollection, error) {
	var c domain.HistoryCollection
	if err := json.Unmarshal([]byte(blob), &c); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return c, nil
}
