package ports

import (
	"context"
	"time"

	"github.com/samirrijal/geoanchor/internal/core/domain"
)

// AnchorHandle is an anchor created by the tracking subsystem together with the
// object attached to it.
type AnchorHandle interface {
	ID() string
	SetVisible(visible bool)
	Destroy()
}

// TrackingSubsystem is the AR/geospatial tracking black box.
type TrackingSubsystem interface {
	Snapshot(ctx context.Context) (domain.TrackingSnapshot, error)
	FeatureSupport(ctx context.Context) domain.FeatureSupport
	EnableFeature(ctx context.Context) error
	// AddAnchor returns a nil handle when the subsystem could not create the anchor.
	AddAnchor(ctx context.Context, lat, lon, alt float64, orientation domain.Quaternion) (AnchorHandle, error)
}

// LocationService is the platform location service.
type LocationService interface {
	Status() domain.LocationStatus
	Start()
	Stop()
}

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

// Presenter receives the UI projection after every tick or user action.
type Presenter interface {
	Present(p domain.Presentation)
}

// EventPublisher publishes session events to a message broker.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event *domain.SessionEvent) error
}
