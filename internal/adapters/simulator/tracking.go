package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/ports"
)

// Tracking implements ports.TrackingSubsystem by replaying a Script against a clock.
// Playback starts on the first Snapshot.
type Tracking struct {
	mu          sync.Mutex
	clock       ports.Clock
	frames      []frame
	mode        domain.FeatureMode
	failAnchors bool
	start       time.Time
	anchors     map[string]*Anchor
}

// NewTracking creates a Tracking playing script.
func NewTracking(script *Script, clock ports.Clock) (*Tracking, error) {
	frames, err := script.compile()
	if err != nil {
		return nil, err
	}
	mode := domain.FeatureModeDisabled
	if script.FeatureMode == "enabled" {
		mode = domain.FeatureModeEnabled
	}
	return &Tracking{
		clock:       clock,
		frames:      frames,
		mode:        mode,
		failAnchors: script.FailAnchors,
		anchors:     make(map[string]*Anchor),
	}, nil
}

func (t *Tracking) Snapshot(ctx context.Context) (domain.TrackingSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.current()
	snap.FeatureMode = t.mode
	return snap, nil
}

func (t *Tracking) FeatureSupport(ctx context.Context) domain.FeatureSupport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current().FeatureSupport
}

// EnableFeature switches the geospatial mode on for the rest of the playback.
func (t *Tracking) EnableFeature(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = domain.FeatureModeEnabled
	return nil
}

// AddAnchor creates an anchor unless the script fails anchors, in which case the
// handle is nil.
func (t *Tracking) AddAnchor(ctx context.Context, lat, lon, alt float64, orientation domain.Quaternion) (ports.AnchorHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failAnchors {
		return nil, nil
	}
	a := &Anchor{
		id:          uuid.NewString(),
		Latitude:    lat,
		Longitude:   lon,
		Altitude:    alt,
		Orientation: orientation,
		visible:     true,
		owner:       t,
	}
	t.anchors[a.id] = a
	return a, nil
}

// Anchors returns the anchors that have not been destroyed.
func (t *Tracking) Anchors() []Anchor {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Anchor, 0, len(t.anchors))
	for _, a := range t.anchors {
		out = append(out, Anchor{
			id:          a.id,
			Latitude:    a.Latitude,
			Longitude:   a.Longitude,
			Altitude:    a.Altitude,
			Orientation: a.Orientation,
			visible:     a.visible,
		})
	}
	return out
}

// current returns the frame at the playback position. Callers hold mu.
func (t *Tracking) current() domain.TrackingSnapshot {
	now := t.clock.Now()
	if t.start.IsZero() {
		t.start = now
	}
	pos := now.Sub(t.start)
	for _, f := range t.frames[:len(t.frames)-1] {
		if pos < f.duration {
			return f.snap
		}
		pos -= f.duration
	}
	return t.frames[len(t.frames)-1].snap
}

// Anchor is a simulated anchor handle.
type Anchor struct {
	id          string
	Latitude    float64
	Longitude   float64
	Altitude    float64
	Orientation domain.Quaternion
	visible     bool
	owner       *Tracking
}

func (a *Anchor) ID() string { return a.id }

// Visible reports whether the attached object is shown.
func (a *Anchor) Visible() bool { return a.visible }

func (a *Anchor) SetVisible(visible bool) {
	a.owner.mu.Lock()
	defer a.owner.mu.Unlock()
	a.visible = visible
}

func (a *Anchor) Destroy() {
	a.owner.mu.Lock()
	defer a.owner.mu.Unlock()
	delete(a.owner.anchors, a.id)
}

// Location implements ports.LocationService, reporting the status scripted for
// the current frame while started.
type Location struct {
	tracking *Tracking
	mu       sync.Mutex
	started  bool
}

// NewLocation creates a Location following tracking's playback.
func NewLocation(tracking *Tracking) *Location {
	return &Location{tracking: tracking}
}

func (l *Location) Status() domain.LocationStatus {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return domain.LocationStopped
	}

	l.tracking.mu.Lock()
	defer l.tracking.mu.Unlock()
	return l.tracking.current().LocationStatus
}

func (l *Location) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = true
}

func (l *Location) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = false
}
