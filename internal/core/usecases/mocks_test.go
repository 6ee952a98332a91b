package usecases_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/ports"
)

// --- Mock KeyValueStore ---

type mockKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
	sets   int
}

func newMockKV() *mockKV {
	return &mockKV{data: map[string]string{}}
}

func (m *mockKV) GetString(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKV) SetString(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockKV) HasKey(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// --- Mock Clock ---

type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

// --- Mock TrackingSubsystem ---

type mockHandle struct {
	id        string
	visible   bool
	destroyed bool
}

func (h *mockHandle) ID() string              { return h.id }
func (h *mockHandle) SetVisible(visible bool) { h.visible = visible }
func (h *mockHandle) Destroy()                { h.destroyed = true }

type anchorCall struct {
	lat, lon, alt float64
	orientation   domain.Quaternion
}

type mockTracking struct {
	snap        domain.TrackingSnapshot
	snapErr     error
	enableCalls int
	addAnchorFn func(lat, lon, alt float64, q domain.Quaternion) (ports.AnchorHandle, error)
	calls       []anchorCall
	handles     []*mockHandle
}

func (m *mockTracking) Snapshot(ctx context.Context) (domain.TrackingSnapshot, error) {
	return m.snap, m.snapErr
}

func (m *mockTracking) FeatureSupport(ctx context.Context) domain.FeatureSupport {
	return m.snap.FeatureSupport
}

func (m *mockTracking) EnableFeature(ctx context.Context) error {
	m.enableCalls++
	m.snap.FeatureMode = domain.FeatureModeEnabled
	return nil
}

func (m *mockTracking) AddAnchor(ctx context.Context, lat, lon, alt float64, q domain.Quaternion) (ports.AnchorHandle, error) {
	m.calls = append(m.calls, anchorCall{lat, lon, alt, q})
	if m.addAnchorFn != nil {
		return m.addAnchorFn(lat, lon, alt, q)
	}
	h := &mockHandle{id: fmt.Sprintf("anchor-%d", len(m.handles)+1), visible: true}
	m.handles = append(m.handles, h)
	return h, nil
}

// --- Mock LocationService ---

type mockLocation struct {
	status  domain.LocationStatus
	started int
	stopped int
}

func (m *mockLocation) Status() domain.LocationStatus { return m.status }
func (m *mockLocation) Start()                        { m.started++ }
func (m *mockLocation) Stop()                         { m.stopped++ }

// --- Mock Presenter / EventPublisher ---

type mockPresenter struct {
	last  domain.Presentation
	count int
}

func (m *mockPresenter) Present(p domain.Presentation) {
	m.last = p
	m.count++
}

type mockPublisher struct {
	events []domain.SessionEvent
}

func (m *mockPublisher) PublishSessionEvent(ctx context.Context, e *domain.SessionEvent) error {
	m.events = append(m.events, *e)
	return nil
}

func (m *mockPublisher) count(typ domain.SessionEventType) int {
	n := 0
	for _, e := range m.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
