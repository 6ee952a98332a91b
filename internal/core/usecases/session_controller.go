package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/ports"
	"github.com/samirrijal/geoanchor/internal/pkg/metrics"
	"github.com/samirrijal/geoanchor/internal/pkg/telemetry"
)

// PrivacyPromptKey marks that the user has accepted the geospatial privacy prompt.
const PrivacyPromptKey = "HasDisplayedGeospatialPrivacyPrompt"

var (
	ErrMissingComponent = errors.New("missing AR component")
	ErrPlacementFailed  = errors.New("anchor placement failed")
	ErrNotLocalized     = errors.New("session is not localized")
	ErrNotEnabled       = errors.New("session is not enabled")
)

// SessionDeps are the collaborators of a SessionController.
// Tracking, History and Terminator are required.
type SessionDeps struct {
	Tracking   ports.TrackingSubsystem
	Location   ports.LocationService
	History    *HistoryStore
	Prefs      ports.KeyValueStore
	Presenter  ports.Presenter
	Publisher  ports.EventPublisher
	Clock      ports.Clock
	Terminator *Terminator
	Logger     *slog.Logger
	Config     TrackingConfig
}

// SessionStatus is a read-only view of the controller.
type SessionStatus struct {
	Classification      domain.Classification `json:"classification"`
	Presentation        domain.Presentation   `json:"presentation"`
	Localizing          bool                  `json:"localizing"`
	LocalizationElapsed time.Duration         `json:"localization_elapsed"`
	AnchorCount         int                   `json:"anchor_count"`
	HistoryCount        int                   `json:"history_count"`
	ReplayPending       bool                  `json:"replay_pending"`
	Terminating         bool                  `json:"terminating"`
	Pose                *domain.Pose          `json:"pose,omitempty"`
}

// SessionController drives one AR session: it evaluates every tick, keeps the
// placed anchors in step with localization and persists the anchor history.
type SessionController struct {
	mu sync.Mutex

	tracking   ports.TrackingSubsystem
	location   ports.LocationService
	history    *HistoryStore
	prefs      ports.KeyValueStore
	presenter  ports.Presenter
	publisher  ports.EventPublisher
	clock      ports.Clock
	terminator *Terminator
	logger     *slog.Logger
	tracer     trace.Tracer
	machine    *TrackingStateMachine

	enabled       bool
	inARView      bool
	state         LocalizationState
	records       domain.HistoryCollection
	handles       []ports.AnchorHandle
	replayPending bool
	localizingFor time.Duration
	pose          *domain.Pose
	view          domain.Presentation
}

// NewSessionController creates a SessionController.
func NewSessionController(deps SessionDeps) (*SessionController, error) {
	var missing []string
	if deps.Tracking == nil {
		missing = append(missing, "tracking subsystem")
	}
	if deps.History == nil {
		missing = append(missing, "history store")
	}
	if deps.Terminator == nil {
		missing = append(missing, "terminator")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingComponent, strings.Join(missing, ", "))
	}

	if deps.Location == nil {
		deps.Location = NoopLocationService{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config == (TrackingConfig{}) {
		deps.Config = DefaultTrackingConfig()
	}

	return &SessionController{
		tracking:   deps.Tracking,
		location:   deps.Location,
		history:    deps.History,
		prefs:      deps.Prefs,
		presenter:  deps.Presenter,
		publisher:  deps.Publisher,
		clock:      deps.Clock,
		terminator: deps.Terminator,
		logger:     deps.Logger.With("component", "session"),
		tracer:     telemetry.Tracer(),
		machine:    NewTrackingStateMachine(deps.Config),
		state:      NewLocalizationState(),
		records:    domain.HistoryCollection{},
	}, nil
}

// Enable starts a session: it releases anchors left from a previous run, resets
// localization, starts the location service and loads the stored history for
// replay once localized. The session is enabled even when the history cannot be
// loaded; the error is returned for reporting.
func (s *SessionController) Enable(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "SessionController.Enable")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyAnchors()
	s.inARView = s.privacyAccepted(ctx)
	s.enabled = true
	s.state = NewLocalizationState()
	s.localizingFor = 0
	s.pose = nil
	s.view = domain.Presentation{
		InARView: s.inARView,
		Message:  domain.MessageLocalizing,
	}

	s.location.Start()

	records, err := s.history.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load anchor history", "error", err)
	}
	s.records = records
	s.replayPending = len(s.records) > 0
	span.SetAttributes(attribute.Int("history.loaded", len(s.records)))

	s.logger.Info("session enabled", "history", len(s.records), "ar_view", s.inARView)
	s.publish(ctx, domain.EventEnabled, "", nil)
	s.present()
	return err
}

// AcceptPrivacyPrompt records the user's consent and switches to the AR view.
func (s *SessionController) AcceptPrivacyPrompt(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prefs != nil {
		if err := s.prefs.SetString(ctx, PrivacyPromptKey, "1"); err != nil {
			return fmt.Errorf("store privacy consent: %w", err)
		}
	}
	s.inARView = true
	s.view.InARView = true
	s.present()
	return nil
}

// Tick evaluates one frame. elapsed is the time since the previous tick.
func (s *SessionController) Tick(ctx context.Context, elapsed time.Duration) Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || !s.inARView || s.terminator.Terminating() {
		return Evaluation{Classification: s.state.Last, Skipped: true}
	}
	metrics.SessionTicks.Inc()

	snap, err := s.tracking.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("tracking snapshot unavailable", "error", err)
		return Evaluation{Classification: s.state.Last, Skipped: true}
	}
	snap.FeatureSupport = s.tracking.FeatureSupport(ctx)
	snap.LocationStatus = s.location.Status()
	snap.LocationServiceReady = snap.LocationStatus == domain.LocationRunning

	if s.state.Localizing {
		s.localizingFor += elapsed
	}

	prev := s.state.Last
	var ev Evaluation
	s.state, ev = s.machine.Evaluate(s.state, snap, elapsed)

	if ev.EnableFeature {
		s.logger.Info("switching geospatial mode to enabled")
		if err := s.tracking.EnableFeature(ctx); err != nil {
			s.logger.Warn("enable geospatial mode failed", "error", err)
		}
	}
	if ev.Skipped {
		return ev
	}

	if ev.Classification != prev {
		metrics.SessionClassifications.WithLabelValues(ev.Classification.String()).Inc()
		s.logger.Info("classification changed", "from", prev.String(), "to", ev.Classification.String())
		s.publish(ctx, domain.EventClassification, ev.Reason, nil)
	}

	switch ev.Transition {
	case TransitionLost:
		s.logger.Info("localization lost")
		s.setAnchorsVisible(false)
		s.view.Buttons = domain.Buttons{}
		s.localizingFor = elapsed
	case TransitionLocalized:
		metrics.LocalizationDuration.Observe(s.localizingFor.Seconds())
		s.logger.Info("localization completed", "took", s.localizingFor.String())
		s.localizingFor = 0
		s.view.Buttons = domain.Buttons{PlaceAnchor: true, ClearAll: len(s.handles) > 0}
		s.setAnchorsVisible(true)
	}

	if ev.Fatal {
		s.fail(ctx, ev.Reason)
		return ev
	}

	if ev.Message != "" {
		s.view.Message = ev.Message
	}
	if ev.Transition == TransitionLocalized {
		s.replay(ctx)
	}

	switch ev.Classification {
	case domain.Localizing, domain.Localized:
		s.view.InfoPanel = true
		if snap.EarthTrackingState == domain.TrackingTracking {
			pose := ev.Pose
			s.pose = &pose
			s.view.InfoText = formatPoseInfo(pose)
		} else {
			s.pose = nil
			s.view.InfoText = domain.MessageNotTracking
		}
	}

	s.present()
	return ev
}

// SetAnchor places an anchor at the current camera pose and, when placement
// succeeds, appends it to the history and persists it.
func (s *SessionController) SetAnchor(ctx context.Context) (domain.AnchorRecord, error) {
	ctx, span := s.tracer.Start(ctx, "SessionController.SetAnchor")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return domain.AnchorRecord{}, ErrNotEnabled
	}
	span.SetAttributes(attribute.String(telemetry.AttrClassification, s.state.Last.String()))
	if s.state.Localizing || s.terminator.Terminating() {
		return domain.AnchorRecord{}, ErrNotLocalized
	}

	// Tracking may have dropped since the last tick.
	snap, err := s.tracking.Snapshot(ctx)
	if err != nil {
		return domain.AnchorRecord{}, fmt.Errorf("read camera pose: %w", err)
	}
	if snap.EarthTrackingState != domain.TrackingTracking || snap.Pose == nil ||
		!s.machine.Config().Accurate(*snap.Pose) {
		return domain.AnchorRecord{}, ErrNotLocalized
	}
	rec := domain.NewAnchorRecord(*snap.Pose, s.clock.Now())
	if err := rec.Validate(); err != nil {
		s.logger.Warn("rejecting anchor at invalid pose", "error", err)
		return rec, err
	}

	if err := s.place(ctx, rec); err != nil {
		s.logger.Warn("anchor placement failed", "error", err)
		s.view.Message = domain.MessageAnchorFailed
		s.publish(ctx, domain.EventAnchorFailed, err.Error(), &rec)
		s.present()
		return rec, err
	}

	s.records = append(s.records, rec)
	metrics.AnchorsPlaced.WithLabelValues("user").Inc()
	s.view.Message = fmt.Sprintf("%d Anchor(s) Set!", len(s.handles))
	s.view.Buttons.ClearAll = len(s.records) > 0
	s.publish(ctx, domain.EventAnchorPlaced, "", &rec)

	err = s.save(ctx)
	s.present()
	return rec, err
}

// PlaceAnchor places rec without touching the history.
func (s *SessionController) PlaceAnchor(ctx context.Context, rec domain.AnchorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.place(ctx, rec)
}

// ClearAll destroys every placed anchor and empties the stored history.
func (s *SessionController) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyAnchors()
	s.records = domain.HistoryCollection{}
	s.replayPending = false
	s.view.Message = domain.MessageAnchorsCleared
	s.view.Buttons.ClearAll = false

	err := s.history.Clear(ctx)
	if err != nil {
		s.logger.Error("failed to clear anchor history", "error", err)
	}
	s.publish(ctx, domain.EventAnchorsCleared, "", nil)
	s.present()
	return err
}

// Disable ends the session: it releases every placed anchor and persists the
// in-memory history.
func (s *SessionController) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.location.Stop()
	s.destroyAnchors()
	err := s.save(ctx)
	s.enabled = false
	s.logger.Info("session disabled", "history", len(s.records))
	s.publish(ctx, domain.EventDisabled, "", nil)
	return err
}

// Classification returns the most recent classification.
func (s *SessionController) Classification() domain.Classification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Last
}

// Presentation returns the current UI projection.
func (s *SessionController) Presentation() domain.Presentation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// History returns a copy of the in-memory anchor history.
func (s *SessionController) History() domain.HistoryCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Clone()
}

// AnchorCount returns the number of anchors currently placed.
func (s *SessionController) AnchorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Status returns a snapshot of the controller state.
func (s *SessionController) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionStatus{
		Classification:      s.state.Last,
		Presentation:        s.view,
		Localizing:          s.state.Localizing,
		LocalizationElapsed: s.state.LocalizationElapsed,
		AnchorCount:         len(s.handles),
		HistoryCount:        len(s.records),
		ReplayPending:       s.replayPending,
		Terminating:         s.terminator.Terminating(),
	}
	if s.pose != nil {
		p := *s.pose
		st.Pose = &p
	}
	return st
}

func (s *SessionController) place(ctx context.Context, rec domain.AnchorRecord) error {
	handle, err := s.tracking.AddAnchor(ctx, rec.Latitude, rec.Longitude, rec.Altitude,
		domain.PlacementOrientation(rec.Heading))
	if err != nil {
		metrics.AnchorPlacementFailures.Inc()
		return fmt.Errorf("%w: %v", ErrPlacementFailed, err)
	}
	if handle == nil {
		metrics.AnchorPlacementFailures.Inc()
		return ErrPlacementFailed
	}
	s.handles = append(s.handles, handle)
	return nil
}

// replay places every loaded record once per session.
func (s *SessionController) replay(ctx context.Context) {
	if !s.replayPending {
		return
	}
	s.replayPending = false

	for i := range s.records {
		rec := s.records[i]
		if err := s.place(ctx, rec); err != nil {
			s.logger.Warn("failed to replay anchor", "created_at", rec.CreatedAt, "error", err)
			s.publish(ctx, domain.EventAnchorFailed, err.Error(), &rec)
			continue
		}
		metrics.AnchorsPlaced.WithLabelValues("replay").Inc()
		s.publish(ctx, domain.EventAnchorReplayed, "", &rec)
	}

	s.view.Buttons.ClearAll = len(s.records) > 0
	s.view.Message = fmt.Sprintf("%d anchor(s) set from history.", len(s.handles))
	s.logger.Info("history replayed", "records", len(s.records), "placed", len(s.handles))
}

func (s *SessionController) fail(ctx context.Context, reason string) {
	s.view.Buttons = domain.Buttons{}
	s.view.InfoPanel = false
	s.view.Message = reason
	s.present()

	if s.terminator.Trigger(reason) {
		metrics.SessionTerminations.WithLabelValues(s.state.Last.String()).Inc()
		s.publish(ctx, domain.EventTerminating, reason, nil)
	}
}

func (s *SessionController) save(ctx context.Context) error {
	stored, err := s.history.Save(ctx, s.records)
	s.records = stored
	if err != nil {
		s.logger.Error("failed to save anchor history", "error", err)
	}
	return err
}

func (s *SessionController) setAnchorsVisible(visible bool) {
	for _, h := range s.handles {
		h.SetVisible(visible)
	}
}

func (s *SessionController) destroyAnchors() {
	for _, h := range s.handles {
		h.Destroy()
	}
	s.handles = nil
}

func (s *SessionController) privacyAccepted(ctx context.Context) bool {
	if s.prefs == nil {
		return true
	}
	ok, err := s.prefs.HasKey(ctx, PrivacyPromptKey)
	if err != nil {
		s.logger.Warn("privacy prompt flag unavailable", "error", err)
		return false
	}
	return ok
}

func (s *SessionController) publish(ctx context.Context, typ domain.SessionEventType, reason string, rec *domain.AnchorRecord) {
	if s.publisher == nil {
		return
	}
	event := &domain.SessionEvent{
		Type:           typ,
		Classification: s.state.Last,
		Reason:         reason,
		Anchor:         rec,
		AnchorCount:    len(s.handles),
		Time:           s.clock.Now(),
	}
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Warn("publish session event failed", "type", string(typ), "error", err)
	}
}

func (s *SessionController) present() {
	if s.presenter != nil {
		s.presenter.Present(s.view)
	}
}

func formatPoseInfo(p domain.Pose) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Latitude/Longitude: %.6f°, %.6f°\n", p.Latitude, p.Longitude)
	fmt.Fprintf(&b, "Horizontal Accuracy: %.6fm\n", p.HorizontalAccuracy)
	fmt.Fprintf(&b, "Altitude: %.2fm\n", p.Altitude)
	fmt.Fprintf(&b, "Vertical Accuracy: %.2fm\n", p.VerticalAccuracy)
	fmt.Fprintf(&b, "Heading: %.1f°\n", p.Heading)
	fmt.Fprintf(&b, "Heading Accuracy: %.1f°\n", p.HeadingAccuracy)
	return b.String()
}
