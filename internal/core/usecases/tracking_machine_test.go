package usecases_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/usecases"
)

func goodPose() *domain.Pose {
	return &domain.Pose{
		Latitude:           37.0,
		Longitude:          -122.0,
		Altitude:           10,
		Heading:            90,
		HorizontalAccuracy: 5,
		HeadingAccuracy:    10,
		VerticalAccuracy:   2,
	}
}

func trackingSnapshot() domain.TrackingSnapshot {
	return domain.TrackingSnapshot{
		SessionState:         domain.SessionTracking,
		FeatureSupport:       domain.FeatureSupported,
		FeatureMode:          domain.FeatureModeEnabled,
		EarthState:           domain.EarthEnabled,
		EarthTrackingState:   domain.TrackingTracking,
		Pose:                 goodPose(),
		LocationStatus:       domain.LocationRunning,
		LocationServiceReady: true,
	}
}

func TestTrackingStateMachine_FeatureEnableSequence(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())
	st := usecases.NewLocalizationState()

	unknown := trackingSnapshot()
	unknown.FeatureSupport = domain.FeatureUnknown

	disabled := trackingSnapshot()
	disabled.FeatureMode = domain.FeatureModeDisabled

	enabling := trackingSnapshot()
	enabling.EarthTrackingState = domain.TrackingNone
	enabling.Pose = nil

	steps := []struct {
		snap    domain.TrackingSnapshot
		elapsed time.Duration
		want    domain.Classification
	}{
		{unknown, 0, domain.AwaitingFeatureCheck},
		{disabled, 0, domain.ConfiguringFeature},
		{enabling, time.Second, domain.ConfiguringFeature},
		{enabling, 1500 * time.Millisecond, domain.ConfiguringFeature},
		{trackingSnapshot(), time.Second, domain.Localized},
	}

	var enableRequests int
	for i, step := range steps {
		var ev usecases.Evaluation
		st, ev = m.Evaluate(st, step.snap, step.elapsed)
		if ev.Classification != step.want {
			t.Fatalf("step %d: expected %s, got %s", i, step.want, ev.Classification)
		}
		if ev.EnableFeature {
			enableRequests++
		}
	}
	if enableRequests != 1 {
		t.Errorf("expected exactly one enable request, got %d", enableRequests)
	}
	if st.Localizing {
		t.Error("expected localization to have completed")
	}
}

func TestTrackingStateMachine_GraceBoundaryStillConfiguring(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())
	st := usecases.NewLocalizationState()

	disabled := trackingSnapshot()
	disabled.FeatureMode = domain.FeatureModeDisabled
	st, _ = m.Evaluate(st, disabled, 0)

	// Exactly the grace period has elapsed: still waiting.
	st, ev := m.Evaluate(st, trackingSnapshot(), 3*time.Second)
	if ev.Classification != domain.ConfiguringFeature {
		t.Fatalf("expected configuring at grace boundary, got %s", ev.Classification)
	}

	_, ev = m.Evaluate(st, trackingSnapshot(), time.Millisecond)
	if ev.Classification != domain.Localized {
		t.Fatalf("expected localized once grace expired, got %s", ev.Classification)
	}
}

func TestTrackingStateMachine_LocalizationTimeout(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())
	st := usecases.NewLocalizationState()

	snap := trackingSnapshot()
	snap.EarthTrackingState = domain.TrackingNone
	snap.Pose = nil

	for i := 1; i <= 180; i++ {
		var ev usecases.Evaluation
		st, ev = m.Evaluate(st, snap, time.Second)
		if ev.Classification != domain.Localizing {
			t.Fatalf("tick %d: expected localizing, got %s", i, ev.Classification)
		}
		if ev.Fatal {
			t.Fatalf("tick %d: unexpected fatal", i)
		}
	}

	_, ev := m.Evaluate(st, snap, time.Second)
	if ev.Classification != domain.LocalizationTimedOut {
		t.Fatalf("expected timeout on tick 181, got %s", ev.Classification)
	}
	if !ev.Fatal || ev.Reason != domain.MessageLocalizationFailure {
		t.Errorf("expected fatal with failure message, got fatal=%v reason=%q", ev.Fatal, ev.Reason)
	}
}

func TestTrackingStateMachine_AccuracyThresholds(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())

	tests := []struct {
		name       string
		heading    float64
		horizontal float64
		want       domain.Classification
	}{
		{"both within", 25, 20, domain.Localized},
		{"heading too coarse", 25.1, 5, domain.Localizing},
		{"horizontal too coarse", 5, 20.1, domain.Localizing},
		{"heading accuracy unknown", math.NaN(), 5, domain.Localizing},
		{"horizontal accuracy unknown", 5, math.NaN(), domain.Localizing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := trackingSnapshot()
			snap.Pose.HeadingAccuracy = tt.heading
			snap.Pose.HorizontalAccuracy = tt.horizontal

			_, ev := m.Evaluate(usecases.NewLocalizationState(), snap, time.Second)
			if ev.Classification != tt.want {
				t.Errorf("expected %s, got %s", tt.want, ev.Classification)
			}
		})
	}
}

func TestTrackingStateMachine_LostAndRegained(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())
	st := usecases.NewLocalizationState()

	st, ev := m.Evaluate(st, trackingSnapshot(), time.Second)
	if ev.Transition != usecases.TransitionLocalized {
		t.Fatalf("expected localized transition, got %v", ev.Transition)
	}

	st, ev = m.Evaluate(st, trackingSnapshot(), time.Second)
	if ev.Transition != usecases.TransitionNone {
		t.Fatalf("expected no transition while localized, got %v", ev.Transition)
	}

	lost := trackingSnapshot()
	lost.Pose.HeadingAccuracy = 90
	st, ev = m.Evaluate(st, lost, 2*time.Second)
	if ev.Transition != usecases.TransitionLost || ev.Classification != domain.Localizing {
		t.Fatalf("expected lost transition, got %v/%s", ev.Transition, ev.Classification)
	}
	if st.LocalizationElapsed != 2*time.Second {
		t.Errorf("expected timer restarted at 2s, got %v", st.LocalizationElapsed)
	}
	if ev.Message != domain.MessageLocalizationHint {
		t.Errorf("expected hint message, got %q", ev.Message)
	}

	_, ev = m.Evaluate(st, trackingSnapshot(), time.Second)
	if ev.Transition != usecases.TransitionLocalized {
		t.Errorf("expected localized again, got %v", ev.Transition)
	}
}

func TestTrackingStateMachine_UnsupportedIsAlwaysFatal(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())

	variants := []func(*domain.TrackingSnapshot){
		func(s *domain.TrackingSnapshot) {},
		func(s *domain.TrackingSnapshot) { s.FeatureMode = domain.FeatureModeDisabled },
		func(s *domain.TrackingSnapshot) { s.EarthState = domain.EarthErrorInternal },
		func(s *domain.TrackingSnapshot) { s.EarthTrackingState = domain.TrackingLimited },
		func(s *domain.TrackingSnapshot) { s.SessionState = domain.SessionInitializing },
	}

	for i, mutate := range variants {
		snap := trackingSnapshot()
		snap.FeatureSupport = domain.FeatureUnsupported
		mutate(&snap)

		_, ev := m.Evaluate(usecases.NewLocalizationState(), snap, time.Second)
		if ev.Classification != domain.Unsupported || !ev.Fatal {
			t.Errorf("variant %d: expected fatal unsupported, got %s fatal=%v", i, ev.Classification, ev.Fatal)
		}
		if ev.Reason != domain.MessageUnsupported {
			t.Errorf("variant %d: unexpected reason %q", i, ev.Reason)
		}
	}
}

func TestTrackingStateMachine_EarthError(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())

	snap := trackingSnapshot()
	snap.EarthState = domain.EarthErrorNotAuthorized

	_, ev := m.Evaluate(usecases.NewLocalizationState(), snap, time.Second)
	if ev.Classification != domain.EarthError || !ev.Fatal {
		t.Fatalf("expected fatal earth error, got %s", ev.Classification)
	}
	if !strings.Contains(ev.Reason, "ErrorNotAuthorized") {
		t.Errorf("expected reason to name the earth state, got %q", ev.Reason)
	}
}

func TestTrackingStateMachine_SkipsUntilSessionStarts(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())
	st := usecases.NewLocalizationState()
	st.Last = domain.Localizing

	for _, state := range []domain.SessionState{domain.SessionNone, domain.SessionCheckingAvailability, domain.SessionReady} {
		snap := trackingSnapshot()
		snap.SessionState = state

		next, ev := m.Evaluate(st, snap, time.Second)
		if !ev.Skipped {
			t.Errorf("%s: expected skipped evaluation", state)
		}
		if ev.Classification != domain.Localizing || next.Last != domain.Localizing {
			t.Errorf("%s: expected previous classification to carry over, got %s", state, ev.Classification)
		}
		if next.LocalizationElapsed != 0 {
			t.Errorf("%s: timer must not advance while skipped", state)
		}
	}
}

func TestTrackingStateMachine_LifecycleErrors(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())

	for _, state := range []domain.SessionState{domain.SessionUnsupported, domain.SessionNeedsInstall, domain.SessionInstalling} {
		snap := trackingSnapshot()
		snap.SessionState = state

		_, ev := m.Evaluate(usecases.NewLocalizationState(), snap, time.Second)
		if ev.Classification != domain.SessionError || !ev.Fatal {
			t.Errorf("%s: expected fatal session error, got %s", state, ev.Classification)
		}
		if !strings.Contains(ev.Reason, state.String()) {
			t.Errorf("%s: reason %q does not name the state", state, ev.Reason)
		}
	}

	snap := trackingSnapshot()
	snap.LocationStatus = domain.LocationFailed
	_, ev := m.Evaluate(usecases.NewLocalizationState(), snap, time.Second)
	if ev.Classification != domain.SessionError || ev.Reason != domain.MessageLocationFailed {
		t.Errorf("expected location failure, got %s %q", ev.Classification, ev.Reason)
	}
}

func TestTrackingStateMachine_LocationNotReadyKeepsLocalizing(t *testing.T) {
	m := usecases.NewTrackingStateMachine(usecases.DefaultTrackingConfig())

	snap := trackingSnapshot()
	snap.LocationServiceReady = false

	_, ev := m.Evaluate(usecases.NewLocalizationState(), snap, time.Second)
	if ev.Classification != domain.Localizing {
		t.Errorf("expected localizing without location, got %s", ev.Classification)
	}
}
