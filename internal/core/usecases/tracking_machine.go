package usecases

import (
	"fmt"
	"time"

	"github.com/samirrijal/geoanchor/internal/core/domain"
)

// TrackingConfig holds the localization thresholds and timers.
type TrackingConfig struct {
	HeadingAccuracyThreshold    float64       // degrees
	HorizontalAccuracyThreshold float64       // meters
	LocalizationTimeout         time.Duration // fatal once exceeded while localizing
	FeatureEnableGrace          time.Duration // wait after enabling the geospatial mode
	ErrorDisplay                time.Duration // how long a fatal reason is shown before quitting
}

// DefaultTrackingConfig returns the stock thresholds.
func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		HeadingAccuracyThreshold:    25,
		HorizontalAccuracyThreshold: 20,
		LocalizationTimeout:         180 * time.Second,
		FeatureEnableGrace:          3 * time.Second,
		ErrorDisplay:                3 * time.Second,
	}
}

// Accurate reports whether p is within both accuracy thresholds. A NaN
// accuracy is never accurate.
func (c TrackingConfig) Accurate(p domain.Pose) bool {
	return p.HeadingAccuracy <= c.HeadingAccuracyThreshold &&
		p.HorizontalAccuracy <= c.HorizontalAccuracyThreshold
}

// Transition is a change of localization status observed during one evaluation.
type Transition int

const (
	TransitionNone Transition = iota
	// TransitionLost: localization was lost; anchors and controls must be hidden.
	TransitionLost
	// TransitionLocalized: localization completed; anchors and controls are shown again.
	TransitionLocalized
)

// LocalizationState is everything the machine carries between ticks.
type LocalizationState struct {
	Localizing             bool
	LocalizationElapsed    time.Duration
	FeatureEnableRequested bool
	EnablingFeature        bool
	GraceRemaining         time.Duration
	Last                   domain.Classification
}

// NewLocalizationState is the state at session start: localizing, no timers running.
func NewLocalizationState() LocalizationState {
	return LocalizationState{Localizing: true}
}

// Evaluation is the outcome of one tick.
type Evaluation struct {
	Classification domain.Classification
	// Skipped is set when the session is not initializing or tracking yet;
	// Classification then repeats the previous one.
	Skipped       bool
	Fatal         bool
	Reason        string
	EnableFeature bool
	Transition    Transition
	Message       string
	Pose          domain.Pose
}

// TrackingStateMachine turns tracking snapshots into classifications.
// It keeps no mutable state; callers thread LocalizationState through Evaluate.
type TrackingStateMachine struct {
	cfg TrackingConfig
}

// NewTrackingStateMachine creates a TrackingStateMachine.
func NewTrackingStateMachine(cfg TrackingConfig) *TrackingStateMachine {
	return &TrackingStateMachine{cfg: cfg}
}

// Config returns the machine's thresholds.
func (m *TrackingStateMachine) Config() TrackingConfig {
	return m.cfg
}

// Evaluate classifies snap given the state carried from the previous tick and the
// time elapsed since it.
func (m *TrackingStateMachine) Evaluate(st LocalizationState, snap domain.TrackingSnapshot, elapsed time.Duration) (LocalizationState, Evaluation) {
	st, ev := m.evaluate(st, snap, elapsed)
	if !ev.Skipped {
		st.Last = ev.Classification
	}
	return st, ev
}

func (m *TrackingStateMachine) evaluate(st LocalizationState, snap domain.TrackingSnapshot, elapsed time.Duration) (LocalizationState, Evaluation) {
	if reason := lifecycleError(snap); reason != "" {
		return st, fatal(domain.SessionError, reason)
	}

	if snap.SessionState != domain.SessionInitializing && snap.SessionState != domain.SessionTracking {
		return st, Evaluation{Classification: st.Last, Skipped: true}
	}

	switch snap.FeatureSupport {
	case domain.FeatureUnknown:
		return st, Evaluation{Classification: domain.AwaitingFeatureCheck}
	case domain.FeatureUnsupported:
		return st, fatal(domain.Unsupported, domain.MessageUnsupported)
	}

	if snap.FeatureMode == domain.FeatureModeDisabled && !st.FeatureEnableRequested {
		st.FeatureEnableRequested = true
		st.EnablingFeature = true
		st.GraceRemaining = m.cfg.FeatureEnableGrace
		return st, Evaluation{Classification: domain.ConfiguringFeature, EnableFeature: true}
	}

	// Wait for the new configuration to take effect.
	if st.EnablingFeature {
		st.GraceRemaining -= elapsed
		if st.GraceRemaining >= 0 {
			return st, Evaluation{Classification: domain.ConfiguringFeature}
		}
		st.EnablingFeature = false
		st.GraceRemaining = 0
	}

	if snap.EarthState != domain.EarthEnabled {
		return st, fatal(domain.EarthError,
			fmt.Sprintf("Geospatial session encountered an EarthState error: %s", snap.EarthState))
	}

	ready := snap.SessionState == domain.SessionTracking && snap.LocationServiceReady
	pose := snap.EffectivePose()

	if !ready || snap.EarthTrackingState != domain.TrackingTracking || !m.cfg.Accurate(pose) {
		ev := Evaluation{Classification: domain.Localizing, Pose: pose}
		if !st.Localizing {
			st.Localizing = true
			st.LocalizationElapsed = 0
			ev.Transition = TransitionLost
		}

		st.LocalizationElapsed += elapsed
		if st.LocalizationElapsed > m.cfg.LocalizationTimeout {
			f := fatal(domain.LocalizationTimedOut, domain.MessageLocalizationFailure)
			f.Transition = ev.Transition
			f.Pose = pose
			return st, f
		}
		ev.Message = domain.MessageLocalizationHint
		return st, ev
	}

	ev := Evaluation{Classification: domain.Localized, Pose: pose}
	if st.Localizing {
		st.Localizing = false
		st.LocalizationElapsed = 0
		ev.Transition = TransitionLocalized
		ev.Message = domain.MessageLocalizationComplete
	}
	return st, ev
}

// lifecycleError returns a non-empty reason when the session or the location
// service is in a state it cannot recover from.
func lifecycleError(snap domain.TrackingSnapshot) string {
	switch snap.SessionState {
	case domain.SessionNone, domain.SessionCheckingAvailability, domain.SessionReady,
		domain.SessionInitializing, domain.SessionTracking:
	default:
		return fmt.Sprintf("Geospatial session encountered an ARSession error state %s.\nPlease start the app again.", snap.SessionState)
	}
	if snap.LocationStatus == domain.LocationFailed {
		return domain.MessageLocationFailed
	}
	return ""
}

func fatal(c domain.Classification, reason string) Evaluation {
	return Evaluation{Classification: c, Fatal: true, Reason: reason, Message: reason}
}
