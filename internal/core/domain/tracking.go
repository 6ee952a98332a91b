package domain

import "fmt"

// SessionState is the AR session lifecycle state.
type SessionState int

const (
	SessionNone SessionState = iota
	SessionUnsupported
	SessionCheckingAvailability
	SessionNeedsInstall
	SessionInstalling
	SessionReady
	SessionInitializing
	SessionTracking
)

var sessionStateNames = map[SessionState]string{
	SessionNone:                 "None",
	SessionUnsupported:          "Unsupported",
	SessionCheckingAvailability: "CheckingAvailability",
	SessionNeedsInstall:         "NeedsInstall",
	SessionInstalling:           "Installing",
	SessionReady:                "Ready",
	SessionInitializing:         "SessionInitializing",
	SessionTracking:             "SessionTracking",
}

func (s SessionState) String() string {
	if n, ok := sessionStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// ParseSessionState maps a state name back to its value.
func ParseSessionState(name string) (SessionState, error) {
	for s, n := range sessionStateNames {
		if n == name {
			return s, nil
		}
	}
	return SessionNone, fmt.Errorf("unknown session state %q", name)
}

// FeatureSupport reports whether the device supports geospatial tracking.
type FeatureSupport int

const (
	FeatureUnknown FeatureSupport = iota
	FeatureUnsupported
	FeatureSupported
)

func (f FeatureSupport) String() string {
	switch f {
	case FeatureUnknown:
		return "Unknown"
	case FeatureUnsupported:
		return "Unsupported"
	case FeatureSupported:
		return "Supported"
	}
	return fmt.Sprintf("FeatureSupport(%d)", int(f))
}

// FeatureMode is the geospatial mode currently configured on the session.
type FeatureMode int

const (
	FeatureModeDisabled FeatureMode = iota
	FeatureModeEnabled
)

// EarthState is the health of the earth tracking component.
type EarthState int

const (
	EarthEnabled EarthState = iota
	EarthErrorInternal
	EarthErrorGeospatialModeDisabled
	EarthErrorNotAuthorized
	EarthErrorResourcesExhausted
	EarthErrorPackageNotAllowed
	EarthErrorApkVersionTooOld
	EarthErrorUnsupportedConfiguration
)

var earthStateNames = map[EarthState]string{
	EarthEnabled:                       "Enabled",
	EarthErrorInternal:                 "ErrorInternal",
	EarthErrorGeospatialModeDisabled:   "ErrorGeospatialModeDisabled",
	EarthErrorNotAuthorized:            "ErrorNotAuthorized",
	EarthErrorResourcesExhausted:       "ErrorResourcesExhausted",
	EarthErrorPackageNotAllowed:        "ErrorPackageNotAllowed",
	EarthErrorApkVersionTooOld:         "ErrorApkVersionTooOld",
	EarthErrorUnsupportedConfiguration: "ErrorUnsupportedConfiguration",
}

func (e EarthState) String() string {
	if n, ok := earthStateNames[e]; ok {
		return n
	}
	return fmt.Sprintf("EarthState(%d)", int(e))
}

// ParseEarthState maps a state name back to its value.
func ParseEarthState(name string) (EarthState, error) {
	for s, n := range earthStateNames {
		if n == name {
			return s, nil
		}
	}
	return EarthErrorInternal, fmt.Errorf("unknown earth state %q", name)
}

// TrackingState is the subsystem's confidence in the global pose.
// Anything other than TrackingTracking counts as not tracking.
type TrackingState int

const (
	TrackingNone TrackingState = iota
	TrackingLimited
	TrackingTracking
)

func (t TrackingState) String() string {
	switch t {
	case TrackingNone:
		return "None"
	case TrackingLimited:
		return "Limited"
	case TrackingTracking:
		return "Tracking"
	}
	return fmt.Sprintf("TrackingState(%d)", int(t))
}

// LocationStatus is the platform location service status.
type LocationStatus int

const (
	LocationStopped LocationStatus = iota
	LocationInitializing
	LocationRunning
	LocationFailed
)

func (l LocationStatus) String() string {
	switch l {
	case LocationStopped:
		return "Stopped"
	case LocationInitializing:
		return "Initializing"
	case LocationRunning:
		return "Running"
	case LocationFailed:
		return "Failed"
	}
	return fmt.Sprintf("LocationStatus(%d)", int(l))
}

// TrackingSnapshot is the per-tick view of the tracking subsystem. It is never persisted.
type TrackingSnapshot struct {
	SessionState         SessionState
	FeatureSupport       FeatureSupport
	FeatureMode          FeatureMode
	EarthState           EarthState
	EarthTrackingState   TrackingState
	Pose                 *Pose // nil unless EarthTrackingState is TrackingTracking
	LocationStatus       LocationStatus
	LocationServiceReady bool
}

// EffectivePose returns the snapshot pose while tracking and a zero pose otherwise.
func (s TrackingSnapshot) EffectivePose() Pose {
	if s.EarthTrackingState != TrackingTracking || s.Pose == nil {
		return Pose{}
	}
	return *s.Pose
}

// Classification is the readiness derived from a snapshot and the accumulated timers.
type Classification int

const (
	ClassificationUnknown Classification = iota
	AwaitingFeatureCheck
	Unsupported
	ConfiguringFeature
	EarthError
	Localizing
	Localized
	LocalizationTimedOut
	SessionError
)

var classificationNames = map[Classification]string{
	ClassificationUnknown: "unknown",
	AwaitingFeatureCheck:  "awaiting_feature_check",
	Unsupported:           "unsupported",
	ConfiguringFeature:    "configuring_feature",
	EarthError:            "earth_error",
	Localizing:            "localizing",
	Localized:             "localized",
	LocalizationTimedOut:  "localization_timed_out",
	SessionError:          "session_error",
}

func (c Classification) String() string {
	if n, ok := classificationNames[c]; ok {
		return n
	}
	return fmt.Sprintf("classification(%d)", int(c))
}

// IsFatal reports whether the classification ends the session.
func (c Classification) IsFatal() bool {
	switch c {
	case Unsupported, EarthError, LocalizationTimedOut, SessionError:
		return true
	}
	return false
}

// MarshalText encodes the classification by name.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a classification name.
func (c *Classification) UnmarshalText(text []byte) error {
	for v, n := range classificationNames {
		if n == string(text) {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("unknown classification %q", string(text))
}
