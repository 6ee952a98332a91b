// Package simulator plays a scripted AR session so the session controller can run
// on hosts without a tracking subsystem.
package simulator

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/geoanchor/internal/core/domain"
)

//go:embed default.yaml
var defaultScript []byte

// Script is a sequence of frames played back in order. The last frame holds
// once the script has run out.
type Script struct {
	FeatureMode string  `yaml:"feature_mode"`
	FailAnchors bool    `yaml:"fail_anchors"`
	Frames      []Frame `yaml:"frames"`
}

// Frame is one stretch of constant tracking output.
type Frame struct {
	Duration       time.Duration `yaml:"duration"`
	SessionState   string        `yaml:"session_state"`
	FeatureSupport string        `yaml:"feature_support"`
	EarthState     string        `yaml:"earth_state"`
	Tracking       string        `yaml:"tracking"`
	LocationStatus string        `yaml:"location_status"`
	Pose           *domain.Pose  `yaml:"pose"`
}

type frame struct {
	duration time.Duration
	snap     domain.TrackingSnapshot
}

var (
	featureSupportNames = map[string]domain.FeatureSupport{
		"Unknown":     domain.FeatureUnknown,
		"Unsupported": domain.FeatureUnsupported,
		"Supported":   domain.FeatureSupported,
	}
	trackingNames = map[string]domain.TrackingState{
		"None":     domain.TrackingNone,
		"Limited":  domain.TrackingLimited,
		"Tracking": domain.TrackingTracking,
	}
	locationNames = map[string]domain.LocationStatus{
		"Stopped":      domain.LocationStopped,
		"Initializing": domain.LocationInitializing,
		"Running":      domain.LocationRunning,
		"Failed":       domain.LocationFailed,
	}
)

// LoadScript reads a script file. An empty path selects the built-in script.
func LoadScript(path string) (*Script, error) {
	data := defaultScript
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if _, err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) compile() ([]frame, error) {
	if len(s.Frames) == 0 {
		return nil, fmt.Errorf("script has no frames")
	}
	switch s.FeatureMode {
	case "", "disabled", "enabled":
	default:
		return nil, fmt.Errorf("feature_mode must be enabled or disabled, got %q", s.FeatureMode)
	}

	frames := make([]frame, 0, len(s.Frames))
	for i, f := range s.Frames {
		snap, err := f.snapshot()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if f.Duration < 0 {
			return nil, fmt.Errorf("frame %d: negative duration", i)
		}
		frames = append(frames, frame{duration: f.Duration, snap: snap})
	}
	return frames, nil
}

func (f Frame) snapshot() (domain.TrackingSnapshot, error) {
	var snap domain.TrackingSnapshot
	var err error

	if snap.SessionState, err = domain.ParseSessionState(f.SessionState); err != nil {
		return snap, err
	}
	if snap.EarthState, err = domain.ParseEarthState(orDefault(f.EarthState, "Enabled")); err != nil {
		return snap, err
	}

	var ok bool
	if snap.FeatureSupport, ok = featureSupportNames[orDefault(f.FeatureSupport, "Supported")]; !ok {
		return snap, fmt.Errorf("unknown feature support %q", f.FeatureSupport)
	}
	if snap.EarthTrackingState, ok = trackingNames[orDefault(f.Tracking, "None")]; !ok {
		return snap, fmt.Errorf("unknown tracking state %q", f.Tracking)
	}
	if snap.LocationStatus, ok = locationNames[orDefault(f.LocationStatus, "Running")]; !ok {
		return snap, fmt.Errorf("unknown location status %q", f.LocationStatus)
	}

	if f.Pose != nil {
		p := *f.Pose
		snap.Pose = &p
	}
	return snap, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
