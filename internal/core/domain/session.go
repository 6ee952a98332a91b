package domain

import "time"

// User-facing messages.
const (
	MessageLocalizing           = "Localizing your device to set anchor."
	MessageLocalizationHint     = "Point your camera at buildings, stores, and signs near you."
	MessageLocalizationFailure  = "Localization not possible.\nClose and open the app to restart the session."
	MessageLocalizationComplete = "Localization completed."
	MessageAnchorsCleared       = "Anchor(s) cleared!"
	MessageAnchorFailed         = "Failed to set an anchor!"
	MessageUnsupported          = "Geospatial API is not supported by this device."
	MessageMissingComponents    = "Geospatial session failed with missing AR components."
	MessageLocationFailed       = "Geospatial session failed to start location service.\nPlease start the app again and grant precise location permission."
	MessageNotTracking          = "GEOSPATIAL POSE: not tracking"
)

// Buttons is the enablement of the anchor controls.
type Buttons struct {
	PlaceAnchor bool `json:"place_anchor"`
	ClearAll    bool `json:"clear_all"`
}

// Presentation is what the UI should show after a tick or user action.
type Presentation struct {
	InARView  bool    `json:"in_ar_view"`
	Message   string  `json:"message"`
	Buttons   Buttons `json:"buttons"`
	InfoPanel bool    `json:"info_panel"`
	InfoText  string  `json:"info_text,omitempty"`
}

// SessionEventType names a session event.
type SessionEventType string

const (
	EventEnabled        SessionEventType = "enabled"
	EventDisabled       SessionEventType = "disabled"
	EventClassification SessionEventType = "classification"
	EventAnchorPlaced   SessionEventType = "anchor_placed"
	EventAnchorReplayed SessionEventType = "anchor_replayed"
	EventAnchorFailed   SessionEventType = "anchor_failed"
	EventAnchorsCleared SessionEventType = "anchors_cleared"
	EventTerminating    SessionEventType = "terminating"
)

// SessionEvent is published whenever the session changes in a way observers care about.
type SessionEvent struct {
	Type           SessionEventType `json:"type"`
	Classification Classification   `json:"classification"`
	Reason         string           `json:"reason,omitempty"`
	Anchor         *AnchorRecord    `json:"anchor,omitempty"`
	AnchorCount    int              `json:"anchor_count"`
	Time           time.Time        `json:"time"`
}
