package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/usecases"
	"github.com/samirrijal/geoanchor/internal/pkg/geospatial"
)

// SessionResponse is the JSON view of the session.
type SessionResponse struct {
	Classification      string              `json:"classification"`
	Fatal               bool                `json:"fatal"`
	Presentation        domain.Presentation `json:"presentation"`
	Localizing          bool                `json:"localizing"`
	LocalizationSeconds float64             `json:"localization_seconds"`
	AnchorCount         int                 `json:"anchor_count"`
	HistoryCount        int                 `json:"history_count"`
	ReplayPending       bool                `json:"replay_pending"`
	Terminating         bool                `json:"terminating"`
	Pose                *domain.Pose        `json:"pose,omitempty"`
}

// AnchorView is a stored anchor with its position relative to the current pose.
type AnchorView struct {
	domain.AnchorRecord
	DistanceM  *float64 `json:"distance_m,omitempty"`
	BearingDeg *float64 `json:"bearing_deg,omitempty"`
}

func sessionResponse(st usecases.SessionStatus) SessionResponse {
	return SessionResponse{
		Classification:      st.Classification.String(),
		Fatal:               st.Classification.IsFatal(),
		Presentation:        st.Presentation,
		Localizing:          st.Localizing,
		LocalizationSeconds: st.LocalizationElapsed.Seconds(),
		AnchorCount:         st.AnchorCount,
		HistoryCount:        st.HistoryCount,
		ReplayPending:       st.ReplayPending,
		Terminating:         st.Terminating,
		Pose:                st.Pose,
	}
}

// anchorViews pairs every record with its distance and bearing from pose, when known.
func anchorViews(records domain.HistoryCollection, pose *domain.Pose) []AnchorView {
	views := make([]AnchorView, 0, len(records))
	for _, rec := range records {
		v := AnchorView{AnchorRecord: rec}
		if pose != nil {
			d := geospatial.Haversine(pose.Latitude, pose.Longitude, rec.Latitude, rec.Longitude)
			b := geospatial.InitialBearing(pose.Latitude, pose.Longitude, rec.Latitude, rec.Longitude)
			v.DistanceM, v.BearingDeg = &d, &b
		}
		views = append(views, v)
	}
	return views
}

// GetSessionHandler returns the current classification and UI projection.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(sessionResponse(deps.Session.Status()))
	}
}

// ListAnchorsHandler returns the anchor history, newest first.
func ListAnchorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records := deps.Session.History()
		records.SortNewestFirst()
		views := anchorViews(records, deps.Session.Status().Pose)

		offset, limit := pageParams(c, 20, 100)
		page := paginate(views, offset, limit)
		SetLinkHeaders(c, page.Pagination)
		return c.JSON(page)
	}
}

// SetAnchorHandler places an anchor at the current camera pose.
func SetAnchorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := deps.Session.SetAnchor(c.UserContext())
		switch {
		case err == nil:
			return c.Status(fiber.StatusCreated).JSON(rec)
		case errors.Is(err, usecases.ErrNotEnabled):
			return errUnavailable(c, err.Error())
		case errors.Is(err, usecases.ErrNotLocalized):
			return errConflict(c, err.Error())
		case errors.Is(err, usecases.ErrPlacementFailed):
			return errUnprocessable(c, domain.MessageAnchorFailed)
		case errors.Is(err, domain.ErrInvalidAnchor):
			return errUnprocessable(c, err.Error())
		default:
			LoggerFromCtx(c.UserContext()).Error("set anchor", "error", err)
			return errInternal(c, err.Error())
		}
	}
}

// ClearAnchorsHandler removes every anchor and empties the history.
func ClearAnchorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Session.ClearAll(c.UserContext()); err != nil {
			LoggerFromCtx(c.UserContext()).Error("clear anchors", "error", err)
			return errInternal(c, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// AcceptPrivacyHandler records the privacy prompt consent.
func AcceptPrivacyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Session.AcceptPrivacyPrompt(c.UserContext()); err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(sessionResponse(deps.Session.Status()))
	}
}
