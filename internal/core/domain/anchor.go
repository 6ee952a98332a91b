package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidAnchor is returned when an anchor record carries out-of-range values.
var ErrInvalidAnchor = errors.New("invalid anchor record")

// AnchorRecord is one user-placed or replayed geospatial marker.
// Records are values: CreatedAt is set once by NewAnchorRecord and never updated.
type AnchorRecord struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Heading   float64   `json:"heading"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAnchorRecord captures pose as a new record created at now.
func NewAnchorRecord(pose Pose, now time.Time) AnchorRecord {
	return AnchorRecord{
		Latitude:  pose.Latitude,
		Longitude: pose.Longitude,
		Altitude:  pose.Altitude,
		Heading:   pose.Heading,
		CreatedAt: now,
	}
}

// Point returns the record's horizontal position.
func (a AnchorRecord) Point() GeoPoint {
	return GeoPoint{Lat: a.Latitude, Lon: a.Longitude}
}

// Validate checks that every coordinate is finite and in range and that the
// record has a creation time.
func (a AnchorRecord) Validate() error {
	switch {
	case !finite(a.Latitude, a.Longitude, a.Altitude, a.Heading):
		return fmt.Errorf("%w: non-finite coordinate (%f, %f, %f, %f)",
			ErrInvalidAnchor, a.Latitude, a.Longitude, a.Altitude, a.Heading)
	case a.Latitude < -90 || a.Latitude > 90:
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidAnchor, a.Latitude)
	case a.Longitude < -180 || a.Longitude > 180:
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidAnchor, a.Longitude)
	case a.Heading < -360 || a.Heading > 360:
		return fmt.Errorf("%w: heading %f out of range", ErrInvalidAnchor, a.Heading)
	case a.CreatedAt.IsZero():
		return fmt.Errorf("%w: missing createdAt", ErrInvalidAnchor)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// HistoryCollection is an ordered list of anchor records.
type HistoryCollection []AnchorRecord

// SortNewestFirst orders the collection by CreatedAt, newest first.
// Records with equal timestamps keep their relative order.
func (c HistoryCollection) SortNewestFirst() {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].CreatedAt.After(c[j].CreatedAt)
	})
}

// Clone returns a copy that shares no backing array with c.
func (c HistoryCollection) Clone() HistoryCollection {
	if c == nil {
		return HistoryCollection{}
	}
	out := make(HistoryCollection, len(c))
	copy(out, c)
	return out
}
