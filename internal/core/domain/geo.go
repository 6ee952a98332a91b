package domain

import "math"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Pose is the camera's geospatial pose as reported by the tracking subsystem.
// Accuracies are 68% confidence radii: meters for horizontal/vertical, degrees for heading.
type Pose struct {
	Latitude           float64 `json:"latitude" yaml:"latitude"`
	Longitude          float64 `json:"longitude" yaml:"longitude"`
	Altitude           float64 `json:"altitude" yaml:"altitude"`
	Heading            float64 `json:"heading" yaml:"heading"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy" yaml:"horizontal_accuracy"`
	VerticalAccuracy   float64 `json:"vertical_accuracy" yaml:"vertical_accuracy"`
	HeadingAccuracy    float64 `json:"heading_accuracy" yaml:"heading_accuracy"`
}

// Point returns the pose's horizontal position.
func (p Pose) Point() GeoPoint {
	return GeoPoint{Lat: p.Latitude, Lon: p.Longitude}
}

// Quaternion is a rotation in the tracking subsystem's world frame (Y up).
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// YawRotation returns a rotation of deg degrees about the vertical (Y) axis.
func YawRotation(deg float64) Quaternion {
	half := deg * math.Pi / 360
	return Quaternion{Y: math.Sin(half), W: math.Cos(half)}
}

// Yaw returns the rotation angle about the vertical axis in degrees, normalised to [0, 360).
func (q Quaternion) Yaw() float64 {
	deg := 2 * math.Atan2(q.Y, q.W) * 180 / math.Pi
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// PlacementOrientation is the orientation given to an anchor recorded at heading.
// The anchored object faces its local -Z, so it is turned 180° - heading about the
// vertical axis to face away from the recorded compass heading.
func PlacementOrientation(heading float64) Quaternion {
	return YawRotation(180 - heading)
}
