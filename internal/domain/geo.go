package domain

import (
	"fmt"
	"math"
	"time"
)

const earthRadiusMeters = 6371000.0

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// BucketKey rounds the coordinate to the given number of decimals and returns
// a stable cache key. Two decimals is roughly a 1 km cell, three roughly 100 m.
func (c Coordinate) BucketKey(decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	scale := math.Pow(10, float64(decimals))
	lat := math.Round(c.Latitude*scale) / scale
	lng := math.Round(c.Longitude*scale) / scale
	return fmt.Sprintf("%.*f,%.*f", decimals, lat, decimals, lng)
}

// DistanceTo returns the great-circle distance in metres.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - c.Latitude) * math.Pi / 180
	dLng := (other.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// LocationSample is one reading from the location provider.
type LocationSample struct {
	Coordinate
	Altitude  *float64  `json:"altitude,omitempty"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Geofence marks the area in which a story is location-relevant.
type Geofence struct {
	Center Coordinate `json:"center" yaml:"center"`
	Radius float64    `json:"radius" yaml:"radius"` // metres
}

// Contains reports whether point lies inside the fence.
func (g Geofence) Contains(point Coordinate) bool {
	if g.Radius <= 0 {
		return false
	}
	return g.Center.DistanceTo(point) <= g.Radius
}
