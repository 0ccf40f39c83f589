// internal/geo/geo.go
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for every distance computation.
const EarthRadiusKm = 6371.0

// FixedPointScale converts decimal degrees into the integer form stored on-chain.
const FixedPointScale = 1_000_000

var (
	ErrInvalidLatitude  = errors.New("latitude must be a finite number between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be a finite number between -180 and 180")
)

// Point is a location in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func NewPoint(lat, lng float64) (Point, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("%w: %v", ErrInvalidLatitude, lat)
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("%w: %v", ErrInvalidLongitude, lng)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// Distance returns the great-circle distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	if h > 1 {
		h = 1
	}

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// IsDeliverable reports whether a listing with the given delivery limit can
// reach a buyer distanceKm away. A limit of 0 means unconstrained.
func IsDeliverable(maxDeliveryKm, distanceKm float64) bool {
	if maxDeliveryKm == 0 {
		return true
	}
	return distanceKm <= maxDeliveryKm
}

// ToFixed scales decimal degrees by FixedPointScale and rounds to the nearest
// integer. Ties round toward positive infinity, the way the web client does.
func ToFixed(degrees float64) int64 {
	scaled := degrees * FixedPointScale
	r := math.Floor(scaled)
	if scaled-r >= 0.5 {
		r++
	}
	return int64(r)
}

// FromFixed is the inverse of ToFixed.
func FromFixed(v int64) float64 {
	return float64(v) / FixedPointScale
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
