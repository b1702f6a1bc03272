// Package geo provides common geographic types and calculations.
// It centralizes location-based data structures and algorithms so that the
// fare calculator, the wizard and the geocoding client agree on units.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean radius of Earth in kilometers
const EarthRadiusKm = 6371.0

// Point represents a geographic coordinate (latitude and longitude in degrees)
// with standardized JSON field names.
//
// Example:
//
//	p := geo.Point{Latitude: 6.9214, Longitude: 122.0790}
//	km := geo.Distance(p, geo.Point{Latitude: 6.9100, Longitude: 122.0730})
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String returns the point as "lat,lon" with six decimals
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

// ValidateCoords checks that lat and lon are within the WGS-84 ranges
func ValidateCoords(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude %f: must be between -90 and 90", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("invalid longitude %f: must be between -180 and 180", lon)
	}
	return nil
}

// BoundingBox represents a geographic bounding box with southwest and northeast corners
type BoundingBox struct {
	MinLat float64 `json:"min_lat"` // Southern edge (minimum latitude)
	MinLon float64 `json:"min_lon"` // Western edge (minimum longitude)
	MaxLat float64 `json:"max_lat"` // Northern edge (maximum latitude)
	MaxLon float64 `json:"max_lon"` // Eastern edge (maximum longitude)
}

// NewBoundingBox creates a new empty bounding box
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: 90.0, // Start with inverted min/max so any point extends correctly
		MinLon: 180.0,
		MaxLat: -90.0,
		MaxLon: -180.0,
	}
}

// BoxFromCorners returns the smallest box containing both corner points.
// The corners may be given in any order.
func BoxFromCorners(a, b Point) BoundingBox {
	bb := NewBoundingBox()
	bb.ExtendWithPoint(a.Latitude, a.Longitude)
	bb.ExtendWithPoint(b.Latitude, b.Longitude)
	return *bb
}

// ExtendWithPoint extends the bounding box to include the specified point
func (bb *BoundingBox) ExtendWithPoint(lat, lon float64) {
	if lat < bb.MinLat {
		bb.MinLat = lat
	}
	if lat > bb.MaxLat {
		bb.MaxLat = lat
	}
	if lon < bb.MinLon {
		bb.MinLon = lon
	}
	if lon > bb.MaxLon {
		bb.MaxLon = lon
	}
}

// Contains reports whether p lies inside the box. Edges are inclusive.
func (bb BoundingBox) Contains(p Point) bool {
	return p.Latitude >= bb.MinLat && p.Latitude <= bb.MaxLat &&
		p.Longitude >= bb.MinLon && p.Longitude <= bb.MaxLon
}

// Empty reports whether the box has no area, including the inverted state
// returned by NewBoundingBox before any point is added.
func (bb BoundingBox) Empty() bool {
	return bb.MinLat >= bb.MaxLat || bb.MinLon >= bb.MaxLon
}

// SouthWest returns the southwest corner
func (bb BoundingBox) SouthWest() Point {
	return Point{Latitude: bb.MinLat, Longitude: bb.MinLon}
}

// NorthEast returns the northeast corner
func (bb BoundingBox) NorthEast() Point {
	return Point{Latitude: bb.MaxLat, Longitude: bb.MaxLon}
}

// ViewBox formats the box as a Nominatim viewbox parameter
// ("left,top,right,bottom", i.e. minLon,maxLat,maxLon,minLat).
func (bb BoundingBox) ViewBox() string {
	return fmt.Sprintf("%f,%f,%f,%f", bb.MinLon, bb.MaxLat, bb.MaxLon, bb.MinLat)
}

// String returns a string representation of the bounding box
func (bb BoundingBox) String() string {
	return fmt.Sprintf("(%f,%f,%f,%f)", bb.MinLat, bb.MinLon, bb.MaxLat, bb.MaxLon)
}

// HaversineKm calculates the great-circle distance between two points
// on the Earth's surface given their latitude and longitude in degrees.
// The result is returned in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b Point) float64 {
	return HaversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}
