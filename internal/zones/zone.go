// Package zones holds the admin-defined service zones and the matcher that
// assigns a coordinate to its nearest zone.
package zones

import "math"

// EarthRadiusMiles is the mean earth radius used by the great-circle model.
const EarthRadiusMiles = 3958.8

// DefaultServiceRadiusMiles is the advisory in-service distance when no
// configuration overrides it.
const DefaultServiceRadiusMiles = 5.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Zone is a service area. Zones are owned by admin configuration and are
// read-only for the qualification pipeline.
type Zone struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Center      Point    `json:"center" yaml:"center"`
	RadiusMiles float64  `json:"radiusMiles" yaml:"radiusMiles"`
	ServiceDays []string `json:"serviceDays,omitempty" yaml:"serviceDays,omitempty"`
}

// DistanceMiles returns the haversine distance between two points.
func DistanceMiles(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
