package similar

import (
	"math"

	"github.com/dev-urban/mailchimp-automation/internal/model"
)

const earthRadiusKm = 6371

// distanceKm computes the great-circle distance between two coordinates via
// the spherical law of cosines:
//
//	d = 6371 × acos(cos φ1·cos φ2·cos(λ2−λ1) + sin φ1·sin φ2)
//
// Haversine would be more stable for near-antipodal points, but the law of
// cosines is adequate at city scale and matches the SQL the catalog team
// runs for the same query, keeping both sides numerically comparable.
func distanceKm(a, b model.Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dlon := radians(b.Lon - a.Lon)

	// Rounding can push the cosine a hair past ±1 for identical points,
	// which would make Acos return NaN.
	cos := math.Cos(lat1)*math.Cos(lat2)*math.Cos(dlon) + math.Sin(lat1)*math.Sin(lat2)
	cos = math.Min(1, math.Max(-1, cos))

	return earthRadiusKm * math.Acos(cos)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
