package similar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dev-urban/mailchimp-automation/internal/model"
)

func TestDistanceKmIdenticalPoints(t *testing.T) {
	t.Parallel()

	p := model.Coordinate{Lat: -30.0277, Lon: -51.2287}
	d := distanceKm(p, p)
	assert.False(t, math.IsNaN(d), "acos domain must be clamped")
	assert.InDelta(t, 0, d, 1e-9)
}

func TestDistanceKmLatitudeOffset(t *testing.T) {
	t.Parallel()

	// Along a meridian the central angle equals the latitude delta, so
	// 1 km ≈ 0.00899322°.
	base := model.Coordinate{Lat: -30.0277, Lon: -51.2287}
	for _, km := range []float64{0.5, 2.1, 4.9, 10} {
		other := model.Coordinate{Lat: base.Lat + km*0.00899322, Lon: base.Lon}
		assert.InDelta(t, km, distanceKm(base, other), 0.01, "offset %f km", km)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	t.Parallel()

	a := model.Coordinate{Lat: -30.0277, Lon: -51.2287}
	b := model.Coordinate{Lat: -29.9939, Lon: -51.1711} // Salgado Filho airport
	assert.InDelta(t, distanceKm(a, b), distanceKm(b, a), 1e-9)

	// Sanity: city-scale distance, a handful of kilometers.
	assert.Greater(t, distanceKm(a, b), 4.0)
	assert.Less(t, distanceKm(a, b), 10.0)
}
