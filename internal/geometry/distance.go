package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Distance is the great-circle distance in meters between two points, using
// the haversine formula.
func Distance(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// Perimeter sums the great-circle length of every edge of the ring, including
// the closing edge when the ring is not explicitly closed.
func Perimeter(ring orb.Ring) float64 {
	if len(ring) < 2 {
		return 0
	}
	var total float64
	for i := 0; i < len(ring)-1; i++ {
		total += Distance(ring[i], ring[i+1])
	}
	if !ring.Closed() {
		total += Distance(ring[len(ring)-1], ring[0])
	}
	return total
}
