//go:build property
// +build property

package validation

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/paulmach/orb"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// regularRing builds an n-gon of the given ground radius (in degrees of
// latitude) around a centre, closed explicitly.
func regularRing(n int, lon, lat, radius float64) orb.Ring {
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{
			lon + radius*math.Cos(theta)/math.Cos(lat*math.Pi/180),
			lat + radius*math.Sin(theta),
		})
	}
	return append(ring, ring[0])
}

// TestRegularPolygonsHaveNoSpikes verifies convex regular shapes never trip
// the detector. Triangles are excluded: two of three equal edges are 2/3 of
// the perimeter.
func TestRegularPolygonsHaveNoSpikes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("regular n-gons with n >= 4 are spike free", prop.ForAll(
		func(n int, lon, lat, radius float64) bool {
			return len(DetectSpikes(regularRing(n, lon, lat, radius))) == 0
		},
		gen.IntRange(4, 64),
		gen.Float64Range(-170, 170),
		gen.Float64Range(-60, 60),
		gen.Float64Range(0.0005, 0.05),
	))

	properties.TestingRun(t)
}

// TestInjectedSpikeIsReported verifies a long needle added to a small square
// is detected and listed.
func TestInjectedSpikeIsReported(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("needle vertex is listed", prop.ForAll(
		func(lat, reach float64) bool {
			needle := orb.Point{0.01 + reach, lat + 0.005}
			ring := orb.Ring{
				{0, lat}, {0.01, lat}, needle, {0.01, lat + 0.01}, {0, lat + 0.01}, {0, lat},
			}
			spikes := DetectSpikes(ring)
			if len(spikes) == 0 {
				return false
			}
			for _, p := range spikes {
				if p.Equal(needle) {
					return true
				}
			}
			return false
		},
		gen.Float64Range(-60, 60),
		gen.Float64Range(0.5, 5),
	))

	properties.TestingRun(t)
}

// TestFeatureBoundsMatchesRange verifies a point is valid exactly when both
// coordinates are in range.
func TestFeatureBoundsMatchesRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("valid iff in range", prop.ForAll(
		func(lon, lat float64) bool {
			res := checkFeatureBounds(geometry.Geometry{Type: geometry.TypePoint, Shape: orb.Point{lon, lat}})
			inRange := lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
			return res.Valid == inRange
		},
		gen.Float64Range(-360, 360),
		gen.Float64Range(-180, 180),
	))

	properties.TestingRun(t)
}

// TestOverlapPercentageBounded verifies the overlap share stays within
// [0, 100] for any intersection no larger than the smaller polygon.
func TestOverlapPercentageBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("0 <= percentage <= 100", prop.ForAll(
		func(target, candidate, share float64) bool {
			inter := math.Min(target, candidate) * share
			rec := overlapRecord(polygons.Intersection{
				IntersectionArea: inter, TargetArea: target, CandidateArea: candidate,
			})
			return rec.Percentage >= 0 && rec.Percentage <= 100 &&
				rec.IntersectSmaller == (candidate < target)
		},
		gen.Float64Range(1e-6, 1e3),
		gen.Float64Range(1e-6, 1e3),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// TestDataCompletenessIdempotent verifies repeated calls agree.
func TestDataCompletenessIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	v := NewDataCompleteness(nil)
	properties.Property("same feature, same result", prop.ForAll(
		func(name, practice, trees string) bool {
			f := geometry.Feature{Properties: map[string]any{
				FieldPolyName: name, FieldPractice: practice, FieldNumTrees: trees,
			}}
			a, errA := v.ValidateGeometry(context.Background(), f)
			b, errB := v.ValidateGeometry(context.Background(), f)
			return errA == nil && errB == nil && reflect.DeepEqual(a, b)
		},
		gen.AlphaString(),
		gen.OneConstOf("tree-planting", "direct-seeding", "burning", ""),
		gen.NumString(),
	))

	properties.TestingRun(t)
}
