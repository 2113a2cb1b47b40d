package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// spikeRatio is the share of the ring perimeter above which the two edges
// meeting at a vertex make it a spike.
const spikeRatio = 0.6

type SpikesInfo struct {
	Spikes     []orb.Point `json:"spikes"`
	SpikeCount int         `json:"spike_count"`
}

// Spikes flags narrow protrusions on the outer ring of the first polygon.
type Spikes struct {
	store polygons.GeometryStore
}

func NewSpikes(store polygons.GeometryStore) *Spikes {
	return &Spikes{store: store}
}

func (v *Spikes) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	raw, err := v.store.GeoJSON(ctx, id)
	if err != nil {
		return Result{}, err
	}
	g, err := geometry.Parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("stored geometry %s: %w", id, err)
	}
	return spikesResult(g), nil
}

func (v *Spikes) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
	docs, err := v.store.GeoJSONBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]PolygonResult, 0, len(ids))
	for _, id := range ids {
		raw, ok := docs[id]
		if !ok {
			out = append(out, errorResult(id, "polygon geometry not found"))
			continue
		}
		g, err := geometry.Parse(raw)
		if err != nil {
			out = append(out, geometryErrorResult(id, err))
			continue
		}
		out = append(out, polygonResult(id, spikesResult(g)))
	}
	return out, nil
}

func (v *Spikes) ValidateGeometry(_ context.Context, feature geometry.Feature) (Result, error) {
	return spikesResult(feature.Geometry), nil
}

func spikesResult(g geometry.Geometry) Result {
	var spikes []orb.Point
	if ring, ok := g.OuterRing(); ok {
		spikes = DetectSpikes(ring)
	}
	if spikes == nil {
		spikes = []orb.Point{}
	}
	return Result{
		Valid:     len(spikes) == 0,
		ExtraInfo: SpikesInfo{Spikes: spikes, SpikeCount: len(spikes)},
	}
}

// DetectSpikes returns, in ring order, every vertex whose two adjacent edges
// together exceed spikeRatio of the ring perimeter. Edge lengths are
// haversine distances. A closing vertex equal to the first is not repeated.
func DetectSpikes(ring orb.Ring) []orb.Point {
	pts := []orb.Point(ring)
	if len(pts) > 1 && pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	n := len(pts)
	if n < 3 {
		return nil
	}

	perimeter := geometry.Perimeter(orb.Ring(pts))
	if perimeter == 0 {
		return nil
	}

	var spikes []orb.Point
	for i := 0; i < n; i++ {
		prev, next := pts[(i+n-1)%n], pts[(i+1)%n]
		adjacent := geometry.Distance(prev, pts[i]) + geometry.Distance(pts[i], next)
		if adjacent > spikeRatio*perimeter {
			spikes = append(spikes, pts[i])
		}
	}
	return spikes
}
