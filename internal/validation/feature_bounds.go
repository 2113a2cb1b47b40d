package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// InvalidCoordinate is a vertex outside the valid WGS84 range.
type InvalidCoordinate struct {
	Longitude       float64 `json:"longitude"`
	Latitude        float64 `json:"latitude"`
	Reason          string  `json:"reason"`
	PolygonIndex    int     `json:"polygon_index"`
	RingIndex       int     `json:"ring_index"`
	CoordinateIndex int     `json:"coordinate_index"`
}

type FeatureBoundsInfo struct {
	InvalidCoordinates []InvalidCoordinate `json:"invalid_coordinates"`
}

// FeatureBounds flags coordinates with latitude outside [-90, 90] or
// longitude outside [-180, 180].
type FeatureBounds struct {
	store polygons.GeometryStore
}

func NewFeatureBounds(store polygons.GeometryStore) *FeatureBounds {
	return &FeatureBounds{store: store}
}

func (v *FeatureBounds) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	raw, err := v.store.GeoJSON(ctx, id)
	if err != nil {
		return Result{}, err
	}
	g, err := geometry.Parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("stored geometry %s: %w", id, err)
	}
	return checkFeatureBounds(g), nil
}

func (v *FeatureBounds) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
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
		out = append(out, polygonResult(id, checkFeatureBounds(g)))
	}
	return out, nil
}

func (v *FeatureBounds) ValidateGeometry(_ context.Context, feature geometry.Feature) (Result, error) {
	return checkFeatureBounds(feature.Geometry), nil
}

func checkFeatureBounds(g geometry.Geometry) Result {
	var invalid []InvalidCoordinate
	switch s := g.Shape.(type) {
	case orb.Point:
		invalid = appendOutOfRange(invalid, s, 0, 0, 0)
	case orb.Polygon, orb.MultiPolygon:
		for pi, poly := range g.Polygons() {
			for ri, ring := range poly {
				for ci, p := range ring {
					invalid = appendOutOfRange(invalid, p, pi, ri, ci)
				}
			}
		}
	default:
		return Result{Valid: false, ExtraInfo: GeometryError{Error: fmt.Sprintf("unsupported geometry type %q", g.Type)}}
	}

	if len(invalid) == 0 {
		return Result{Valid: true}
	}
	return Result{Valid: false, ExtraInfo: FeatureBoundsInfo{InvalidCoordinates: invalid}}
}

func appendOutOfRange(dst []InvalidCoordinate, p orb.Point, polygon, ring, index int) []InvalidCoordinate {
	lon, lat := p.Lon(), p.Lat()
	add := func(reason string) {
		dst = append(dst, InvalidCoordinate{
			Longitude:       lon,
			Latitude:        lat,
			Reason:          reason,
			PolygonIndex:    polygon,
			RingIndex:       ring,
			CoordinateIndex: index,
		})
	}
	if lat < -90 || lat > 90 {
		add(fmt.Sprintf("latitude %v is outside [-90, 90]", lat))
	}
	if lon < -180 || lon > 180 {
		add(fmt.Sprintf("longitude %v is outside [-180, 180]", lon))
	}
	return dst
}
