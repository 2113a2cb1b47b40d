package validation

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

const (
	// MaxPolygonHectares is the largest area, inclusive, a single site
	// boundary may cover.
	MaxPolygonHectares = 1000.0

	metersPerDegree    = 111320.0
	sqMetersPerHectare = 10000.0
)

type PolygonSizeInfo struct {
	AreaHectares float64  `json:"area_hectares"`
	AreaSqMeters *float64 `json:"area_sq_meters,omitempty"`
	MaxHectares  float64  `json:"max_hectares"`
}

// PolygonSize checks stored polygons against their recorded calc_area and
// uploaded geometries against an area derived from the geometry store.
type PolygonSize struct {
	store  polygons.GeometryStore
	lookup polygons.EntityLookup
}

func NewPolygonSize(store polygons.GeometryStore, lookup polygons.EntityLookup) *PolygonSize {
	return &PolygonSize{store: store, lookup: lookup}
}

func (v *PolygonSize) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	pc, err := v.lookup.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return sizeResult(storedHectares(pc.SitePolygon), nil), nil
}

func (v *PolygonSize) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
	resolved, err := v.lookup.ResolveBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]PolygonResult, 0, len(ids))
	for _, id := range ids {
		pc, ok := resolved[id]
		if !ok {
			out = append(out, errorResult(id, "active site polygon not found"))
			continue
		}
		out = append(out, polygonResult(id, sizeResult(storedHectares(pc.SitePolygon), nil)))
	}
	return out, nil
}

// ValidateGeometry approximates the area of each constituent polygon from its
// planar area in square degrees, scaled at its centroid latitude.
func (v *PolygonSize) ValidateGeometry(ctx context.Context, feature geometry.Feature) (Result, error) {
	if err := v.store.Ping(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	parts, err := areaParts(feature.Geometry)
	if err != nil {
		return Result{}, err
	}

	var sqMeters float64
	for _, part := range parts {
		area, lat, err := v.store.AreaAndCentroidLatitude(ctx, part)
		if err != nil {
			return Result{}, fmt.Errorf("%w: area calculation: %v", ErrInternal, err)
		}
		scale := metersPerDegree * math.Cos(lat*math.Pi/180)
		sqMeters += area * scale * scale
	}
	return sizeResult(sqMeters/sqMetersPerHectare, &sqMeters), nil
}

// areaParts splits a MultiPolygon into its polygons so each is scaled at its
// own latitude. Other geometries are measured whole.
func areaParts(g geometry.Geometry) ([][]byte, error) {
	if g.Type != geometry.TypeMultiPolygon {
		if len(g.Raw) == 0 {
			return nil, geometry.ErrEmptyGeometry
		}
		return [][]byte{g.Raw}, nil
	}

	polys := g.Polygons()
	parts := make([][]byte, 0, len(polys))
	for _, poly := range polys {
		raw, err := geometry.Encode(poly)
		if err != nil {
			return nil, err
		}
		parts = append(parts, raw)
	}
	return parts, nil
}

func storedHectares(sp polygons.SitePolygon) float64 {
	if sp.CalcArea == nil {
		return 0
	}
	return *sp.CalcArea
}

func sizeResult(hectares float64, sqMeters *float64) Result {
	info := PolygonSizeInfo{
		AreaHectares: round(hectares, 2),
		MaxHectares:  MaxPolygonHectares,
	}
	if sqMeters != nil {
		info.AreaSqMeters = floatPtr(round(*sqMeters, 2))
	}
	return Result{Valid: hectares <= MaxPolygonHectares, ExtraInfo: info}
}
