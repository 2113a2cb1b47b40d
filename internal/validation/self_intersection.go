package validation

import (
	"context"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// SelfIntersection delegates to the geometry store's simplicity predicate.
type SelfIntersection struct {
	store polygons.GeometryStore
}

func NewSelfIntersection(store polygons.GeometryStore) *SelfIntersection {
	return &SelfIntersection{store: store}
}

func (v *SelfIntersection) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	simple, err := v.store.IsSimple(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Valid: simple}, nil
}

// ValidatePolygons reports ids without a stored geometry as invalid with no
// extra info.
func (v *SelfIntersection) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
	simple, err := v.store.IsSimpleBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]PolygonResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, PolygonResult{PolygonUUID: id, Valid: simple[id]})
	}
	return out, nil
}

func (v *SelfIntersection) ValidateGeometry(ctx context.Context, feature geometry.Feature) (Result, error) {
	if len(feature.Geometry.Raw) == 0 {
		return Result{}, geometry.ErrEmptyGeometry
	}
	simple, err := v.store.IsSimpleGeometry(ctx, feature.Geometry.Raw)
	if err != nil {
		return Result{}, err
	}
	return Result{Valid: simple}, nil
}
