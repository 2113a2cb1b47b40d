package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
)

type GeometryTypeInfo struct {
	ActualType   string   `json:"actual_type"`
	AllowedTypes []string `json:"allowed_types"`
}

// GeometryType accepts only Point, Polygon and MultiPolygon. It works on
// uploaded geometries only.
type GeometryType struct{}

func NewGeometryType() *GeometryType { return &GeometryType{} }

func (*GeometryType) ValidatePolygon(context.Context, uuid.UUID) (Result, error) {
	return Result{}, fmt.Errorf("geometry type by polygon id: %w", ErrNotSupported)
}

func (*GeometryType) ValidatePolygons(context.Context, []uuid.UUID) ([]PolygonResult, error) {
	return nil, fmt.Errorf("geometry type by polygon id: %w", ErrNotSupported)
}

func (*GeometryType) ValidateGeometry(_ context.Context, feature geometry.Feature) (Result, error) {
	if geometry.IsAllowedType(feature.Geometry.Type) {
		return Result{Valid: true}, nil
	}
	return Result{
		Valid: false,
		ExtraInfo: GeometryTypeInfo{
			ActualType:   feature.Geometry.Type,
			AllowedTypes: geometry.AllowedTypes,
		},
	}, nil
}
