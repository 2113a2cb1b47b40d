// Package validation implements the polygon quality checks run before a site
// boundary is trusted for area, country and progress reporting.
//
// Every check satisfies Validator. Checks that can run on an uploaded feature
// before it is persisted also satisfy GeometryValidator.
package validation

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

var (
	// ErrNotFound is returned by single-polygon calls when the id does not
	// resolve to the active record the check needs.
	ErrNotFound = polygons.ErrNotFound

	ErrNotSupported = errors.New("operation not supported by this validator")

	// ErrInternal marks failures the engine cannot recover from, such as a
	// geometry store without a live connection.
	ErrInternal = errors.New("internal validation error")
)

// Result is the outcome of one check on one polygon.
type Result struct {
	Valid     bool `json:"valid"`
	ExtraInfo any  `json:"extra_info"`
}

// PolygonResult is one entry of a batch call.
type PolygonResult struct {
	PolygonUUID uuid.UUID `json:"polygon_uuid"`
	Valid       bool      `json:"valid"`
	ExtraInfo   any       `json:"extra_info"`
}

// ErrorInfo is the extra info of batch entries whose polygon or related
// records do not resolve.
type ErrorInfo struct {
	Error string `json:"error"`
}

// GeometryError is the extra info of results whose geometry resolved but
// cannot be checked: unreadable GeoJSON or an unsupported shape.
type GeometryError struct {
	Error string `json:"error"`
}

type Validator interface {
	// ValidatePolygon fails with ErrNotFound when id does not resolve.
	ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error)

	// ValidatePolygons returns exactly one result per id, in input order.
	// Ids that do not resolve yield Valid=false with an ErrorInfo.
	ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error)
}

// GeometryValidator checks a feature that has not been stored yet.
type GeometryValidator interface {
	ValidateGeometry(ctx context.Context, feature geometry.Feature) (Result, error)
}

func polygonResult(id uuid.UUID, res Result) PolygonResult {
	return PolygonResult{PolygonUUID: id, Valid: res.Valid, ExtraInfo: res.ExtraInfo}
}

func errorResult(id uuid.UUID, msg string) PolygonResult {
	return PolygonResult{PolygonUUID: id, Valid: false, ExtraInfo: ErrorInfo{Error: msg}}
}

func geometryErrorResult(id uuid.UUID, err error) PolygonResult {
	return PolygonResult{PolygonUUID: id, Valid: false, ExtraInfo: GeometryError{Error: err.Error()}}
}

// eachPolygon runs a single-polygon check per id. Not-found failures become
// error entries; any other error aborts the batch.
func eachPolygon(ctx context.Context, ids []uuid.UUID, check func(context.Context, uuid.UUID) (Result, error)) ([]PolygonResult, error) {
	out := make([]PolygonResult, 0, len(ids))
	for _, id := range ids {
		res, err := check(ctx, id)
		if errors.Is(err, ErrNotFound) {
			out = append(out, errorResult(id, err.Error()))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, polygonResult(id, res))
	}
	return out, nil
}

func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

func floatPtr(f float64) *float64 { return &f }
