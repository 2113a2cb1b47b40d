package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// MinInsidePercentage is the share of a polygon, inclusive, that must fall
// inside its project's country.
const MinInsidePercentage = 75.0

type WithinCountryInfo struct {
	InsidePercentage float64 `json:"inside_percentage"`
	CountryName      string  `json:"country_name"`
}

// WithinCountry measures how much of a polygon lies inside the country
// boundary recorded for its project.
type WithinCountry struct {
	store  polygons.GeometryStore
	lookup polygons.EntityLookup
}

func NewWithinCountry(store polygons.GeometryStore, lookup polygons.EntityLookup) *WithinCountry {
	return &WithinCountry{store: store, lookup: lookup}
}

func (v *WithinCountry) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	pc, err := v.lookup.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if pc.Site == nil || pc.Project == nil {
		return Result{}, fmt.Errorf("site or project of polygon %s: %w", id, ErrNotFound)
	}

	var cov *polygons.CountryCoverage
	err = v.store.ReadCommitted(ctx, func(q polygons.SpatialQueries) error {
		var err error
		cov, err = q.CountryCoverage(ctx, id)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if cov == nil {
		return Result{}, fmt.Errorf("country boundary for polygon %s: %w", id, ErrNotFound)
	}
	return coverageResult(*cov), nil
}

func (v *WithinCountry) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
	var coverages map[uuid.UUID]polygons.CountryCoverage
	err := v.store.ReadCommitted(ctx, func(q polygons.SpatialQueries) error {
		var err error
		coverages, err = q.CountryCoverages(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]PolygonResult, 0, len(ids))
	for _, id := range ids {
		cov, ok := coverages[id]
		if !ok {
			out = append(out, errorResult(id, "polygon, site association or country boundary not found"))
			continue
		}
		out = append(out, polygonResult(id, coverageResult(cov)))
	}
	return out, nil
}

func coverageResult(cov polygons.CountryCoverage) Result {
	var pct float64
	if cov.Area > 0 {
		pct = round(cov.IntersectionArea/cov.Area*100, 2)
	}
	return Result{
		Valid: pct >= MinInsidePercentage,
		ExtraInfo: WithinCountryInfo{
			InsidePercentage: pct,
			CountryName:      cov.CountryName,
		},
	}
}
