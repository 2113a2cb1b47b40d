package postgis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
	"gorm.io/gorm"
)

// spatialQueries runs against the transaction handle opened by ReadCommitted.
type spatialQueries struct {
	db *gorm.DB
}

type envelopeRow struct {
	TargetID    uuid.UUID `gorm:"column:target_id"`
	CandidateID uuid.UUID `gorm:"column:candidate_id"`
}

// EnvelopeIntersections uses the && operator, which compares bounding boxes
// only and is served by the GiST index on geom.
func (q *spatialQueries) EnvelopeIntersections(ctx context.Context, targets, candidates []uuid.UUID) ([]polygons.EnvelopePair, error) {
	if len(targets) == 0 || len(candidates) == 0 {
		return nil, nil
	}

	var rows []envelopeRow
	if err := q.db.WithContext(ctx).Raw(`
		SELECT t.uuid AS target_id, c.uuid AS candidate_id
		FROM polygon_geometry t
		JOIN polygon_geometry c
			ON c.uuid <> t.uuid
			AND ST_Envelope(t.geom) && ST_Envelope(c.geom)
		WHERE t.uuid = ANY(?)
			AND c.uuid = ANY(?)
	`, uuidArray(targets), uuidArray(candidates)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("envelope intersection query failed: %w", err)
	}

	pairs := make([]polygons.EnvelopePair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, polygons.EnvelopePair{TargetID: r.TargetID, CandidateID: r.CandidateID})
	}
	return pairs, nil
}

type intersectionRow struct {
	TargetID         uuid.UUID `gorm:"column:target_id"`
	CandidateID      uuid.UUID `gorm:"column:candidate_id"`
	CandidateName    *string   `gorm:"column:candidate_name"`
	SiteName         *string   `gorm:"column:site_name"`
	IntersectionArea float64   `gorm:"column:intersection_area"`
	TargetArea       float64   `gorm:"column:target_area"`
	CandidateArea    float64   `gorm:"column:candidate_area"`
}

func (q *spatialQueries) Intersections(ctx context.Context, targets, candidates []uuid.UUID) ([]polygons.Intersection, error) {
	if len(targets) == 0 || len(candidates) == 0 {
		return nil, nil
	}

	var rows []intersectionRow
	if err := q.db.WithContext(ctx).Raw(`
		SELECT
			t.uuid AS target_id,
			c.uuid AS candidate_id,
			sp.poly_name AS candidate_name,
			s.name AS site_name,
			ST_Area(ST_Intersection(t.geom, c.geom)) AS intersection_area,
			ST_Area(t.geom) AS target_area,
			ST_Area(c.geom) AS candidate_area
		FROM polygon_geometry t
		JOIN polygon_geometry c
			ON c.uuid <> t.uuid
			AND ST_Intersects(t.geom, c.geom)
		LEFT JOIN site_polygon sp ON sp.poly_id = c.uuid AND sp.is_active = true
		LEFT JOIN v2_sites s ON s.uuid = sp.site_id
		WHERE t.uuid = ANY(?)
			AND c.uuid = ANY(?)
	`, uuidArray(targets), uuidArray(candidates)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("intersection query failed: %w", err)
	}

	out := make([]polygons.Intersection, 0, len(rows))
	for _, r := range rows {
		out = append(out, polygons.Intersection(r))
	}
	return out, nil
}

const countryCoverageQuery = `
	SELECT
		pg.uuid AS polygon_id,
		ST_Area(pg.geom) AS area,
		ST_Area(ST_Intersection(pg.geom, wcg.geometry)) AS intersection_area,
		wcg.country AS country_name
	FROM polygon_geometry pg
	JOIN site_polygon sp ON sp.poly_id = pg.uuid AND sp.is_active = true
	JOIN v2_sites s ON s.uuid = sp.site_id
	JOIN v2_projects p ON p.id = s.project_id
	JOIN world_countries_generalized wcg ON wcg.iso = p.country
`

type coverageRow struct {
	PolygonID        uuid.UUID `gorm:"column:polygon_id"`
	Area             float64   `gorm:"column:area"`
	IntersectionArea float64   `gorm:"column:intersection_area"`
	CountryName      string    `gorm:"column:country_name"`
}

func (q *spatialQueries) CountryCoverage(ctx context.Context, id uuid.UUID) (*polygons.CountryCoverage, error) {
	var rows []coverageRow
	if err := q.db.WithContext(ctx).Raw(countryCoverageQuery+`WHERE pg.uuid = ?`, id).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("country coverage query failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cov := polygons.CountryCoverage(rows[0])
	return &cov, nil
}

func (q *spatialQueries) CountryCoverages(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]polygons.CountryCoverage, error) {
	out := make(map[uuid.UUID]polygons.CountryCoverage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []coverageRow
	if err := q.db.WithContext(ctx).Raw(countryCoverageQuery+`WHERE pg.uuid = ANY(?)`, uuidArray(ids)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("batch country coverage query failed: %w", err)
	}
	for _, r := range rows {
		if _, seen := out[r.PolygonID]; !seen {
			out[r.PolygonID] = polygons.CountryCoverage(r)
		}
	}
	return out, nil
}
