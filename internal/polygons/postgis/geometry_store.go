// Package postgis implements the polygon ports with raw PostGIS queries issued
// through gorm.
package postgis

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GeometryStore answers spatial predicates over polygon_geometry.
type GeometryStore struct {
	db *gorm.DB
}

var _ polygons.GeometryStore = (*GeometryStore)(nil)

func NewGeometryStore(db *gorm.DB) *GeometryStore {
	return &GeometryStore{db: db}
}

func (s *GeometryStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return polygons.ErrNoConnection
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", polygons.ErrNoConnection, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", polygons.ErrNoConnection, err)
	}
	return nil
}

type simpleRow struct {
	UUID     uuid.UUID `gorm:"column:uuid"`
	IsSimple bool      `gorm:"column:is_simple"`
}

func (s *GeometryStore) IsSimple(ctx context.Context, id uuid.UUID) (bool, error) {
	var rows []simpleRow
	if err := s.db.WithContext(ctx).Raw(`
		SELECT uuid, ST_IsSimple(geom) AS is_simple
		FROM polygon_geometry
		WHERE uuid = ?
	`, id).Scan(&rows).Error; err != nil {
		return false, fmt.Errorf("simplicity query failed: %w", err)
	}
	if len(rows) == 0 {
		return false, fmt.Errorf("polygon geometry %s: %w", id, polygons.ErrNotFound)
	}
	return rows[0].IsSimple, nil
}

func (s *GeometryStore) IsSimpleBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []simpleRow
	if err := s.db.WithContext(ctx).Raw(`
		SELECT uuid, ST_IsSimple(geom) AS is_simple
		FROM polygon_geometry
		WHERE uuid = ANY(?)
	`, uuidArray(ids)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("batch simplicity query failed: %w", err)
	}
	for _, r := range rows {
		out[r.UUID] = r.IsSimple
	}
	return out, nil
}

func (s *GeometryStore) IsSimpleGeometry(ctx context.Context, geojson []byte) (bool, error) {
	var simple bool
	if err := s.db.WithContext(ctx).Raw(
		`SELECT ST_IsSimple(ST_GeomFromGeoJSON(?)) AS is_simple`, string(geojson),
	).Row().Scan(&simple); err != nil {
		return false, fmt.Errorf("geometry simplicity query failed: %w", err)
	}
	return simple, nil
}

type geoJSONRow struct {
	UUID    uuid.UUID      `gorm:"column:uuid"`
	GeoJSON datatypes.JSON `gorm:"column:geojson"`
}

func (s *GeometryStore) GeoJSON(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var rows []geoJSONRow
	if err := s.db.WithContext(ctx).Raw(`
		SELECT uuid, ST_AsGeoJSON(geom)::json AS geojson
		FROM polygon_geometry
		WHERE uuid = ?
	`, id).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("geojson query failed: %w", err)
	}
	if len(rows) == 0 || len(rows[0].GeoJSON) == 0 {
		return nil, fmt.Errorf("polygon geometry %s: %w", id, polygons.ErrNotFound)
	}
	return []byte(rows[0].GeoJSON), nil
}

func (s *GeometryStore) GeoJSONBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]byte, error) {
	out := make(map[uuid.UUID][]byte, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []geoJSONRow
	if err := s.db.WithContext(ctx).Raw(`
		SELECT uuid, ST_AsGeoJSON(geom)::json AS geojson
		FROM polygon_geometry
		WHERE uuid = ANY(?)
	`, uuidArray(ids)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("batch geojson query failed: %w", err)
	}
	for _, r := range rows {
		if len(r.GeoJSON) > 0 {
			out[r.UUID] = []byte(r.GeoJSON)
		}
	}
	return out, nil
}

func (s *GeometryStore) AreaAndCentroidLatitude(ctx context.Context, geojson []byte) (float64, float64, error) {
	var area, latitude sql.NullFloat64
	if err := s.db.WithContext(ctx).Raw(`
		SELECT ST_Area(input.g) AS area, ST_Y(ST_Centroid(input.g)) AS latitude
		FROM (SELECT ST_GeomFromGeoJSON(?) AS g) AS input
	`, string(geojson)).Row().Scan(&area, &latitude); err != nil {
		return 0, 0, fmt.Errorf("area query failed: %w", err)
	}
	return area.Float64, latitude.Float64, nil
}

func (s *GeometryStore) ReadCommitted(ctx context.Context, fn func(q polygons.SpatialQueries) error) error {
	if s == nil || s.db == nil {
		return polygons.ErrNoConnection
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&spatialQueries{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// uuidArray renders ids as a Postgres array literal for "= ANY(?)" clauses.
func uuidArray(ids []uuid.UUID) interface{} {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}
