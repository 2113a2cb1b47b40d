package postgis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestIsSimpleBatchMapsRows(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGeometryStore(db)

	a, b, missing := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("ST_IsSimple(geom) AS is_simple")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"uuid", "is_simple"}).
			AddRow(a.String(), true).
			AddRow(b.String(), false))

	got, err := store.IsSimpleBatch(context.Background(), []uuid.UUID{a, b, missing})
	require.NoError(t, err)

	assert.Equal(t, map[uuid.UUID]bool{a: true, b: false}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsSimpleBatchEmptyInputSkipsQuery(t *testing.T) {
	db, mock := newMockDB(t)

	got, err := NewGeometryStore(db).IsSimpleBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsSimpleNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM polygon_geometry")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"uuid", "is_simple"}))

	_, err := NewGeometryStore(db).IsSimple(context.Background(), uuid.New())
	assert.ErrorIs(t, err, polygons.ErrNotFound)
}

func TestGeoJSONReturnsDocument(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	doc := `{"type":"Point","coordinates":[1,2]}`

	mock.ExpectQuery(regexp.QuoteMeta("ST_AsGeoJSON(geom)::json AS geojson")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"uuid", "geojson"}).AddRow(id.String(), []byte(doc)))

	got, err := NewGeometryStore(db).GeoJSON(context.Background(), id)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(got))
}

func TestAreaAndCentroidLatitude(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("ST_Y(ST_Centroid(input.g)) AS latitude")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"area", "latitude"}).AddRow(0.25, -1.5))

	area, lat, err := NewGeometryStore(db).AreaAndCentroidLatitude(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0.25, area)
	assert.Equal(t, -1.5, lat)
}

func TestPingWithoutHandle(t *testing.T) {
	err := NewGeometryStore(nil).Ping(context.Background())
	assert.ErrorIs(t, err, polygons.ErrNoConnection)
}

func TestReadCommittedCommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	target, candidate := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ST_Envelope(t.geom) && ST_Envelope(c.geom)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"target_id", "candidate_id"}).AddRow(target.String(), candidate.String()))
	mock.ExpectCommit()

	var pairs []polygons.EnvelopePair
	err := NewGeometryStore(db).ReadCommitted(context.Background(), func(q polygons.SpatialQueries) error {
		var err error
		pairs, err = q.EnvelopeIntersections(context.Background(), []uuid.UUID{target}, []uuid.UUID{candidate})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []polygons.EnvelopePair{{TargetID: target, CandidateID: candidate}}, pairs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadCommittedRollsBackAndReturnsError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ST_Intersection(t.geom, c.geom)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(boom)
	mock.ExpectRollback()

	err := NewGeometryStore(db).ReadCommitted(context.Background(), func(q polygons.SpatialQueries) error {
		_, err := q.Intersections(context.Background(), []uuid.UUID{uuid.New()}, []uuid.UUID{uuid.New()})
		return err
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountryCoverageNoRowCommits(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("JOIN world_countries_generalized wcg")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"polygon_id", "area", "intersection_area", "country_name"}))
	mock.ExpectCommit()

	var cov *polygons.CountryCoverage
	err := NewGeometryStore(db).ReadCommitted(context.Background(), func(q polygons.SpatialQueries) error {
		var err error
		cov, err = q.CountryCoverage(context.Background(), uuid.New())
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, cov)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var resolveColumns = []string{
	"uuid", "poly_id", "site_id", "poly_name", "practice", "target_sys", "distr", "num_trees",
	"plantstart", "calc_area", "status", "is_active",
	"site_uuid", "site_project_id", "site_name", "site_goal", "site_start_date",
	"project_id", "project_uuid", "project_name", "project_country", "project_organisation_id", "project_goal",
}

func TestResolveBatchBuildsContexts(t *testing.T) {
	db, mock := newMockDB(t)
	withSite, orphan := uuid.New(), uuid.New()
	siteID, projectUUID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN v2_projects p ON p.id = s.project_id")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(resolveColumns).
			AddRow(uuid.NewString(), withSite.String(), siteID.String(), "Block A", "tree-planting", "agroforest", "full", "120",
				"2021-03-01", 12.5, polygons.StatusApproved, true,
				siteID.String(), int64(7), "Hillside", 40.0, nil,
				int64(7), projectUUID.String(), "Greening", "KEN", nil, 400.0).
			AddRow(uuid.NewString(), orphan.String(), nil, nil, nil, nil, nil, nil,
				nil, nil, polygons.StatusDraft, true,
				nil, nil, nil, nil, nil,
				nil, nil, nil, nil, nil, nil))

	got, err := NewEntityLookup(db).ResolveBatch(context.Background(), []uuid.UUID{withSite, orphan})
	require.NoError(t, err)
	require.Len(t, got, 2)

	pc := got[withSite]
	require.NotNil(t, pc.Site)
	require.NotNil(t, pc.Project)
	assert.Equal(t, "Block A", pc.PolygonName())
	assert.Equal(t, "Hillside", pc.SiteName())
	assert.Equal(t, int64(7), pc.Project.ID)
	assert.Equal(t, "KEN", *pc.Project.Country)
	assert.True(t, pc.SitePolygon.Approved())

	assert.Nil(t, got[orphan].Site)
	assert.Nil(t, got[orphan].Project)
}

func TestResolveNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM site_polygon sp")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(resolveColumns))

	_, err := NewEntityLookup(db).Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, polygons.ErrNotFound)
}

func TestApprovedAreaInProject(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(sp.calc_area), 0) AS total")).
		WithArgs(int64(3), polygons.StatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(812.5))

	total, err := NewEntityLookup(db).ApprovedAreaInProject(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 812.5, total)
}

func TestActiveAreaInSiteWrapsQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := fmt.Errorf("timeout")

	mock.ExpectQuery(regexp.QuoteMeta("FROM site_polygon")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(boom)

	_, err := NewEntityLookup(db).ActiveAreaInSite(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)
}
