package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// fakeStore implements polygons.GeometryStore and polygons.SpatialQueries in
// memory. Every map is keyed by polygon id.
type fakeStore struct {
	pingErr error

	simple    map[uuid.UUID]bool
	simpleRaw bool
	geojson   map[uuid.UUID][]byte

	// areas answers AreaAndCentroidLatitude in call order.
	areas   [][2]float64
	areaErr error
	areaIn  [][]byte

	envelopes     []polygons.EnvelopePair
	intersections []polygons.Intersection
	coverage      map[uuid.UUID]polygons.CountryCoverage
	queryErr      error

	commits, rollbacks int
	queries            int
}

var (
	_ polygons.GeometryStore  = (*fakeStore)(nil)
	_ polygons.SpatialQueries = (*fakeStore)(nil)
)

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) IsSimple(_ context.Context, id uuid.UUID) (bool, error) {
	f.queries++
	if f.queryErr != nil {
		return false, f.queryErr
	}
	simple, ok := f.simple[id]
	if !ok {
		return false, fmt.Errorf("geometry %s: %w", id, polygons.ErrNotFound)
	}
	return simple, nil
}

func (f *fakeStore) IsSimpleBatch(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if s, ok := f.simple[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *fakeStore) IsSimpleGeometry(context.Context, []byte) (bool, error) {
	f.queries++
	return f.simpleRaw, f.queryErr
}

func (f *fakeStore) GeoJSON(_ context.Context, id uuid.UUID) ([]byte, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	doc, ok := f.geojson[id]
	if !ok {
		return nil, fmt.Errorf("geometry %s: %w", id, polygons.ErrNotFound)
	}
	return doc, nil
}

func (f *fakeStore) GeoJSONBatch(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]byte, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := make(map[uuid.UUID][]byte)
	for _, id := range ids {
		if doc, ok := f.geojson[id]; ok {
			out[id] = doc
		}
	}
	return out, nil
}

func (f *fakeStore) AreaAndCentroidLatitude(_ context.Context, geojson []byte) (float64, float64, error) {
	f.areaIn = append(f.areaIn, geojson)
	if f.areaErr != nil {
		return 0, 0, f.areaErr
	}
	if len(f.areas) == 0 {
		return 0, 0, nil
	}
	next := f.areas[0]
	f.areas = f.areas[1:]
	return next[0], next[1], nil
}

func (f *fakeStore) ReadCommitted(_ context.Context, fn func(q polygons.SpatialQueries) error) error {
	if err := fn(f); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

func (f *fakeStore) EnvelopeIntersections(_ context.Context, targets, candidates []uuid.UUID) ([]polygons.EnvelopePair, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []polygons.EnvelopePair
	for _, p := range f.envelopes {
		if containsID(targets, p.TargetID) && containsID(candidates, p.CandidateID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Intersections(_ context.Context, targets, candidates []uuid.UUID) ([]polygons.Intersection, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []polygons.Intersection
	for _, h := range f.intersections {
		if containsID(targets, h.TargetID) && containsID(candidates, h.CandidateID) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) CountryCoverage(_ context.Context, id uuid.UUID) (*polygons.CountryCoverage, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	cov, ok := f.coverage[id]
	if !ok {
		return nil, nil
	}
	return &cov, nil
}

func (f *fakeStore) CountryCoverages(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]polygons.CountryCoverage, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := make(map[uuid.UUID]polygons.CountryCoverage)
	for _, id := range ids {
		if cov, ok := f.coverage[id]; ok {
			out[id] = cov
		}
	}
	return out, nil
}

// fakeLookup implements polygons.EntityLookup over a fixed set of contexts.
type fakeLookup struct {
	contexts     map[uuid.UUID]polygons.PolygonContext
	projectIDs   map[int64][]uuid.UUID
	approvedArea map[int64]float64
	siteArea     map[uuid.UUID]float64
	err          error

	resolveCalls int
}

var _ polygons.EntityLookup = (*fakeLookup)(nil)

func (l *fakeLookup) Resolve(ctx context.Context, id uuid.UUID) (*polygons.PolygonContext, error) {
	got, err := l.ResolveBatch(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	pc, ok := got[id]
	if !ok {
		return nil, fmt.Errorf("active site polygon for %s: %w", id, polygons.ErrNotFound)
	}
	return &pc, nil
}

func (l *fakeLookup) ResolveBatch(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]polygons.PolygonContext, error) {
	l.resolveCalls++
	if l.err != nil {
		return nil, l.err
	}
	out := make(map[uuid.UUID]polygons.PolygonContext)
	for _, id := range ids {
		if pc, ok := l.contexts[id]; ok {
			out[id] = pc
		}
	}
	return out, nil
}

func (l *fakeLookup) ActivePolygonIDsInProject(_ context.Context, projectID int64) ([]uuid.UUID, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.projectIDs[projectID], nil
}

func (l *fakeLookup) ApprovedAreaInProject(_ context.Context, projectID int64) (float64, error) {
	if l.err != nil {
		return 0, l.err
	}
	return l.approvedArea[projectID], nil
}

func (l *fakeLookup) ActiveAreaInSite(_ context.Context, siteID uuid.UUID) (float64, error) {
	if l.err != nil {
		return 0, l.err
	}
	return l.siteArea[siteID], nil
}

func strPtr(s string) *string { return &s }

// polygonIn builds a polygon context owned by the given site and project.
func polygonIn(site *polygons.Site, project *polygons.Project, mutate func(*polygons.SitePolygon)) polygons.PolygonContext {
	sp := polygons.SitePolygon{UUID: uuid.New(), PolyID: uuid.New(), Status: polygons.StatusSubmitted, IsActive: true}
	if site != nil {
		sp.SiteID = &site.UUID
	}
	if mutate != nil {
		mutate(&sp)
	}
	return polygons.PolygonContext{SitePolygon: sp, Site: site, Project: project}
}
