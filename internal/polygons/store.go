// Package polygons holds the restoration entities the validators read and the
// ports through which they are read. Implementations live in subpackages
// (see postgis).
package polygons

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means the polygon, its active site association, or a record
	// the lookup depends on does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoConnection means the geometry store has no usable database handle.
	ErrNoConnection = errors.New("geometry store has no live connection")
)

// PolygonContext is a fully resolved active site polygon together with its
// owning site and project. Site and Project are nil when the association is
// missing.
type PolygonContext struct {
	SitePolygon SitePolygon
	Site        *Site
	Project     *Project
}

// PolygonName returns the display name of the polygon, or "" when unset.
func (pc PolygonContext) PolygonName() string {
	if pc.SitePolygon.PolyName == nil {
		return ""
	}
	return *pc.SitePolygon.PolyName
}

// SiteName returns the display name of the site, or "" when unset.
func (pc PolygonContext) SiteName() string {
	if pc.Site == nil || pc.Site.Name == nil {
		return ""
	}
	return *pc.Site.Name
}

// EnvelopePair is a (target, candidate) pair whose bounding boxes intersect.
type EnvelopePair struct {
	TargetID    uuid.UUID
	CandidateID uuid.UUID
}

// Intersection is the exact overlap of a target polygon with a candidate.
// Areas are planar, in the units of the stored geometry (square degrees).
type Intersection struct {
	TargetID         uuid.UUID
	CandidateID      uuid.UUID
	CandidateName    *string
	SiteName         *string
	IntersectionArea float64
	TargetArea       float64
	CandidateArea    float64
}

// CountryCoverage is how much of a polygon falls inside its project's country.
type CountryCoverage struct {
	PolygonID        uuid.UUID
	Area             float64
	IntersectionArea float64
	CountryName      string
}

// GeometryStore is the query surface over stored polygon geometries.
type GeometryStore interface {
	// Ping fails with ErrNoConnection when the store cannot reach its database.
	Ping(ctx context.Context) error

	IsSimple(ctx context.Context, id uuid.UUID) (bool, error)
	// IsSimpleBatch omits ids that have no geometry.
	IsSimpleBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	IsSimpleGeometry(ctx context.Context, geojson []byte) (bool, error)

	GeoJSON(ctx context.Context, id uuid.UUID) ([]byte, error)
	// GeoJSONBatch omits ids that have no geometry.
	GeoJSONBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]byte, error)

	// AreaAndCentroidLatitude returns the planar area in square degrees and the
	// latitude of the centroid of an arbitrary GeoJSON geometry.
	AreaAndCentroidLatitude(ctx context.Context, geojson []byte) (areaSqDegrees, latitude float64, err error)

	// ReadCommitted runs fn inside one READ COMMITTED transaction. It commits
	// when fn returns nil and rolls back otherwise, returning fn's error as is.
	ReadCommitted(ctx context.Context, fn func(q SpatialQueries) error) error
}

// SpatialQueries are multi-step reads that must observe one snapshot.
type SpatialQueries interface {
	EnvelopeIntersections(ctx context.Context, targets, candidates []uuid.UUID) ([]EnvelopePair, error)
	Intersections(ctx context.Context, targets, candidates []uuid.UUID) ([]Intersection, error)
	// CountryCoverage returns nil when no row matches.
	CountryCoverage(ctx context.Context, id uuid.UUID) (*CountryCoverage, error)
	CountryCoverages(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]CountryCoverage, error)
}

// EntityLookup resolves polygons to the records they belong to.
type EntityLookup interface {
	// Resolve fails with ErrNotFound when id has no active site polygon.
	Resolve(ctx context.Context, id uuid.UUID) (*PolygonContext, error)
	// ResolveBatch omits ids that have no active site polygon.
	ResolveBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PolygonContext, error)

	ActivePolygonIDsInProject(ctx context.Context, projectID int64) ([]uuid.UUID, error)
	ApprovedAreaInProject(ctx context.Context, projectID int64) (float64, error)
	ActiveAreaInSite(ctx context.Context, siteID uuid.UUID) (float64, error)
}
