package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
	"gorm.io/gorm"
)

// EntityLookup resolves active site polygons to their site and project.
// Nothing is cached; every call reads the database.
type EntityLookup struct {
	db *gorm.DB
}

var _ polygons.EntityLookup = (*EntityLookup)(nil)

func NewEntityLookup(db *gorm.DB) *EntityLookup {
	return &EntityLookup{db: db}
}

// resolvedRow is one active site polygon joined with its site and project.
// Site and project columns are nullable because of the LEFT JOINs.
type resolvedRow struct {
	UUID       uuid.UUID  `gorm:"column:uuid"`
	PolyID     uuid.UUID  `gorm:"column:poly_id"`
	SiteID     *uuid.UUID `gorm:"column:site_id"`
	PolyName   *string    `gorm:"column:poly_name"`
	Practice   *string    `gorm:"column:practice"`
	TargetSys  *string    `gorm:"column:target_sys"`
	Distr      *string    `gorm:"column:distr"`
	NumTrees   *string    `gorm:"column:num_trees"`
	PlantStart *string    `gorm:"column:plantstart"`
	CalcArea   *float64   `gorm:"column:calc_area"`
	Status     string     `gorm:"column:status"`
	IsActive   bool       `gorm:"column:is_active"`

	SiteUUID      *uuid.UUID `gorm:"column:site_uuid"`
	SiteProjectID *int64     `gorm:"column:site_project_id"`
	SiteName      *string    `gorm:"column:site_name"`
	SiteGoal      *float64   `gorm:"column:site_goal"`
	SiteStartDate *time.Time `gorm:"column:site_start_date"`

	ProjectID             *int64     `gorm:"column:project_id"`
	ProjectUUID           *uuid.UUID `gorm:"column:project_uuid"`
	ProjectName           *string    `gorm:"column:project_name"`
	ProjectCountry        *string    `gorm:"column:project_country"`
	ProjectOrganisationID *int64     `gorm:"column:project_organisation_id"`
	ProjectGoal           *float64   `gorm:"column:project_goal"`
}

const resolveQuery = `
	SELECT
		sp.uuid, sp.poly_id, sp.site_id, sp.poly_name, sp.practice, sp.target_sys,
		sp.distr, sp.num_trees, sp.plantstart, sp.calc_area, sp.status, sp.is_active,
		s.uuid AS site_uuid,
		s.project_id AS site_project_id,
		s.name AS site_name,
		s.hectares_to_restore_goal AS site_goal,
		s.start_date AS site_start_date,
		p.id AS project_id,
		p.uuid AS project_uuid,
		p.name AS project_name,
		p.country AS project_country,
		p.organisation_id AS project_organisation_id,
		p.total_hectares_restored_goal AS project_goal
	FROM site_polygon sp
	LEFT JOIN v2_sites s ON s.uuid = sp.site_id
	LEFT JOIN v2_projects p ON p.id = s.project_id
	WHERE sp.is_active = true
		AND sp.poly_id = ANY(?)
`

func (l *EntityLookup) Resolve(ctx context.Context, id uuid.UUID) (*polygons.PolygonContext, error) {
	resolved, err := l.ResolveBatch(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	pc, ok := resolved[id]
	if !ok {
		return nil, fmt.Errorf("active site polygon for %s: %w", id, polygons.ErrNotFound)
	}
	return &pc, nil
}

func (l *EntityLookup) ResolveBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]polygons.PolygonContext, error) {
	out := make(map[uuid.UUID]polygons.PolygonContext, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []resolvedRow
	if err := l.db.WithContext(ctx).Raw(resolveQuery, uuidArray(ids)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("site polygon lookup failed: %w", err)
	}
	for _, r := range rows {
		if _, seen := out[r.PolyID]; seen {
			continue
		}
		out[r.PolyID] = r.toContext()
	}
	return out, nil
}

func (r resolvedRow) toContext() polygons.PolygonContext {
	pc := polygons.PolygonContext{
		SitePolygon: polygons.SitePolygon{
			UUID:       r.UUID,
			PolyID:     r.PolyID,
			SiteID:     r.SiteID,
			PolyName:   r.PolyName,
			Practice:   r.Practice,
			TargetSys:  r.TargetSys,
			Distr:      r.Distr,
			NumTrees:   r.NumTrees,
			PlantStart: r.PlantStart,
			CalcArea:   r.CalcArea,
			Status:     r.Status,
			IsActive:   r.IsActive,
		},
	}
	if r.SiteUUID != nil {
		site := &polygons.Site{
			UUID:                  *r.SiteUUID,
			Name:                  r.SiteName,
			HectaresToRestoreGoal: r.SiteGoal,
			StartDate:             r.SiteStartDate,
		}
		if r.SiteProjectID != nil {
			site.ProjectID = *r.SiteProjectID
		}
		pc.Site = site
	}
	if r.ProjectID != nil {
		project := &polygons.Project{
			ID:                        *r.ProjectID,
			Name:                      r.ProjectName,
			Country:                   r.ProjectCountry,
			OrganisationID:            r.ProjectOrganisationID,
			TotalHectaresRestoredGoal: r.ProjectGoal,
		}
		if r.ProjectUUID != nil {
			project.UUID = *r.ProjectUUID
		}
		pc.Project = project
	}
	return pc
}

func (l *EntityLookup) ActivePolygonIDsInProject(ctx context.Context, projectID int64) ([]uuid.UUID, error) {
	var rows []struct {
		PolyID uuid.UUID `gorm:"column:poly_id"`
	}
	if err := l.db.WithContext(ctx).Raw(`
		SELECT sp.poly_id
		FROM site_polygon sp
		JOIN v2_sites s ON s.uuid = sp.site_id
		WHERE s.project_id = ?
			AND sp.is_active = true
	`, projectID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("project polygons query failed: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.PolyID)
	}
	return ids, nil
}

func (l *EntityLookup) ApprovedAreaInProject(ctx context.Context, projectID int64) (float64, error) {
	var total sql.NullFloat64
	if err := l.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(sp.calc_area), 0) AS total
		FROM site_polygon sp
		JOIN v2_sites s ON s.uuid = sp.site_id
		WHERE s.project_id = ?
			AND sp.is_active = true
			AND sp.status = ?
	`, projectID, polygons.StatusApproved).Row().Scan(&total); err != nil {
		return 0, fmt.Errorf("project approved area query failed: %w", err)
	}
	return total.Float64, nil
}

func (l *EntityLookup) ActiveAreaInSite(ctx context.Context, siteID uuid.UUID) (float64, error) {
	var total sql.NullFloat64
	if err := l.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(calc_area), 0) AS total
		FROM site_polygon
		WHERE site_id = ?
			AND is_active = true
	`, siteID).Row().Scan(&total); err != nil {
		return 0, fmt.Errorf("site area query failed: %w", err)
	}
	return total.Float64, nil
}
