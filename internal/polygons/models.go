package polygons

import (
	"time"

	"github.com/google/uuid"
)

// Status values of a site polygon's review workflow.
const (
	StatusDraft         = "draft"
	StatusSubmitted     = "submitted"
	StatusNeedsMoreInfo = "needs-more-information"
	StatusApproved      = "approved"
)

// PolygonGeometry stores the boundary shape itself.
// The geometry is a POINT, POLYGON or MULTIPOLYGON in WGS84 (SRID 4326).
type PolygonGeometry struct {
	UUID      uuid.UUID `gorm:"type:uuid;primaryKey;column:uuid" json:"uuid"`
	Geom      string    `gorm:"type:geometry(Geometry,4326);column:geom" json:"-"`
	CreatedBy *string   `gorm:"column:created_by" json:"created_by"`
}

func (PolygonGeometry) TableName() string { return "polygon_geometry" }

// SitePolygon links a geometry to a site and carries the attributes the
// submitter filled in. Superseded versions keep IsActive=false.
type SitePolygon struct {
	UUID       uuid.UUID  `gorm:"type:uuid;primaryKey;column:uuid" json:"uuid"`
	PolyID     uuid.UUID  `gorm:"type:uuid;index;column:poly_id" json:"poly_id"`
	SiteID     *uuid.UUID `gorm:"type:uuid;index;column:site_id" json:"site_id"`
	PolyName   *string    `gorm:"column:poly_name" json:"poly_name"`
	Practice   *string    `gorm:"column:practice" json:"practice"`
	TargetSys  *string    `gorm:"column:target_sys" json:"target_sys"`
	Distr      *string    `gorm:"column:distr" json:"distr"`
	NumTrees   *string    `gorm:"column:num_trees" json:"num_trees"` // raw upload value, validated downstream
	PlantStart *string    `gorm:"column:plantstart" json:"plantstart"`
	CalcArea   *float64   `gorm:"column:calc_area" json:"calc_area"` // hectares
	Status     string     `gorm:"column:status;default:'draft'" json:"status"`
	IsActive   bool       `gorm:"column:is_active;index" json:"is_active"`
}

func (SitePolygon) TableName() string { return "site_polygon" }

// Approved reports whether the polygon passed review.
func (sp SitePolygon) Approved() bool { return sp.Status == StatusApproved }

// Site is a restoration site within a project.
type Site struct {
	UUID                  uuid.UUID  `gorm:"type:uuid;primaryKey;column:uuid" json:"uuid"`
	ProjectID             int64      `gorm:"column:project_id;index" json:"project_id"`
	Name                  *string    `gorm:"column:name" json:"name"`
	HectaresToRestoreGoal *float64   `gorm:"column:hectares_to_restore_goal" json:"hectares_to_restore_goal"`
	StartDate             *time.Time `gorm:"column:start_date;type:date" json:"start_date"`
}

func (Site) TableName() string { return "v2_sites" }

// Project groups sites under one organisation and country.
type Project struct {
	ID                        int64     `gorm:"primaryKey;column:id" json:"id"`
	UUID                      uuid.UUID `gorm:"type:uuid;uniqueIndex;column:uuid" json:"uuid"`
	Name                      *string   `gorm:"column:name" json:"name"`
	Country                   *string   `gorm:"column:country;size:3" json:"country"` // ISO code
	OrganisationID            *int64    `gorm:"column:organisation_id" json:"organisation_id"`
	TotalHectaresRestoredGoal *float64  `gorm:"column:total_hectares_restored_goal" json:"total_hectares_restored_goal"`
}

func (Project) TableName() string { return "v2_projects" }

// CountryBoundary is the reference outline of a country, keyed by ISO code.
type CountryBoundary struct {
	ISO      string `gorm:"primaryKey;column:iso;size:3" json:"iso"`
	Country  string `gorm:"column:country" json:"country"`
	Geometry string `gorm:"type:geometry(Geometry,4326);column:geometry" json:"-"`
}

func (CountryBoundary) TableName() string { return "world_countries_generalized" }
