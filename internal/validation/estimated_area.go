package validation

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

const (
	lowerBoundRatio = 0.75
	upperBoundRatio = 1.25
)

// CheckStatus is the outcome of one EstimatedArea sub-check.
type CheckStatus string

const (
	CheckValid         CheckStatus = "valid"
	CheckInvalid       CheckStatus = "invalid"
	CheckNotApplicable CheckStatus = "not_applicable"
)

// AreaComparison compares a summed polygon area with a declared goal. All
// figures are nil when the goal is missing or not positive.
type AreaComparison struct {
	Status              CheckStatus `json:"status"`
	TotalAreaGoal       *float64    `json:"total_area_goal"`
	SumArea             *float64    `json:"sum_area"`
	LowerBound          *float64    `json:"lower_bound"`
	UpperBound          *float64    `json:"upper_bound"`
	Percentage          *float64    `json:"percentage"`
	ProjectedSumArea    *float64    `json:"projected_sum_area,omitempty"`
	ProjectedPercentage *float64    `json:"projected_percentage,omitempty"`
}

func (c AreaComparison) Valid() bool { return c.Status == CheckValid }

type EstimatedAreaInfo struct {
	Site    AreaComparison `json:"site"`
	Project AreaComparison `json:"project"`
}

// EstimatedArea checks that the mapped area of a site, or of its project, is
// within 75% to 125% of the declared restoration goal. The site sum covers
// every active polygon of the site; the project sum covers approved polygons
// only.
type EstimatedArea struct {
	lookup polygons.EntityLookup
}

func NewEstimatedArea(lookup polygons.EntityLookup) *EstimatedArea {
	return &EstimatedArea{lookup: lookup}
}

func (v *EstimatedArea) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	pc, err := v.lookup.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}

	own := storedHectares(pc.SitePolygon)
	projected := !pc.SitePolygon.Approved() && own != 0

	info := EstimatedAreaInfo{
		Site:    AreaComparison{Status: CheckNotApplicable},
		Project: AreaComparison{Status: CheckNotApplicable},
	}

	if pc.Site != nil && positive(pc.Site.HectaresToRestoreGoal) {
		sum, err := v.lookup.ActiveAreaInSite(ctx, pc.Site.UUID)
		if err != nil {
			return Result{}, err
		}
		info.Site = compareArea(*pc.Site.HectaresToRestoreGoal, sum, own, projected)
	}
	if pc.Project != nil && positive(pc.Project.TotalHectaresRestoredGoal) {
		sum, err := v.lookup.ApprovedAreaInProject(ctx, pc.Project.ID)
		if err != nil {
			return Result{}, err
		}
		info.Project = compareArea(*pc.Project.TotalHectaresRestoredGoal, sum, own, projected)
	}

	return Result{Valid: info.Site.Valid() || info.Project.Valid(), ExtraInfo: info}, nil
}

func (v *EstimatedArea) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
	return eachPolygon(ctx, ids, v.ValidatePolygon)
}

func compareArea(goal, sum, own float64, projected bool) AreaComparison {
	lower, upper := goal*lowerBoundRatio, goal*upperBoundRatio
	c := AreaComparison{
		Status:        CheckInvalid,
		TotalAreaGoal: floatPtr(goal),
		SumArea:       floatPtr(sum),
		LowerBound:    floatPtr(lower),
		UpperBound:    floatPtr(upper),
		Percentage:    floatPtr(math.Round(sum / goal * 100)),
	}
	if sum >= lower && sum <= upper {
		c.Status = CheckValid
	}
	if projected {
		c.ProjectedSumArea = floatPtr(sum + own)
		c.ProjectedPercentage = floatPtr(math.Round((sum + own) / goal * 100))
	}
	return c
}

func positive(f *float64) bool { return f != nil && *f > 0 }
