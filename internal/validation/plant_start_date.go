package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// PlantStartError classifies why a plant start date was rejected.
type PlantStartError string

const (
	MissingValue         PlantStartError = "MISSING_VALUE"
	InvalidFormat        PlantStartError = "INVALID_FORMAT"
	ParseError           PlantStartError = "PARSE_ERROR"
	DateTooEarly         PlantStartError = "DATE_TOO_EARLY"
	DateInFuture         PlantStartError = "DATE_IN_FUTURE"
	DateOutsideSiteRange PlantStartError = "DATE_OUTSIDE_SITE_RANGE"
)

const dateLayout = "2006-01-02"

// zeroDate is the placeholder some exports write for an unset date.
const zeroDate = "0000-00-00"

// MinPlantStartDate is the earliest planting date accepted.
var MinPlantStartDate = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)

// siteRangeYears bounds the plant start date around the site start date.
const siteRangeYears = 2

// dateLayouts are tried in order. Only the date part is compared.
var dateLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type PlantStartDateInfo struct {
	ErrorType     PlantStartError `json:"error_type"`
	PolygonUUID   *uuid.UUID      `json:"polygon_uuid,omitempty"`
	PolygonName   string          `json:"polygon_name,omitempty"`
	SiteName      string          `json:"site_name,omitempty"`
	ProvidedValue *string         `json:"provided_value"`
	MinDate       string          `json:"min_date,omitempty"`
	CurrentDate   string          `json:"current_date,omitempty"`
	SiteStartDate string          `json:"site_start_date,omitempty"`
	AllowedRange  *DateRange      `json:"allowed_range,omitempty"`
	ErrorDetails  string          `json:"error_details,omitempty"`
}

// PlantStartDate checks the plantstart attribute against a fixed earliest
// date, the current date and the owning site's start date.
type PlantStartDate struct {
	lookup polygons.EntityLookup
	now    func() time.Time
}

type PlantStartDateOption func(*PlantStartDate)

// WithClock replaces time.Now as the source of the current date.
func WithClock(now func() time.Time) PlantStartDateOption {
	return func(v *PlantStartDate) { v.now = now }
}

func NewPlantStartDate(lookup polygons.EntityLookup, opts ...PlantStartDateOption) *PlantStartDate {
	v := &PlantStartDate{lookup: lookup, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// plantStartSubject identifies the polygon in failure details.
type plantStartSubject struct {
	id        *uuid.UUID
	name      string
	siteName  string
	siteStart *time.Time
}

func (v *PlantStartDate) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	pc, err := v.lookup.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return v.check(pc.SitePolygon.PlantStart, subjectOf(id, pc)), nil
}

func (v *PlantStartDate) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
	resolved, err := v.lookup.ResolveBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]PolygonResult, 0, len(ids))
	for _, id := range ids {
		pc, ok := resolved[id]
		if !ok {
			out = append(out, errorResult(id, "active site polygon not found"))
			continue
		}
		out = append(out, polygonResult(id, v.check(pc.SitePolygon.PlantStart, subjectOf(id, &pc))))
	}
	return out, nil
}

// ValidateGeometry reads the plantstart property. There is no site yet, so
// the site range is not checked.
func (v *PlantStartDate) ValidateGeometry(_ context.Context, feature geometry.Feature) (Result, error) {
	subject := plantStartSubject{name: propertyString(feature.Properties, "poly_name")}
	var value *string
	if s := propertyString(feature.Properties, "plantstart"); s != "" {
		value = &s
	}
	return v.check(value, subject), nil
}

func subjectOf(id uuid.UUID, pc *polygons.PolygonContext) plantStartSubject {
	s := plantStartSubject{id: &id, name: pc.PolygonName(), siteName: pc.SiteName()}
	if pc.Site != nil {
		s.siteStart = pc.Site.StartDate
	}
	return s
}

func (v *PlantStartDate) check(value *string, subject plantStartSubject) Result {
	fail := func(kind PlantStartError, fill func(*PlantStartDateInfo)) Result {
		info := PlantStartDateInfo{
			ErrorType:     kind,
			PolygonUUID:   subject.id,
			PolygonName:   subject.name,
			SiteName:      subject.siteName,
			ProvidedValue: value,
		}
		if fill != nil {
			fill(&info)
		}
		return Result{Valid: false, ExtraInfo: info}
	}

	if value == nil || strings.TrimSpace(*value) == "" {
		return fail(MissingValue, nil)
	}
	raw := strings.TrimSpace(*value)
	if raw == zeroDate {
		return fail(InvalidFormat, func(i *PlantStartDateInfo) {
			i.ErrorDetails = "expected a date in YYYY-MM-DD format"
		})
	}
	date, err := parseDate(raw)
	if err != nil {
		return fail(ParseError, func(i *PlantStartDateInfo) { i.ErrorDetails = err.Error() })
	}

	if date.Before(MinPlantStartDate) {
		return fail(DateTooEarly, func(i *PlantStartDateInfo) {
			i.MinDate = MinPlantStartDate.Format(dateLayout)
		})
	}
	today := dateOnly(v.now())
	if date.After(today) {
		return fail(DateInFuture, func(i *PlantStartDateInfo) {
			i.CurrentDate = today.Format(dateLayout)
		})
	}
	if subject.siteStart != nil {
		start := dateOnly(*subject.siteStart)
		lo, hi := start.AddDate(-siteRangeYears, 0, 0), start.AddDate(siteRangeYears, 0, 0)
		if date.Before(lo) || date.After(hi) {
			return fail(DateOutsideSiteRange, func(i *PlantStartDateInfo) {
				i.SiteStartDate = start.Format(dateLayout)
				i.AllowedRange = &DateRange{Min: lo.Format(dateLayout), Max: hi.Format(dateLayout)}
			})
		}
	}
	return Result{Valid: true}
}

// looksLikeDate reports whether s starts with a YYYY-MM-DD shaped prefix.
func looksLikeDate(s string) bool {
	if len(s) < len(dateLayout) {
		return false
	}
	for i, c := range s[:len(dateLayout)] {
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// parseDate accepts the layouts in dateLayouts and truncates to the date.
func parseDate(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return dateOnly(t), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: %w", s, firstErr)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// propertyString returns a feature property as text. Numbers keep their
// integer form when they have no fraction.
func propertyString(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprint(t)
	}
}
