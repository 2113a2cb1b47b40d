package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
	"golang.org/x/text/unicode/norm"
)

// Attribute names, shared by the site_polygon columns and GeoJSON properties.
const (
	FieldPolyName   = "poly_name"
	FieldPractice   = "practice"
	FieldTargetSys  = "target_sys"
	FieldDistr      = "distr"
	FieldNumTrees   = "num_trees"
	FieldPlantStart = "plantstart"
)

var (
	ValidPractices = []string{
		"tree-planting",
		"direct-seeding",
		"assisted-natural-regeneration",
	}
	ValidTargetSystems = []string{
		"agroforest",
		"grassland",
		"mangrove",
		"natural-forest",
		"peatland",
		"riparian-area-or-wetland",
		"silvopasture",
		"urban-forest",
		"woodlot-or-plantation",
	}
	ValidDistributions = []string{
		"full",
		"partial",
		"single-line",
	}
)

// FieldError is one missing or malformed attribute.
type FieldError struct {
	Field  string `json:"field"`
	Error  string `json:"error"`
	Exists bool   `json:"exists"`
}

type polygonFields map[string]*string

// DataCompleteness checks that the descriptive attributes of a polygon are
// present and drawn from the controlled vocabularies.
type DataCompleteness struct {
	lookup polygons.EntityLookup
}

func NewDataCompleteness(lookup polygons.EntityLookup) *DataCompleteness {
	return &DataCompleteness{lookup: lookup}
}

func (v *DataCompleteness) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	pc, err := v.lookup.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return completenessResult(fieldsOf(pc.SitePolygon)), nil
}

func (v *DataCompleteness) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
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
		out = append(out, polygonResult(id, completenessResult(fieldsOf(pc.SitePolygon))))
	}
	return out, nil
}

func (v *DataCompleteness) ValidateGeometry(_ context.Context, feature geometry.Feature) (Result, error) {
	fields := make(polygonFields)
	for _, name := range []string{FieldPolyName, FieldPractice, FieldTargetSys, FieldDistr, FieldNumTrees, FieldPlantStart} {
		if s := propertyString(feature.Properties, name); s != "" {
			fields[name] = &s
		}
	}
	return completenessResult(fields), nil
}

func fieldsOf(sp polygons.SitePolygon) polygonFields {
	return polygonFields{
		FieldPolyName:   sp.PolyName,
		FieldPractice:   sp.Practice,
		FieldTargetSys:  sp.TargetSys,
		FieldDistr:      sp.Distr,
		FieldNumTrees:   sp.NumTrees,
		FieldPlantStart: sp.PlantStart,
	}
}

func completenessResult(fields polygonFields) Result {
	errs := checkCompleteness(fields)
	if len(errs) == 0 {
		return Result{Valid: true}
	}
	return Result{Valid: false, ExtraInfo: errs}
}

// checkCompleteness reports fields in a fixed order. A blank value counts as
// missing.
func checkCompleteness(fields polygonFields) []FieldError {
	var errs []FieldError
	add := func(field, msg string, exists bool) {
		errs = append(errs, FieldError{Field: field, Error: msg, Exists: exists})
	}

	value := func(field string) (string, bool) {
		p := fields[field]
		if p == nil || strings.TrimSpace(*p) == "" {
			return "", false
		}
		return strings.TrimSpace(*p), true
	}

	if _, ok := value(FieldPolyName); !ok {
		add(FieldPolyName, "Field is required", false)
	}

	for _, vocab := range []struct {
		field   string
		allowed []string
	}{
		{FieldPractice, ValidPractices},
		{FieldTargetSys, ValidTargetSystems},
		{FieldDistr, ValidDistributions},
	} {
		s, ok := value(vocab.field)
		if !ok {
			add(vocab.field, "Field is required", false)
			continue
		}
		if msg := checkVocabulary(s, vocab.allowed); msg != "" {
			add(vocab.field, msg, true)
		}
	}

	if s, ok := value(FieldNumTrees); !ok {
		add(FieldNumTrees, "Field is required", false)
	} else if n, err := strconv.Atoi(s); err != nil || n < 0 {
		add(FieldNumTrees, "Number of trees must be a positive integer", true)
	} else if n == 0 {
		add(FieldNumTrees, "Number of trees cannot be 0", true)
	}

	if s, ok := value(FieldPlantStart); !ok {
		add(FieldPlantStart, "Field is required", false)
	} else if !looksLikeDate(s) {
		add(FieldPlantStart, "Invalid date format", true)
	} else if _, err := parseDate(s); err != nil {
		add(FieldPlantStart, "Invalid date format", true)
	}

	return errs
}

// checkVocabulary validates a comma-separated list of tokens. Tokens are
// trimmed and NFC-normalised before comparison; empty tokens are ignored.
func checkVocabulary(s string, allowed []string) string {
	var invalid []string
	seen := 0
	for _, token := range strings.Split(s, ",") {
		token = norm.NFC.String(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		seen++
		if !containsString(allowed, token) {
			invalid = append(invalid, token)
		}
	}
	if seen == 0 {
		return "Field is required"
	}
	if len(invalid) > 0 {
		return fmt.Sprintf("Invalid value(s): %s. Allowed values: %s",
			strings.Join(invalid, ", "), strings.Join(allowed, ", "))
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
