package validation

import (
	"errors"
	"fmt"
	"time"

	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// Kind names one of the validators.
type Kind string

const (
	KindGeometryType     Kind = "geometry_type"
	KindFeatureBounds    Kind = "feature_bounds"
	KindSelfIntersection Kind = "self_intersection"
	KindSpikes           Kind = "spikes"
	KindPolygonSize      Kind = "polygon_size"
	KindOverlapping      Kind = "overlapping"
	KindWithinCountry    Kind = "within_country"
	KindEstimatedArea    Kind = "estimated_area"
	KindPlantStartDate   Kind = "plant_start_date"
	KindDataCompleteness Kind = "data_completeness"
)

// Kinds lists every validator in display order.
var Kinds = []Kind{
	KindGeometryType,
	KindFeatureBounds,
	KindSelfIntersection,
	KindSpikes,
	KindPolygonSize,
	KindOverlapping,
	KindWithinCountry,
	KindEstimatedArea,
	KindPlantStartDate,
	KindDataCompleteness,
}

var ErrUnknownKind = errors.New("unknown validator kind")

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// Capabilities describes which entry points a kind accepts.
type Capabilities struct {
	Kind     Kind `json:"kind"`
	ByID     bool `json:"by_id"`
	Geometry bool `json:"geometry"`
}

// Registry holds one instrumented validator per kind.
type Registry struct {
	validators map[Kind]*instrumented
}

type RegistryOption func(*registryConfig)

type registryConfig struct {
	now func() time.Time
}

// WithRegistryClock sets the clock used by date-based validators.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(c *registryConfig) { c.now = now }
}

func NewRegistry(store polygons.GeometryStore, lookup polygons.EntityLookup, opts ...RegistryOption) *Registry {
	cfg := registryConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Registry{validators: make(map[Kind]*instrumented, len(Kinds))}
	for _, k := range Kinds {
		r.validators[k] = instrument(k, newValidator(k, store, lookup, cfg))
	}
	return r
}

func newValidator(k Kind, store polygons.GeometryStore, lookup polygons.EntityLookup, cfg registryConfig) Validator {
	switch k {
	case KindGeometryType:
		return NewGeometryType()
	case KindFeatureBounds:
		return NewFeatureBounds(store)
	case KindSelfIntersection:
		return NewSelfIntersection(store)
	case KindSpikes:
		return NewSpikes(store)
	case KindPolygonSize:
		return NewPolygonSize(store, lookup)
	case KindOverlapping:
		return NewOverlapping(store, lookup)
	case KindWithinCountry:
		return NewWithinCountry(store, lookup)
	case KindEstimatedArea:
		return NewEstimatedArea(lookup)
	case KindPlantStartDate:
		return NewPlantStartDate(lookup, WithClock(cfg.now))
	case KindDataCompleteness:
		return NewDataCompleteness(lookup)
	}
	panic(fmt.Sprintf("validation: no constructor for kind %q", k))
}

func (r *Registry) Validator(k Kind) (Validator, error) {
	v, ok := r.validators[k]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, k)
	}
	return v, nil
}

// GeometryValidator fails with ErrNotSupported for kinds that only work on
// stored polygons.
func (r *Registry) GeometryValidator(k Kind) (GeometryValidator, error) {
	v, ok := r.validators[k]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, k)
	}
	if v.geo == nil {
		return nil, fmt.Errorf("%s on uploaded geometry: %w", k, ErrNotSupported)
	}
	return v, nil
}

func (r *Registry) Capabilities() []Capabilities {
	out := make([]Capabilities, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, Capabilities{
			Kind:     k,
			ByID:     k != KindGeometryType,
			Geometry: r.validators[k].geo != nil,
		})
	}
	return out
}
