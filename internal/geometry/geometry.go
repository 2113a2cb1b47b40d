// Package geometry parses the GeoJSON shapes submitted as site boundaries.
//
// Coordinates are always [longitude, latitude] pairs in degrees (WGS84).
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Geometry type names as they appear in the GeoJSON "type" member.
const (
	TypePoint        = "Point"
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

// AllowedTypes are the only geometry types accepted as site boundaries.
var AllowedTypes = []string{TypePoint, TypePolygon, TypeMultiPolygon}

var ErrEmptyGeometry = errors.New("geometry: empty input")

// Geometry is a decoded GeoJSON geometry. Type is always set, even when the
// shape itself could not be decoded (e.g. an unknown type name), so callers can
// still report what was submitted.
type Geometry struct {
	Type  string
	Shape orb.Geometry
	Raw   json.RawMessage
}

// Feature is a geometry plus the free-form properties an upload carries.
type Feature struct {
	Geometry   Geometry
	Properties map[string]any
}

type envelope struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// Parse decodes a bare GeoJSON geometry object.
func Parse(data []byte) (Geometry, error) {
	if len(data) == 0 {
		return Geometry{}, ErrEmptyGeometry
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Geometry{}, fmt.Errorf("decode geometry: %w", err)
	}
	if env.Type == "" {
		return Geometry{}, errors.New("geometry: missing type")
	}

	g := Geometry{Type: env.Type, Raw: json.RawMessage(data)}
	decoded, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		if IsAllowedType(env.Type) {
			return Geometry{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		// Unsupported or unknown types are kept by name only.
		return g, nil
	}
	g.Shape = decoded.Geometry()
	return g, nil
}

// ParseFeature decodes either a GeoJSON Feature or a bare geometry. A bare
// geometry yields a Feature with nil properties.
func ParseFeature(data []byte) (Feature, error) {
	if len(data) == 0 {
		return Feature{}, ErrEmptyGeometry
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Feature{}, fmt.Errorf("decode feature: %w", err)
	}
	if env.Type != "Feature" {
		g, err := Parse(data)
		if err != nil {
			return Feature{}, err
		}
		return Feature{Geometry: g}, nil
	}

	g, err := Parse(env.Geometry)
	if err != nil {
		return Feature{}, fmt.Errorf("feature geometry: %w", err)
	}
	return Feature{Geometry: g, Properties: env.Properties}, nil
}

// FromShape wraps an orb geometry, encoding its GeoJSON form.
func FromShape(shape orb.Geometry) (Geometry, error) {
	raw, err := Encode(shape)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{Type: shape.GeoJSONType(), Shape: shape, Raw: raw}, nil
}

// Encode returns the GeoJSON geometry encoding of shape.
func Encode(shape orb.Geometry) ([]byte, error) {
	if shape == nil {
		return nil, ErrEmptyGeometry
	}
	data, err := geojson.NewGeometry(shape).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", shape.GeoJSONType(), err)
	}
	return data, nil
}

// IsAllowedType reports whether t is one of AllowedTypes.
func IsAllowedType(t string) bool {
	for _, allowed := range AllowedTypes {
		if t == allowed {
			return true
		}
	}
	return false
}

// Polygons returns the constituent polygons of a Polygon or MultiPolygon.
// Any other shape yields nil.
func (g Geometry) Polygons() []orb.Polygon {
	switch s := g.Shape.(type) {
	case orb.Polygon:
		return []orb.Polygon{s}
	case orb.MultiPolygon:
		return []orb.Polygon(s)
	}
	return nil
}

// OuterRing returns the exterior ring of a Polygon, or of the first polygon of
// a MultiPolygon. Holes and further parts are not considered.
func (g Geometry) OuterRing() (orb.Ring, bool) {
	polys := g.Polygons()
	if len(polys) == 0 || len(polys[0]) == 0 {
		return nil, false
	}
	return polys[0][0], true
}
