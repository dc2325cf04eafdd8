// Package feature holds the typed point and polygon entities the correlator
// works on, and decodes them from GeoJSON FeatureCollections.
//
// Validation happens once, at decode time: a feature either carries a usable
// identifier (HasID) or it does not, and its Geometry is either the expected
// orb type or nil.
package feature

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

// DefaultIDProperty is the property holding the feature identifier.
const DefaultIDProperty = "OBJECTID"

// ID identifies a feature within its own collection.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// PointFeature is a charging station.
type PointFeature struct {
	ID    ID
	HasID bool
	// Geometry is an orb.Point or nil when the source had no usable point.
	Geometry   orb.Geometry
	Properties map[string]any
}

// Point returns the coordinate and whether the feature has one.
func (f PointFeature) Point() (orb.Point, bool) {
	p, ok := f.Geometry.(orb.Point)
	return p, ok
}

// PolygonFeature is a capital-improvement project area.
type PolygonFeature struct {
	ID    ID
	HasID bool
	// Geometry is an orb.Polygon, an orb.MultiPolygon or nil.
	Geometry   orb.Geometry
	Properties map[string]any
}

// Title returns the ProjectTitle property, or "" when absent.
func (f PolygonFeature) Title() string {
	s, _ := f.Properties["ProjectTitle"].(string)
	return s
}

// ParseID reports whether v is a usable identifier: a number with an
// integral value greater than zero. Zero is rejected, matching the source
// datasets where OBJECTID starts at 1.
func ParseID(v any) (ID, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			if n <= 0 {
				return 0, false
			}
			return ID(n), true
		}
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		if x <= 0 {
			return 0, false
		}
		return ID(x), true
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f >= math.MaxInt64 {
		return 0, false
	}
	return ID(f), true
}
