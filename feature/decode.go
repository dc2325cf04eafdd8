package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"

	"kuanb/civicgrid/apperr"
)

type rawCollection struct {
	Type     string             `json:"type"`
	Features *[]json.RawMessage `json:"features"`
}

type rawFeature struct {
	Properties json.RawMessage `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Decoder turns FeatureCollection payloads into typed features.
type Decoder struct {
	// IDProperty names the identifier property; DefaultIDProperty when empty.
	IDProperty string
}

// DecodePoints reads a point FeatureCollection. Only an unusable envelope is
// an error; individual malformed features come back without ID or geometry.
func (d Decoder) DecodePoints(r io.Reader) ([]PointFeature, error) {
	raws, err := readCollection(r)
	if err != nil {
		return nil, err
	}
	out := make([]PointFeature, 0, len(raws))
	for _, raw := range raws {
		props, geometry := splitFeature(raw)
		f := PointFeature{Properties: props, Geometry: decodePoint(geometry)}
		f.ID, f.HasID = ParseID(props[d.idProperty()])
		out = append(out, f)
	}
	return out, nil
}

// DecodePolygons reads a Polygon/MultiPolygon FeatureCollection.
func (d Decoder) DecodePolygons(r io.Reader) ([]PolygonFeature, error) {
	raws, err := readCollection(r)
	if err != nil {
		return nil, err
	}
	out := make([]PolygonFeature, 0, len(raws))
	for _, raw := range raws {
		props, geometry := splitFeature(raw)
		f := PolygonFeature{Properties: props, Geometry: decodeArea(geometry)}
		f.ID, f.HasID = ParseID(props[d.idProperty()])
		out = append(out, f)
	}
	return out, nil
}

// ParsePoints decodes a point collection with the default identifier property.
func ParsePoints(data []byte) ([]PointFeature, error) {
	return Decoder{}.DecodePoints(bytes.NewReader(data))
}

// ParsePolygons decodes a polygon collection with the default identifier property.
func ParsePolygons(data []byte) ([]PolygonFeature, error) {
	return Decoder{}.DecodePolygons(bytes.NewReader(data))
}

func (d Decoder) idProperty() string {
	if d.IDProperty == "" {
		return DefaultIDProperty
	}
	return d.IDProperty
}

func readCollection(r io.Reader) ([]json.RawMessage, error) {
	if r == nil {
		return nil, apperr.InvalidInputf("nil feature collection reader")
	}
	var fc rawCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("%w: decoding feature collection: %v", apperr.ErrInvalidInput, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, apperr.InvalidInputf("expected type FeatureCollection, got %q", fc.Type)
	}
	if fc.Features == nil {
		return nil, apperr.InvalidInputf("feature collection has no features array")
	}
	return *fc.Features, nil
}

// splitFeature never fails: anything unreadable yields nil parts.
func splitFeature(raw json.RawMessage) (map[string]any, json.RawMessage) {
	var f rawFeature
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, nil
	}
	var props map[string]any
	if len(f.Properties) > 0 {
		dec := json.NewDecoder(bytes.NewReader(f.Properties))
		dec.UseNumber()
		if err := dec.Decode(&props); err != nil {
			props = nil
		}
	}
	return props, f.Geometry
}

func readGeometry(raw json.RawMessage) (rawGeometry, bool) {
	var g rawGeometry
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return g, false
	}
	if err := json.Unmarshal(raw, &g); err != nil || len(g.Coordinates) == 0 {
		return g, false
	}
	return g, true
}

func decodePoint(raw json.RawMessage) orb.Geometry {
	g, ok := readGeometry(raw)
	if !ok || g.Type != "Point" {
		return nil
	}
	var c []float64
	if err := json.Unmarshal(g.Coordinates, &c); err != nil || len(c) < 2 {
		return nil
	}
	return orb.Point{c[0], c[1]}
}

func decodeArea(raw json.RawMessage) orb.Geometry {
	g, ok := readGeometry(raw)
	if !ok {
		return nil
	}
	switch g.Type {
	case "Polygon":
		var c [][][]float64
		if err := json.Unmarshal(g.Coordinates, &c); err != nil {
			return nil
		}
		p, n, ok := toPolygon(c)
		if !ok || n == 0 {
			return nil
		}
		return p
	case "MultiPolygon":
		var c [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &c); err != nil {
			return nil
		}
		mp := make(orb.MultiPolygon, 0, len(c))
		total := 0
		for _, part := range c {
			p, n, ok := toPolygon(part)
			if !ok {
				return nil
			}
			total += n
			mp = append(mp, p)
		}
		if total == 0 {
			return nil
		}
		return mp
	default:
		return nil
	}
}

// toPolygon converts raw rings and reports the number of positions seen.
func toPolygon(rings [][][]float64) (orb.Polygon, int, bool) {
	p := make(orb.Polygon, 0, len(rings))
	n := 0
	for _, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				return nil, 0, false
			}
			r = append(r, orb.Point{pos[0], pos[1]})
		}
		n += len(r)
		p = append(p, r)
	}
	return p, n, true
}
