package feature

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuanb/civicgrid/apperr"
)

const chargersJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"OBJECTID": 1}, "geometry": {"type": "Point", "coordinates": [-118.25, 34.05]}},
    {"type": "Feature", "properties": {"OBJECTID": 2}, "geometry": null},
    {"type": "Feature", "properties": {"OBJECTID": 0}, "geometry": {"type": "Point", "coordinates": [-118.25, 34.05]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [1, 2]}},
    {"type": "Feature", "properties": {"OBJECTID": 5}, "geometry": {"type": "Point", "coordinates": [1]}},
    {"type": "Feature", "properties": {"OBJECTID": 6}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}},
    42
  ]
}`

func TestDecodePoints(t *testing.T) {
	points, err := Decoder{}.DecodePoints(strings.NewReader(chargersJSON))
	require.NoError(t, err)
	require.Len(t, points, 7)

	p, ok := points[0].Point()
	require.True(t, ok)
	assert.Equal(t, ID(1), points[0].ID)
	assert.True(t, points[0].HasID)
	assert.Equal(t, orb.Point{-118.25, 34.05}, p)

	assert.True(t, points[1].HasID, "null geometry keeps its identifier")
	assert.Nil(t, points[1].Geometry)

	assert.False(t, points[2].HasID, "zero is not a usable identifier")
	assert.False(t, points[3].HasID)

	assert.True(t, points[4].HasID)
	assert.Nil(t, points[4].Geometry, "short coordinate array")

	assert.Nil(t, points[5].Geometry, "polygon in a point collection")

	assert.False(t, points[6].HasID)
	assert.Nil(t, points[6].Geometry)
}

func TestDecodePolygons(t *testing.T) {
	const projects = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"OBJECTID": 100, "ProjectTitle": "Main St Repaving"},
     "geometry": {"type": "Polygon", "coordinates": [[[-118.3,34.0],[-118.2,34.0],[-118.2,34.1],[-118.3,34.1],[-118.3,34.0]]]}},
    {"type": "Feature", "properties": {"OBJECTID": 101},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[0,0],[1,0],[1,1],[0,0]]],[[[5,5],[6,5],[6,6],[5,5]]]]}},
    {"type": "Feature", "properties": {"OBJECTID": 102}, "geometry": {"type": "Polygon", "coordinates": [[]]}},
    {"type": "Feature", "properties": {"OBJECTID": 103}, "geometry": {"type": "Polygon", "coordinates": []}},
    {"type": "Feature", "properties": {"OBJECTID": 104}, "geometry": {"type": "Polygon"}},
    {"type": "Feature", "properties": {"OBJECTID": 105}, "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}},
    {"type": "Feature", "properties": {"OBJECTID": 106}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0]]]}}
  ]
}`
	polygons, err := ParsePolygons([]byte(projects))
	require.NoError(t, err)
	require.Len(t, polygons, 7)

	assert.Equal(t, "Main St Repaving", polygons[0].Title())
	require.IsType(t, orb.Polygon{}, polygons[0].Geometry)
	assert.Len(t, polygons[0].Geometry.(orb.Polygon)[0], 5)

	require.IsType(t, orb.MultiPolygon{}, polygons[1].Geometry)
	assert.Len(t, polygons[1].Geometry.(orb.MultiPolygon), 2)
	assert.Equal(t, "", polygons[1].Title())

	for _, i := range []int{2, 3, 4, 5} {
		assert.True(t, polygons[i].HasID, "feature %d", i)
		assert.Nil(t, polygons[i].Geometry, "feature %d", i)
	}

	// Degenerate but non-empty rings are kept; the predicate reports them.
	assert.NotNil(t, polygons[6].Geometry)
}

func TestDecodeCustomIDProperty(t *testing.T) {
	const data = `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"station_id":7,"OBJECTID":1},"geometry":{"type":"Point","coordinates":[0,0]}}]}`
	points, err := Decoder{IDProperty: "station_id"}.DecodePoints(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, ID(7), points[0].ID)
}

func TestDecodeInvalidEnvelope(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"array", `[1,2,3]`},
		{"wrong type", `{"type":"Feature","features":[]}`},
		{"missing features", `{"type":"FeatureCollection"}`},
		{"null features", `{"type":"FeatureCollection","features":null}`},
		{"features not array", `{"type":"FeatureCollection","features":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePoints([]byte(tt.data))
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
			_, err = ParsePolygons([]byte(tt.data))
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}

	_, err := Decoder{}.DecodePoints(nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestDecodeEmptyCollection(t *testing.T) {
	points, err := ParsePoints([]byte(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestDecodeOversizedID(t *testing.T) {
	points, err := ParsePoints([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"OBJECTID":9223372036854775808},"geometry":{"type":"Point","coordinates":[1,2]}}
	]}`))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.False(t, points[0].HasID)
	assert.Zero(t, points[0].ID)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want ID
		ok   bool
	}{
		{"json integer", json.Number("42"), 42, true},
		{"json integral float", json.Number("42.0"), 42, true},
		{"json fraction", json.Number("4.2"), 0, false},
		{"json zero", json.Number("0"), 0, false},
		{"json negative", json.Number("-3"), 0, false},
		{"json max int64", json.Number("9223372036854775807"), 9223372036854775807, true},
		{"json 2^63", json.Number("9223372036854775808"), 0, false},
		{"json beyond int64", json.Number("1e19"), 0, false},
		{"float64 2^63", float64(1 << 63), 0, false},
		{"float64", float64(9), 9, true},
		{"int", 3, 3, true},
		{"int64 zero", int64(0), 0, false},
		{"string", "12", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseID(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
