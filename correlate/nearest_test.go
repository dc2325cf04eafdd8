package correlate

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuanb/civicgrid/feature"
)

func neighborIDs(ns []Neighbor) []feature.ID {
	out := make([]feature.ID, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.PolygonID)
	}
	return out
}

func TestLocatorNearest(t *testing.T) {
	polygons := []feature.PolygonFeature{
		area(1, orb.Polygon{rect(10, 0, 11, 1)}),
		area(2, orb.Polygon{rect(2, 0, 3, 1)}),
		area(3, orb.Polygon{rect(-1, -1, 1, 1)}),
		{HasID: false, Geometry: orb.Polygon{rect(0, 0, 0.5, 0.5)}},
		area(4, orb.Polygon{{}}),
		area(5, orb.Polygon{rect(5, 0, 6, 1)}),
	}
	polygons[1].Properties = map[string]any{"ProjectTitle": "Bridge Retrofit"}
	l := NewLocator(polygons)

	got := l.Nearest(orb.Point{0, 0.5}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []feature.ID{3, 2, 5}, neighborIDs(got))
	assert.Zero(t, got[0].DistanceMeters, "containing polygon is at distance zero")
	assert.Equal(t, "Bridge Retrofit", got[1].Title)
	assert.InDelta(t, 2*111_195, got[1].DistanceMeters, 500)

	assert.Equal(t, []feature.ID{3, 2, 5, 1}, neighborIDs(l.Nearest(orb.Point{0, 0.5}, 10)))
	assert.Nil(t, l.Nearest(orb.Point{0, 0}, 0))
	assert.Nil(t, l.Nearest(orb.Point{math.NaN(), 0}, 3))
}

func TestLocatorNearestUsesExactDistance(t *testing.T) {
	// The L-shaped polygon's box contains the query point, but its nearest
	// edge is farther away than the small square.
	ell := orb.Polygon{{{0, 0}, {10, 0}, {10, 1}, {1, 1}, {1, 10}, {0, 10}, {0, 0}}}
	polygons := []feature.PolygonFeature{
		area(1, ell),
		area(2, orb.Polygon{rect(6, 6.5, 7, 7)}),
	}
	got := NewLocator(polygons).Nearest(orb.Point{6, 6}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, feature.ID(2), got[0].PolygonID)
}

func TestLocatorTiesFollowInputOrder(t *testing.T) {
	polygons := []feature.PolygonFeature{
		area(9, orb.Polygon{rect(1, 0, 2, 1)}),
		area(4, orb.Polygon{rect(-2, 0, -1, 1)}),
	}
	got := NewLocator(polygons).Nearest(orb.Point{0, 0.5}, 2)
	assert.Equal(t, []feature.ID{9, 4}, neighborIDs(got))
}
