package geom

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointToSegmentDistance(t *testing.T) {
	// One hundredth of a degree of latitude is about 1112 m.
	d := PointToSegmentDistance(0, 0.01, -1, 0, 1, 0)
	assert.InDelta(t, 1112, d, 2)

	// Past the end of the segment the distance is to the endpoint.
	d = PointToSegmentDistance(0, 0, 0, 0.01, 0, 0.01)
	assert.InDelta(t, 1112, d, 2)
}

func TestBoxDistance(t *testing.T) {
	b := box(0, 0, 2, 2)
	assert.Equal(t, 0.0, BoxDistance(orb.Point{1, 1}, b))
	assert.InDelta(t, 3.0, BoxDistance(orb.Point{5, 1}, b), 1e-12)
	assert.InDelta(t, 5.0, BoxDistance(orb.Point{-3, -4}, b), 1e-12)
}

func TestDistanceToGeometry(t *testing.T) {
	d, ok := DistanceToGeometry(orb.Point{2, 2}, donut)
	require.True(t, ok)
	assert.Zero(t, d.Planar)
	assert.Zero(t, d.Meters)

	// Inside the hole: nearest edge is the hole boundary one degree away.
	d, ok = DistanceToGeometry(orb.Point{5, 5}, donut)
	require.True(t, ok)
	assert.InDelta(t, 1.0, d.Planar, 1e-12)
	assert.InDelta(t, 111_000, d.Meters, 1_000)

	d, ok = DistanceToGeometry(orb.Point{12, 5}, donut)
	require.True(t, ok)
	assert.InDelta(t, 2.0, d.Planar, 1e-12)

	_, ok = DistanceToGeometry(orb.Point{0, 0}, orb.Polygon{{}})
	assert.False(t, ok)
}
