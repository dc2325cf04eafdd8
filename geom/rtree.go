package geom

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/tidwall/geoindex"
	"github.com/tidwall/geoindex/algo"
	"github.com/tidwall/rtree"
)

// PolygonIndex is a bounding-box index over polygon slots, where a slot is
// the polygon's position in its input collection.
type PolygonIndex struct {
	index *geoindex.Index
}

// NewPolygonIndex creates an empty index.
func NewPolygonIndex() *PolygonIndex {
	return &PolygonIndex{
		index: geoindex.Wrap(&rtree.RTree{}),
	}
}

// Insert adds a slot with the given bounding box.
func (x *PolygonIndex) Insert(slot int, b orb.Bound) {
	x.index.Insert([2]float64(b.Min), [2]float64(b.Max), slot)
}

// Candidates returns the slots whose boxes contain pt, in ascending order.
func (x *PolygonIndex) Candidates(pt orb.Point) []int {
	result := make([]int, 0)
	x.index.Search(
		[2]float64(pt),
		[2]float64(pt),
		func(min, max [2]float64, data interface{}) bool {
			result = append(result, data.(int))
			return true // continue searching
		},
	)
	slices.Sort(result)
	return result
}

// Nearby visits slots in order of increasing box distance from pt until iter
// returns false. boxDist is the planar distance in degrees from pt to the
// slot's bounding box, zero when pt is inside it.
func (x *PolygonIndex) Nearby(pt orb.Point, iter func(slot int, boxDist float64) bool) {
	target := [2]float64(pt)
	x.index.Nearby(
		algo.Box(target, target, false, nil),
		func(min, max [2]float64, data interface{}, _ float64) bool {
			b := orb.Bound{Min: orb.Point(min), Max: orb.Point(max)}
			return iter(data.(int), BoxDistance(pt, b))
		},
	)
}

// Len returns the number of indexed slots.
func (x *PolygonIndex) Len() int {
	return x.index.Len()
}
