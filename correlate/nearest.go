package correlate

import (
	"github.com/paulmach/orb"

	"kuanb/civicgrid/feature"
	"kuanb/civicgrid/geom"
)

// Neighbor is a polygon near a point.
type Neighbor struct {
	PolygonID      feature.ID `json:"id"`
	Title          string     `json:"title,omitempty"`
	DistanceMeters float64    `json:"distanceMeters"`

	planar float64
	slot   int
}

// Locator answers nearest-polygon queries over a fixed polygon collection.
type Locator struct {
	polygons []feature.PolygonFeature
	index    *geom.PolygonIndex
}

// NewLocator indexes every polygon with an identifier and a valid geometry.
func NewLocator(polygons []feature.PolygonFeature) *Locator {
	l := &Locator{polygons: polygons, index: geom.NewPolygonIndex()}
	for slot, p := range polygons {
		if !p.HasID {
			continue
		}
		if b, ok := geom.Bound(p.Geometry); ok {
			l.index.Insert(slot, b)
		}
	}
	return l
}

// Nearest returns up to limit polygons ordered by planar distance from pt,
// ties broken by input order. Containing polygons come first at distance 0.
func (l *Locator) Nearest(pt orb.Point, limit int) []Neighbor {
	if limit <= 0 || !geom.Finite(pt) {
		return nil
	}
	best := make([]Neighbor, 0, limit)
	l.index.Nearby(pt, func(slot int, boxDist float64) bool {
		if len(best) == limit && boxDist > best[limit-1].planar {
			return false
		}
		p := l.polygons[slot]
		d, ok := geom.DistanceToGeometry(pt, p.Geometry)
		if !ok {
			return true
		}
		n := Neighbor{
			PolygonID:      p.ID,
			Title:          p.Title(),
			DistanceMeters: d.Meters,
			planar:         d.Planar,
			slot:           slot,
		}
		best = insertNeighbor(best, n, limit)
		return true
	})
	return best
}

func insertNeighbor(best []Neighbor, n Neighbor, limit int) []Neighbor {
	i := len(best)
	for i > 0 && less(n, best[i-1]) {
		i--
	}
	if i >= limit {
		return best
	}
	if len(best) < limit {
		best = append(best, Neighbor{})
	}
	copy(best[i+1:], best[i:len(best)-1])
	best[i] = n
	return best
}

func less(a, b Neighbor) bool {
	if a.planar != b.planar {
		return a.planar < b.planar
	}
	return a.slot < b.slot
}
