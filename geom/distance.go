package geom

import (
	"math"

	"github.com/paulmach/orb"
)

const EarthRadiusMeters = 6371000.0

// PointToSegmentDistance returns the shortest distance in meters from point p to the line segment ab
// Uses equirectangular projection (accurate for short distances)
func PointToSegmentDistance(pLon, pLat, aLon, aLat, bLon, bLat float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }

	// Equirectangular projection locally around point a
	cosLat := math.Cos(toRad(aLat))
	ax := toRad(aLon) * cosLat * EarthRadiusMeters
	ay := toRad(aLat) * EarthRadiusMeters
	bx := toRad(bLon) * cosLat * EarthRadiusMeters
	by := toRad(bLat) * EarthRadiusMeters
	px := toRad(pLon) * cosLat * EarthRadiusMeters
	py := toRad(pLat) * EarthRadiusMeters

	return segmentDistance(px, py, ax, ay, bx, by)
}

// BoxDistance is the planar distance in degrees from pt to b.
func BoxDistance(pt orb.Point, b orb.Bound) float64 {
	dx := math.Max(0, math.Max(b.Min[0]-pt[0], pt[0]-b.Max[0]))
	dy := math.Max(0, math.Max(b.Min[1]-pt[1], pt[1]-b.Max[1]))
	return math.Hypot(dx, dy)
}

// Distance describes how far a point is from an area.
type Distance struct {
	// Planar is measured in degrees and is what callers should order by.
	Planar float64
	Meters float64
}

// DistanceToGeometry returns the distance from pt to the nearest ring edge of
// g, or zero when g contains pt. ok is false when g cannot be evaluated.
func DistanceToGeometry(pt orb.Point, g orb.Geometry) (d Distance, ok bool) {
	out, err := Evaluate(pt, g)
	if err != nil {
		return Distance{}, false
	}
	if out == Contained {
		return Distance{}, true
	}

	var polys []orb.Polygon
	switch g := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{g}
	case orb.MultiPolygon:
		polys = g
	}

	d = Distance{Planar: math.Inf(1), Meters: math.Inf(1)}
	for _, p := range polys {
		for _, r := range p {
			for i := 0; i < len(r)-1; i++ {
				a, b := r[i], r[i+1]
				if dd := segmentDistance(pt[0], pt[1], a[0], a[1], b[0], b[1]); dd < d.Planar {
					d.Planar = dd
				}
				if m := PointToSegmentDistance(pt[0], pt[1], a[0], a[1], b[0], b[1]); m < d.Meters {
					d.Meters = m
				}
			}
		}
	}
	return d, true
}

// segmentDistance projects p onto segment ab in plain cartesian space.
func segmentDistance(px, py, ax, ay, bx, by float64) float64 {
	dx := bx - ax
	dy := by - ay
	if dx == 0 && dy == 0 {
		// a and b are the same point
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / (dx*dx + dy*dy)
	if t < 0 {
		return math.Hypot(px-ax, py-ay)
	} else if t > 1 {
		return math.Hypot(px-bx, py-by)
	}
	projx := ax + t*dx
	projy := ay + t*dy
	return math.Hypot(px-projx, py-projy)
}
