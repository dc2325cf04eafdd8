package correlate

import (
	"encoding/json"
	"maps"
	"slices"
	"time"

	"kuanb/civicgrid/feature"
)

// PairFailure records a (point, polygon) pair whose evaluation failed. The
// pair counts as not contained.
type PairFailure struct {
	PointID   feature.ID `json:"pointId"`
	PolygonID feature.ID `json:"polygonId"`
	Reason    string     `json:"reason"`
}

// Diagnostics summarizes what a run skipped or could not evaluate.
// PairsEvaluated depends on the strategy; everything else does not.
type Diagnostics struct {
	PointsSkipped           int           `json:"pointsSkipped"`
	PolygonsSkipped         int           `json:"polygonsSkipped"`
	PointsWithoutGeometry   int           `json:"pointsWithoutGeometry"`
	PolygonsWithoutGeometry int           `json:"polygonsWithoutGeometry"`
	PairsEvaluated          int           `json:"pairsEvaluated"`
	Failures                []PairFailure `json:"failures"`
	Duration                time.Duration `json:"durationNs"`
}

// Result is the bidirectional containment mapping produced by one run. It is
// never modified after Correlate returns; accessors hand out copies.
type Result struct {
	polygonToPoints map[feature.ID][]feature.ID
	pointToPolygons map[feature.ID][]feature.ID
	diag            Diagnostics
}

func newResult(points, polygons int) *Result {
	return &Result{
		polygonToPoints: make(map[feature.ID][]feature.ID, polygons),
		pointToPolygons: make(map[feature.ID][]feature.ID, points),
		diag:            Diagnostics{Failures: []PairFailure{}},
	}
}

// Duplicate identifiers keep the first entry.
func (r *Result) initPolygon(id feature.ID) {
	if _, ok := r.polygonToPoints[id]; !ok {
		r.polygonToPoints[id] = []feature.ID{}
	}
}

func (r *Result) initPoint(id feature.ID) {
	if _, ok := r.pointToPolygons[id]; !ok {
		r.pointToPolygons[id] = []feature.ID{}
	}
}

func (r *Result) link(point, polygon feature.ID) {
	r.polygonToPoints[polygon] = append(r.polygonToPoints[polygon], point)
	r.pointToPolygons[point] = append(r.pointToPolygons[point], polygon)
}

// PointsIn returns the points contained by a polygon. ok is false when the
// polygon was not part of the run.
func (r *Result) PointsIn(polygon feature.ID) ([]feature.ID, bool) {
	ids, ok := r.polygonToPoints[polygon]
	return slices.Clone(ids), ok
}

// PolygonsContaining returns the polygons containing a point.
func (r *Result) PolygonsContaining(point feature.ID) ([]feature.ID, bool) {
	ids, ok := r.pointToPolygons[point]
	return slices.Clone(ids), ok
}

// PolygonIDs returns every polygon key, ascending.
func (r *Result) PolygonIDs() []feature.ID {
	return slices.Sorted(maps.Keys(r.polygonToPoints))
}

// PointIDs returns every point key, ascending.
func (r *Result) PointIDs() []feature.ID {
	return slices.Sorted(maps.Keys(r.pointToPolygons))
}

// Links counts (point, polygon) containment pairs.
func (r *Result) Links() int {
	n := 0
	for _, ids := range r.pointToPolygons {
		n += len(ids)
	}
	return n
}

func (r *Result) Diagnostics() Diagnostics {
	d := r.diag
	d.Failures = slices.Clone(r.diag.Failures)
	return d
}

// Equal reports whether both mappings match exactly, list order included.
func (r *Result) Equal(o *Result) bool {
	eq := func(a, b []feature.ID) bool { return slices.Equal(a, b) }
	return maps.EqualFunc(r.polygonToPoints, o.polygonToPoints, eq) &&
		maps.EqualFunc(r.pointToPolygons, o.pointToPolygons, eq)
}

type resultJSON struct {
	PolygonToPoints map[feature.ID][]feature.ID `json:"polygonToPoints"`
	PointToPolygons map[feature.ID][]feature.ID `json:"pointToPolygons"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		PolygonToPoints: r.polygonToPoints,
		PointToPolygons: r.pointToPolygons,
	})
}
