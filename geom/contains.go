package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Outcome is the result of a single point-in-area test.
type Outcome int

const (
	NotContained Outcome = iota
	Contained
	EvaluationFailed
)

func (o Outcome) String() string {
	switch o {
	case NotContained:
		return "not-contained"
	case Contained:
		return "contained"
	case EvaluationFailed:
		return "evaluation-failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ErrDegenerateGeometry is returned with EvaluationFailed.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// Evaluate tests whether pt lies inside g, an orb.Polygon or orb.MultiPolygon.
// The first ring of each polygon is its exterior, the rest are holes. Points
// on any ring edge, exterior or hole, count as contained.
//
// Evaluate never panics; malformed input yields EvaluationFailed and an
// error wrapping ErrDegenerateGeometry.
func Evaluate(pt orb.Point, g orb.Geometry) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = EvaluationFailed
			err = fmt.Errorf("%w: %v", ErrDegenerateGeometry, r)
		}
	}()

	if !Finite(pt) {
		return EvaluationFailed, fmt.Errorf("%w: non-finite point %v", ErrDegenerateGeometry, pt)
	}
	if err := Validate(g); err != nil {
		return EvaluationFailed, err
	}

	switch g := g.(type) {
	case orb.Polygon:
		return outcome(polygonContains(g, pt)), nil
	case orb.MultiPolygon:
		for _, p := range g {
			if polygonContains(p, pt) {
				return Contained, nil
			}
		}
		return NotContained, nil
	}
	// unreachable, Validate rejects every other type
	return EvaluationFailed, fmt.Errorf("%w: unsupported geometry", ErrDegenerateGeometry)
}

// Validate reports why g cannot be evaluated, or nil when it can.
func Validate(g orb.Geometry) error {
	switch g := g.(type) {
	case nil:
		return fmt.Errorf("%w: no geometry", ErrDegenerateGeometry)
	case orb.Polygon:
		return validatePolygon(g)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return fmt.Errorf("%w: empty multipolygon", ErrDegenerateGeometry)
		}
		for i, p := range g {
			if err := validatePolygon(p); err != nil {
				return fmt.Errorf("part %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported geometry type %s", ErrDegenerateGeometry, g.GeoJSONType())
	}
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon has no rings", ErrDegenerateGeometry)
	}
	for i, r := range p {
		if err := validateRing(r); err != nil {
			return fmt.Errorf("ring %d: %w", i, err)
		}
	}
	return nil
}

// validateRing enforces the GeoJSON linear ring rules: at least four
// positions, first equals last, and at least three distinct vertices.
func validateRing(r orb.Ring) error {
	if len(r) < 4 {
		return fmt.Errorf("%w: ring has %d positions", ErrDegenerateGeometry, len(r))
	}
	for _, pt := range r {
		if !Finite(pt) {
			return fmt.Errorf("%w: non-finite vertex %v", ErrDegenerateGeometry, pt)
		}
	}
	if !r.Closed() {
		return fmt.Errorf("%w: ring is not closed", ErrDegenerateGeometry)
	}
	distinct := make(map[orb.Point]struct{}, 3)
	for _, pt := range r {
		distinct[pt] = struct{}{}
		if len(distinct) >= 3 {
			return nil
		}
	}
	return fmt.Errorf("%w: ring has fewer than 3 distinct vertices", ErrDegenerateGeometry)
}

func polygonContains(p orb.Polygon, pt orb.Point) bool {
	if !planar.RingContains(p[0], pt) {
		return false
	}
	for _, hole := range p[1:] {
		if planar.RingContains(hole, pt) && !onRingEdge(hole, pt) {
			return false
		}
	}
	return true
}

func onRingEdge(r orb.Ring, pt orb.Point) bool {
	for i := 0; i < len(r)-1; i++ {
		if onSegment(pt, r[i], r[i+1]) {
			return true
		}
	}
	return false
}

func onSegment(p, a, b orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if cross != 0 {
		return false
	}
	return p[0] >= math.Min(a[0], b[0]) && p[0] <= math.Max(a[0], b[0]) &&
		p[1] >= math.Min(a[1], b[1]) && p[1] <= math.Max(a[1], b[1])
}

func outcome(contained bool) Outcome {
	if contained {
		return Contained
	}
	return NotContained
}

// Finite reports whether both coordinates are real numbers.
func Finite(pt orb.Point) bool {
	return !math.IsNaN(pt[0]) && !math.IsInf(pt[0], 0) && !math.IsNaN(pt[1]) && !math.IsInf(pt[1], 0)
}

// Bound returns the bounding box of a valid area geometry.
func Bound(g orb.Geometry) (orb.Bound, bool) {
	if Validate(g) != nil {
		return orb.Bound{}, false
	}
	return g.Bound(), true
}
