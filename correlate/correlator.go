// Package correlate joins charging stations to the project areas that
// contain them.
//
// Pairs are evaluated point-major: for each point in input order, every
// candidate polygon in input order. That order is the order of every list in
// a Result, and it is identical for both strategies.
package correlate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"kuanb/civicgrid/feature"
	"kuanb/civicgrid/geom"
)

// Strategy selects how candidate polygons are found for a point.
type Strategy int

const (
	// Naive tests every polygon against every point.
	Naive Strategy = iota
	// Indexed prunes polygons whose bounding box misses the point.
	Indexed
)

func (s Strategy) String() string {
	switch s {
	case Naive:
		return "naive"
	case Indexed:
		return "indexed"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "naive":
		return Naive, nil
	case "indexed", "":
		return Indexed, nil
	default:
		return Naive, fmt.Errorf("unknown correlation strategy %q", s)
	}
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithStrategy overrides the default Naive strategy.
func WithStrategy(s Strategy) Option {
	return func(c *Correlator) {
		c.strategy = s
	}
}

// Correlator holds no state between runs and is safe for concurrent use.
type Correlator struct {
	logger   *zap.Logger
	strategy Strategy
}

// New creates a Correlator. A nil logger discards output.
func New(logger *zap.Logger, opts ...Option) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Correlator{
		logger:   logger.Named("correlator"),
		strategy: Naive,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correlate runs the reference strategy without logging.
func Correlate(ctx context.Context, points []feature.PointFeature, polygons []feature.PolygonFeature) (*Result, error) {
	return New(nil).Correlate(ctx, points, polygons)
}

// Strategy returns the configured strategy.
func (c *Correlator) Strategy() Strategy {
	return c.strategy
}

// Correlate computes the containment relation between points and polygons.
// Malformed features and failed pair evaluations never abort the run; the
// only error is ctx being done, checked before each point.
func (c *Correlator) Correlate(ctx context.Context, points []feature.PointFeature, polygons []feature.PolygonFeature) (*Result, error) {
	start := time.Now()
	res := newResult(len(points), len(polygons))

	eligible := make([]int, 0, len(polygons))
	for i, p := range polygons {
		if !p.HasID {
			res.diag.PolygonsSkipped++
			c.logger.Debug("skipping polygon without identifier", zap.Int("index", i))
			continue
		}
		res.initPolygon(p.ID)
		if p.Geometry == nil {
			res.diag.PolygonsWithoutGeometry++
			c.logger.Debug("polygon has no usable geometry", zap.Int64("polygon_id", int64(p.ID)))
			continue
		}
		eligible = append(eligible, i)
	}

	for i, p := range points {
		if !p.HasID {
			res.diag.PointsSkipped++
			c.logger.Debug("skipping point without identifier", zap.Int("index", i))
			continue
		}
		res.initPoint(p.ID)
		if _, ok := p.Point(); !ok {
			res.diag.PointsWithoutGeometry++
			c.logger.Debug("point has no usable geometry", zap.Int64("point_id", int64(p.ID)))
		}
	}

	candidates := c.candidateFunc(polygons, eligible)

	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !p.HasID {
			continue
		}
		pt, ok := p.Point()
		if !ok {
			continue
		}
		for _, slot := range candidates(pt) {
			poly := polygons[slot]
			res.diag.PairsEvaluated++
			out, err := geom.Evaluate(pt, poly.Geometry)
			switch out {
			case geom.Contained:
				res.link(p.ID, poly.ID)
			case geom.EvaluationFailed:
				res.diag.Failures = append(res.diag.Failures, PairFailure{
					PointID:   p.ID,
					PolygonID: poly.ID,
					Reason:    err.Error(),
				})
				c.logger.Warn("point-in-polygon evaluation failed",
					zap.Int64("point_id", int64(p.ID)),
					zap.Int64("polygon_id", int64(poly.ID)),
					zap.Error(err),
				)
			}
		}
	}

	res.diag.Duration = time.Since(start)
	c.logger.Info("correlation complete",
		zap.Stringer("strategy", c.strategy),
		zap.Int("points", len(res.pointToPolygons)),
		zap.Int("polygons", len(res.polygonToPoints)),
		zap.Int("links", res.Links()),
		zap.Int("pairs_evaluated", res.diag.PairsEvaluated),
		zap.Int("pair_failures", len(res.diag.Failures)),
		zap.Duration("duration", res.diag.Duration),
	)
	return res, nil
}

// candidateFunc returns the polygon slots to test for a point, ascending.
func (c *Correlator) candidateFunc(polygons []feature.PolygonFeature, eligible []int) func(orb.Point) []int {
	if c.strategy != Indexed {
		return func(orb.Point) []int { return eligible }
	}

	index := geom.NewPolygonIndex()
	// Polygons that fail validation have no trustworthy box; they are tested
	// against every point so failures are reported exactly as in Naive.
	var unbounded []int
	for _, slot := range eligible {
		b, ok := geom.Bound(polygons[slot].Geometry)
		if !ok {
			unbounded = append(unbounded, slot)
			continue
		}
		index.Insert(slot, b)
	}
	c.logger.Debug("built polygon index",
		zap.Int("indexed", index.Len()),
		zap.Int("unbounded", len(unbounded)),
	)

	return func(pt orb.Point) []int {
		if !geom.Finite(pt) {
			return eligible
		}
		hits := index.Candidates(pt)
		if len(unbounded) == 0 {
			return hits
		}
		return mergeSorted(hits, unbounded)
	}
}

func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
