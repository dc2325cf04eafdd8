package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuanb/civicgrid/correlate"
	"kuanb/civicgrid/feature"
)

func TestObserveCorrelation(t *testing.T) {
	m := New()

	points := []feature.PointFeature{
		{ID: 1, HasID: true, Geometry: orb.Point{0.5, 0.5}},
		{HasID: false},
	}
	polygons := []feature.PolygonFeature{
		{ID: 2, HasID: true, Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}},
		{ID: 3, HasID: true, Geometry: orb.Polygon{{{0, 0}, {1, 1}}}},
	}
	res, err := correlate.Correlate(context.Background(), points, polygons)
	require.NoError(t, err)

	m.ObserveCorrelation(correlate.Naive, res)
	m.ObserveCorrelation(correlate.Indexed, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorrelationRuns.WithLabelValues("naive", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorrelationRuns.WithLabelValues("indexed", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PairsEvaluated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PairFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeaturesSkipped.WithLabelValues("point", "no_identifier")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.CorrelationLinks.Set(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "civicgrid_correlation_links 4")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
