package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kuanb/civicgrid/apperr"
	"kuanb/civicgrid/config"
	"kuanb/civicgrid/correlate"
	"kuanb/civicgrid/feature"
	"kuanb/civicgrid/metrics"
)

func testDataConfig() config.DataConfig {
	return config.DataConfig{
		ChargersPath:   filepath.Join("testdata", "ev_chargers.json"),
		ChargersFormat: config.FormatGeoJSON,
		ProjectsPath:   filepath.Join("testdata", "cip_projects.json"),
		IDProperty:     feature.DefaultIDProperty,
	}
}

func TestLoad(t *testing.T) {
	m := metrics.New()
	c := correlate.New(zap.NewNop(), correlate.WithStrategy(correlate.Indexed))

	cat, err := Load(context.Background(), testDataConfig(), c, m, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, cat.Chargers, 5)
	assert.Len(t, cat.Projects, 3)

	got, ok := cat.Result.PointsIn(100)
	require.True(t, ok)
	assert.Equal(t, []feature.ID{1, 3}, got)

	got, ok = cat.Result.PolygonsContaining(3)
	require.True(t, ok)
	assert.Equal(t, []feature.ID{100, 101}, got)

	got, ok = cat.Result.PointsIn(102)
	require.True(t, ok)
	assert.Empty(t, got)

	p, ok := cat.Project(101)
	require.True(t, ok)
	assert.Equal(t, "Arts District Lighting", p.Title())

	_, ok = cat.Charger(99)
	assert.False(t, ok)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CorrelationLinks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorrelationRuns.WithLabelValues("indexed", "ok")))
}

func TestLoadOSMChargers(t *testing.T) {
	cfg := testDataConfig()
	cfg.ChargersPath = filepath.Join("testdata", "stations.osm.pbf")
	cfg.ChargersFormat = config.FormatOSMPBF

	cat, err := Load(context.Background(), cfg, correlate.New(nil), nil, nil)
	require.NoError(t, err)

	got, ok := cat.Result.PointsIn(100)
	require.True(t, ok)
	assert.Equal(t, []feature.ID{101, 104}, got)

	c, ok := cat.Charger(104)
	require.True(t, ok)
	assert.Equal(t, "charging_station", c.Properties["amenity"])
}

func TestLoadMissingDataset(t *testing.T) {
	cfg := testDataConfig()
	cfg.ProjectsPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := Load(context.Background(), cfg, correlate.New(nil), nil, nil)
	assert.ErrorContains(t, err, "opening projects")
}

func TestLoadInvalidCollection(t *testing.T) {
	cfg := testDataConfig()
	// A lone Feature is not a FeatureCollection.
	cfg.ChargersPath = filepath.Join("testdata", "not_a_collection.json")

	_, err := Load(context.Background(), cfg, correlate.New(nil), nil, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := testDataConfig()
	cfg.ChargersPath = filepath.Join(t.TempDir(), "missing.json")
	cfg.ProjectsPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := Load(ctx, cfg, correlate.New(nil), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := metrics.New()

	_, err := Build(ctx, []feature.PointFeature{{ID: 1, HasID: true}}, nil, correlate.New(nil), m)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorrelationRuns.WithLabelValues("naive", "error")))
}
