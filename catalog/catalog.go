// Package catalog loads the charger and project datasets and keeps them
// together with their correlation result for the api package.
package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kuanb/civicgrid/config"
	"kuanb/civicgrid/correlate"
	"kuanb/civicgrid/feature"
	"kuanb/civicgrid/metrics"
	"kuanb/civicgrid/osm"
)

// Catalog is an immutable snapshot of both datasets and their correlation.
type Catalog struct {
	Chargers []feature.PointFeature
	Projects []feature.PolygonFeature
	Result   *correlate.Result
	Locator  *correlate.Locator
	LoadedAt time.Time

	chargerByID map[feature.ID]int
	projectByID map[feature.ID]int
}

// Load reads both datasets concurrently and correlates them.
func Load(ctx context.Context, cfg config.DataConfig, c *correlate.Correlator, m *metrics.Metrics, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("catalog")

	var (
		chargers []feature.PointFeature
		projects []feature.PolygonFeature
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chargers, err = loadChargers(gctx, cfg, logger)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = loadProjects(gctx, cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("datasets loaded",
		zap.Int("chargers", len(chargers)),
		zap.Int("projects", len(projects)),
	)

	return Build(ctx, chargers, projects, c, m)
}

// Build correlates already-decoded datasets.
func Build(ctx context.Context, chargers []feature.PointFeature, projects []feature.PolygonFeature, c *correlate.Correlator, m *metrics.Metrics) (*Catalog, error) {
	res, err := c.Correlate(ctx, chargers, projects)
	if m != nil {
		m.ObserveCorrelation(c.Strategy(), res)
	}
	if err != nil {
		return nil, fmt.Errorf("correlating datasets: %w", err)
	}
	if m != nil {
		m.CorrelationLinks.Set(float64(res.Links()))
	}

	cat := &Catalog{
		Chargers:    chargers,
		Projects:    projects,
		Result:      res,
		Locator:     correlate.NewLocator(projects),
		LoadedAt:    time.Now(),
		chargerByID: make(map[feature.ID]int, len(chargers)),
		projectByID: make(map[feature.ID]int, len(projects)),
	}
	for i, f := range chargers {
		if _, seen := cat.chargerByID[f.ID]; f.HasID && !seen {
			cat.chargerByID[f.ID] = i
		}
	}
	for i, f := range projects {
		if _, seen := cat.projectByID[f.ID]; f.HasID && !seen {
			cat.projectByID[f.ID] = i
		}
	}
	return cat, nil
}

// Charger returns the first charger with the identifier.
func (c *Catalog) Charger(id feature.ID) (feature.PointFeature, bool) {
	i, ok := c.chargerByID[id]
	if !ok {
		return feature.PointFeature{}, false
	}
	return c.Chargers[i], true
}

// Project returns the first project with the identifier.
func (c *Catalog) Project(id feature.ID) (feature.PolygonFeature, bool) {
	i, ok := c.projectByID[id]
	if !ok {
		return feature.PolygonFeature{}, false
	}
	return c.Projects[i], true
}

func loadChargers(ctx context.Context, cfg config.DataConfig, logger *zap.Logger) ([]feature.PointFeature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch cfg.ChargersFormat {
	case config.FormatOSMPBF:
		return osm.LoadChargingStations(cfg.ChargersPath, logger)
	case config.FormatGeoJSON, "":
		f, err := os.Open(cfg.ChargersPath)
		if err != nil {
			return nil, fmt.Errorf("opening chargers: %w", err)
		}
		defer f.Close()
		points, err := feature.Decoder{IDProperty: cfg.IDProperty}.DecodePoints(f)
		if err != nil {
			return nil, fmt.Errorf("decoding chargers %s: %w", cfg.ChargersPath, err)
		}
		return points, nil
	default:
		return nil, fmt.Errorf("unknown chargers format %q", cfg.ChargersFormat)
	}
}

func loadProjects(ctx context.Context, cfg config.DataConfig) ([]feature.PolygonFeature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.ProjectsPath)
	if err != nil {
		return nil, fmt.Errorf("opening projects: %w", err)
	}
	defer f.Close()
	polygons, err := feature.Decoder{IDProperty: cfg.IDProperty}.DecodePolygons(f)
	if err != nil {
		return nil, fmt.Errorf("decoding projects %s: %w", cfg.ProjectsPath, err)
	}
	return polygons, nil
}
