package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kuanb/civicgrid/config"
	"kuanb/civicgrid/correlate"
	"kuanb/civicgrid/feature"
	"kuanb/civicgrid/logging"
	"kuanb/civicgrid/osm"
)

type correlateOptions struct {
	pointsPath   string
	pointsFormat string
	polygonsPath string
	idProperty   string
	strategy     string
	diagnostics  bool
	pretty       bool
}

func correlateCmd() *cobra.Command {
	opts := correlateOptions{}

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate two feature collections and print the result as JSON",
		Example: `  civicgrid correlate --points ev_chargers.json --polygons cip_projects.json
  civicgrid correlate --points socal.osm.pbf --points-format osmpbf --polygons cip_projects.json --diagnostics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if level == "" {
				level = "warn"
			}
			logger, err := logging.New(level, "console")
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runCorrelate(cmd, opts, logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.pointsPath, "points", "", "Point FeatureCollection (or .osm.pbf with --points-format osmpbf)")
	cmd.Flags().StringVar(&opts.pointsFormat, "points-format", config.FormatGeoJSON, "Point input format: geojson, osmpbf")
	cmd.Flags().StringVar(&opts.polygonsPath, "polygons", "", "Polygon/MultiPolygon FeatureCollection")
	cmd.Flags().StringVar(&opts.idProperty, "id-property", feature.DefaultIDProperty, "Property holding the feature identifier")
	cmd.Flags().StringVar(&opts.strategy, "strategy", config.StrategyIndexed, "Join strategy: naive, indexed")
	cmd.Flags().BoolVar(&opts.diagnostics, "diagnostics", false, "Include skipped features and failed pairs in the output")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output")
	_ = cmd.MarkFlagRequired("points")
	_ = cmd.MarkFlagRequired("polygons")

	return cmd
}

func runCorrelate(cmd *cobra.Command, opts correlateOptions, logger *zap.Logger, out io.Writer) error {
	strategy, err := correlate.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}
	dec := feature.Decoder{IDProperty: opts.idProperty}

	var points []feature.PointFeature
	switch opts.pointsFormat {
	case config.FormatOSMPBF:
		points, err = osm.LoadChargingStations(opts.pointsPath, logger)
	case config.FormatGeoJSON:
		points, err = decodeFile(opts.pointsPath, dec.DecodePoints)
	default:
		err = fmt.Errorf("unknown points format %q", opts.pointsFormat)
	}
	if err != nil {
		return err
	}
	polygons, err := decodeFile(opts.polygonsPath, dec.DecodePolygons)
	if err != nil {
		return err
	}

	res, err := correlate.New(logger, correlate.WithStrategy(strategy)).Correlate(cmd.Context(), points, polygons)
	if err != nil {
		return err
	}

	var v any = res
	if opts.diagnostics {
		v = struct {
			Correlation *correlate.Result     `json:"correlation"`
			Diagnostics correlate.Diagnostics `json:"diagnostics"`
		}{res, res.Diagnostics()}
	}
	enc := json.NewEncoder(out)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func decodeFile[T any](path string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	items, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}
