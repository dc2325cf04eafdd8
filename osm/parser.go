// Package osm reads charging stations out of OpenStreetMap PBF extracts, as
// an alternative to the GeoJSON charger dataset.
package osm

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/qedus/osmpbf"
	"go.uber.org/zap"

	"kuanb/civicgrid/feature"
)

// LoadChargingStations opens a .osm.pbf file and returns its charging
// station nodes in file order.
func LoadChargingStations(filePath string, logger *zap.Logger) ([]feature.PointFeature, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	return DecodeChargingStations(f, logger)
}

// DecodeChargingStations keeps nodes tagged amenity=charging_station. The
// node ID becomes the feature identifier and the tags its properties.
func DecodeChargingStations(r io.Reader, logger *zap.Logger) ([]feature.PointFeature, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := osmpbf.NewDecoder(r)

	// use more memory from the start, it is faster
	d.SetBufferSize(osmpbf.MaxBlobSize)

	// start decoding with several goroutines, it is faster
	if err := d.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, fmt.Errorf("starting pbf decoder: %w", err)
	}

	var nc, wc, rc uint64
	stations := make([]feature.PointFeature, 0)
	for {
		v, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			drain(d)
			return nil, fmt.Errorf("decoding pbf: %w", err)
		}
		switch v := v.(type) {
		case *osmpbf.Node:
			nc++
			if s, ok := stationFromNode(v); ok {
				stations = append(stations, s)
			}
		case *osmpbf.Way:
			// stations mapped as areas are ignored for now
			wc++
		case *osmpbf.Relation:
			rc++
		default:
			drain(d)
			return nil, fmt.Errorf("unknown type %T", v)
		}
	}

	logger.Info("loaded charging stations from pbf",
		zap.Int("stations", len(stations)),
		zap.Uint64("nodes", nc),
		zap.Uint64("ways", wc),
		zap.Uint64("relations", rc),
	)
	return stations, nil
}

// drain reads d to the end so the decoder goroutines started by Start can
// exit. osmpbf.Decoder has no Close.
func drain(d *osmpbf.Decoder) {
	for {
		if _, err := d.Decode(); err == io.EOF {
			return
		}
	}
}

func stationFromNode(n *osmpbf.Node) (feature.PointFeature, bool) {
	if n.Tags["amenity"] != "charging_station" {
		return feature.PointFeature{}, false
	}
	props := make(map[string]any, len(n.Tags)+1)
	for k, v := range n.Tags {
		props[k] = v
	}
	props[feature.DefaultIDProperty] = n.ID

	id, ok := feature.ParseID(n.ID)
	return feature.PointFeature{
		ID:         id,
		HasID:      ok,
		Geometry:   orb.Point{n.Lon, n.Lat},
		Properties: props,
	}, true
}
