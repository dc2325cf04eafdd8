// Package config loads civicgrid configuration from an optional YAML file,
// an optional .env file and CG_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FormatGeoJSON = "geojson"
	FormatOSMPBF  = "osmpbf"

	StrategyNaive   = "naive"
	StrategyIndexed = "indexed"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Data        DataConfig        `yaml:"data"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	CORS        CORSConfig        `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// DataConfig points at the two feature collections.
type DataConfig struct {
	ChargersPath   string `yaml:"chargersPath"`
	ChargersFormat string `yaml:"chargersFormat"`
	ProjectsPath   string `yaml:"projectsPath"`
	IDProperty     string `yaml:"idProperty"`
}

// CorrelationConfig selects the join strategy.
type CorrelationConfig struct {
	Strategy     string `yaml:"strategy"`
	NearestLimit int    `yaml:"nearestLimit"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Load reads the YAML file at path (skipped when empty), then a .env file in
// the working directory if present, then applies CG_* overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    32 << 20,
		},
		Data: DataConfig{
			ChargersPath:   "./data/ev_chargers.json",
			ChargersFormat: FormatGeoJSON,
			ProjectsPath:   "./data/cip_projects.json",
			IDProperty:     "OBJECTID",
		},
		Correlation: CorrelationConfig{
			Strategy:     StrategyIndexed,
			NearestLimit: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
	}
}

// Validate rejects values the rest of the program cannot interpret.
func (c *Config) Validate() error {
	switch c.Data.ChargersFormat {
	case FormatGeoJSON, FormatOSMPBF:
	default:
		return fmt.Errorf("data.chargersFormat: unknown format %q", c.Data.ChargersFormat)
	}
	switch c.Correlation.Strategy {
	case StrategyNaive, StrategyIndexed:
	default:
		return fmt.Errorf("correlation.strategy: unknown strategy %q", c.Correlation.Strategy)
	}
	if c.Data.IDProperty == "" {
		return fmt.Errorf("data.idProperty must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Correlation.NearestLimit <= 0 {
		return fmt.Errorf("correlation.nearestLimit must be positive")
	}
	return nil
}

// applyEnvOverrides reads CG_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CG_CHARGERS_PATH"); v != "" {
		cfg.Data.ChargersPath = v
	}
	if v := os.Getenv("CG_CHARGERS_FORMAT"); v != "" {
		cfg.Data.ChargersFormat = strings.ToLower(v)
	}
	if v := os.Getenv("CG_PROJECTS_PATH"); v != "" {
		cfg.Data.ProjectsPath = v
	}
	if v := os.Getenv("CG_ID_PROPERTY"); v != "" {
		cfg.Data.IDProperty = v
	}
	if v := os.Getenv("CG_CORRELATION_STRATEGY"); v != "" {
		cfg.Correlation.Strategy = strings.ToLower(v)
	}
	if v := os.Getenv("CG_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CG_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CG_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("CG_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
}
