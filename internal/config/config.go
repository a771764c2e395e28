// Package config provides configuration management for the grid explorer.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Catalog CatalogConfig `envPrefix:"CATALOG_"`
	Grid    GridConfig    `envPrefix:"GRID_"`
	Command CommandConfig `envPrefix:"COMMAND_"`
	View    ViewConfig    `envPrefix:"VIEW_"`
	Logging LoggingConfig `envPrefix:"LOG_"`
}

// CatalogConfig contains search endpoint client configuration.
type CatalogConfig struct {
	SearchURL string        `env:"SEARCH_URL" envDefault:"https://earth-search.aws.element84.com/v0/collections/sentinel-s2-l2a-cogs/items"`
	PageSize  int           `env:"PAGE_SIZE" envDefault:"50"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"30s"`
	Retries   int           `env:"RETRIES" envDefault:"1"`
	UserAgent string        `env:"USER_AGENT" envDefault:"stac-grid-explorer/1.0"`
	// Sort orders each result page, e.g. "-datetime". Empty keeps catalog order.
	Sort      string        `env:"SORT" envDefault:""`
}

// GridConfig contains grid tiling and search geometry configuration.
type GridConfig struct {
	CellSizeDeg  float64 `env:"CELL_SIZE_DEG" envDefault:"1.0"`
	MinZoom      float64 `env:"MIN_ZOOM" envDefault:"3"`
	Strategy     string  `env:"STRATEGY" envDefault:"footprint"`
	BufferMeters float64 `env:"BUFFER_METERS" envDefault:"5000"`
}

// CommandConfig contains gdal_merge.py command configuration.
type CommandConfig struct {
	Profile    string `env:"PROFILE" envDefault:"raster-foundry"`
	Convention string `env:"CONVENTION" envDefault:"bucket"`
}

// ViewConfig contains the initial viewport. Hash wins over the defaults
// when it decodes.
type ViewConfig struct {
	Hash        string  `env:"HASH" envDefault:""`
	DefaultZoom float64 `env:"DEFAULT_ZOOM" envDefault:"2"`
	DefaultLat  float64 `env:"DEFAULT_LAT" envDefault:"0"`
	DefaultLon  float64 `env:"DEFAULT_LON" envDefault:"0"`
}

// LoggingConfig contains logging configuration. The terminal owns stdout, so
// logs go to File.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	File   string `env:"FILE" envDefault:"explorer.log"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Validate catalog config
	u, err := url.Parse(c.Catalog.SearchURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("catalog search URL must be an absolute http(s) URL, got %q", c.Catalog.SearchURL)
	}

	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("catalog page size must be at least 1, got %d", c.Catalog.PageSize)
	}

	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog timeout must be positive, got %s", c.Catalog.Timeout)
	}

	if c.Catalog.Retries < 0 {
		return fmt.Errorf("catalog retries must not be negative, got %d", c.Catalog.Retries)
	}

	// Validate grid config
	if c.Grid.CellSizeDeg <= 0 || c.Grid.CellSizeDeg > 180 {
		return fmt.Errorf("grid cell size must be in (0, 180] degrees, got %g", c.Grid.CellSizeDeg)
	}

	if c.Grid.MinZoom < 0 {
		return fmt.Errorf("grid min zoom must not be negative, got %g", c.Grid.MinZoom)
	}

	switch c.Grid.Strategy {
	case "footprint":
	case "centroid":
		if c.Grid.BufferMeters <= 0 {
			return fmt.Errorf("grid buffer must be positive for the centroid strategy, got %g", c.Grid.BufferMeters)
		}
	default:
		return fmt.Errorf("grid strategy must be 'footprint' or 'centroid', got %q", c.Grid.Strategy)
	}

	// Validate command config
	if c.Command.Profile == "" {
		return fmt.Errorf("command profile is required")
	}

	if c.Command.Convention != "bucket" && c.Command.Convention != "curl" {
		return fmt.Errorf("command convention must be 'bucket' or 'curl', got %q", c.Command.Convention)
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	if c.Logging.File == "" {
		return fmt.Errorf("log file is required")
	}

	return nil
}
