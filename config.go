package arcgisdl

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// UserAgent is sent with every request. Some servers only answer clients
// that identify as ArcGIS Pro.
const UserAgent = "ArcGIS Pro 2.7.0 (00000000000) - ArcGISPro"

// Default configuration values.
const (
	DefaultTimeout  = 900 * time.Second
	DefaultLayerDir = "layers"
)

// DefaultLayerTypes returns the layer types downloaded when none are configured.
func DefaultLayerTypes() []string {
	return []string{"feature layer", "table"}
}

// Config holds the settings for one crawl. It is built once at startup and
// passed by value; components never modify it.
type Config struct {
	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// CacheDir holds raw server responses. Empty disables caching.
	CacheDir string `yaml:"cache_dir"`

	// LayerDir is the root of the written layer files.
	LayerDir string `yaml:"layer_dir"`

	// LayerTypes lists the accepted descriptor types, compared case-insensitively.
	LayerTypes []string `yaml:"layer_types"`

	// LayerFormat is the preferred query output format.
	LayerFormat Format `yaml:"layer_format"`

	// Token is passed as the token query parameter. Empty means anonymous.
	Token string `yaml:"token"`

	// RateLimit caps requests per second per host. Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit"`

	// IncludeHost prefixes layer paths with the server host name.
	IncludeHost bool `yaml:"include_host"`
}

// DefaultConfig returns a Config with the defaults of the command line tool.
func DefaultConfig() Config {
	return Config{
		Timeout:     DefaultTimeout,
		LayerDir:    DefaultLayerDir,
		LayerTypes:  DefaultLayerTypes(),
		LayerFormat: FormatGeoJSON,
	}
}

// AcceptsLayerType reports whether layers of type t should be downloaded.
func (c Config) AcceptsLayerType(t string) bool {
	return slices.ContainsFunc(c.LayerTypes, func(accepted string) bool {
		return strings.EqualFold(accepted, t)
	})
}

// CachingEnabled reports whether responses are cached on disk.
func (c Config) CachingEnabled() bool {
	return c.CacheDir != ""
}

// Validate returns an error if the configuration cannot be used for a crawl.
func (c Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, Errorf(EINVALID, "timeout must be positive"))
	}
	if c.LayerDir == "" {
		errs = append(errs, Errorf(EINVALID, "layer directory required"))
	}
	if len(c.LayerTypes) == 0 {
		errs = append(errs, Errorf(EINVALID, "at least one layer type required"))
	}
	if _, err := ParseFormat(string(c.LayerFormat)); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit < 0 {
		errs = append(errs, Errorf(EINVALID, "rate limit cannot be negative"))
	}
	return errors.Join(errs...)
}
