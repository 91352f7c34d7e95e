package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/arcgisdl"
	"github.com/fwojciec/arcgisdl/crawl"
)

// CLI defines the command-line interface structure for Kong.
// Flags without a kong default fall back to the config file, then to the
// built-in defaults.
type CLI struct {
	URLs []string `arg:"" name:"url" help:"Site, folder, service or layer URLs to download"`

	CacheDir    string        `short:"c" name:"cache-dir" placeholder:"DIR" help:"Cache raw server responses in DIR"`
	LayerDir    string        `short:"l" name:"layer-dir" placeholder:"DIR" help:"Write layers below DIR (default: layers)"`
	LayerFormat string        `short:"f" name:"layer-format" placeholder:"FORMAT" help:"Preferred layer format: geojson or json (default: geojson)"`
	LayerTypes  []string      `short:"t" name:"layer-type" placeholder:"TYPE" help:"Layer type to download, repeatable (default: feature layer, table)"`
	Token       string        `name:"token" env:"ARCGIS_TOKEN" help:"Token passed to the server with every request"`
	Timeout     time.Duration `name:"timeout" help:"Per-request timeout (default: 15m)"`
	Rate        float64       `name:"rate" help:"Maximum requests per second per host (default: unlimited)"`
	IncludeHost bool          `name:"include-host" help:"Prefix layer paths with the server host name"`
	Manifest    string        `name:"manifest" placeholder:"FILE" help:"Record layer outcomes in a SQLite database"`
	MetricsFile string        `name:"metrics-file" placeholder:"FILE" help:"Write Prometheus metrics to FILE when done"`
	Config      string        `name:"config" placeholder:"FILE" help:"Load settings from a YAML file"`
	Verbose     bool          `short:"v" help:"Log every request"`
}

// apply layers the flags that were set over cfg.
func (c *CLI) apply(cfg *arcgisdl.Config) error {
	if c.CacheDir != "" {
		cfg.CacheDir = c.CacheDir
	}
	if c.LayerDir != "" {
		cfg.LayerDir = c.LayerDir
	}
	if c.LayerFormat != "" {
		f, err := arcgisdl.ParseFormat(c.LayerFormat)
		if err != nil {
			return err
		}
		cfg.LayerFormat = f
	}
	if len(c.LayerTypes) > 0 {
		cfg.LayerTypes = c.LayerTypes
	}
	if c.Token != "" {
		cfg.Token = c.Token
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.Rate > 0 {
		cfg.RateLimit = c.Rate
	}
	if c.IncludeHost {
		cfg.IncludeHost = true
	}
	return nil
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Crawler *crawl.Crawler
}

// DownloadCmd downloads every layer below the given URLs.
type DownloadCmd struct {
	URLs []string
}

// Run executes the download command.
func (c *DownloadCmd) Run(deps *Dependencies) (*crawl.Result, error) {
	progress := func(e crawl.ProgressEvent) {
		switch e.Status {
		case arcgisdl.LayerWritten:
			fmt.Fprintf(deps.Stdout, "wrote %s (%s, %s)\n", e.Path, crawl.FormatFeatures(e.Features), crawl.FormatBytes(e.Bytes))
		case arcgisdl.LayerSkipped:
			fmt.Fprintf(deps.Stdout, "skip %s: %s\n", crawl.TruncateURL(e.URL, 80), arcgisdl.ErrorMessage(e.Error))
		default:
			fmt.Fprintf(deps.Stderr, "fail %s: %v\n", crawl.TruncateURL(e.URL, 80), e.Error)
		}
	}

	result, err := deps.Crawler.Crawl(deps.Ctx, c.URLs, progress)
	if result != nil {
		fmt.Fprintf(deps.Stdout, "Done: %d written, %d skipped, %d failed (%s, %s)\n",
			result.Written, result.Skipped, result.Failed,
			crawl.FormatFeatures(result.Features), crawl.FormatBytes(result.Bytes))
	}
	return result, err
}
