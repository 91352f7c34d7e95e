package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/arcgisdl"
	"github.com/fwojciec/arcgisdl/crawl"
	"github.com/fwojciec/arcgisdl/fs"
	arcgishttp "github.com/fwojciec/arcgisdl/http"
	"github.com/fwojciec/arcgisdl/prometheus"
	arcslog "github.com/fwojciec/arcgisdl/slog"
	"github.com/fwojciec/arcgisdl/sqlite"
	"github.com/fwojciec/arcgisdl/yaml"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// EnvFiles are loaded into the environment before flags are parsed.
	// Missing files are ignored.
	EnvFiles []string

	// SQLite database holding the run manifest, if one was requested.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		EnvFiles: []string{".env"},
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	for _, path := range m.EnvFiles {
		_ = godotenv.Load(path)
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("arcgis-dl"),
		kong.Description("Download every layer of an ArcGIS REST services directory"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle no arguments
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no URLs provided")
	}

	// Handle help flags
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	// Wire the fetch stack
	var metrics *prometheus.Metrics
	var transport arcgisdl.Transport = arcgishttp.NewTransport(arcgishttp.WithTimeout(cfg.Timeout))
	if cli.MetricsFile != "" {
		metrics = prometheus.NewMetrics()
		transport = prometheus.NewInstrumentedTransport(transport, metrics)
	}
	transport = arcslog.NewLoggingTransport(transport, logger)

	fetcher := &crawl.Fetcher{
		Transport: transport,
		Token:     cfg.Token,
		Logger:    logger,
	}
	if cfg.CachingEnabled() {
		fetcher.Cache = fs.NewCache(cfg.CacheDir)
	}
	if cfg.RateLimit > 0 {
		fetcher.Limiter = crawl.NewHostLimiter(cfg.RateLimit)
	}

	crawler := &crawl.Crawler{
		Discoverer: &crawl.Discoverer{Client: fetcher, Logger: logger},
		Paginator:  &crawl.Paginator{Client: fetcher, Config: cfg, Logger: logger},
		Paths:      &crawl.PathResolver{Client: fetcher, IncludeHost: cfg.IncludeHost, Logger: logger},
		Writer:     arcslog.NewLoggingLayerWriter(fs.NewLayerWriter(cfg.LayerDir), logger),
		RunID:      uuid.New().String(),
		Logger:     logger,
	}
	if metrics != nil {
		fetcher.Observer = metrics
		crawler.Observer = metrics
	}

	// Open the run manifest
	var manifest arcgisdl.ManifestService
	if cli.Manifest != "" {
		m.DB = sqlite.NewDB(cli.Manifest)
		if err := m.DB.Open(); err != nil {
			return fmt.Errorf("failed to open manifest at %q: %w", cli.Manifest, err)
		}
		defer m.Close()

		svc := sqlite.NewManifestService(m.DB)
		run := &arcgisdl.Run{StartURLs: cli.URLs}
		if err := svc.StartRun(ctx, run); err != nil {
			return fmt.Errorf("failed to start run: %w", err)
		}
		manifest = svc
		crawler.Recorder = svc
		crawler.RunID = run.ID
	}

	deps := &Dependencies{
		Ctx:     ctx,
		Stdout:  stdout,
		Stderr:  stderr,
		Crawler: crawler,
	}
	cmd := &DownloadCmd{URLs: cli.URLs}
	_, crawlErr := cmd.Run(deps)

	// Finish bookkeeping even when the crawl was interrupted.
	var errs []error
	if crawlErr != nil {
		errs = append(errs, crawlErr)
	}
	if manifest != nil {
		if err := manifest.FinishRun(context.WithoutCancel(ctx), crawler.RunID); err != nil {
			errs = append(errs, fmt.Errorf("failed to finish run: %w", err))
		}
	}
	if metrics != nil {
		if err := metrics.WriteTextfile(cli.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// loadConfig builds the crawl configuration: defaults, then the YAML file,
// then flags and environment.
func loadConfig(cli *CLI) (arcgisdl.Config, error) {
	cfg := arcgisdl.DefaultConfig()
	if cli.Config != "" {
		if err := yaml.LoadConfig(cli.Config, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := cli.apply(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
