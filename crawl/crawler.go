// Package crawl provides ArcGIS REST crawl orchestration.
// It coordinates endpoint discovery, paginated layer queries, output path
// resolution, and storage of finished layers.
package crawl

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/fwojciec/arcgisdl"
)

// Crawler downloads every layer reachable from a set of start URLs.
// Layers are processed one at a time.
type Crawler struct {
	Discoverer *Discoverer
	Paginator  *Paginator
	Paths      *PathResolver
	Writer     arcgisdl.LayerWriter
	Recorder   arcgisdl.LayerRecorder // optional
	Observer   arcgisdl.Observer      // optional
	RunID      string
	Logger     *slog.Logger
}

// Result holds the outcome of a crawl.
type Result struct {
	Written  int
	Skipped  int
	Failed   int
	Features int
	Bytes    int64
}

// ProgressEvent reports the outcome of one layer endpoint.
type ProgressEvent struct {
	URL      string
	Status   arcgisdl.LayerStatus
	Path     string
	Features int
	Bytes    int64
	Error    error
}

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// Crawl expands each start URL into its layer endpoints and downloads
// them in order. Per-layer problems are logged and counted; only context
// cancellation stops the crawl early.
func (c *Crawler) Crawl(ctx context.Context, urls []string, progress ProgressFunc) (*Result, error) {
	logger := loggerOrDiscard(c.Logger)
	var result Result

	for _, raw := range urls {
		start := arcgisdl.ParseEndpoint(raw)
		logger.Info("crawling", "url", start, "kind", start.Kind().String())

		for layerURL := range c.LayerSeq(ctx, start) {
			if err := ctx.Err(); err != nil {
				return &result, err
			}

			event := c.processLayer(ctx, layerURL)
			switch event.Status {
			case arcgisdl.LayerWritten:
				result.Written++
				result.Features += event.Features
				result.Bytes += event.Bytes
			case arcgisdl.LayerSkipped:
				result.Skipped++
			default:
				result.Failed++
			}
			if progress != nil {
				progress(event)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return &result, err
	}
	return &result, nil
}

// LayerSeq yields the layer endpoints below start, whatever its kind.
func (c *Crawler) LayerSeq(ctx context.Context, start arcgisdl.Endpoint) iter.Seq[arcgisdl.Endpoint] {
	return func(yield func(arcgisdl.Endpoint) bool) {
		switch start.Kind() {
		case arcgisdl.EndpointLayer:
			yield(start)
		case arcgisdl.EndpointService:
			for _, layer := range c.Discoverer.Layers(ctx, start) {
				if !yield(layer) {
					return
				}
			}
		default:
			for service := range c.Discoverer.ServiceSeq(ctx, start) {
				for _, layer := range c.Discoverer.Layers(ctx, service) {
					if !yield(layer) {
						return
					}
				}
			}
		}
	}
}

// processLayer queries, writes and records a single layer.
func (c *Crawler) processLayer(ctx context.Context, layerURL arcgisdl.Endpoint) ProgressEvent {
	logger := loggerOrDiscard(c.Logger).With("url", layerURL.String())
	event := ProgressEvent{URL: layerURL.String()}
	rec := &arcgisdl.LayerRecord{
		RunID: c.RunID,
		URL:   layerURL.String(),
	}

	layer, err := c.Paginator.Query(ctx, layerURL)
	switch {
	case arcgisdl.ErrorCode(err) == arcgisdl.ESKIPPED:
		logger.Info("skipping layer", "reason", arcgisdl.ErrorMessage(err))
		event.Status, event.Error = arcgisdl.LayerSkipped, err
	case err != nil:
		logger.Error("layer query failed", "err", err)
		event.Status, event.Error = arcgisdl.LayerFailed, err
	default:
		event = c.writeLayer(ctx, logger, layer, rec)
	}

	rec.Status = event.Status
	if event.Error != nil {
		rec.Reason = event.Error.Error()
	}
	c.record(ctx, logger, rec)
	if c.Observer != nil {
		c.Observer.LayerFinished(event.Status, event.Features)
	}
	return event
}

func (c *Crawler) writeLayer(ctx context.Context, logger *slog.Logger, layer *arcgisdl.Layer, rec *arcgisdl.LayerRecord) ProgressEvent {
	event := ProgressEvent{URL: layer.URL.String()}
	rec.Format = layer.Format
	rec.FeatureCount = len(layer.Document.Features())

	path, err := c.Paths.Resolve(ctx, layer)
	if err != nil {
		logger.Error("cannot resolve layer path", "err", err)
		event.Status, event.Error = arcgisdl.LayerFailed, err
		return event
	}
	rec.Path = path
	event.Path = path

	logger.Info("writing layer", "path", path, "features", rec.FeatureCount)
	file, err := c.Writer.WriteLayer(ctx, path, layer.Document)
	if err != nil {
		logger.Error("layer write failed", "path", path, "err", err)
		event.Status, event.Error = arcgisdl.LayerFailed, err
		return event
	}

	rec.ContentHash = file.ContentHash
	event.Status = arcgisdl.LayerWritten
	event.Features = rec.FeatureCount
	event.Bytes = file.Size
	return event
}

func (c *Crawler) record(ctx context.Context, logger *slog.Logger, rec *arcgisdl.LayerRecord) {
	if c.Recorder == nil {
		return
	}
	rec.RecordedAt = time.Now().UTC()
	if err := c.Recorder.RecordLayer(ctx, rec); err != nil {
		logger.Warn("cannot record layer outcome", "err", err)
	}
}
