package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/arcgisdl"
)

// Ensure LoggingLayerWriter implements arcgisdl.LayerWriter.
var _ arcgisdl.LayerWriter = (*LoggingLayerWriter)(nil)

// LoggingLayerWriter wraps a LayerWriter with logging.
type LoggingLayerWriter struct {
	next   arcgisdl.LayerWriter
	logger *slog.Logger
}

// NewLoggingLayerWriter creates a new LoggingLayerWriter.
func NewLoggingLayerWriter(next arcgisdl.LayerWriter, logger *slog.Logger) *LoggingLayerWriter {
	return &LoggingLayerWriter{next: next, logger: logger}
}

// WriteLayer delegates to the wrapped writer and logs the operation.
func (w *LoggingLayerWriter) WriteLayer(ctx context.Context, path string, doc arcgisdl.Document) (file *arcgisdl.LayerFile, err error) {
	defer func(begin time.Time) {
		var size int64
		if file != nil {
			size = file.Size
		}
		w.logger.Debug("layer write",
			"path", path,
			"features", len(doc.Features()),
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return w.next.WriteLayer(ctx, path, doc)
}
