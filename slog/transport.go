package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/arcgisdl"
)

// Ensure LoggingTransport implements arcgisdl.Transport.
var _ arcgisdl.Transport = (*LoggingTransport)(nil)

// LoggingTransport wraps a Transport with debug logging.
type LoggingTransport struct {
	next   arcgisdl.Transport
	logger *slog.Logger
}

// NewLoggingTransport creates a new LoggingTransport.
func NewLoggingTransport(next arcgisdl.Transport, logger *slog.Logger) *LoggingTransport {
	return &LoggingTransport{next: next, logger: logger}
}

// Do delegates to the wrapped transport and logs the request.
func (t *LoggingTransport) Do(ctx context.Context, req *arcgisdl.Request) (resp *arcgisdl.Response, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"url", req.URL(),
			"duration", time.Since(begin),
		}
		if resp != nil {
			attrs = append(attrs, "status", resp.StatusCode, "bytes", len(resp.Body))
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		t.logger.Debug("http get", attrs...)
	}(time.Now())
	return t.next.Do(ctx, req)
}
