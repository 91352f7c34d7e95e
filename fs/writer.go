package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/arcgisdl"
)

// Ensure LayerWriter implements arcgisdl.LayerWriter at compile time.
var _ arcgisdl.LayerWriter = (*LayerWriter)(nil)

// LayerWriter writes layer documents as JSON files below a base directory.
type LayerWriter struct {
	baseDir string
}

// NewLayerWriter creates a new LayerWriter that writes to the given base directory.
func NewLayerWriter(baseDir string) *LayerWriter {
	return &LayerWriter{baseDir: baseDir}
}

// WriteLayer writes doc to path relative to the base directory. The
// document is streamed to disk and hashed in the same pass.
func (w *LayerWriter) WriteLayer(ctx context.Context, path string, doc arcgisdl.Document) (*arcgisdl.LayerFile, error) {
	fullPath, err := safeJoin(w.baseDir, path)
	if err != nil {
		return nil, err
	}

	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return nil, err
	}

	h := xxhash.New()
	cw := &countingWriter{w: io.MultiWriter(f, h)}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return &arcgisdl.LayerFile{
		Path:        fullPath,
		Size:        cw.n,
		ContentHash: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
