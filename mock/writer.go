package mock

import (
	"context"

	"github.com/fwojciec/arcgisdl"
)

var (
	_ arcgisdl.LayerWriter     = (*LayerWriter)(nil)
	_ arcgisdl.ManifestService = (*ManifestService)(nil)
)

// LayerWriter is a mock implementation of arcgisdl.LayerWriter.
type LayerWriter struct {
	WriteLayerFn func(ctx context.Context, path string, doc arcgisdl.Document) (*arcgisdl.LayerFile, error)
}

func (w *LayerWriter) WriteLayer(ctx context.Context, path string, doc arcgisdl.Document) (*arcgisdl.LayerFile, error) {
	return w.WriteLayerFn(ctx, path, doc)
}

// ManifestService is a mock implementation of arcgisdl.ManifestService.
type ManifestService struct {
	RecordLayerFn      func(ctx context.Context, rec *arcgisdl.LayerRecord) error
	StartRunFn         func(ctx context.Context, run *arcgisdl.Run) error
	FinishRunFn        func(ctx context.Context, id string) error
	FindRunByIDFn      func(ctx context.Context, id string) (*arcgisdl.Run, error)
	FindLayerRecordsFn func(ctx context.Context, filter arcgisdl.LayerRecordFilter) ([]*arcgisdl.LayerRecord, error)
}

func (s *ManifestService) RecordLayer(ctx context.Context, rec *arcgisdl.LayerRecord) error {
	return s.RecordLayerFn(ctx, rec)
}

func (s *ManifestService) StartRun(ctx context.Context, run *arcgisdl.Run) error {
	return s.StartRunFn(ctx, run)
}

func (s *ManifestService) FinishRun(ctx context.Context, id string) error {
	return s.FinishRunFn(ctx, id)
}

func (s *ManifestService) FindRunByID(ctx context.Context, id string) (*arcgisdl.Run, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *ManifestService) FindLayerRecords(ctx context.Context, filter arcgisdl.LayerRecordFilter) ([]*arcgisdl.LayerRecord, error) {
	return s.FindLayerRecordsFn(ctx, filter)
}
