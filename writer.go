package arcgisdl

import (
	"context"
	"time"
)

// LayerFile describes a written layer document.
type LayerFile struct {
	Path        string
	Size        int64
	ContentHash string
}

// LayerWriter persists a finished layer document.
type LayerWriter interface {
	// WriteLayer writes doc to path, relative to the writer's root.
	// Parent directories are created and existing files overwritten.
	WriteLayer(ctx context.Context, path string, doc Document) (*LayerFile, error)
}

// Run is one invocation of the downloader.
type Run struct {
	ID         string     `json:"id"`
	StartURLs  []string   `json:"startUrls"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
}

// LayerRecord describes what happened to one layer endpoint during a run.
type LayerRecord struct {
	ID           string      `json:"id"`
	RunID        string      `json:"runId"`
	URL          string      `json:"url"`
	Path         string      `json:"path"`
	Format       Format      `json:"format"`
	FeatureCount int         `json:"featureCount"`
	ContentHash  string      `json:"contentHash"`
	Status       LayerStatus `json:"status"`
	Reason       string      `json:"reason"`
	RecordedAt   time.Time   `json:"recordedAt"`
}

// Validate returns an error if the record is missing required fields.
func (r *LayerRecord) Validate() error {
	if r.RunID == "" {
		return Errorf(EINVALID, "layer record run id required")
	}
	if r.URL == "" {
		return Errorf(EINVALID, "layer record url required")
	}
	switch r.Status {
	case LayerWritten, LayerSkipped, LayerFailed:
	default:
		return Errorf(EINVALID, "invalid layer status %q", r.Status)
	}
	return nil
}

// LayerRecorder stores layer outcomes.
type LayerRecorder interface {
	RecordLayer(ctx context.Context, rec *LayerRecord) error
}

// LayerRecordFilter selects records for FindLayerRecords.
type LayerRecordFilter struct {
	RunID  *string      `json:"runId"`
	Status *LayerStatus `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ManifestService stores and queries layer outcomes across runs.
type ManifestService interface {
	LayerRecorder

	// StartRun assigns run an ID and start time and stores it.
	StartRun(ctx context.Context, run *Run) error

	// FinishRun marks the run as finished.
	FinishRun(ctx context.Context, id string) error

	// FindRunByID returns the run with the given ID.
	FindRunByID(ctx context.Context, id string) (*Run, error)

	// FindLayerRecords returns records matching the filter, oldest first.
	FindLayerRecords(ctx context.Context, filter LayerRecordFilter) ([]*LayerRecord, error)
}
