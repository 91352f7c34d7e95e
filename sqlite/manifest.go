package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/arcgisdl"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ arcgisdl.ManifestService = (*ManifestService)(nil)

// ManifestService implements arcgisdl.ManifestService using SQLite.
type ManifestService struct {
	db *DB
}

// NewManifestService creates a new ManifestService.
func NewManifestService(db *DB) *ManifestService {
	return &ManifestService{db: db}
}

// StartRun creates a new run with a generated ID and start time.
func (s *ManifestService) StartRun(ctx context.Context, run *arcgisdl.Run) error {
	run.ID = uuid.New().String()
	run.StartedAt = time.Now().UTC().Truncate(time.Second)
	run.FinishedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, start_urls, started_at)
		VALUES (?, ?, ?)
	`, run.ID, strings.Join(run.StartURLs, "\n"), run.StartedAt.Format(time.RFC3339))

	return err
}

// FinishRun sets the finish time of a run.
func (s *ManifestService) FinishRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return arcgisdl.Errorf(arcgisdl.ENOTFOUND, "run not found")
	}
	return nil
}

// FindRunByID retrieves a run by ID.
func (s *ManifestService) FindRunByID(ctx context.Context, id string) (*arcgisdl.Run, error) {
	var run arcgisdl.Run
	var startURLs, startedAt string
	var finishedAt sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, start_urls, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &startURLs, &startedAt, &finishedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, arcgisdl.Errorf(arcgisdl.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}

	if startURLs != "" {
		run.StartURLs = strings.Split(startURLs, "\n")
	}
	if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t, err := parseRFC3339(finishedAt.String, "finished_at")
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}

	return &run, nil
}

// RecordLayer stores the outcome of one layer endpoint.
func (s *ManifestService) RecordLayer(ctx context.Context, rec *arcgisdl.LayerRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	rec.ID = uuid.New().String()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	rec.RecordedAt = rec.RecordedAt.Truncate(time.Second)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO layer_records (id, run_id, url, path, format, feature_count, content_hash, status, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.RunID, rec.URL, rec.Path, string(rec.Format), rec.FeatureCount, rec.ContentHash,
		string(rec.Status), rec.Reason, rec.RecordedAt.Format(time.RFC3339))

	return err
}

// FindLayerRecords retrieves layer records matching the filter, oldest first.
func (s *ManifestService) FindLayerRecords(ctx context.Context, filter arcgisdl.LayerRecordFilter) ([]*arcgisdl.LayerRecord, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, run_id, url, path, format, feature_count, content_hash, status, reason, recorded_at
		FROM layer_records WHERE 1=1`)

	if filter.RunID != nil {
		query.WriteString(" AND run_id = ?")
		args = append(args, *filter.RunID)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}

	query.WriteString(" ORDER BY recorded_at ASC, rowid ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*arcgisdl.LayerRecord
	for rows.Next() {
		var rec arcgisdl.LayerRecord
		var format, status, recordedAt string

		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.URL, &rec.Path, &format, &rec.FeatureCount,
			&rec.ContentHash, &status, &rec.Reason, &recordedAt); err != nil {
			return nil, err
		}
		rec.Format = arcgisdl.Format(format)
		rec.Status = arcgisdl.LayerStatus(status)

		if rec.RecordedAt, err = parseRFC3339(recordedAt, "recorded_at"); err != nil {
			return nil, err
		}

		recs = append(recs, &rec)
	}

	return recs, rows.Err()
}
