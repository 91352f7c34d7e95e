package crawl_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fwojciec/arcgisdl"
	"github.com/fwojciec/arcgisdl/crawl"
	"github.com/fwojciec/arcgisdl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parksService = site + "/Parks/FeatureServer"

// parksClient serves a site with one service holding a feature layer, a
// raster layer and a table whose descriptor is unavailable.
func parksClient() *mock.Client {
	return &mock.Client{
		GetFn: func(_ context.Context, url string, params arcgisdl.Params) arcgisdl.Result {
			switch url {
			case site:
				return jsonResult(`{"folders": [], "services": [{"name": "Parks", "type": "FeatureServer"}]}`)
			case parksService:
				return jsonResult(`{"layers": [{"id": 0}, {"id": 1}], "tables": [{"id": 2}]}`)
			case parksService + "/0":
				return jsonResult(`{
					"id": 0, "name": "Trails", "type": "Feature Layer",
					"supportedQueryFormats": "JSON, geoJSON",
					"advancedQueryCapabilities": {"supportsPagination": true},
					"maxRecordCount": 1000
				}`)
			case parksService + "/0/query":
				if params["returnCountOnly"] == "true" {
					return jsonResult(`{"count": 2}`)
				}
				return geojsonPage(false, 1, 2)
			case parksService + "/1":
				return jsonResult(`{"id": 1, "name": "Imagery", "type": "Raster Layer"}`)
			default:
				return unavailable()
			}
		},
	}
}

func newCrawler(client arcgisdl.Client, writer arcgisdl.LayerWriter) *crawl.Crawler {
	return &crawl.Crawler{
		Discoverer: &crawl.Discoverer{Client: client},
		Paginator:  &crawl.Paginator{Client: client, Config: arcgisdl.DefaultConfig()},
		Paths:      &crawl.PathResolver{Client: client},
		Writer:     writer,
		RunID:      "run-1",
	}
}

func okWriter(written map[string]arcgisdl.Document) *mock.LayerWriter {
	return &mock.LayerWriter{
		WriteLayerFn: func(_ context.Context, path string, doc arcgisdl.Document) (*arcgisdl.LayerFile, error) {
			written[path] = doc
			return &arcgisdl.LayerFile{Path: path, ContentHash: "abc"}, nil
		},
	}
}

func TestCrawler_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("crawls a site end to end", func(t *testing.T) {
		t.Parallel()

		written := map[string]arcgisdl.Document{}
		c := newCrawler(parksClient(), okWriter(written))

		var events []crawl.ProgressEvent
		result, err := c.Crawl(context.Background(), []string{site + "/"}, func(e crawl.ProgressEvent) {
			events = append(events, e)
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Written)
		assert.Equal(t, 2, result.Skipped)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, 2, result.Features)

		wantPath := filepath.Join("Parks", "Trails.geojson")
		require.Contains(t, written, wantPath)
		assert.Len(t, written[wantPath].Features(), 2)

		require.Len(t, events, 3)
		assert.Equal(t, arcgisdl.LayerWritten, events[0].Status)
		assert.Equal(t, wantPath, events[0].Path)
		assert.Equal(t, arcgisdl.LayerSkipped, events[1].Status)
		assert.Equal(t, arcgisdl.LayerSkipped, events[2].Status)
	})

	t.Run("accepts a service URL", func(t *testing.T) {
		t.Parallel()

		written := map[string]arcgisdl.Document{}
		c := newCrawler(parksClient(), okWriter(written))

		result, err := c.Crawl(context.Background(), []string{parksService}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Written)
		assert.Equal(t, 2, result.Skipped)
	})

	t.Run("accepts a layer URL", func(t *testing.T) {
		t.Parallel()

		written := map[string]arcgisdl.Document{}
		c := newCrawler(parksClient(), okWriter(written))

		result, err := c.Crawl(context.Background(), []string{parksService + "/0"}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Written)
		assert.Equal(t, 0, result.Skipped)
		assert.Len(t, written, 1)
	})

	t.Run("write failures are counted and the crawl continues", func(t *testing.T) {
		t.Parallel()

		c := newCrawler(parksClient(), &mock.LayerWriter{
			WriteLayerFn: func(_ context.Context, _ string, _ arcgisdl.Document) (*arcgisdl.LayerFile, error) {
				return nil, errors.New("disk full")
			},
		})

		result, err := c.Crawl(context.Background(), []string{parksService + "/0", parksService + "/1"}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, 0, result.Written)
	})

	t.Run("records every layer outcome", func(t *testing.T) {
		t.Parallel()

		var records []*arcgisdl.LayerRecord
		var finished []arcgisdl.LayerStatus
		c := newCrawler(parksClient(), okWriter(map[string]arcgisdl.Document{}))
		c.Recorder = &mock.ManifestService{
			RecordLayerFn: func(_ context.Context, rec *arcgisdl.LayerRecord) error {
				records = append(records, rec)
				return nil
			},
		}
		c.Observer = &mock.Observer{
			LayerFinishedFn: func(status arcgisdl.LayerStatus, _ int) {
				finished = append(finished, status)
			},
		}

		_, err := c.Crawl(context.Background(), []string{parksService}, nil)

		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "run-1", records[0].RunID)
		assert.Equal(t, parksService+"/0", records[0].URL)
		assert.Equal(t, arcgisdl.LayerWritten, records[0].Status)
		assert.Equal(t, arcgisdl.FormatGeoJSON, records[0].Format)
		assert.Equal(t, 2, records[0].FeatureCount)
		assert.Equal(t, "abc", records[0].ContentHash)
		assert.False(t, records[0].RecordedAt.IsZero())
		assert.Equal(t, arcgisdl.LayerSkipped, records[1].Status)
		assert.Contains(t, records[1].Reason, "Raster Layer")
		assert.Equal(t, []arcgisdl.LayerStatus{
			arcgisdl.LayerWritten, arcgisdl.LayerSkipped, arcgisdl.LayerSkipped,
		}, finished)
	})

	t.Run("recorder failures do not stop the crawl", func(t *testing.T) {
		t.Parallel()

		c := newCrawler(parksClient(), okWriter(map[string]arcgisdl.Document{}))
		c.Recorder = &mock.ManifestService{
			RecordLayerFn: func(_ context.Context, _ *arcgisdl.LayerRecord) error {
				return errors.New("database is locked")
			},
		}

		result, err := c.Crawl(context.Background(), []string{parksService}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Written)
	})

	t.Run("returns the context error when canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := newCrawler(parksClient(), okWriter(map[string]arcgisdl.Document{}))

		result, err := c.Crawl(ctx, []string{site}, nil)

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, result.Written)
	})
}
