package crawl_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/fwojciec/arcgisdl"
	"github.com/fwojciec/arcgisdl/crawl"
	"github.com/fwojciec/arcgisdl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layerURL arcgisdl.Endpoint = site + "/Parks/FeatureServer/3"

// layerServer answers descriptor, count and query requests for one layer.
type layerServer struct {
	mu         sync.Mutex
	descriptor string
	page       func(round int, params arcgisdl.Params) arcgisdl.Result
	queries    []arcgisdl.Params
	counted    bool
}

func (s *layerServer) client() *mock.Client {
	return &mock.Client{
		GetFn: func(_ context.Context, url string, params arcgisdl.Params) arcgisdl.Result {
			s.mu.Lock()
			defer s.mu.Unlock()
			switch url {
			case layerURL.String():
				return jsonResult(s.descriptor)
			case layerURL.String() + "/query":
				if params["returnCountOnly"] == "true" {
					s.counted = true
					return jsonResult(`{"count": 5}`)
				}
				s.queries = append(s.queries, params)
				return s.page(len(s.queries), params)
			default:
				return unavailable()
			}
		},
	}
}

func geojsonPage(exceeded bool, ids ...int) arcgisdl.Result {
	features := make([]string, len(ids))
	for i, id := range ids {
		features[i] = fmt.Sprintf(`{"type":"Feature","properties":{"OBJECTID":%d,"name":"f%d"}}`, id, id)
	}
	return jsonResult(fmt.Sprintf(`{"type":"FeatureCollection","features":[%s],"exceededTransferLimit":%t}`,
		strings.Join(features, ","), exceeded))
}

func esriPage(exceeded bool, ids ...int) arcgisdl.Result {
	features := make([]string, len(ids))
	for i, id := range ids {
		features[i] = fmt.Sprintf(`{"attributes":{"OBJECTID":%d}}`, id)
	}
	return jsonResult(fmt.Sprintf(`{"objectIdFieldName":"OBJECTID","features":[%s],"exceededTransferLimit":%t}`,
		strings.Join(features, ","), exceeded))
}

func featureIDs(t *testing.T, layer *arcgisdl.Layer) []string {
	t.Helper()
	var ids []string
	for _, f := range layer.Document.Features() {
		v, ok := layer.Format.FieldValue(f, "OBJECTID")
		require.True(t, ok)
		ids = append(ids, arcgisdl.FormatValue(v))
	}
	return ids
}

const pagingDescriptor = `{
	"id": 3,
	"name": "Trails",
	"type": "Feature Layer",
	"supportedQueryFormats": "JSON, geoJSON, PBF",
	"advancedQueryCapabilities": {"supportsPagination": true},
	"maxRecordCount": 2,
	"fields": [{"name": "OBJECTID", "type": "esriFieldTypeOID"}]
}`

const oidDescriptor = `{
	"id": 3,
	"name": "Trails",
	"type": "Feature Layer",
	"supportedQueryFormats": "JSON",
	"advancedQueryCapabilities": {"supportsPagination": false},
	"maxRecordCount": 1000,
	"fields": [
		{"name": "NAME", "type": "esriFieldTypeString"},
		{"name": "OBJECTID", "type": "esriFieldTypeOID"}
	]
}`

func newPaginator(client arcgisdl.Client) *crawl.Paginator {
	return &crawl.Paginator{Client: client, Config: arcgisdl.DefaultConfig()}
}

func TestPaginator_Query(t *testing.T) {
	t.Parallel()

	t.Run("offset pagination accumulates pages in order", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: pagingDescriptor,
			page: func(round int, _ arcgisdl.Params) arcgisdl.Result {
				switch round {
				case 1:
					return geojsonPage(true, 1, 2)
				case 2:
					return geojsonPage(true, 3, 4)
				default:
					return geojsonPage(false, 5)
				}
			},
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Equal(t, arcgisdl.FormatGeoJSON, layer.Format)
		assert.Equal(t, []string{"1", "2", "3", "4", "5"}, featureIDs(t, layer))
		require.Len(t, srv.queries, 3)
		for i, want := range []string{"0", "2", "4"} {
			assert.Equal(t, want, srv.queries[i]["resultOffset"])
			assert.Equal(t, "*", srv.queries[i]["outFields"])
			assert.Equal(t, "1=1", srv.queries[i]["where"])
			assert.Equal(t, "geojson", srv.queries[i]["f"])
		}
		assert.True(t, srv.counted)
	})

	t.Run("strips the transfer limit marker", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: pagingDescriptor,
			page: func(round int, _ arcgisdl.Params) arcgisdl.Result {
				if round == 1 {
					return geojsonPage(true, 1, 2)
				}
				return geojsonPage(false)
			},
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.NotContains(t, layer.Document, arcgisdl.ExceededTransferLimitKey)
		assert.Equal(t, "FeatureCollection", layer.Document["type"])
	})

	t.Run("object id pagination refines the where clause", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: oidDescriptor,
			page: func(round int, _ arcgisdl.Params) arcgisdl.Result {
				if round == 1 {
					return esriPage(true, 41, 42)
				}
				return esriPage(false, 43)
			},
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Equal(t, arcgisdl.FormatEsriJSON, layer.Format)
		assert.Equal(t, []string{"41", "42", "43"}, featureIDs(t, layer))
		require.Len(t, srv.queries, 2)
		assert.Equal(t, "1=1", srv.queries[0]["where"])
		assert.Equal(t, "OBJECTID>42", srv.queries[1]["where"])
		assert.Equal(t, "OBJECTID", srv.queries[1]["orderByFields"])
		assert.Equal(t, "json", srv.queries[1]["f"])
		assert.NotContains(t, srv.queries[1], "resultOffset")
	})

	t.Run("object id pagination reads geojson properties", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: strings.Replace(oidDescriptor, `"JSON"`, `"JSON, geoJSON"`, 1),
			page: func(round int, _ arcgisdl.Params) arcgisdl.Result {
				if round == 1 {
					return geojsonPage(true, 7)
				}
				return geojsonPage(false)
			},
		}

		_, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		require.Len(t, srv.queries, 2)
		assert.Equal(t, "OBJECTID>7", srv.queries[1]["where"])
	})

	t.Run("falls back to the first integer field", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: `{
				"name": "Counts", "type": "Table", "supportedQueryFormats": "JSON",
				"fields": [{"name": "ROW_ID", "type": "esriFieldTypeInteger"}]
			}`,
			page: func(_ int, _ arcgisdl.Params) arcgisdl.Result {
				return jsonResult(`{"features":[]}`)
			},
		}

		_, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Equal(t, "ROW_ID", srv.queries[0]["orderByFields"])
	})

	t.Run("stops when the server flags more data but sends none", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: pagingDescriptor,
			page: func(_ int, _ arcgisdl.Params) arcgisdl.Result {
				return geojsonPage(true)
			},
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Len(t, srv.queries, 1)
		assert.Empty(t, layer.Document.Features())
	})

	t.Run("keeps partial data when a later round fails", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: pagingDescriptor,
			page: func(round int, _ arcgisdl.Params) arcgisdl.Result {
				if round == 1 {
					return geojsonPage(true, 1, 2)
				}
				return unavailable()
			},
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, featureIDs(t, layer))
	})

	t.Run("keeps partial data when a later round has no features member", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: pagingDescriptor,
			page: func(round int, _ arcgisdl.Params) arcgisdl.Result {
				if round == 1 {
					return geojsonPage(true, 1, 2)
				}
				return jsonResult(`{"error":{"code":400,"message":"Invalid query"}}`)
			},
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, featureIDs(t, layer))
	})

	t.Run("offset without max record count steps by page size", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: strings.Replace(pagingDescriptor, `"maxRecordCount": 2`, `"maxRecordCount": 0`, 1),
			page: func(round int, _ arcgisdl.Params) arcgisdl.Result {
				if round == 1 {
					return geojsonPage(true, 1, 2, 3)
				}
				return geojsonPage(false, 4)
			},
		}

		_, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		require.Len(t, srv.queries, 2)
		assert.Equal(t, "3", srv.queries[1]["resultOffset"])
	})

	t.Run("stops when the object id does not advance", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: oidDescriptor,
			page: func(_ int, _ arcgisdl.Params) arcgisdl.Result {
				return esriPage(true, 42)
			},
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Len(t, srv.queries, 2)
		assert.Equal(t, []string{"42", "42"}, featureIDs(t, layer))
	})

	t.Run("skips layers of unaccepted type without querying", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: `{"name": "Imagery", "type": "Raster Layer", "supportedQueryFormats": "JSON"}`,
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		assert.Nil(t, layer)
		assert.Equal(t, arcgisdl.ESKIPPED, arcgisdl.ErrorCode(err))
		assert.Empty(t, srv.queries)
		assert.False(t, srv.counted)
	})

	t.Run("layer type match ignores case", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: strings.Replace(pagingDescriptor, "Feature Layer", "FEATURE LAYER", 1),
			page: func(_ int, _ arcgisdl.Params) arcgisdl.Result {
				return geojsonPage(false, 1)
			},
		}

		_, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
	})

	t.Run("falls back to json when geojson is not offered", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: strings.Replace(pagingDescriptor, "JSON, geoJSON, PBF", "JSON, AMF", 1),
			page: func(_ int, _ arcgisdl.Params) arcgisdl.Result {
				return esriPage(false, 1)
			},
		}

		layer, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Equal(t, arcgisdl.FormatEsriJSON, layer.Format)
		assert.Equal(t, "json", srv.queries[0]["f"])
	})

	t.Run("skips layers without a usable format", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: strings.Replace(pagingDescriptor, "JSON, geoJSON, PBF", "PBF", 1),
		}

		_, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		assert.Equal(t, arcgisdl.ESKIPPED, arcgisdl.ErrorCode(err))
		assert.Empty(t, srv.queries)
	})

	t.Run("skips layers without any way to paginate", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: `{
				"name": "Notes", "type": "Table", "supportedQueryFormats": "JSON",
				"fields": [{"name": "TEXT", "type": "esriFieldTypeString"}]
			}`,
		}

		_, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		assert.Equal(t, arcgisdl.ESKIPPED, arcgisdl.ErrorCode(err))
		assert.Empty(t, srv.queries)
	})

	t.Run("skips layers whose descriptor is unavailable", func(t *testing.T) {
		t.Parallel()

		p := newPaginator(newRecordingClient(nil).client())

		_, err := p.Query(context.Background(), layerURL)

		assert.Equal(t, arcgisdl.ESKIPPED, arcgisdl.ErrorCode(err))
	})

	t.Run("skips layers whose first query returns nothing", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: pagingDescriptor,
			page: func(_ int, _ arcgisdl.Params) arcgisdl.Result {
				return unavailable()
			},
		}

		_, err := newPaginator(srv.client()).Query(context.Background(), layerURL)

		assert.Equal(t, arcgisdl.ESKIPPED, arcgisdl.ErrorCode(err))
	})

	t.Run("honours the configured format", func(t *testing.T) {
		t.Parallel()

		srv := &layerServer{
			descriptor: pagingDescriptor,
			page: func(_ int, _ arcgisdl.Params) arcgisdl.Result {
				return esriPage(false, 1)
			},
		}
		cfg := arcgisdl.DefaultConfig()
		cfg.LayerFormat = arcgisdl.FormatEsriJSON
		p := &crawl.Paginator{Client: srv.client(), Config: cfg}

		layer, err := p.Query(context.Background(), layerURL)

		require.NoError(t, err)
		assert.Equal(t, arcgisdl.FormatEsriJSON, layer.Format)
	})
}
