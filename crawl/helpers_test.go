package crawl_test

import (
	"context"
	"sync"

	"github.com/fwojciec/arcgisdl"
	"github.com/fwojciec/arcgisdl/mock"
)

// jsonResult returns a successful result holding body.
func jsonResult(body string) arcgisdl.Result {
	return arcgisdl.Success([]byte(body))
}

// unavailable returns a soft failure.
func unavailable() arcgisdl.Result {
	return arcgisdl.SoftFailure(arcgisdl.Errorf(arcgisdl.EUNAVAILABLE, "HTTP 404"))
}

// recordingClient answers GETs from a URL to body table and records every
// call. URLs missing from the table are soft failures.
type recordingClient struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  []call
}

type call struct {
	URL    string
	Params arcgisdl.Params
}

func newRecordingClient(bodies map[string]string) *recordingClient {
	return &recordingClient{bodies: bodies}
}

func (c *recordingClient) client() *mock.Client {
	return &mock.Client{
		GetFn: func(_ context.Context, url string, params arcgisdl.Params) arcgisdl.Result {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.calls = append(c.calls, call{URL: url, Params: params})
			body, ok := c.bodies[url]
			if !ok {
				return unavailable()
			}
			return jsonResult(body)
		},
	}
}

func (c *recordingClient) urls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.URL
	}
	return out
}
