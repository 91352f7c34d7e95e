// Package http provides an HTTP implementation of arcgisdl.Transport
// for talking to ArcGIS REST endpoints.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/arcgisdl"
)

// DefaultTimeout is the default timeout for HTTP requests.
// Large layers can take many minutes to serialize on the server side.
const DefaultTimeout = arcgisdl.DefaultTimeout

// Ensure Transport implements arcgisdl.Transport at compile time.
var _ arcgisdl.Transport = (*Transport)(nil)

// Transport sends canonical GET requests using an http.Client.
type Transport struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultTimeout (900s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

// WithHTTPClient sets the underlying client. Its timeout is replaced by the
// transport's timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// NewTransport creates a new Transport.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.client == nil {
		t.client = &http.Client{}
	} else {
		c := *t.client
		t.client = &c
	}
	t.client.Timeout = t.timeout

	return t
}

// Do sends req to its canonical URL and returns the raw body.
// Non-2xx responses are returned together with an EUNAVAILABLE error.
func (t *Transport) Do(ctx context.Context, req *arcgisdl.Request) (*arcgisdl.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL(), nil)
	if err != nil {
		return nil, err
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &arcgisdl.Response{
		URL:        httpReq.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, arcgisdl.Errorf(arcgisdl.EUNAVAILABLE, "HTTP %d for %s", resp.StatusCode, out.URL)
	}
	return out, nil
}
