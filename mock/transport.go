package mock

import (
	"context"

	"github.com/fwojciec/arcgisdl"
)

var (
	_ arcgisdl.Transport   = (*Transport)(nil)
	_ arcgisdl.Client      = (*Client)(nil)
	_ arcgisdl.Cache       = (*Cache)(nil)
	_ arcgisdl.RateLimiter = (*RateLimiter)(nil)
)

// Transport is a mock implementation of arcgisdl.Transport.
type Transport struct {
	DoFn func(ctx context.Context, req *arcgisdl.Request) (*arcgisdl.Response, error)
}

func (t *Transport) Do(ctx context.Context, req *arcgisdl.Request) (*arcgisdl.Response, error) {
	return t.DoFn(ctx, req)
}

// Client is a mock implementation of arcgisdl.Client.
type Client struct {
	GetFn func(ctx context.Context, url string, params arcgisdl.Params) arcgisdl.Result
}

func (c *Client) Get(ctx context.Context, url string, params arcgisdl.Params) arcgisdl.Result {
	return c.GetFn(ctx, url, params)
}

// Cache is a mock implementation of arcgisdl.Cache.
type Cache struct {
	GetFn func(ctx context.Context, key string) ([]byte, bool, error)
	PutFn func(ctx context.Context, key string, body []byte) error
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.GetFn(ctx, key)
}

func (c *Cache) Put(ctx context.Context, key string, body []byte) error {
	return c.PutFn(ctx, key, body)
}

// RateLimiter is a mock implementation of arcgisdl.RateLimiter.
type RateLimiter struct {
	WaitFn func(ctx context.Context, host string) error
}

func (r *RateLimiter) Wait(ctx context.Context, host string) error {
	return r.WaitFn(ctx, host)
}
