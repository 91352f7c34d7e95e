package arcgisdl

import "context"

// Transport performs a single HTTP request.
type Transport interface {
	// Do sends the request to its canonical URL and returns the raw body.
	// Non-2xx responses are returned as errors, alongside the response.
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Client fetches JSON documents from a REST endpoint.
// Implementations never return errors; a failed fetch is a soft failure
// inside the Result.
type Client interface {
	Get(ctx context.Context, url string, params Params) Result
}

// Cache stores raw response bodies keyed by canonical request URL.
type Cache interface {
	// Get returns the cached body for key.
	// The bool result is false on a cache miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores body under key. An existing entry is left untouched.
	Put(ctx context.Context, key string, body []byte) error
}

// RateLimiter provides per-host rate limiting.
type RateLimiter interface {
	// Wait blocks until the rate limit allows a request to the host.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, host string) error
}

// FetchSource identifies where a fetched document came from.
type FetchSource string

// FetchSource values.
const (
	SourceCache  FetchSource = "cache"
	SourceServer FetchSource = "server"
)

// Observer receives crawl events for instrumentation.
// All methods must be safe to call from multiple goroutines.
type Observer interface {
	// FetchCompleted is called for every document served successfully.
	FetchCompleted(source FetchSource)

	// FetchFailed is called for every soft failure.
	FetchFailed(err error)

	// TokenRetried is called when a request is retried without a token.
	TokenRetried()

	// LayerFinished is called once per layer endpoint.
	LayerFinished(status LayerStatus, features int)
}
