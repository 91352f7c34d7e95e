package crawl

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/fwojciec/arcgisdl"
	"golang.org/x/sync/singleflight"
)

var _ arcgisdl.Client = (*Fetcher)(nil)

// Fetcher issues canonical GET requests for JSON documents, serving them
// from the cache when possible. Failures never escape as errors; they come
// back as soft-failure results.
type Fetcher struct {
	Transport arcgisdl.Transport
	Cache     arcgisdl.Cache       // nil disables caching
	Limiter   arcgisdl.RateLimiter // nil disables rate limiting
	Observer  arcgisdl.Observer    // optional
	Token     string
	Logger    *slog.Logger

	group singleflight.Group
}

// Get fetches url with f=json, the configured token and params layered in
// that order. A server error 498 is retried once without any token.
func (f *Fetcher) Get(ctx context.Context, rawURL string, params arcgisdl.Params) arcgisdl.Result {
	base := arcgisdl.Params{"f": "json"}
	if f.Token != "" {
		base["token"] = f.Token
	}
	merged := base.Merge(params)

	res := f.fetch(ctx, rawURL, merged)
	serr := res.ServerError()
	if serr == nil || serr.Code != arcgisdl.CodeInvalidToken {
		return res
	}
	if _, sent := merged["token"]; !sent {
		return res
	}

	f.logger().Warn("invalid token, retrying without it", "url", rawURL, "message", serr.Message)
	if f.Observer != nil {
		f.Observer.TokenRetried()
	}
	return f.fetch(ctx, rawURL, merged.Without("token"))
}

// fetch collapses concurrent identical requests into one load.
func (f *Fetcher) fetch(ctx context.Context, rawURL string, params arcgisdl.Params) arcgisdl.Result {
	req := arcgisdl.NewRequest(rawURL, params)
	v, _, _ := f.group.Do(req.URL(), func() (any, error) {
		return f.load(ctx, req), nil
	})
	res := v.(arcgisdl.Result)
	if f.Observer != nil && res.Failed() {
		f.Observer.FetchFailed(res.Err)
	}
	return res
}

func (f *Fetcher) load(ctx context.Context, req *arcgisdl.Request) arcgisdl.Result {
	logger := f.logger()
	target := req.URL()

	if f.Cache != nil {
		body, ok, err := f.Cache.Get(ctx, req.CacheKey())
		switch {
		case err != nil:
			logger.Warn("cache read failed", "url", target, "err", err)
		case ok:
			logger.Debug("getting from cache", "url", target)
			return f.decode(target, body, arcgisdl.SourceCache)
		}
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx, hostOf(target)); err != nil {
			logger.Warn("rate limiter wait failed", "url", target, "err", err)
			return arcgisdl.SoftFailure(err)
		}
	}

	logger.Debug("getting from server", "url", target)
	resp, err := f.Transport.Do(ctx, req)
	if err != nil {
		logger.Warn("ignoring fetch error", "url", target, "err", err)
		return arcgisdl.SoftFailure(err)
	}

	if f.Cache != nil {
		key := req.CacheKey()
		if resp.URL != "" {
			key = arcgisdl.StripScheme(resp.URL)
		}
		if err := f.Cache.Put(ctx, key, resp.Body); err != nil {
			logger.Warn("cache write failed", "url", target, "err", err)
		}
	}

	return f.decode(target, resp.Body, arcgisdl.SourceServer)
}

func (f *Fetcher) decode(target string, body []byte, source arcgisdl.FetchSource) arcgisdl.Result {
	res := arcgisdl.Success(body)
	if res.Failed() {
		f.logger().Warn("ignoring malformed response", "url", target, "source", string(source), "err", res.Err)
		return res
	}
	if f.Observer != nil {
		f.Observer.FetchCompleted(source)
	}
	return res
}

func (f *Fetcher) logger() *slog.Logger {
	return loggerOrDiscard(f.Logger)
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
