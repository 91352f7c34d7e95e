package arcgisdl

import (
	"maps"
	"net/http"
	"net/url"
	"regexp"
)

// Params holds the query parameters of a request.
type Params map[string]string

// Merge returns a new Params with the values of others layered over p.
// Later maps win on key collision.
func (p Params) Merge(others ...Params) Params {
	out := maps.Clone(p)
	if out == nil {
		out = Params{}
	}
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// Without returns a copy of p with the given keys removed.
func (p Params) Without(keys ...string) Params {
	out := maps.Clone(p)
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Encode returns the canonical query string: keys sorted, values
// percent-encoded. Equal maps always encode to identical strings.
func (p Params) Encode() string {
	values := make(url.Values, len(p))
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}

// Request is a single GET against a REST endpoint.
type Request struct {
	BaseURL string
	Params  Params
	Header  http.Header
}

// NewRequest returns a request for baseURL with the fixed header set.
func NewRequest(baseURL string, params Params) *Request {
	header := make(http.Header)
	header.Set("User-Agent", UserAgent)
	return &Request{
		BaseURL: baseURL,
		Params:  params,
		Header:  header,
	}
}

// URL returns the canonical request URL. Query parameters already present
// in BaseURL are merged with Params, Params winning, and the whole query is
// re-encoded in sorted key order. This URL is both what gets sent and the
// cache key.
func (r *Request) URL() string {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return r.BaseURL + "?" + r.Params.Encode()
	}
	values := u.Query()
	for k, v := range r.Params {
		values.Set(k, v)
	}
	u.RawQuery = values.Encode()
	u.Fragment = ""
	return u.String()
}

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// StripScheme removes a leading http:// or https:// from rawURL.
func StripScheme(rawURL string) string {
	return schemePattern.ReplaceAllString(rawURL, "")
}

// CacheKey returns the canonical URL without its scheme.
func (r *Request) CacheKey() string {
	return StripScheme(r.URL())
}

// Response is the raw outcome of a request.
type Response struct {
	// URL is the exact URL that was sent.
	URL        string
	StatusCode int
	Body       []byte
}
