package arcgisdl

import (
	"regexp"
	"strings"
)

// EndpointKind classifies a URL within a REST services directory.
type EndpointKind int

const (
	// EndpointSite is a services root or a folder below it.
	EndpointSite EndpointKind = iota
	// EndpointService is a typed service such as .../Parks/FeatureServer.
	EndpointService
	// EndpointLayer is a layer or table such as .../Parks/FeatureServer/3.
	EndpointLayer
)

// String returns the kind name used in log output.
func (k EndpointKind) String() string {
	switch k {
	case EndpointService:
		return "service"
	case EndpointLayer:
		return "layer"
	default:
		return "site"
	}
}

var (
	layerPattern   = regexp.MustCompile(`/[A-Z][A-Za-z]+Server/[^/]+$`)
	servicePattern = regexp.MustCompile(`/[A-Z][A-Za-z]+Server$`)
)

// Endpoint is a URL identifying a site, folder, service, or layer.
type Endpoint string

// ParseEndpoint returns the endpoint for a user supplied URL.
// Trailing slashes are removed.
func ParseEndpoint(rawURL string) Endpoint {
	return Endpoint(strings.TrimRight(strings.TrimSpace(rawURL), "/"))
}

// Kind classifies the endpoint by the shape of its trailing path.
func (e Endpoint) Kind() EndpointKind {
	switch {
	case layerPattern.MatchString(string(e)):
		return EndpointLayer
	case servicePattern.MatchString(string(e)):
		return EndpointService
	default:
		return EndpointSite
	}
}

// Child returns the endpoint one path segment below e.
func (e Endpoint) Child(segments ...string) Endpoint {
	return Endpoint(string(e) + "/" + strings.Join(segments, "/"))
}

// Sibling returns e with its last path segment replaced by segment.
// For a layer endpoint this addresses another layer of the same service.
func (e Endpoint) Sibling(segment string) Endpoint {
	s := string(e)
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return Endpoint(segment)
	}
	return Endpoint(s[:i+1] + segment)
}

// String returns the endpoint URL.
func (e Endpoint) String() string {
	return string(e)
}

// StripServiceSuffix removes a trailing "/<Type>Server/<id>" from a layer path.
func StripServiceSuffix(path string) string {
	return layerPattern.ReplaceAllString(path, "")
}
