package crawl

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/fwojciec/arcgisdl"
)

const servicesMarker = "/rest/services/"

// PathResolver maps a layer to a relative output path that mirrors its
// place in the service hierarchy:
// <folders>/<service>/<ancestor layers>/<name>.<format>.
type PathResolver struct {
	Client      arcgisdl.Client
	IncludeHost bool
	Logger      *slog.Logger
}

// Resolve returns the relative path for layer. Ancestor group layers are
// fetched to recover their names; a failed ancestor fetch ends the walk.
func (r *PathResolver) Resolve(ctx context.Context, layer *arcgisdl.Layer) (string, error) {
	u, err := url.Parse(layer.URL.String())
	if err != nil {
		return "", arcgisdl.Errorf(arcgisdl.EINVALID, "invalid layer URL %q: %v", layer.URL, err)
	}

	servicePath := arcgisdl.StripServiceSuffix(u.Path)
	if i := strings.Index(servicePath, servicesMarker); i >= 0 {
		servicePath = servicePath[i+len(servicesMarker):]
	}

	var segments []string
	if r.IncludeHost && u.Host != "" {
		segments = append(segments, sanitizeSegment(u.Host))
	}
	for _, s := range strings.Split(servicePath, "/") {
		if s != "" {
			segments = append(segments, sanitizeSegment(s))
		}
	}
	segments = append(segments, r.ancestors(ctx, layer)...)

	name := layer.Descriptor.Name
	if name == "" {
		name = path.Base(u.Path)
	}
	segments = append(segments, sanitizeSegment(name)+"."+layer.Format.String())

	return filepath.Join(segments...), nil
}

// ancestors returns the names of the layer's parent group layers,
// outermost first.
func (r *PathResolver) ancestors(ctx context.Context, layer *arcgisdl.Layer) []string {
	logger := loggerOrDiscard(r.Logger)

	var names []string
	seen := map[int]bool{layer.Descriptor.ID: true}
	parent := layer.Descriptor.ParentLayer
	for parent != nil {
		if seen[parent.ID] {
			logger.Warn("parent layer cycle", "url", layer.URL, "id", parent.ID)
			break
		}
		seen[parent.ID] = true
		names = append(names, sanitizeSegment(parent.Name))

		parentURL := layer.URL.Sibling(strconv.Itoa(parent.ID))
		var desc arcgisdl.LayerDescriptor
		if err := r.Client.Get(ctx, parentURL.String(), nil).Decode(&desc); err != nil {
			logger.Warn("cannot resolve parent layer", "url", parentURL, "err", err)
			break
		}
		parent = desc.ParentLayer
	}
	slices.Reverse(names)
	return names
}

// sanitizeSegment makes a server supplied name safe as one path component.
func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	switch s {
	case "", ".", "..":
		return "_"
	}
	return s
}
