package crawl

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"strconv"

	"github.com/fwojciec/arcgisdl"
)

// Frontier sizing for discovery. Service directories rarely exceed a few
// hundred folders.
const (
	frontierCapacity = 10000
	frontierFPRate   = 1e-6
)

// Discoverer expands sites and services into the endpoints below them.
type Discoverer struct {
	Client arcgisdl.Client
	Logger *slog.Logger
}

// ServiceSeq walks a site and its folders breadth first and yields every
// service endpoint in discovery order. Folder URLs are built from the site
// root, since servers list folders by their full path.
func (d *Discoverer) ServiceSeq(ctx context.Context, site arcgisdl.Endpoint) iter.Seq[arcgisdl.Endpoint] {
	logger := loggerOrDiscard(d.Logger)
	return func(yield func(arcgisdl.Endpoint) bool) {
		frontier := NewFrontier(frontierCapacity, frontierFPRate)
		frontier.Push(site.String())

		for {
			if ctx.Err() != nil {
				return
			}
			next, ok := frontier.Pop()
			if !ok {
				return
			}

			logger.Info("getting services", "url", next)
			res := d.Client.Get(ctx, next, nil)
			var info arcgisdl.SiteInfo
			if err := res.Decode(&info); err != nil {
				logger.Info("skipping site, no data", "url", next, "err", reason(res, err))
				continue
			}

			for _, folder := range info.Folders {
				folderURL := site.Child(folder)
				if frontier.Push(folderURL.String()) {
					logger.Debug("found folder", "url", folderURL)
				}
			}
			for _, svc := range info.Services {
				svcURL := site.Child(svc.Name, svc.Type)
				logger.Debug("found service", "url", svcURL)
				if !yield(svcURL) {
					return
				}
			}
		}
	}
}

// Services returns every service endpoint below site.
func (d *Discoverer) Services(ctx context.Context, site arcgisdl.Endpoint) []arcgisdl.Endpoint {
	return slices.Collect(d.ServiceSeq(ctx, site))
}

// Layers returns the layer endpoints of a service followed by its tables.
func (d *Discoverer) Layers(ctx context.Context, service arcgisdl.Endpoint) []arcgisdl.Endpoint {
	logger := loggerOrDiscard(d.Logger)

	logger.Info("getting layers", "url", service)
	res := d.Client.Get(ctx, service.String(), nil)
	var info arcgisdl.ServiceInfo
	if err := res.Decode(&info); err != nil {
		logger.Info("skipping service, no data", "url", service, "err", reason(res, err))
		return nil
	}

	layers := make([]arcgisdl.Endpoint, 0, len(info.Layers)+len(info.Tables))
	for _, ref := range slices.Concat(info.Layers, info.Tables) {
		layers = append(layers, service.Child(strconv.Itoa(ref.ID)))
	}
	return layers
}

// reason prefers the soft-failure cause over the decode error.
func reason(res arcgisdl.Result, err error) error {
	if res.Err != nil {
		return res.Err
	}
	return err
}
