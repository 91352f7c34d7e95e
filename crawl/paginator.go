package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strconv"

	"github.com/fwojciec/arcgisdl"
)

// Paginator downloads the complete feature set of a layer, working around
// the server's per-request transfer limit.
type Paginator struct {
	Client arcgisdl.Client
	Config arcgisdl.Config
	Logger *slog.Logger
}

// Query fetches every feature of the layer at layerURL. Layers excluded by
// policy (unaccepted type, no usable format, no way to paginate, no data)
// return an ESKIPPED error. A pagination round that fails after the first
// ends the loop early and the features gathered so far are returned.
func (p *Paginator) Query(ctx context.Context, layerURL arcgisdl.Endpoint) (*arcgisdl.Layer, error) {
	logger := loggerOrDiscard(p.Logger).With("url", layerURL.String())

	desc, err := p.describe(ctx, layerURL)
	if err != nil {
		return nil, err
	}

	format, err := p.negotiateFormat(desc)
	if err != nil {
		return nil, err
	}

	p.logCount(ctx, logger, layerURL)

	strategy, err := p.selectStrategy(desc, format)
	if err != nil {
		return nil, err
	}

	logger.Info("querying layer", "name", desc.Name, "format", format.String(), "strategy", strategy.name())
	doc, err := p.pageLoop(ctx, logger, layerURL, format, strategy)
	if err != nil {
		return nil, err
	}
	doc.StripTransferLimit()

	return &arcgisdl.Layer{
		URL:        layerURL,
		Document:   doc,
		Descriptor: desc,
		Format:     format,
	}, nil
}

// describe fetches the layer descriptor and applies the layer type filter.
func (p *Paginator) describe(ctx context.Context, layerURL arcgisdl.Endpoint) (*arcgisdl.LayerDescriptor, error) {
	res := p.Client.Get(ctx, layerURL.String(), nil)
	if res.Empty() {
		return nil, arcgisdl.Errorf(arcgisdl.ESKIPPED, "no layer data")
	}
	if serr := res.ServerError(); serr != nil {
		return nil, arcgisdl.Errorf(arcgisdl.ESKIPPED, "layer descriptor: %v", serr)
	}

	var desc arcgisdl.LayerDescriptor
	if err := res.Decode(&desc); err != nil {
		return nil, arcgisdl.Errorf(arcgisdl.ESKIPPED, "decode layer descriptor: %v", err)
	}
	if !p.Config.AcceptsLayerType(desc.Type) {
		return nil, arcgisdl.Errorf(arcgisdl.ESKIPPED, "layer type %q not accepted", desc.Type)
	}
	return &desc, nil
}

// negotiateFormat picks the configured format if the layer supports it,
// falling back to Esri JSON.
func (p *Paginator) negotiateFormat(desc *arcgisdl.LayerDescriptor) (arcgisdl.Format, error) {
	preferred := p.Config.LayerFormat
	if preferred == "" {
		preferred = arcgisdl.FormatGeoJSON
	}
	for _, f := range []arcgisdl.Format{preferred, arcgisdl.FormatEsriJSON} {
		if desc.SupportsFormat(f) {
			return f, nil
		}
	}
	return "", arcgisdl.Errorf(arcgisdl.ESKIPPED, "no supported query format in %q", desc.SupportedQueryFormats)
}

// logCount asks the server how many features the layer holds. The answer
// is informational only.
func (p *Paginator) logCount(ctx context.Context, logger *slog.Logger, layerURL arcgisdl.Endpoint) {
	res := p.Client.Get(ctx, layerURL.Child("query").String(), arcgisdl.Params{
		"returnCountOnly": "true",
		"where":           "9999=9999",
	})
	if count, ok := res.Object["count"]; ok {
		logger.Info("layer feature count", "count", arcgisdl.FormatValue(count))
	}
}

// selectStrategy chooses native offset paging when the server supports it
// and ordered object-id windows otherwise.
func (p *Paginator) selectStrategy(desc *arcgisdl.LayerDescriptor, format arcgisdl.Format) (pageStrategy, error) {
	if desc.AdvancedQueryCapabilities.SupportsPagination {
		return &offsetStrategy{step: desc.MaxRecordCount}, nil
	}
	field, ok := desc.OrderingField()
	if !ok {
		return nil, arcgisdl.Errorf(arcgisdl.ESKIPPED, "no pagination support and no object id field")
	}
	return &objectIDStrategy{field: field, format: format}, nil
}

func (p *Paginator) pageLoop(ctx context.Context, logger *slog.Logger, layerURL arcgisdl.Endpoint, format arcgisdl.Format, strategy pageStrategy) (arcgisdl.Document, error) {
	queryURL := layerURL.Child("query").String()
	base := arcgisdl.Params{
		"outFields": "*",
		"where":     "1=1",
		"f":         format.String(),
	}

	var doc arcgisdl.Document
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			if doc == nil {
				return nil, err
			}
			logger.Warn("query interrupted, keeping partial layer", "round", round, "err", err)
			return doc, nil
		}

		params := base.Merge()
		strategy.apply(params)
		res := p.Client.Get(ctx, queryURL, params)
		page := arcgisdl.Document(res.Object)

		if round == 1 {
			if res.Empty() {
				return nil, arcgisdl.Errorf(arcgisdl.ESKIPPED, "no query data")
			}
			if serr := res.ServerError(); serr != nil {
				return nil, arcgisdl.Errorf(arcgisdl.ESKIPPED, "query: %v", serr)
			}
			doc = maps.Clone(page)
		} else {
			if res.Empty() || !page.HasFeatures() {
				logger.Warn("incomplete query data, keeping partial layer", "round", round, "features", len(doc.Features()))
				return doc, nil
			}
			doc.AppendFeatures(page.Features())
		}

		features := page.Features()
		logger.Debug("query round", "round", round, "features", len(features), "total", len(doc.Features()))
		if !page.ExceededTransferLimit() || len(features) == 0 {
			return doc, nil
		}
		if err := strategy.advance(features); err != nil {
			logger.Warn("cannot advance pagination, keeping partial layer", "round", round, "err", err)
			return doc, nil
		}
	}
}

// pageStrategy produces the query parameters of successive rounds.
type pageStrategy interface {
	name() string
	apply(params arcgisdl.Params)
	advance(features []any) error
}

// offsetStrategy uses resultOffset paging.
type offsetStrategy struct {
	offset int
	step   int
}

func (s *offsetStrategy) name() string { return "offset" }

func (s *offsetStrategy) apply(params arcgisdl.Params) {
	params["resultOffset"] = strconv.Itoa(s.offset)
}

func (s *offsetStrategy) advance(features []any) error {
	step := s.step
	if step <= 0 {
		step = len(features)
	}
	s.offset += step
	return nil
}

// objectIDStrategy orders by an id field and restricts each round to ids
// above the last one seen.
type objectIDStrategy struct {
	field  string
	format arcgisdl.Format
	where  string
}

func (s *objectIDStrategy) name() string { return "order by " + s.field }

func (s *objectIDStrategy) apply(params arcgisdl.Params) {
	params["orderByFields"] = s.field
	if s.where != "" {
		params["where"] = s.where
	}
}

func (s *objectIDStrategy) advance(features []any) error {
	last, ok := s.format.FieldValue(features[len(features)-1], s.field)
	if !ok {
		return fmt.Errorf("last feature has no %s value", s.field)
	}
	where := s.field + ">" + arcgisdl.FormatValue(last)
	if where == s.where {
		return fmt.Errorf("where clause %q does not advance", where)
	}
	s.where = where
	return nil
}
