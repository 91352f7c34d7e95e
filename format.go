package arcgisdl

import (
	"fmt"
	"strings"
)

// Format is the output format of a layer query. It decides how feature
// attributes are addressed: GeoJSON features keep them under "properties",
// Esri JSON features under "attributes".
type Format string

// Supported query formats.
const (
	FormatGeoJSON  Format = "geojson"
	FormatEsriJSON Format = "json"
)

// ParseFormat returns the format named by s, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatGeoJSON, FormatEsriJSON:
		return f, nil
	default:
		return "", Errorf(EINVALID, "unsupported layer format %q", s)
	}
}

// String returns the format as sent in the f query parameter.
func (f Format) String() string {
	return string(f)
}

// attributeKey returns the feature member holding attribute values.
func (f Format) attributeKey() string {
	if f == FormatGeoJSON {
		return "properties"
	}
	return "attributes"
}

// FieldValue returns the value of the named attribute of a decoded feature.
// The bool result is false if the feature has no such attribute.
func (f Format) FieldValue(feature any, field string) (any, bool) {
	obj, ok := feature.(map[string]any)
	if !ok {
		return nil, false
	}
	attrs, ok := obj[f.attributeKey()].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := attrs[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// FormatValue renders a decoded JSON scalar for use in a where clause.
func FormatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
