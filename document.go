package arcgisdl

import "encoding/json"

// ExceededTransferLimitKey is the member a server sets when more features
// exist beyond the returned page.
const ExceededTransferLimitKey = "exceededTransferLimit"

// Document is an accumulated query result: a GeoJSON FeatureCollection or
// an Esri JSON feature set, kept as decoded JSON so it is written back
// exactly as the server shaped it.
type Document map[string]any

// HasFeatures reports whether the document carries a features array.
func (d Document) HasFeatures() bool {
	_, ok := d["features"].([]any)
	return ok
}

// Features returns the features array, or nil if there is none.
func (d Document) Features() []any {
	features, _ := d["features"].([]any)
	return features
}

// AppendFeatures adds features to the end of the features array.
func (d Document) AppendFeatures(features []any) {
	d["features"] = append(d.Features(), features...)
}

// ExceededTransferLimit reports whether the server signalled more data.
func (d Document) ExceededTransferLimit() bool {
	switch v := d[ExceededTransferLimitKey].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// StripTransferLimit removes the transient transfer limit marker.
func (d Document) StripTransferLimit() {
	delete(d, ExceededTransferLimitKey)
}

// MarshalJSON encodes the document as a JSON object.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(d))
}
