package arcgisdl

import (
	"strings"
)

// Field type tags used to pick a pagination field.
const (
	FieldTypeOID     = "esriFieldTypeOID"
	FieldTypeInteger = "esriFieldTypeInteger"
)

// Field describes one column of a layer or table.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LayerRef identifies a layer by its id and name.
type LayerRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// QueryCapabilities is the advancedQueryCapabilities member of a descriptor.
type QueryCapabilities struct {
	SupportsPagination bool `json:"supportsPagination"`
}

// LayerDescriptor is the server metadata for one layer or table.
type LayerDescriptor struct {
	ID                        int               `json:"id"`
	Name                      string            `json:"name"`
	Type                      string            `json:"type"`
	Fields                    []Field           `json:"fields"`
	SupportedQueryFormats     string            `json:"supportedQueryFormats"`
	AdvancedQueryCapabilities QueryCapabilities `json:"advancedQueryCapabilities"`
	MaxRecordCount            int               `json:"maxRecordCount"`
	ParentLayer               *LayerRef         `json:"parentLayer"`
}

// QueryFormats returns the advertised query formats, lowercased.
func (d *LayerDescriptor) QueryFormats() []string {
	return strings.Split(strings.ToLower(d.SupportedQueryFormats), ", ")
}

// SupportsFormat reports whether the layer advertises query format f.
func (d *LayerDescriptor) SupportsFormat(f Format) bool {
	for _, s := range d.QueryFormats() {
		if s == string(f) {
			return true
		}
	}
	return false
}

// OrderingField returns the field used to emulate pagination: the first
// OID field, or failing that the first integer field. The bool result is
// false if the layer has neither.
func (d *LayerDescriptor) OrderingField() (string, bool) {
	for _, typ := range []string{FieldTypeOID, FieldTypeInteger} {
		for _, f := range d.Fields {
			if f.Type == typ {
				return f.Name, true
			}
		}
	}
	return "", false
}

// ServiceRef is one entry of a site's services list.
type ServiceRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SiteInfo is the JSON of a services root or folder.
type SiteInfo struct {
	Folders  []string     `json:"folders"`
	Services []ServiceRef `json:"services"`
}

// ServiceInfo is the JSON of a service.
type ServiceInfo struct {
	Layers []LayerRef `json:"layers"`
	Tables []LayerRef `json:"tables"`
}

// Layer is a fully paginated layer ready to be written.
type Layer struct {
	URL        Endpoint
	Document   Document
	Descriptor *LayerDescriptor
	Format     Format
}

// LayerStatus is the outcome recorded for one layer endpoint.
type LayerStatus string

// LayerStatus values.
const (
	LayerWritten LayerStatus = "written"
	LayerSkipped LayerStatus = "skipped"
	LayerFailed  LayerStatus = "failed"
)
