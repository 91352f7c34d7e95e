// Package arcgisdl downloads the feature layers and tables published by
// ArcGIS REST services. It walks a site's folders and services, pages
// through each layer's query endpoint around the server's transfer limit,
// and writes every layer as a single JSON document.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., http/, fs/, sqlite/, slog/).
package arcgisdl
