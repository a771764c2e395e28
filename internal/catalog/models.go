package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	gostac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/stac-grid-explorer/pkg/geojson"
)

// Re-export asset and link types from planetlabs/go-stac
type (
	Asset = gostac.Asset
	Link  = gostac.Link
)

// Well-known property and asset keys.
const (
	PropertyDatetime   = "datetime"
	PropertyCloudCover = "eo:cloud_cover"
	AssetThumbnail     = "thumbnail"
)

// ResultSet is one page of search results (a GeoJSON FeatureCollection with
// the STAC context extension).
type ResultSet struct {
	Type     string  `json:"type"` // "FeatureCollection"
	Features []*Item `json:"features"`
	Context  Context `json:"context"`
	Links    []*Link `json:"links,omitempty"`
}

// Context carries the match counts reported by the catalog.
type Context struct {
	Page     int `json:"page,omitempty"`
	Limit    int `json:"limit"`
	Matched  int `json:"matched"`
	Returned int `json:"returned"`
}

// Item is a single catalog scene. Items are treated as immutable once
// received.
type Item struct {
	Type       string            `json:"type"` // "Feature"
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Geometry   json.RawMessage   `json:"geometry"`
	BBox       []float64         `json:"bbox,omitempty"`
	Properties map[string]any    `json:"properties"`
	Assets     map[string]*Asset `json:"assets"`
	Links      []*Link           `json:"links,omitempty"`
}

// Datetime returns the acquisition time, or the zero time if the property is
// missing or malformed.
func (i *Item) Datetime() time.Time {
	s, ok := i.Properties[PropertyDatetime].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CloudCover returns the cloud cover percentage and whether it was present.
func (i *Item) CloudCover() (float64, bool) {
	switch v := i.Properties[PropertyCloudCover].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// AssetHref returns the href of the named asset, or "" if it is absent.
func (i *Item) AssetHref(key string) string {
	asset, ok := i.Assets[key]
	if !ok || asset == nil {
		return ""
	}
	return asset.Href
}

// Thumbnail returns the thumbnail href, or "".
func (i *Item) Thumbnail() string {
	return i.AssetHref(AssetThumbnail)
}

// Footprint returns the item geometry. Items without a geometry fall back to
// a polygon built from their bbox.
func (i *Item) Footprint() (*geojson.Geometry, error) {
	if len(i.Geometry) > 0 && string(i.Geometry) != "null" {
		var g geojson.Geometry
		if err := json.Unmarshal(i.Geometry, &g); err != nil {
			return nil, fmt.Errorf("item %s: invalid geometry: %w", i.ID, err)
		}
		return &g, nil
	}
	if len(i.BBox) == 4 {
		return geojson.NewPolygonFromBBox(i.BBox)
	}
	return nil, fmt.Errorf("item %s has no geometry", i.ID)
}

// FootprintBounds returns the [west, south, east, north] extent of the item.
func (i *Item) FootprintBounds() ([]float64, error) {
	g, err := i.Footprint()
	if err != nil {
		return nil, err
	}
	return geojson.ComputeBBox(g)
}

// Find returns the feature with the given id.
func (rs *ResultSet) Find(id string) (*Item, bool) {
	if rs == nil {
		return nil, false
	}
	for _, item := range rs.Features {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}
