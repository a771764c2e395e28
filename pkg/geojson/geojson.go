// Package geojson provides the GeoJSON geometry sent as a search intersects
// filter, plus the WKT parsing and footprint transforms used to derive it.
package geojson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"
	orbjson "github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Polygon returns the coordinates as a Polygon [][][lon, lat].
// Returns error if geometry is not a Polygon.
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// Orb decodes the geometry into its orb representation.
func (g *Geometry) Orb() (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry: %w", err)
	}
	decoded, err := orbjson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s geometry: %w", g.Type, err)
	}
	return decoded.Geometry(), nil
}

// BBox computes the bounding box of the geometry.
// Returns [west, south, east, north].
func (g *Geometry) BBox() ([]float64, error) {
	return ComputeBBox(g)
}

// String returns the compact JSON encoding used in query strings.
func (g *Geometry) String() string {
	data, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	return string(data)
}

// FromOrb converts an orb geometry into a GeoJSON geometry.
// Geometry collections have no coordinates member and are rejected.
func FromOrb(g orb.Geometry) (*Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}
	if _, ok := g.(orb.Collection); ok {
		return nil, fmt.Errorf("unsupported geometry type: %s", g.GeoJSONType())
	}

	data, err := orbjson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s geometry: %w", g.GeoJSONType(), err)
	}

	var out Geometry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s geometry: %w", g.GeoJSONType(), err)
	}
	return &out, nil
}

// FromWKT parses a WKT string into a GeoJSON geometry.
func FromWKT(s string) (*Geometry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty WKT string")
	}

	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse WKT: %w", err)
	}
	return FromOrb(g)
}

// ComputeBBox computes the bounding box of a geometry.
// Returns [west, south, east, north].
func ComputeBBox(g *Geometry) ([]float64, error) {
	og, err := g.Orb()
	if err != nil {
		return nil, err
	}
	b := og.Bound()
	if b.IsEmpty() {
		return nil, fmt.Errorf("failed to compute bounding box: no valid coordinates found")
	}
	return []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}, nil
}

// Centroid returns the area-weighted centroid of the geometry as [lon, lat].
func Centroid(g *Geometry) ([]float64, error) {
	og, err := g.Orb()
	if err != nil {
		return nil, err
	}
	c, _ := planar.CentroidArea(og)
	return []float64{c.Lon(), c.Lat()}, nil
}

// NewPolygonFromBBox creates a polygon geometry from a bounding box.
// bbox should be [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}

	bound := orb.Bound{
		Min: orb.Point{bbox[0], bbox[1]},
		Max: orb.Point{bbox[2], bbox[3]},
	}
	return FromOrb(bound.ToPolygon())
}

// NewBufferedPoint returns a square polygon extending radiusMeters from the
// point in every direction.
func NewBufferedPoint(lon, lat, radiusMeters float64) (*Geometry, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("buffer radius must be positive, got %g", radiusMeters)
	}
	bound := geo.NewBoundAroundPoint(orb.Point{lon, lat}, radiusMeters)
	return FromOrb(bound.ToPolygon())
}
