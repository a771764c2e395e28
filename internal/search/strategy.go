package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robert-malhotra/stac-grid-explorer/internal/grid"
	"github.com/robert-malhotra/stac-grid-explorer/pkg/geojson"
)

// ErrInvalidGeometry is returned when a cell footprint cannot be turned into
// a search geometry.
var ErrInvalidGeometry = errors.New("invalid cell geometry")

// GeometryStrategy derives the search geometry for a cell.
type GeometryStrategy interface {
	Geometry(cell *grid.Cell) (*geojson.Geometry, error)
}

// Footprint searches with the cell footprint as-is.
type Footprint struct{}

// Geometry parses the cell's WKT footprint.
func (Footprint) Geometry(cell *grid.Cell) (*geojson.Geometry, error) {
	return footprint(cell)
}

// CentroidBuffer searches with a square of RadiusMeters around the centroid
// of the cell footprint.
type CentroidBuffer struct {
	RadiusMeters float64
}

// Geometry buffers the footprint centroid.
func (s CentroidBuffer) Geometry(cell *grid.Cell) (*geojson.Geometry, error) {
	g, err := footprint(cell)
	if err != nil {
		return nil, err
	}
	c, err := geojson.Centroid(g)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidGeometry, cell.ID, err)
	}
	buffered, err := geojson.NewBufferedPoint(c[0], c[1], s.RadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidGeometry, cell.ID, err)
	}
	return buffered, nil
}

func footprint(cell *grid.Cell) (*geojson.Geometry, error) {
	if cell == nil {
		return nil, fmt.Errorf("%w: no cell", ErrInvalidGeometry)
	}
	g, err := geojson.FromWKT(cell.Properties.LLWKT)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidGeometry, cell.ID, err)
	}
	return g, nil
}

// ParseStrategy returns the strategy named "footprint" or "centroid".
func ParseStrategy(name string, radiusMeters float64) (GeometryStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "footprint":
		return Footprint{}, nil
	case "centroid":
		if radiusMeters <= 0 {
			return nil, fmt.Errorf("centroid strategy needs a positive radius, got %g", radiusMeters)
		}
		return CentroidBuffer{RadiusMeters: radiusMeters}, nil
	default:
		return nil, fmt.Errorf("unknown geometry strategy %q", name)
	}
}
