package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// DefaultMinZoom is the lowest zoom level at which cells can be picked.
const DefaultMinZoom = 3

// ErrOutOfRange is returned for coordinates outside the grid.
var ErrOutOfRange = errors.New("coordinate outside grid")

// Tiling is a regular lat/lon grid of square cells anchored at (-180, -90).
type Tiling struct {
	SizeDeg float64
}

// NewTiling creates a tiling with cells sizeDeg degrees on a side. The size
// must divide 180 evenly.
func NewTiling(sizeDeg float64) (*Tiling, error) {
	if sizeDeg <= 0 || sizeDeg > 180 {
		return nil, fmt.Errorf("cell size must be in (0, 180], got %g", sizeDeg)
	}
	if n := 180 / sizeDeg; math.Abs(n-math.Round(n)) > 1e-9 {
		return nil, fmt.Errorf("cell size %g does not divide 180", sizeDeg)
	}
	return &Tiling{SizeDeg: sizeDeg}, nil
}

// CellAt returns the cell containing (lon, lat). Points on the east or north
// edge of the grid belong to the last column or row.
func (t *Tiling) CellAt(lon, lat float64) (*Cell, error) {
	if math.IsNaN(lon) || math.IsNaN(lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("%w: (%g, %g)", ErrOutOfRange, lon, lat)
	}

	cols := int(math.Round(360 / t.SizeDeg))
	rows := int(math.Round(180 / t.SizeDeg))
	col := min(int(math.Floor((lon+180)/t.SizeDeg)), cols-1)
	row := min(int(math.Floor((lat+90)/t.SizeDeg)), rows-1)

	return t.cell(col, row), nil
}

func (t *Tiling) cell(col, row int) *Cell {
	west := -180 + float64(col)*t.SizeDeg
	south := -90 + float64(row)*t.SizeDeg
	bound := orb.Bound{
		Min: orb.Point{west, south},
		Max: orb.Point{west + t.SizeDeg, south + t.SizeDeg},
	}

	id := cellID(west, south)
	return &Cell{
		ID: id,
		Properties: CellProperties{
			ID:    id,
			LLWKT: wkt.MarshalString(bound.ToPolygon()),
		},
	}
}

// cellID names a cell after its south-west corner, e.g. E012N45 or W123S07.
func cellID(west, south float64) string {
	ew, ns := "E", "N"
	if west < 0 {
		ew = "W"
	}
	if south < 0 {
		ns = "S"
	}
	return fmt.Sprintf("%s%s%s%s", ew, formatDeg(math.Abs(west), 3), ns, formatDeg(math.Abs(south), 2))
}

func formatDeg(d float64, width int) string {
	if d == math.Trunc(d) {
		return fmt.Sprintf("%0*d", width, int(d))
	}
	return fmt.Sprintf("%0*.2f", width+3, d)
}
