// Package viewport holds the map viewport and its compact hash token encoding.
package viewport

import (
	"math"
	"strconv"
	"strings"
)

// Web-mercator and tile-pyramid limits applied by Pan and ZoomBy.
const (
	MaxLatitude = 85.0511
	MinZoom     = 0.0
	MaxZoom     = 22.0
)

// Viewport is the visible map region. Width and Height are layout-only and
// are never part of the hash token.
type Viewport struct {
	Zoom      float64
	Latitude  float64
	Longitude float64
	Width     int
	Height    int
}

// Default returns the viewport used when no hash token is present.
func Default() Viewport {
	return Viewport{
		Zoom:      2,
		Latitude:  0,
		Longitude: 0,
	}
}

// Encode formats the viewport as "<zoom>/<lat>/<lon>".
func Encode(v Viewport) string {
	return formatFloat(v.Zoom) + "/" + formatFloat(v.Latitude) + "/" + formatFloat(v.Longitude)
}

// Decode parses a hash token, overlaying zoom, latitude and longitude onto
// fallback. A leading '#' is ignored, as are fields past the third. If any of
// the three values is missing or not a finite number, fallback is returned
// unchanged.
func Decode(token string, fallback Viewport) Viewport {
	token = strings.TrimPrefix(token, "#")
	parts := strings.Split(token, "/")
	if len(parts) < 3 {
		return fallback
	}

	var values [3]float64
	for i := range values {
		f, ok := parseFinite(parts[i])
		if !ok {
			return fallback
		}
		values[i] = f
	}

	v := fallback
	v.Zoom = values[0]
	v.Latitude = values[1]
	v.Longitude = values[2]
	return v
}

// Valid reports whether zoom, latitude and longitude are all finite.
func (v Viewport) Valid() bool {
	return isFinite(v.Zoom) && isFinite(v.Latitude) && isFinite(v.Longitude)
}

// Pan moves the centre by a fraction of the visible span. dx is positive
// towards the east and dy positive towards the north.
func (v Viewport) Pan(dx, dy float64) Viewport {
	span := v.Span()
	v.Longitude = wrapLongitude(v.Longitude + dx*span)
	v.Latitude = clamp(v.Latitude+dy*span/2, -MaxLatitude, MaxLatitude)
	return v
}

// ZoomBy changes the zoom level by delta, clamped to [MinZoom, MaxZoom].
func (v Viewport) ZoomBy(delta float64) Viewport {
	v.Zoom = clamp(v.Zoom+delta, MinZoom, MaxZoom)
	return v
}

// Span returns the approximate longitude span in degrees visible at the
// current zoom level.
func (v Viewport) Span() float64 {
	return 360 / math.Pow(2, v.Zoom)
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// formatFloat uses the shortest representation that parses back to f.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(f, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, f))
}

func wrapLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
