package catalog

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/robert-malhotra/stac-grid-explorer/pkg/geojson"
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 50

// Query represents parameters for a catalog item search.
type Query struct {
	// Spatial filter
	Intersects *geojson.Geometry

	// Pagination (page is 1-based)
	Limit int
	Page  int
}

// Validate checks that the query can be sent.
func (q *Query) Validate() error {
	if q.Intersects == nil {
		return fmt.Errorf("intersects geometry is required")
	}
	if q.Limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", q.Limit)
	}
	if q.Page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", q.Page)
	}
	return nil
}

// ToURLValues converts the query to url.Values. The intersects geometry is
// sent as compact GeoJSON.
func (q *Query) ToURLValues() url.Values {
	values := url.Values{}

	if q.Intersects != nil {
		values.Set("intersects", q.Intersects.String())
	}

	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	return values
}
