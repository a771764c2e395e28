package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// SortDirection represents the sort direction.
type SortDirection string

const (
	// SortAsc represents ascending sort order.
	SortAsc SortDirection = "asc"
	// SortDesc represents descending sort order.
	SortDesc SortDirection = "desc"
)

// Sortby orders the features of a result page. The zero value keeps the
// catalog order.
type Sortby struct {
	Field     string
	Direction SortDirection
}

// IsZero reports whether s keeps the catalog order.
func (s Sortby) IsZero() bool {
	return s.Field == ""
}

// String formats s in sortby syntax, e.g. "-datetime".
func (s Sortby) String() string {
	if s.IsZero() {
		return ""
	}
	if s.Direction == SortDesc {
		return "-" + s.Field
	}
	return "+" + s.Field
}

// ParseSortby parses "+field", "-field" or "field" (ascending). Supported
// fields are id, datetime and eo:cloud_cover, optionally prefixed with
// "properties.". An empty string keeps the catalog order.
func ParseSortby(s string) (Sortby, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Sortby{}, nil
	}

	direction := SortAsc
	switch s[0] {
	case '-':
		direction = SortDesc
		s = s[1:]
	case '+':
		s = s[1:]
	}

	field := strings.TrimPrefix(s, "properties.")
	switch field {
	case "id", PropertyDatetime, PropertyCloudCover:
	case "":
		return Sortby{}, fmt.Errorf("empty field name in sortby")
	default:
		return Sortby{}, fmt.Errorf("unsupported sort field: %s", field)
	}

	return Sortby{Field: field, Direction: direction}, nil
}

// Sorted returns a copy of rs with its features ordered by s. Features
// without the sort property go last whatever the direction. rs itself is not
// modified.
func (rs *ResultSet) Sorted(s Sortby) *ResultSet {
	if rs == nil || s.IsZero() {
		return rs
	}

	out := *rs
	out.Features = append([]*Item(nil), rs.Features...)
	sort.SliceStable(out.Features, func(i, j int) bool {
		return s.less(out.Features[i], out.Features[j])
	})
	return &out
}

func (s Sortby) less(a, b *Item) bool {
	var c int
	switch s.Field {
	case "id":
		c = strings.Compare(a.ID, b.ID)
	case PropertyDatetime:
		ta, tb := a.Datetime(), b.Datetime()
		if ta.IsZero() || tb.IsZero() {
			return !ta.IsZero() && tb.IsZero()
		}
		c = ta.Compare(tb)
	case PropertyCloudCover:
		ca, okA := a.CloudCover()
		cb, okB := b.CloudCover()
		if !okA || !okB {
			return okA && !okB
		}
		switch {
		case ca < cb:
			c = -1
		case ca > cb:
			c = 1
		}
	}
	if s.Direction == SortDesc {
		return c > 0
	}
	return c < 0
}
