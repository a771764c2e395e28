// Package grid models the fixed global grid and the single-cell selection
// made on it.
package grid

// Cell is one tile of the global grid.
type Cell struct {
	ID         string         `json:"id"`
	Properties CellProperties `json:"properties"`
}

// CellProperties carries the cell footprint.
type CellProperties struct {
	ID    string `json:"id"`
	LLWKT string `json:"llWkt"`
}

// SameAs reports whether c and other identify the same cell. Identity is by
// ID only; two cells with identical footprints but different IDs differ.
func (c *Cell) SameAs(other *Cell) bool {
	if c == nil || other == nil {
		return false
	}
	return c.ID == other.ID
}

// Transition describes what a Pick did to the selection.
type Transition int

const (
	// NoOp means the selection did not change.
	NoOp Transition = iota
	// Selected means a cell was selected from the unselected state.
	Selected
	// Replaced means a different cell replaced the previous selection.
	Replaced
	// Deselected means the selection was cleared.
	Deselected
)

func (t Transition) String() string {
	switch t {
	case Selected:
		return "selected"
	case Replaced:
		return "replaced"
	case Deselected:
		return "deselected"
	default:
		return "noop"
	}
}

// Selection holds at most one selected cell.
type Selection struct {
	current *Cell
}

// Pick applies a map pick. A nil candidate is ignored. Picking the selected
// cell again deselects it; picking any other cell replaces the selection.
func (s *Selection) Pick(candidate *Cell) Transition {
	if candidate == nil {
		return NoOp
	}
	if s.current == nil {
		s.current = candidate
		return Selected
	}
	if s.current.SameAs(candidate) {
		s.current = nil
		return Deselected
	}
	s.current = candidate
	return Replaced
}

// Clear deselects whatever is selected. It reports whether a cell was
// selected before the call.
func (s *Selection) Clear() bool {
	had := s.current != nil
	s.current = nil
	return had
}

// Current returns the selected cell, if any.
func (s *Selection) Current() (*Cell, bool) {
	return s.current, s.current != nil
}
