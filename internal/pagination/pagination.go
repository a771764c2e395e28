// Package pagination tracks the current results page for a selected cell.
package pagination

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
)

// Unset is the page value before any cell has been selected.
const Unset = 0

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("invalid page")

// TotalPages returns ceil(matched/limit) for a result set. The bool is false
// when no page count can be offered: no results yet or a non-positive limit.
func TotalPages(rs *catalog.ResultSet) (int, bool) {
	if rs == nil || rs.Context.Limit <= 0 {
		return 0, false
	}
	matched := max(rs.Context.Matched, 0)
	return (matched + rs.Context.Limit - 1) / rs.Context.Limit, true
}

// Pager holds a 1-based page number. The zero value is Unset.
type Pager struct {
	page int
}

// Page returns the current page, or Unset.
func (p *Pager) Page() int {
	return p.page
}

// IsSet reports whether a page has been chosen.
func (p *Pager) IsSet() bool {
	return p.page != Unset
}

// Reset moves back to the first page.
func (p *Pager) Reset() {
	p.page = 1
}

// Clear returns the pager to Unset.
func (p *Pager) Clear() {
	p.page = Unset
}

// Set moves to page n. Pages past the last known page are accepted; the
// catalog answers them with an empty result set.
func (p *Pager) Set(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPage, n)
	}
	p.page = n
	return nil
}

// Next advances one page, starting at 1 when unset.
func (p *Pager) Next() int {
	p.page = max(p.page, 0) + 1
	return p.page
}

// Prev goes back one page without going below 1.
func (p *Pager) Prev() int {
	p.page = max(p.page-1, 1)
	return p.page
}
