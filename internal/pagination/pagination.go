// Package pagination tracks offset-based paging and sorting for list views.
package pagination

import (
	"net/url"
	"strconv"

	"github.com/boddenberg/spendlog/internal/domain"
)

// State is the page, page size and sort of one list view.
type State struct {
	page     int
	pageSize int
	sortBy   string
	order    string
}

// New starts on page 1, sorted by defaultSort descending.
func New(pageSize int, defaultSort string) *State {
	if pageSize < 1 {
		pageSize = domain.DefaultPageLimit
	}
	return &State{page: 1, pageSize: pageSize, sortBy: defaultSort, order: domain.OrderDesc}
}

func (s *State) Page() int      { return s.page }
func (s *State) PageSize() int  { return s.pageSize }
func (s *State) SortBy() string { return s.sortBy }
func (s *State) Order() string  { return s.order }

// Skip is the offset of the current page.
func (s *State) Skip() int { return (s.page - 1) * s.pageSize }

// OnPageChange jumps to page n. Bounds are the caller's concern.
func (s *State) OnPageChange(n int) { s.page = n }

// OnSort sorts by col. Sorting the current column again flips a
// descending order to ascending; anything else starts descending.
// The page always resets to 1.
func (s *State) OnSort(col string) {
	if s.sortBy == col && s.order == domain.OrderDesc {
		s.order = domain.OrderAsc
	} else {
		s.order = domain.OrderDesc
	}
	s.sortBy = col
	s.page = 1
}

// SetPageSize changes the page size and resets to page 1.
func (s *State) SetPageSize(p int) {
	s.pageSize = p
	s.page = 1
}

// TotalPages is the number of pages needed for total rows.
func (s *State) TotalPages(total int) int {
	if total <= 0 || s.pageSize <= 0 {
		return 1
	}
	return (total + s.pageSize - 1) / s.pageSize
}

// Params renders the state as list parameters for the REST client.
func (s *State) Params() domain.ListParams {
	return domain.ListParams{Skip: s.Skip(), Limit: s.pageSize, SortBy: s.sortBy, Order: s.order}
}

// Query renders the state as skip, limit, sort_by and order.
func (s *State) Query() url.Values {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(s.Skip()))
	q.Set("limit", strconv.Itoa(s.pageSize))
	q.Set("sort_by", s.sortBy)
	q.Set("order", s.order)
	return q
}
