package domain

import "strings"

// Page limits for list endpoints.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Page is one offset-paginated slice of a list.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// ListParams are the offset pagination and sort parameters of list endpoints.
type ListParams struct {
	Skip   int
	Limit  int
	SortBy string
	Order  string
}

// Normalize fills defaults and rejects out-of-range values. allowed lists
// the sortable columns; the first one is the default.
func (p *ListParams) Normalize(allowed ...string) error {
	if p.Skip < 0 {
		return &ErrValidation{Field: "skip", Message: "must be >= 0"}
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return &ErrValidation{Field: "limit", Message: "must be between 1 and 100"}
	}
	p.Order = strings.ToLower(p.Order)
	if p.Order == "" {
		p.Order = OrderDesc
	}
	if p.Order != OrderAsc && p.Order != OrderDesc {
		return &ErrValidation{Field: "order", Message: "must be asc or desc"}
	}
	if len(allowed) == 0 {
		return nil
	}
	if p.SortBy == "" {
		p.SortBy = allowed[0]
		return nil
	}
	for _, col := range allowed {
		if p.SortBy == col {
			return nil
		}
	}
	return &ErrValidation{Field: "sort_by", Message: "cannot sort by " + p.SortBy}
}
