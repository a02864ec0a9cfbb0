package domain

import "fmt"

// SortDirection orders a sorted view.
type SortDirection string

// Sort directions.
const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// ParseSortDirection accepts "asc"/"desc" and their long forms.
// An empty string means ascending.
func ParseSortDirection(s string) (SortDirection, error) {
	switch s {
	case "", "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}

// Toggle returns the opposite direction.
func (d SortDirection) Toggle() SortDirection {
	if d == SortAscending {
		return SortDescending
	}
	return SortAscending
}

// Query is the view state governing which records a sheet shows.
type Query struct {
	Search        string        `json:"search"`
	Genre         string        `json:"genre"`              // empty means no genre filter
	SortKey       Field         `json:"sort_key,omitempty"` // empty means input order
	SortDirection SortDirection `json:"sort_direction"`
	Page          int           `json:"page"` // 1-based
}

// DefaultQuery returns the state of a freshly opened sheet.
func DefaultQuery() Query {
	return Query{SortDirection: SortAscending, Page: 1}
}
