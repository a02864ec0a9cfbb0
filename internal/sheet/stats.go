package sheet

import (
	"slices"

	"github.com/booksheet/booksheet-server/internal/domain"
)

// Stats summarizes a sheet for the status bar.
type Stats struct {
	TotalRows     int `json:"total_rows"`
	FilteredRows  int `json:"filtered_rows"`
	CurrentPage   int `json:"current_page"`
	TotalPages    int `json:"total_pages"`
	ModifiedCount int `json:"modified_count"`
}

// UniqueGenres returns the distinct non-empty genres of records, ascending.
func UniqueGenres(records []domain.Record) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range records {
		g := records[i].Genre
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

// ModifiedCount counts records flagged as edited.
func ModifiedCount(records []domain.Record) int {
	n := 0
	for i := range records {
		if records[i].IsModified {
			n++
		}
	}
	return n
}
