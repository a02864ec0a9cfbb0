package sheet

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/booksheet/booksheet-server/internal/domain"
)

// Derive runs the search, genre and sort stages over records and returns the
// positions (indexes into records) of the resulting view, in view order.
// It never mutates records.
func Derive(records []domain.Record, q domain.Query) []int {
	positions := filter(records, q.Search, q.Genre)
	if q.SortKey != "" {
		sortPositions(records, positions, q.SortKey, q.SortDirection)
	}
	return positions
}

func filter(records []domain.Record, search, genre string) []int {
	// Casers carry transform state and are not shared between calls.
	lower := cases.Lower(language.Und)
	term := lower.String(search)

	positions := make([]int, 0, len(records))
	for i := range records {
		r := &records[i]
		if genre != "" && r.Genre != genre {
			continue
		}
		if term != "" && !matchesSearch(r, term, lower) {
			continue
		}
		positions = append(positions, i)
	}
	return positions
}

// matchesSearch reports whether any editable field contains term.
// term must already be lowercased.
func matchesSearch(r *domain.Record, term string, lower cases.Caser) bool {
	for _, f := range domain.Fields {
		if strings.Contains(lower.String(r.Value(f)), term) {
			return true
		}
	}
	return false
}

// sortPositions orders positions by the string value of key. Descending
// negates the comparison so ties keep input order in both directions.
func sortPositions(records []domain.Record, positions []int, key domain.Field, dir domain.SortDirection) {
	sign := 1
	if dir == domain.SortDescending {
		sign = -1
	}
	slices.SortStableFunc(positions, func(a, b int) int {
		return sign * strings.Compare(records[a].Value(key), records[b].Value(key))
	})
}

// TotalPages returns ceil(n/pageSize); zero when there is nothing to show.
func TotalPages(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}

// PageBounds returns the half-open range [start, end) of page within n items.
// The page is not clamped; an out of range page yields an empty range.
func PageBounds(n, page, pageSize int) (start, end int) {
	start = min(max((page-1)*pageSize, 0), n)
	end = min(max(page*pageSize, 0), n)
	if end < start {
		end = start
	}
	return start, end
}

// ClampPage limits page to [1, max(1, totalPages)].
func ClampPage(page, totalPages int) int {
	return min(max(page, 1), max(totalPages, 1))
}

// windowSize is the number of page links offered around the current page.
const windowSize = 5

// PageWindow returns up to five consecutive page numbers around page,
// shifted so the window stays inside [1, totalPages].
func PageWindow(page, totalPages int) []int {
	n := min(windowSize, totalPages)
	if n <= 0 {
		return nil
	}
	first := max(1, min(page-2, totalPages-windowSize+1))
	out := make([]int, n)
	for i := range out {
		out[i] = first + i
	}
	return out
}
