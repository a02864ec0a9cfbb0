// Package sheet holds an editable book collection and derives the paginated
// view shown to a client.
//
// A Sheet keeps two collections: current, which edits write into, and
// baseline, the snapshot taken when current was last loaded. Baseline is only
// ever replaced wholesale. All methods are safe for concurrent use; the mutex
// serializes events the way a single UI loop would.
package sheet

import (
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/booksheet/booksheet-server/internal/bookcsv"
	"github.com/booksheet/booksheet-server/internal/domain"
	"github.com/booksheet/booksheet-server/internal/errors"
	"github.com/booksheet/booksheet-server/internal/generator"
)

// DefaultPageSize is the number of rows per page when none is configured.
const DefaultPageSize = 50

// Sheet is the record store and query state of one editing session.
type Sheet struct {
	mu       sync.Mutex
	current  []domain.Record
	baseline []domain.Record
	query    domain.Query
	pageSize int

	// loading is set while an import or generation is pending.
	loading atomic.Bool
}

// New creates an empty sheet. A non-positive pageSize uses DefaultPageSize.
func New(pageSize int) *Sheet {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Sheet{
		query:    domain.DefaultQuery(),
		pageSize: pageSize,
	}
}

// PageSize returns the fixed number of rows per page.
func (s *Sheet) PageSize() int {
	return s.pageSize
}

// Normalize turns raw rows into records. Rows without both a Title and an
// Author are dropped; IDs are 1-based positions among the kept rows.
func Normalize(rows []domain.RawRow) []domain.Record {
	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		title, author := row[string(domain.FieldTitle)], row[string(domain.FieldAuthor)]
		if title == "" || author == "" {
			continue
		}
		records = append(records, domain.Record{
			ID:            len(records) + 1,
			Title:         title,
			Author:        author,
			Genre:         row[string(domain.FieldGenre)],
			PublishedYear: row[string(domain.FieldPublishedYear)],
			ISBN:          row[string(domain.FieldISBN)],
		})
	}
	return records
}

// Load replaces current and baseline with the normalized rows and returns
// to page 1. It returns the number of records kept.
func (s *Sheet) Load(rows []domain.RawRow) int {
	records := Normalize(rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(records)
	return len(records)
}

// ImportCSV parses r and loads it. Parsing happens outside the lock; only one
// load may be pending at a time and a concurrent one fails with
// errors.ErrLoadInProgress. On a parse error the sheet is left unchanged.
func (s *Sheet) ImportCSV(r io.Reader) (int, error) {
	if err := s.beginLoad(); err != nil {
		return 0, err
	}
	defer s.loading.Store(false)

	rows, err := bookcsv.Parse(r)
	if err != nil {
		return 0, err
	}
	return s.Load(rows), nil
}

// Generate loads count synthetic records drawn from rng.
func (s *Sheet) Generate(count int, rng *rand.Rand) (int, error) {
	if count <= 0 {
		return 0, errors.Validationf("count must be positive, got %d", count)
	}
	if err := s.beginLoad(); err != nil {
		return 0, err
	}
	defer s.loading.Store(false)

	return s.Load(generator.Generate(count, rng)), nil
}

// Loading reports whether an import or generation is pending.
func (s *Sheet) Loading() bool {
	return s.loading.Load()
}

func (s *Sheet) beginLoad() error {
	if !s.loading.CompareAndSwap(false, true) {
		return errors.ErrLoadInProgress
	}
	return nil
}

func (s *Sheet) replaceLocked(records []domain.Record) {
	s.current = records
	s.baseline = domain.CloneRecords(records)
	s.query.Page = 1
}

// EditField overwrites field on the record shown at row index of the current
// page and flags it modified, even when the value is unchanged. It reports
// false, changing nothing, when no record is shown at that position.
func (s *Sheet) EditField(index int, field domain.Field, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.resolveTarget(index)
	if !ok {
		return false
	}
	r := &s.current[pos]
	if !r.Set(field, value) {
		return false
	}
	r.IsModified = true
	return true
}

// resolveTarget maps a page-relative row index to a position in current by
// running the same pipeline the view is built from. Callers hold s.mu.
func (s *Sheet) resolveTarget(index int) (int, bool) {
	if index < 0 || index >= s.pageSize {
		return 0, false
	}
	positions, page, _ := s.deriveLocked()
	abs := (page-1)*s.pageSize + index
	if abs >= len(positions) {
		return 0, false
	}
	return positions[abs], true
}

// deriveLocked computes the filtered and sorted positions and clamps the
// stored page to the resulting page count.
func (s *Sheet) deriveLocked() (positions []int, page, totalPages int) {
	positions = Derive(s.current, s.query)
	totalPages = TotalPages(len(positions), s.pageSize)
	s.query.Page = ClampPage(s.query.Page, totalPages)
	return positions, s.query.Page, totalPages
}

// Reset discards every edit by copying baseline over current.
func (s *Sheet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = domain.CloneRecords(s.baseline)
	s.query.Page = 1
}

// Query returns the current query state.
func (s *Sheet) Query() domain.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetQuery replaces the whole query state. The page is clamped to the pages
// the new query produces.
func (s *Sheet) SetQuery(q domain.Query) domain.Query {
	if q.SortDirection == "" {
		q.SortDirection = domain.SortAscending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
	s.deriveLocked()
	return s.query
}

// SetSearch changes the search term.
func (s *Sheet) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Search = term
}

// SetGenre changes the genre filter; empty clears it.
func (s *Sheet) SetGenre(genre string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Genre = genre
}

// ToggleSort sorts by field ascending, or flips the direction when field is
// already the sort key.
func (s *Sheet) ToggleSort(field domain.Field) domain.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query.SortKey == field {
		s.query.SortDirection = s.query.SortDirection.Toggle()
	} else {
		s.query.SortKey = field
		s.query.SortDirection = domain.SortAscending
	}
	return s.query
}

// SetPage moves to page, clamped to the available pages, and returns the
// page actually selected.
func (s *Sheet) SetPage(page int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Page = page
	_, page, _ = s.deriveLocked()
	return page
}

// View is the derived, paginated state of a sheet.
type View struct {
	Rows       []domain.Record `json:"rows"`
	Query      domain.Query    `json:"query"`
	PageSize   int             `json:"page_size"`
	Stats      Stats           `json:"stats"`
	RangeStart int             `json:"range_start"` // 1-based first row shown, 0 when empty
	RangeEnd   int             `json:"range_end"`
	PageWindow []int           `json:"page_window"`
	Genres     []string        `json:"genres"`
	CanReset   bool            `json:"can_reset"`
	CanExport  bool            `json:"can_export"`
}

// View derives the visible page from current and the query state.
func (s *Sheet) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions, page, totalPages := s.deriveLocked()
	start, end := PageBounds(len(positions), page, s.pageSize)

	rows := make([]domain.Record, 0, end-start)
	for _, pos := range positions[start:end] {
		rows = append(rows, s.current[pos])
	}

	modified := ModifiedCount(s.current)
	filtered := len(positions)
	return View{
		Rows:     rows,
		Query:    s.query,
		PageSize: s.pageSize,
		Stats: Stats{
			TotalRows:     len(s.current),
			FilteredRows:  filtered,
			CurrentPage:   page,
			TotalPages:    totalPages,
			ModifiedCount: modified,
		},
		RangeStart: min((page-1)*s.pageSize+1, filtered),
		RangeEnd:   min(page*s.pageSize, filtered),
		PageWindow: PageWindow(page, totalPages),
		Genres:     UniqueGenres(s.current),
		CanReset:   modified > 0,
		CanExport:  len(s.current) > 0,
	}
}

// Records returns a copy of current in its original order.
func (s *Sheet) Records() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneRecords(s.current)
}

// Baseline returns a copy of the baseline snapshot.
func (s *Sheet) Baseline() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneRecords(s.baseline)
}

// Len returns the number of records in current.
func (s *Sheet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.current)
}

// ModifiedCount counts edited records in current.
func (s *Sheet) ModifiedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ModifiedCount(s.current)
}

// UniqueGenres lists the distinct genres of the unfiltered collection.
func (s *Sheet) UniqueGenres() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return UniqueGenres(s.current)
}

// Export writes current, unfiltered and in original order, as CSV.
func (s *Sheet) Export(w io.Writer) error {
	return bookcsv.Write(w, s.Records())
}
