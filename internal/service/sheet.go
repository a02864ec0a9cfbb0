package service

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/booksheet/booksheet-server/internal/config"
	"github.com/booksheet/booksheet-server/internal/domain"
	"github.com/booksheet/booksheet-server/internal/errors"
	"github.com/booksheet/booksheet-server/internal/generator"
	"github.com/booksheet/booksheet-server/internal/id"
	"github.com/booksheet/booksheet-server/internal/metrics"
	"github.com/booksheet/booksheet-server/internal/sheet"
	"github.com/booksheet/booksheet-server/internal/validation"
)

// Sheet sources for CreateSheetRequest.
const (
	SourceSample = "sample"
	SourceEmpty  = "empty"
)

// openSheet is a sheet plus the last time a request touched it.
type openSheet struct {
	*sheet.Sheet
	lastUsed atomic.Int64 // unix nanoseconds
}

// SheetService owns the open sheets, one per editing session.
type SheetService struct {
	mu     sync.RWMutex
	sheets map[string]*openSheet
	// reserved counts sheets being created that are not yet in sheets.
	reserved int

	cfg       config.SheetConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
	validator *validation.Validator

	// newRand supplies the random source for each generation.
	newRand func() *rand.Rand
	now     func() time.Time
}

// NewSheetService creates a sheet service.
func NewSheetService(cfg config.SheetConfig, m *metrics.Metrics, logger *slog.Logger) *SheetService {
	if m == nil {
		m = metrics.New(nil)
	}
	return &SheetService{
		sheets:    make(map[string]*openSheet),
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		validator: validation.New(),
		newRand:   generator.NewRand,
		now:       time.Now,
	}
}

// CreateSheetRequest contains fields for opening a sheet.
type CreateSheetRequest struct {
	Source string `json:"source" validate:"omitempty,oneof=sample empty"`
	Count  int    `json:"count" validate:"gte=0,max=100000"`
}

// CreateSheet opens a new sheet. Sample sheets are seeded with Count
// generated records, or the configured sample count when Count is zero.
func (s *SheetService) CreateSheet(ctx context.Context, req CreateSheetRequest) (string, sheet.View, error) {
	if err := s.validator.Validate(req); err != nil {
		return "", sheet.View{}, err
	}

	sheetID, err := id.NewSheetID()
	if err != nil {
		return "", sheet.View{}, errors.Wrap(err, errors.CodeInternal, "failed to allocate sheet id")
	}

	if err := s.reserveSlot(); err != nil {
		return "", sheet.View{}, err
	}

	sh := sheet.New(s.cfg.PageSize)
	seeded := 0
	if req.Source != SourceEmpty {
		count := req.Count
		if count == 0 {
			count = s.cfg.SampleCount
		}
		if count > 0 {
			n, err := sh.Generate(count, s.newRand())
			if err != nil {
				s.releaseSlot()
				s.metrics.ObserveLoad(metrics.SourceSample, metrics.ResultError, 0)
				return "", sheet.View{}, err
			}
			seeded = n
		}
	}

	entry := &openSheet{Sheet: sh}
	entry.lastUsed.Store(s.now().UnixNano())

	s.mu.Lock()
	s.reserved--
	s.sheets[sheetID] = entry
	open := len(s.sheets)
	s.mu.Unlock()

	if seeded > 0 {
		s.metrics.ObserveLoad(metrics.SourceSample, metrics.ResultOK, seeded)
	}
	s.metrics.Sessions.Set(float64(open))
	s.logger.InfoContext(ctx, "sheet created",
		"sheet_id", sheetID,
		"source", req.Source,
		"rows", sh.Len(),
	)

	return sheetID, s.view(sh), nil
}

// reserveSlot claims room for one more sheet under the MaxSessions cap.
// Every successful call is matched by an insert or by releaseSlot.
func (s *SheetService) reserveSlot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sheets)+s.reserved >= s.cfg.MaxSessions {
		return errors.Conflict("too many open sheets")
	}
	s.reserved++
	return nil
}

func (s *SheetService) releaseSlot() {
	s.mu.Lock()
	s.reserved--
	s.mu.Unlock()
}

// GetSheet returns the sheet with the given ID and marks it as used.
func (s *SheetService) GetSheet(sheetID string) (*sheet.Sheet, error) {
	s.mu.RLock()
	entry, ok := s.sheets[sheetID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFoundf("sheet %s not found", sheetID)
	}
	entry.lastUsed.Store(s.now().UnixNano())
	return entry.Sheet, nil
}

// DeleteSheet drops a sheet and everything in it.
func (s *SheetService) DeleteSheet(ctx context.Context, sheetID string) error {
	s.mu.Lock()
	if _, ok := s.sheets[sheetID]; !ok {
		s.mu.Unlock()
		return errors.NotFoundf("sheet %s not found", sheetID)
	}
	delete(s.sheets, sheetID)
	open := len(s.sheets)
	s.mu.Unlock()

	s.metrics.Sessions.Set(float64(open))
	s.logger.InfoContext(ctx, "sheet deleted", "sheet_id", sheetID)
	return nil
}

// ExpireIdle drops sheets no request has touched within ttl and returns how
// many were dropped. A non-positive ttl expires nothing.
func (s *SheetService) ExpireIdle(ctx context.Context, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl).UnixNano()

	s.mu.Lock()
	var expired []string
	for sheetID, entry := range s.sheets {
		if entry.lastUsed.Load() < cutoff {
			delete(s.sheets, sheetID)
			expired = append(expired, sheetID)
		}
	}
	open := len(s.sheets)
	s.mu.Unlock()

	if len(expired) > 0 {
		s.metrics.Sessions.Set(float64(open))
		s.logger.InfoContext(ctx, "idle sheets expired",
			"count", len(expired),
			"open", open,
			"ttl", ttl,
		)
	}
	return len(expired)
}

// OpenSheets returns the number of open sheets.
func (s *SheetService) OpenSheets() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sheets)
}

// GetView returns the derived view of a sheet.
func (s *SheetService) GetView(_ context.Context, sheetID string) (sheet.View, error) {
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return sheet.View{}, err
	}
	return s.view(sh), nil
}

func (s *SheetService) view(sh *sheet.Sheet) sheet.View {
	defer s.metrics.ObserveView(time.Now())
	return sh.View()
}

// QueryRequest replaces the query state of a sheet.
type QueryRequest struct {
	Search        string `json:"search" validate:"max=500"`
	Genre         string `json:"genre" validate:"max=200"`
	SortKey       string `json:"sort_key" validate:"omitempty,bookfield"`
	SortDirection string `json:"sort_direction" validate:"omitempty,sortdir"`
	Page          int    `json:"page" validate:"gte=0"`
}

// SetQuery applies search, genre filter, sort and page in one step and
// returns the resulting view. A zero page means page 1.
func (s *SheetService) SetQuery(_ context.Context, sheetID string, req QueryRequest) (sheet.View, error) {
	if err := s.validator.Validate(req); err != nil {
		return sheet.View{}, err
	}
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return sheet.View{}, err
	}

	q := domain.Query{
		Search: req.Search,
		Genre:  req.Genre,
		Page:   max(req.Page, 1),
	}
	if req.SortKey != "" {
		// Both already passed validation.
		q.SortKey, _ = domain.ParseField(req.SortKey)
		q.SortDirection, _ = domain.ParseSortDirection(req.SortDirection)
	}

	sh.SetQuery(q)
	return s.view(sh), nil
}

// ToggleSortRequest selects a sort column.
type ToggleSortRequest struct {
	Field string `json:"field" validate:"required,bookfield"`
}

// ToggleSort sorts by the field, flipping direction when it is already the
// sort key.
func (s *SheetService) ToggleSort(_ context.Context, sheetID string, req ToggleSortRequest) (sheet.View, error) {
	if err := s.validator.Validate(req); err != nil {
		return sheet.View{}, err
	}
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return sheet.View{}, err
	}

	field, _ := domain.ParseField(req.Field)
	sh.ToggleSort(field)
	return s.view(sh), nil
}

// SetPage moves to a page; out-of-range pages are clamped.
func (s *SheetService) SetPage(_ context.Context, sheetID string, page int) (sheet.View, error) {
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return sheet.View{}, err
	}
	sh.SetPage(page)
	return s.view(sh), nil
}

// ImportCSV replaces a sheet's records with the parsed CSV. The reader is
// consumed outside the sheet lock; a failed parse leaves the sheet as it was.
func (s *SheetService) ImportCSV(ctx context.Context, sheetID string, r io.Reader) (int, error) {
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	n, err := sh.ImportCSV(r)
	if err != nil {
		s.observeLoadError(ctx, sheetID, metrics.SourceImport, err)
		return 0, err
	}

	s.metrics.ObserveLoad(metrics.SourceImport, metrics.ResultOK, n)
	s.logger.InfoContext(ctx, "csv imported",
		"sheet_id", sheetID,
		"rows", n,
		"duration", time.Since(start),
	)
	return n, nil
}

// GenerateRequest asks for a fresh batch of sample records.
type GenerateRequest struct {
	Count int `json:"count" validate:"min=1,max=100000"`
}

// Generate replaces a sheet's records with generated samples.
func (s *SheetService) Generate(ctx context.Context, sheetID string, req GenerateRequest) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		return 0, err
	}
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return 0, err
	}

	n, err := sh.Generate(req.Count, s.newRand())
	if err != nil {
		s.observeLoadError(ctx, sheetID, metrics.SourceGenerate, err)
		return 0, err
	}

	s.metrics.ObserveLoad(metrics.SourceGenerate, metrics.ResultOK, n)
	s.logger.InfoContext(ctx, "samples generated", "sheet_id", sheetID, "rows", n)
	return n, nil
}

func (s *SheetService) observeLoadError(ctx context.Context, sheetID, source string, err error) {
	result := metrics.ResultError
	if errors.Is(err, errors.ErrConflict) {
		result = metrics.ResultConflict
	}
	s.metrics.ObserveLoad(source, result, 0)
	s.logger.WarnContext(ctx, "load failed",
		"sheet_id", sheetID,
		"source", source,
		"error", err,
	)
}

// EditCellRequest overwrites one cell of the visible page.
type EditCellRequest struct {
	Row   int    `json:"row" validate:"gte=0"`
	Field string `json:"field" validate:"required,bookfield"`
	Value string `json:"value" validate:"max=1000"`
}

// EditCell writes the value into the record shown at row of the current
// page. It reports false when no record is shown there.
func (s *SheetService) EditCell(ctx context.Context, sheetID string, req EditCellRequest) (bool, error) {
	if err := s.validator.Validate(req); err != nil {
		return false, err
	}
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return false, err
	}

	field, _ := domain.ParseField(req.Field)
	applied := sh.EditField(req.Row, field, req.Value)
	s.metrics.ObserveEdit(applied)
	if !applied {
		s.logger.DebugContext(ctx, "edit ignored",
			"sheet_id", sheetID,
			"row", req.Row,
			"error", errors.ErrPosition,
		)
	}
	return applied, nil
}

// Reset discards all edits in a sheet.
func (s *SheetService) Reset(ctx context.Context, sheetID string) (sheet.View, error) {
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return sheet.View{}, err
	}
	sh.Reset()
	s.metrics.Resets.Inc()
	s.logger.InfoContext(ctx, "sheet reset", "sheet_id", sheetID)
	return s.view(sh), nil
}

// Export writes the sheet's current records as CSV.
func (s *SheetService) Export(ctx context.Context, sheetID string, w io.Writer) error {
	sh, err := s.GetSheet(sheetID)
	if err != nil {
		return err
	}
	if err := sh.Export(w); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "failed to write csv for sheet %s", sheetID)
	}
	s.logger.DebugContext(ctx, "sheet exported", "sheet_id", sheetID, "rows", sh.Len())
	return nil
}

// ExportFilename returns name, or the configured default when name is empty.
func (s *SheetService) ExportFilename(name string) string {
	if name == "" {
		return s.cfg.ExportFilename
	}
	return name
}

// Shutdown drops every open sheet.
func (s *SheetService) Shutdown() error {
	s.mu.Lock()
	n := len(s.sheets)
	clear(s.sheets)
	s.mu.Unlock()

	s.metrics.Sessions.Set(0)
	s.logger.Info("sheets closed", "count", n)
	return nil
}
