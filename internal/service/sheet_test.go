package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksheet/booksheet-server/internal/config"
	"github.com/booksheet/booksheet-server/internal/domain"
	"github.com/booksheet/booksheet-server/internal/errors"
	"github.com/booksheet/booksheet-server/internal/metrics"
)

const booksCSV = "Title,Author,Genre,PublishedYear,ISBN\n" +
	"Dune,Frank Herbert,Science Fiction,1965,978-0-441-01359-3\n" +
	"Emma,Jane Austen,Romance,1815,978-0-14-143958-7\n" +
	"Untitled,,Mystery,2001,\n"

func setupTestSheets(t *testing.T) (*SheetService, *metrics.Metrics) {
	t.Helper()

	cfg := config.SheetConfig{
		PageSize:       50,
		SampleCount:    120,
		MaxSessions:    3,
		MaxUploadSize:  1 << 20,
		ExportFilename: "books_edited.csv",
	}
	m := metrics.New(nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewSheetService(cfg, m, logger)
	svc.newRand = func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }
	return svc, m
}

func TestCreateSheet_SeedsSamples(t *testing.T) {
	svc, m := setupTestSheets(t)

	sheetID, view, err := svc.CreateSheet(context.Background(), CreateSheetRequest{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sheetID, "sheet-"))
	assert.Equal(t, 120, view.Stats.TotalRows)
	assert.Equal(t, 3, view.Stats.TotalPages)
	assert.Len(t, view.Rows, 50)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(metrics.SourceSample, metrics.ResultOK)))
}

func TestCreateSheet_ExplicitCountAndEmpty(t *testing.T) {
	svc, _ := setupTestSheets(t)
	ctx := context.Background()

	_, view, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceSample, Count: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, view.Stats.TotalRows)

	_, view, err = svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty, Count: 7})
	require.NoError(t, err)
	assert.Equal(t, 0, view.Stats.TotalRows)
	assert.False(t, view.CanExport)
}

func TestCreateSheet_Validation(t *testing.T) {
	svc, _ := setupTestSheets(t)

	_, _, err := svc.CreateSheet(context.Background(), CreateSheetRequest{Source: "dropbox"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestCreateSheet_SessionLimit(t *testing.T) {
	svc, _ := setupTestSheets(t)
	ctx := context.Background()

	for range 3 {
		_, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
		require.NoError(t, err)
	}

	_, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflict)
	assert.Equal(t, 3, svc.OpenSheets())
}

func TestCreateSheet_LimitSkipsGeneration(t *testing.T) {
	svc, m := setupTestSheets(t)
	ctx := context.Background()

	for range 3 {
		_, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
		require.NoError(t, err)
	}

	generated := false
	svc.newRand = func() *rand.Rand {
		generated = true
		return rand.New(rand.NewPCG(1, 2))
	}

	_, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Count: 100000})
	assert.ErrorIs(t, err, errors.ErrConflict)
	assert.False(t, generated)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Loads.WithLabelValues(metrics.SourceSample, metrics.ResultOK)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RowsLoaded))
}

func TestCreateSheet_FreedSlotIsReusable(t *testing.T) {
	svc, m := setupTestSheets(t)
	ctx := context.Background()

	var ids []string
	for range 3 {
		sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
		require.NoError(t, err)
		ids = append(ids, sheetID)
	}
	require.NoError(t, svc.DeleteSheet(ctx, ids[0]))

	_, view, err := svc.CreateSheet(ctx, CreateSheetRequest{Count: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, view.Stats.TotalRows)
	assert.Equal(t, 3, svc.OpenSheets())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(metrics.SourceSample, metrics.ResultOK)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RowsLoaded))
}

func TestDeleteSheet(t *testing.T) {
	svc, m := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSheet(ctx, sheetID))
	assert.Equal(t, 0, svc.OpenSheets())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Sessions))

	_, err = svc.GetView(ctx, sheetID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteSheet(ctx, sheetID), errors.ErrNotFound)
}

func TestImportCSV(t *testing.T) {
	svc, m := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{})
	require.NoError(t, err)

	n, err := svc.ImportCSV(ctx, sheetID, strings.NewReader(booksCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	view, err := svc.GetView(ctx, sheetID)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Dune", view.Rows[0].Title)
	assert.Equal(t, 1, view.Rows[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(metrics.SourceImport, metrics.ResultOK)))
}

func TestImportCSV_ParseError(t *testing.T) {
	svc, m := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Count: 5})
	require.NoError(t, err)

	_, err = svc.ImportCSV(ctx, sheetID, strings.NewReader(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParse)

	view, err := svc.GetView(ctx, sheetID)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Stats.TotalRows)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(metrics.SourceImport, metrics.ResultError)))
}

func TestImportCSV_UnknownSheet(t *testing.T) {
	svc, _ := setupTestSheets(t)

	_, err := svc.ImportCSV(context.Background(), "sheet-missing", strings.NewReader(booksCSV))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestGenerate(t *testing.T) {
	svc, _ := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)

	n, err := svc.Generate(ctx, sheetID, GenerateRequest{Count: 60})
	require.NoError(t, err)
	assert.Equal(t, 60, n)

	_, err = svc.Generate(ctx, sheetID, GenerateRequest{Count: 0})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestSetQuery(t *testing.T) {
	svc, _ := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)
	_, err = svc.ImportCSV(ctx, sheetID, strings.NewReader(booksCSV))
	require.NoError(t, err)

	view, err := svc.SetQuery(ctx, sheetID, QueryRequest{
		SortKey:       "title",
		SortDirection: "desc",
		Page:          9,
	})
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Emma", view.Rows[0].Title)
	assert.Equal(t, domain.FieldTitle, view.Query.SortKey)
	assert.Equal(t, 1, view.Query.Page)

	view, err = svc.SetQuery(ctx, sheetID, QueryRequest{Search: "AUSTEN"})
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Emma", view.Rows[0].Title)

	_, err = svc.SetQuery(ctx, sheetID, QueryRequest{SortKey: "Publisher"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestToggleSort(t *testing.T) {
	svc, _ := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)

	view, err := svc.ToggleSort(ctx, sheetID, ToggleSortRequest{Field: "Author"})
	require.NoError(t, err)
	assert.Equal(t, domain.SortAscending, view.Query.SortDirection)

	view, err = svc.ToggleSort(ctx, sheetID, ToggleSortRequest{Field: "author"})
	require.NoError(t, err)
	assert.Equal(t, domain.SortDescending, view.Query.SortDirection)
}

func TestSetPage(t *testing.T) {
	svc, _ := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{})
	require.NoError(t, err)

	view, err := svc.SetPage(ctx, sheetID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Stats.CurrentPage)
	assert.Len(t, view.Rows, 20)
	assert.Equal(t, 101, view.RangeStart)
	assert.Equal(t, 120, view.RangeEnd)

	view, err = svc.SetPage(ctx, sheetID, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Stats.CurrentPage)
}

func TestEditCellAndReset(t *testing.T) {
	svc, m := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)
	_, err = svc.ImportCSV(ctx, sheetID, strings.NewReader(booksCSV))
	require.NoError(t, err)

	applied, err := svc.EditCell(ctx, sheetID, EditCellRequest{Row: 1, Field: "Title", Value: "Persuasion"})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.EditCell(ctx, sheetID, EditCellRequest{Row: 5, Field: "Title", Value: "Nobody"})
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = svc.EditCell(ctx, sheetID, EditCellRequest{Row: 0, Field: "Publisher"})
	assert.ErrorIs(t, err, errors.ErrValidation)

	view, err := svc.GetView(ctx, sheetID)
	require.NoError(t, err)
	assert.Equal(t, "Persuasion", view.Rows[1].Title)
	assert.True(t, view.Rows[1].IsModified)
	assert.True(t, view.CanReset)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Edits.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Edits.WithLabelValues("false")))

	view, err = svc.Reset(ctx, sheetID)
	require.NoError(t, err)
	assert.Equal(t, "Emma", view.Rows[1].Title)
	assert.Equal(t, 0, view.Stats.ModifiedCount)
	assert.False(t, view.CanReset)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resets))
}

func TestExport(t *testing.T) {
	svc, _ := setupTestSheets(t)
	ctx := context.Background()

	sheetID, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)
	_, err = svc.ImportCSV(ctx, sheetID, strings.NewReader(booksCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, sheetID, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Title,Author,Genre,PublishedYear,ISBN\n"))
	assert.Contains(t, out, "Dune,Frank Herbert")
	assert.NotContains(t, out, "Untitled")
}

func TestExportFilename(t *testing.T) {
	svc, _ := setupTestSheets(t)

	assert.Equal(t, "books_edited.csv", svc.ExportFilename(""))
	assert.Equal(t, "mine.csv", svc.ExportFilename("mine.csv"))
}

func TestExpireIdle(t *testing.T) {
	svc, m := setupTestSheets(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)
	fresh, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)

	now = now.Add(90 * time.Minute)
	_, err = svc.GetView(ctx, fresh)
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 0, svc.ExpireIdle(ctx, 0), "zero ttl disables expiry")
	assert.Equal(t, 1, svc.ExpireIdle(ctx, 2*time.Hour))

	_, err = svc.GetSheet(stale)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = svc.GetSheet(fresh)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
}

func TestShutdown(t *testing.T) {
	svc, _ := setupTestSheets(t)
	ctx := context.Background()

	_, _, err := svc.CreateSheet(ctx, CreateSheetRequest{Source: SourceEmpty})
	require.NoError(t, err)

	require.NoError(t, svc.Shutdown())
	assert.Equal(t, 0, svc.OpenSheets())
}
