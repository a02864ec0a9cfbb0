package api

import (
	"bytes"
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booksheet/booksheet-server/internal/bookcsv"
	"github.com/booksheet/booksheet-server/internal/service"
	"github.com/booksheet/booksheet-server/internal/sheet"
)

func (s *Server) registerSheetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createSheet",
		Method:        http.MethodPost,
		Path:          "/api/v1/sheets",
		Summary:       "Open sheet",
		Description:   "Opens a new editing session, seeded with sample records unless source is empty",
		Tags:          []string{"Sheets"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   huma.Middlewares{s.limitLoads},
	}, s.handleCreateSheet)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSheet",
		Method:      http.MethodGet,
		Path:        "/api/v1/sheets/{id}",
		Summary:     "Get sheet view",
		Description: "Returns the current page, stats, genres and query state",
		Tags:        []string{"Sheets"},
	}, s.handleGetSheet)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteSheet",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sheets/{id}",
		Summary:       "Close sheet",
		Description:   "Drops the sheet and all of its records",
		Tags:          []string{"Sheets"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteSheet)

	huma.Register(s.api, huma.Operation{
		OperationID: "setSheetQuery",
		Method:      http.MethodPut,
		Path:        "/api/v1/sheets/{id}/query",
		Summary:     "Set query",
		Description: "Replaces search term, genre filter, sort and page",
		Tags:        []string{"Sheets"},
	}, s.handleSetQuery)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleSheetSort",
		Method:      http.MethodPost,
		Path:        "/api/v1/sheets/{id}/sort",
		Summary:     "Toggle sort",
		Description: "Sorts ascending by a column, or flips direction if it is already the sort column",
		Tags:        []string{"Sheets"},
	}, s.handleToggleSort)

	huma.Register(s.api, huma.Operation{
		OperationID: "setSheetPage",
		Method:      http.MethodPut,
		Path:        "/api/v1/sheets/{id}/page",
		Summary:     "Set page",
		Description: "Moves to a page; out of range pages are clamped",
		Tags:        []string{"Sheets"},
	}, s.handleSetPage)

	huma.Register(s.api, huma.Operation{
		OperationID:  "importSheetCSV",
		Method:       http.MethodPost,
		Path:         "/api/v1/sheets/{id}/import",
		Summary:      "Import CSV",
		Description:  "Replaces the sheet's records and baseline with the uploaded CSV",
		Tags:         []string{"Sheets"},
		MaxBodyBytes: s.cfg.Sheet.MaxUploadSize,
		Middlewares:  huma.Middlewares{s.limitLoads},
	}, s.handleImportCSV)

	huma.Register(s.api, huma.Operation{
		OperationID: "generateSheetSamples",
		Method:      http.MethodPost,
		Path:        "/api/v1/sheets/{id}/generate",
		Summary:     "Generate samples",
		Description: "Replaces the sheet's records and baseline with generated sample books",
		Tags:        []string{"Sheets"},
		Middlewares: huma.Middlewares{s.limitLoads},
	}, s.handleGenerate)

	huma.Register(s.api, huma.Operation{
		OperationID: "editSheetCell",
		Method:      http.MethodPatch,
		Path:        "/api/v1/sheets/{id}/cells",
		Summary:     "Edit cell",
		Description: "Overwrites one field of the record shown at a row of the current page",
		Tags:        []string{"Sheets"},
	}, s.handleEditCell)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetSheet",
		Method:      http.MethodPost,
		Path:        "/api/v1/sheets/{id}/reset",
		Summary:     "Reset edits",
		Description: "Restores every record to the last loaded baseline",
		Tags:        []string{"Sheets"},
	}, s.handleReset)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportSheetCSV",
		Method:      http.MethodGet,
		Path:        "/api/v1/sheets/{id}/export",
		Summary:     "Export CSV",
		Description: "Downloads all current records, unfiltered and in load order",
		Tags:        []string{"Sheets"},
	}, s.handleExportCSV)
}

// SheetIDInput identifies a sheet.
type SheetIDInput struct {
	ID string `path:"id" doc:"Sheet ID"`
}

// SheetResponse is a sheet's ID and derived view.
type SheetResponse struct {
	ID   string     `json:"id" doc:"Sheet ID"`
	View sheet.View `json:"view" doc:"Current page, stats and query state"`
}

// SheetOutput wraps a sheet response for Huma.
type SheetOutput struct {
	Body SheetResponse
}

// CreateSheetInput contains the sheet creation request.
type CreateSheetInput struct {
	Body struct {
		Source string `json:"source,omitempty" enum:"sample,empty" doc:"Initial records: sample (default) or empty"`
		Count  int    `json:"count,omitempty" minimum:"0" maximum:"100000" doc:"Sample size; 0 uses the server default"`
	} `required:"false"`
}

func (s *Server) handleCreateSheet(ctx context.Context, input *CreateSheetInput) (*SheetOutput, error) {
	sheetID, view, err := s.sheets.CreateSheet(ctx, service.CreateSheetRequest{
		Source: input.Body.Source,
		Count:  input.Body.Count,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &SheetOutput{Body: SheetResponse{ID: sheetID, View: view}}, nil
}

func (s *Server) handleGetSheet(ctx context.Context, input *SheetIDInput) (*SheetOutput, error) {
	view, err := s.sheets.GetView(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &SheetOutput{Body: SheetResponse{ID: input.ID, View: view}}, nil
}

func (s *Server) handleDeleteSheet(ctx context.Context, input *SheetIDInput) (*struct{}, error) {
	if err := s.sheets.DeleteSheet(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

// SetQueryInput contains the query replacement request.
type SetQueryInput struct {
	ID   string `path:"id" doc:"Sheet ID"`
	Body struct {
		Search        string `json:"search,omitempty" maxLength:"500" doc:"Case-insensitive substring matched against every column"`
		Genre         string `json:"genre,omitempty" doc:"Exact genre; empty for all genres"`
		SortKey       string `json:"sort_key,omitempty" doc:"Column to sort by; empty keeps load order"`
		SortDirection string `json:"sort_direction,omitempty" doc:"asc or desc"`
		Page          int    `json:"page,omitempty" minimum:"0" doc:"1-based page; 0 means the first page"`
	}
}

func (s *Server) handleSetQuery(ctx context.Context, input *SetQueryInput) (*SheetOutput, error) {
	view, err := s.sheets.SetQuery(ctx, input.ID, service.QueryRequest{
		Search:        input.Body.Search,
		Genre:         input.Body.Genre,
		SortKey:       input.Body.SortKey,
		SortDirection: input.Body.SortDirection,
		Page:          input.Body.Page,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &SheetOutput{Body: SheetResponse{ID: input.ID, View: view}}, nil
}

// ToggleSortInput contains the sort toggle request.
type ToggleSortInput struct {
	ID   string `path:"id" doc:"Sheet ID"`
	Body struct {
		Field string `json:"field" doc:"Column: Title, Author, Genre, PublishedYear or ISBN"`
	}
}

func (s *Server) handleToggleSort(ctx context.Context, input *ToggleSortInput) (*SheetOutput, error) {
	view, err := s.sheets.ToggleSort(ctx, input.ID, service.ToggleSortRequest{Field: input.Body.Field})
	if err != nil {
		return nil, apiError(err)
	}
	return &SheetOutput{Body: SheetResponse{ID: input.ID, View: view}}, nil
}

// SetPageInput contains the page change request.
type SetPageInput struct {
	ID   string `path:"id" doc:"Sheet ID"`
	Body struct {
		Page int `json:"page" doc:"1-based page number"`
	}
}

func (s *Server) handleSetPage(ctx context.Context, input *SetPageInput) (*SheetOutput, error) {
	view, err := s.sheets.SetPage(ctx, input.ID, input.Body.Page)
	if err != nil {
		return nil, apiError(err)
	}
	return &SheetOutput{Body: SheetResponse{ID: input.ID, View: view}}, nil
}

// ImportCSVInput carries a raw CSV upload.
type ImportCSVInput struct {
	ID      string `path:"id" doc:"Sheet ID"`
	RawBody []byte `contentType:"text/csv"`
}

// LoadResponse reports how many records a load kept.
type LoadResponse struct {
	ID   string     `json:"id" doc:"Sheet ID"`
	Rows int        `json:"rows" doc:"Records retained after dropping rows without a title or author"`
	View sheet.View `json:"view" doc:"View after the load"`
}

// LoadOutput wraps a load response for Huma.
type LoadOutput struct {
	Body LoadResponse
}

func (s *Server) handleImportCSV(ctx context.Context, input *ImportCSVInput) (*LoadOutput, error) {
	n, err := s.sheets.ImportCSV(ctx, input.ID, bytes.NewReader(input.RawBody))
	if err != nil {
		return nil, apiError(err)
	}
	return s.loadOutput(ctx, input.ID, n)
}

// GenerateInput contains the sample generation request.
type GenerateInput struct {
	ID   string `path:"id" doc:"Sheet ID"`
	Body struct {
		Count int `json:"count" minimum:"1" maximum:"100000" doc:"Number of sample books"`
	}
}

func (s *Server) handleGenerate(ctx context.Context, input *GenerateInput) (*LoadOutput, error) {
	n, err := s.sheets.Generate(ctx, input.ID, service.GenerateRequest{Count: input.Body.Count})
	if err != nil {
		return nil, apiError(err)
	}
	return s.loadOutput(ctx, input.ID, n)
}

func (s *Server) loadOutput(ctx context.Context, sheetID string, rows int) (*LoadOutput, error) {
	view, err := s.sheets.GetView(ctx, sheetID)
	if err != nil {
		return nil, apiError(err)
	}
	return &LoadOutput{Body: LoadResponse{ID: sheetID, Rows: rows, View: view}}, nil
}

// EditCellInput contains the cell edit request.
type EditCellInput struct {
	ID   string `path:"id" doc:"Sheet ID"`
	Body struct {
		Row   int    `json:"row" doc:"0-based row on the current page"`
		Field string `json:"field" doc:"Column: Title, Author, Genre, PublishedYear or ISBN"`
		Value string `json:"value" doc:"New cell value"`
	}
}

// EditCellResponse reports whether an edit landed.
type EditCellResponse struct {
	Applied bool       `json:"applied" doc:"False when no record is shown at the row"`
	View    sheet.View `json:"view" doc:"View after the edit"`
}

// EditCellOutput wraps an edit response for Huma.
type EditCellOutput struct {
	Body EditCellResponse
}

func (s *Server) handleEditCell(ctx context.Context, input *EditCellInput) (*EditCellOutput, error) {
	applied, err := s.sheets.EditCell(ctx, input.ID, service.EditCellRequest{
		Row:   input.Body.Row,
		Field: input.Body.Field,
		Value: input.Body.Value,
	})
	if err != nil {
		return nil, apiError(err)
	}

	view, err := s.sheets.GetView(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &EditCellOutput{Body: EditCellResponse{Applied: applied, View: view}}, nil
}

func (s *Server) handleReset(ctx context.Context, input *SheetIDInput) (*SheetOutput, error) {
	view, err := s.sheets.Reset(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &SheetOutput{Body: SheetResponse{ID: input.ID, View: view}}, nil
}

// ExportCSVInput contains the export request.
type ExportCSVInput struct {
	ID       string `path:"id" doc:"Sheet ID"`
	Filename string `query:"filename" maxLength:"255" doc:"Download file name (default books_edited.csv)"`
}

// CSVOutput is a CSV attachment.
type CSVOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func (s *Server) handleExportCSV(ctx context.Context, input *ExportCSVInput) (*CSVOutput, error) {
	var buf bytes.Buffer
	if err := s.sheets.Export(ctx, input.ID, &buf); err != nil {
		return nil, apiError(err)
	}

	filename := s.sheets.ExportFilename(sanitizeFilename(input.Filename))
	return &CSVOutput{
		ContentType:        bookcsv.ContentType,
		ContentDisposition: `attachment; filename="` + filename + `"`,
		Body:               buf.Bytes(),
	}, nil
}

// sanitizeFilename keeps the base name and drops characters that would break
// the Content-Disposition header.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' || r == '\\' {
			return -1
		}
		return r
	}, name)
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
