package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status and open sheet count",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string `json:"status" doc:"Overall status: healthy or degraded"`
	Version    string `json:"version" doc:"Server version"`
	OpenSheets int    `json:"open_sheets" doc:"Sheets currently held in memory"`
	MaxSheets  int    `json:"max_sheets" doc:"Configured sheet limit"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	open := s.sheets.OpenSheets()
	limit := s.cfg.Sheet.MaxSessions

	// At the limit no new sheet can be opened.
	status := "healthy"
	if open >= limit {
		status = "degraded"
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     status,
			Version:    Version,
			OpenSheets: open,
			MaxSheets:  limit,
		},
	}, nil
}
