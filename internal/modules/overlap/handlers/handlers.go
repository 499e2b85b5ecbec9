// Package handlers provides HTTP handlers for overlap analysis.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/fundoverlap/internal/modules/overlap"
	"github.com/aristath/fundoverlap/internal/utils"
	"github.com/rs/zerolog"
)

// AnalysisService runs overlap analyses
type AnalysisService interface {
	AnalyzeOverlapWithMode(ctx context.Context, fundIDs []string, mode overlap.MatchMode) (*overlap.OverlapReport, error)
	MatchMode() overlap.MatchMode
}

// Handler handles overlap HTTP requests
type Handler struct {
	service AnalysisService
	log     zerolog.Logger
}

// NewHandler creates a new overlap handler
func NewHandler(service AnalysisService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "overlap").Logger(),
	}
}

// AnalyzeRequest is the body of POST /api/overlap
type AnalyzeRequest struct {
	FundIDs   []string `json:"fund_ids"`
	MatchMode string   `json:"match_mode,omitempty"`
}

// SectorMatrix is the dense sector view returned next to the report
type SectorMatrix struct {
	FundIDs []string            `json:"fund_ids"`
	Rows    []overlap.SectorRow `json:"rows"`
}

// AnalyzeResponse is the report plus its dense sector matrix
type AnalyzeResponse struct {
	*overlap.OverlapReport
	SectorMatrix SectorMatrix `json:"sector_matrix"`
}

// HandleAnalyze handles POST /api/overlap
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.analyze(w, r, req.FundIDs, req.MatchMode)
}

// HandleAnalyzeQuery handles GET /api/overlap?funds=a,b,c&match_mode=name
func (h *Handler) HandleAnalyzeQuery(w http.ResponseWriter, r *http.Request) {
	fundIDs := utils.ParseCSV(r.URL.Query().Get("funds"))
	h.analyze(w, r, fundIDs, r.URL.Query().Get("match_mode"))
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, fundIDs []string, rawMode string) {
	mode := h.service.MatchMode()
	if rawMode != "" {
		parsed, err := overlap.ParseMatchMode(rawMode)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	report, err := h.service.AnalyzeOverlapWithMode(r.Context(), fundIDs, mode)
	if err != nil {
		if errors.Is(err, overlap.ErrInvalidSelection) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Strs("fund_ids", fundIDs).Msg("Overlap analysis failed")
		h.writeError(w, http.StatusInternalServerError, "Overlap analysis failed")
		return
	}

	h.writeJSON(w, http.StatusOK, AnalyzeResponse{
		OverlapReport: report,
		SectorMatrix: SectorMatrix{
			FundIDs: report.FundIDs,
			Rows:    report.SectorAllocation.Matrix(report.FundIDs),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
