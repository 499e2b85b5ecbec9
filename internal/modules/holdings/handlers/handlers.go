// Package handlers provides HTTP handlers for the fund catalog.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/fundoverlap/internal/domain"
	"github.com/aristath/fundoverlap/internal/modules/holdings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles fund catalog HTTP requests
type Handler struct {
	repo     *holdings.Repository
	resolver domain.HoldingsResolver
	log      zerolog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(repo *holdings.Repository, resolver domain.HoldingsResolver, log zerolog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		resolver: resolver,
		log:      log.With().Str("handler", "funds").Logger(),
	}
}

// HandleListFunds handles GET /api/funds
func (h *Handler) HandleListFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := h.repo.ListFunds()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list funds")
		h.writeError(w, http.StatusInternalServerError, "Failed to list funds")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"funds": funds,
		"count": len(funds),
	})
}

// HandleUpsertFund handles POST /api/funds
func (h *Handler) HandleUpsertFund(w http.ResponseWriter, r *http.Request) {
	var fund holdings.Fund
	if err := json.NewDecoder(r.Body).Decode(&fund); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(fund.ID) == "" || strings.TrimSpace(fund.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	if err := h.repo.UpsertFund(fund); err != nil {
		h.log.Error().Err(err).Str("fund_id", fund.ID).Msg("Failed to upsert fund")
		h.writeError(w, http.StatusInternalServerError, "Failed to save fund")
		return
	}

	saved, err := h.repo.GetFund(fund.ID)
	if err != nil || saved == nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load saved fund")
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

// HandleGetFund handles GET /api/funds/{id}
func (h *Handler) HandleGetFund(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fund, err := h.repo.GetFund(id)
	if err != nil {
		h.log.Error().Err(err).Str("fund_id", id).Msg("Failed to get fund")
		h.writeError(w, http.StatusInternalServerError, "Failed to get fund")
		return
	}
	if fund == nil {
		h.writeError(w, http.StatusNotFound, "Fund not found")
		return
	}

	h.writeJSON(w, http.StatusOK, fund)
}

// HandleGetHoldings handles GET /api/funds/{id}/holdings.
// Returns what an analysis would use, including fallback data.
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.writeJSON(w, http.StatusOK, h.resolver.Resolve(r.Context(), id))
}

// HandlePutHoldings handles PUT /api/funds/{id}/holdings with a manual snapshot
func (h *Handler) HandlePutHoldings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Holdings []domain.Holding `json:"holdings"`
		AsOf     *time.Time       `json:"as_of,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	validated, err := holdings.ValidateHoldings(req.Holdings)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fund, err := h.repo.GetFund(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get fund")
		return
	}
	if fund == nil {
		h.writeError(w, http.StatusNotFound, "Fund not found")
		return
	}

	asOf := time.Now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	if err := h.repo.SaveHoldings(id, validated, holdings.SnapshotSourceManual, asOf); err != nil {
		h.log.Error().Err(err).Str("fund_id", id).Msg("Failed to save holdings")
		h.writeError(w, http.StatusInternalServerError, "Failed to save holdings")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"fund_id":  id,
		"holdings": len(validated),
		"as_of":    asOf.UTC(),
	})
}

// HandlePutSector handles PUT /api/securities/{ticker}/sector
func (h *Handler) HandlePutSector(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	var req struct {
		Sector string `json:"sector"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.repo.SetSecuritySector(ticker, req.Sector); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"ticker": domain.NormalizeTicker(ticker),
		"sector": strings.TrimSpace(req.Sector),
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
