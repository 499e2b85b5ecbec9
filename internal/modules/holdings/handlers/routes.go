package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/funds", func(r chi.Router) {
		r.Get("/", h.HandleListFunds)
		r.Post("/", h.HandleUpsertFund)
		r.Get("/{id}", h.HandleGetFund)
		r.Get("/{id}/holdings", h.HandleGetHoldings)
		r.Put("/{id}/holdings", h.HandlePutHoldings)
	})

	r.Put("/securities/{ticker}/sector", h.HandlePutSector)
}
