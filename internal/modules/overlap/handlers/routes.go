package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all overlap routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/overlap", func(r chi.Router) {
		r.Post("/", h.HandleAnalyze)
		r.Get("/", h.HandleAnalyzeQuery)
	})
}
