package handlers

import (
	"github.com/go-chi/chi"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/api/cards", func(r chi.Router) {
		// public routes, ownership is enforced per operation
		r.Post("/", h.CreateCard)
		r.Get("/", h.ListCards)
		r.Get("/{id}", h.GetCard)
		r.Delete("/{id}", h.DeleteCard)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
	})
}
