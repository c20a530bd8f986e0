// Package api exposes the workspace over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every workspace command to its route.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthcheck", h.HandleHealthcheck)
	r.Post("/convert", h.HandleConvert)

	r.Route("/api", func(r chi.Router) {
		r.Get("/workspace", h.HandleWorkspace)

		r.Route("/images", func(r chi.Router) {
			r.Post("/", h.HandleIngest)
			r.Delete("/", h.HandleClear)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", h.HandleRemove)
				r.Post("/rotate", h.HandleRotate)
				r.Post("/move", h.HandleMove)
				r.Post("/reposition", h.HandleReposition)
				r.Get("/preview", h.HandlePreview)
				r.Post("/crop", h.HandleCrop)
			})
		})

		r.Get("/options", h.HandleGetOptions)
		r.Put("/options", h.HandlePutOptions)
		r.Delete("/banner", h.HandleDismissBanner)
		r.Post("/convert", h.HandleConvertWorkspace)
	})

	return r
}
