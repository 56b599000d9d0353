package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corvidae/parley/internal/model/persona"
	"github.com/corvidae/parley/pkg/utils"
)

// Handler exposes the persona registry over HTTP.
type Handler struct {
	personas persona.Store
}

// New creates the persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes wires the persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}
