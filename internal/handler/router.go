package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/corvidae/parley/internal/handler/chat"
	personaHandler "github.com/corvidae/parley/internal/handler/persona"
	middlewarePkg "github.com/corvidae/parley/internal/middleware"
	personaModel "github.com/corvidae/parley/internal/model/persona"
	chatService "github.com/corvidae/parley/internal/service/chat"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, dispatcher chatService.Dispatcher) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(personas).RegisterRoutes(api)
		chatHandler.New(chatSvc, personas, dispatcher).RegisterRoutes(api)
	})

	return r
}
