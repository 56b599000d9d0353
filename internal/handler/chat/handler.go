package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/corvidae/parley/internal/model/chat"
	"github.com/corvidae/parley/internal/model/persona"
	chatService "github.com/corvidae/parley/internal/service/chat"
	"github.com/corvidae/parley/pkg/utils"
)

// Handler exposes the session and transcript surface over HTTP.
type Handler struct {
	chatSvc    *chatService.Service
	personas   persona.Store
	dispatcher chatService.Dispatcher
}

// New creates the chat handler.
func New(chatSvc *chatService.Service, personas persona.Store, dispatcher chatService.Dispatcher) *Handler {
	return &Handler{
		chatSvc:    chatSvc,
		personas:   personas,
		dispatcher: dispatcher,
	}
}

// RegisterRoutes wires the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleOpenSession)
	r.Route("/session/{contextID}", func(r chi.Router) {
		r.Post("/message", h.handleSendMessage)
		r.Get("/transcript", h.handleTranscript)
		r.Post("/clear", h.handleClear)
		r.Get("/export", h.handleExport)
		r.Post("/summarize", h.handleSummarize)
		r.Put("/credentials", h.handleUpdateCredentials)
		r.Put("/persona", h.handleSelectPersona)
		r.Put("/persona/custom", h.handleSetCustomPrompt)
	})
}

// sessionView is the client-facing session shape. The secret never leaves
// the server.
type sessionView struct {
	ID          string    `json:"id"`
	PersonaID   string    `json:"personaId"`
	EndpointURL string    `json:"endpointUrl"`
	Username    string    `json:"username"`
	TurnCount   int       `json:"turnCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func viewOf(session chatmodel.Session, turnCount int) sessionView {
	return sessionView{
		ID:          session.ID,
		PersonaID:   session.PersonaID,
		EndpointURL: session.Credentials.EndpointURL,
		Username:    session.Credentials.Username,
		TurnCount:   turnCount,
		CreatedAt:   session.CreatedAt,
	}
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ContextID string `json:"contextId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.GetOrCreate(r.Context(), payload.ContextID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	turns, err := h.chatSvc.Transcript(r.Context(), session.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, viewOf(session, len(turns)))
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "contextID")

	var payload struct {
		Content string `json:"content"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Content == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	exchange, err := h.chatSvc.Exchange(r.Context(), contextID, payload.Content, h.dispatcher)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response := struct {
		Reply       chatmodel.Turn `json:"reply"`
		Failed      bool           `json:"failed"`
		FailureKind string         `json:"failureKind,omitempty"`
	}{
		Reply:  exchange.Assistant,
		Failed: exchange.Reply.Failed(),
	}
	if exchange.Reply.Failed() {
		response.FailureKind = string(exchange.Reply.Failure.Kind)
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "contextID")

	turns, err := h.chatSvc.Transcript(r.Context(), contextID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turns)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "contextID")

	if err := h.chatSvc.Clear(r.Context(), contextID); err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "contextID")

	text, err := h.chatSvc.Export(r.Context(), contextID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="transcript.txt"`)
	utils.RespondText(w, http.StatusOK, text)
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "contextID")

	turn, err := h.chatSvc.Summarize(r.Context(), contextID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

func (h *Handler) handleUpdateCredentials(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "contextID")

	var payload struct {
		EndpointURL string `json:"endpointUrl"`
		Username    string `json:"username"`
		Secret      string `json:"secret"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.UpdateCredentials(r.Context(), contextID, chatService.CredentialUpdate{
		EndpointURL: payload.EndpointURL,
		Username:    payload.Username,
		Secret:      payload.Secret,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	turns, err := h.chatSvc.Transcript(r.Context(), contextID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, viewOf(session, len(turns)))
}

func (h *Handler) handleSelectPersona(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "contextID")

	var payload struct {
		PersonaID string `json:"personaId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Unknown ids resolve to the default persona instead of erroring.
	resolved := h.personas.Resolve(payload.PersonaID)

	session, err := h.chatSvc.SelectPersona(r.Context(), contextID, resolved.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"sessionId": session.ID,
		"personaId": session.PersonaID,
	})
}

func (h *Handler) handleSetCustomPrompt(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "contextID")

	var payload struct {
		Prompt string `json:"prompt"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.SetCustomPrompt(r.Context(), contextID, payload.Prompt)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"sessionId": session.ID,
		"personaId": session.PersonaID,
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatService.ErrContextRequired) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}
