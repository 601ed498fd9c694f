package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/middleware"
	chatService "github.com/espelita/portfolio/backend/internal/service/chat"
	"github.com/espelita/portfolio/backend/internal/service/session"
	"github.com/espelita/portfolio/backend/pkg/utils"
)

var ErrNoVisitor = errors.New("visitor id missing from request")

// Handler exposes the visitor's conversation over JSON.
type Handler struct {
	scopes  session.Scopes
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New creates a chat handler.
func New(scopes session.Scopes, chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		scopes:  scopes,
		chatSvc: chatSvc,
		logger:  logger.Named("chat"),
	}
}

// RegisterRoutes mounts the chat endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleOpenSession)
	r.Get("/transcript", h.handleTranscript)
	r.Post("/messages", h.handleSendMessage)
	r.Post("/abort", h.handleAbort)
}

// Pipeline resolves the conversation bound to the requesting visitor,
// creating the session id and pipeline on first use.
func (h *Handler) Pipeline(r *http.Request) (*chatService.Pipeline, error) {
	visitorID := middleware.VisitorID(r.Context())
	if visitorID == "" {
		return nil, ErrNoVisitor
	}

	sessionID, err := session.NewAccessor(h.scopes.Scope(visitorID)).SessionID(r.Context())
	if err != nil {
		return nil, err
	}
	return h.chatSvc.Open(sessionID)
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	p, ok := h.resolve(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, p.Snapshot())
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	p, ok := h.resolve(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, p.Snapshot())
}

type sendResponse struct {
	Result     chatService.Result   `json:"result"`
	Transcript chatService.Snapshot `json:"transcript"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, ok := h.resolve(w, r)
	if !ok {
		return
	}

	result, sent := p.TrySendMessage(r.Context(), payload.Text, nil)
	if !sent {
		utils.RespondError(w, http.StatusConflict, "a message is already being answered")
		return
	}
	utils.RespondJSON(w, http.StatusOK, sendResponse{Result: result, Transcript: p.Snapshot()})
}

func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request) {
	p, ok := h.resolve(w, r)
	if !ok {
		return
	}
	aborted := p.Abort()
	h.logger.Info("abort requested", zap.String("session_id", p.SessionID()), zap.Int("aborted", aborted))
	utils.RespondJSON(w, http.StatusAccepted, map[string]int{"aborted": aborted})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*chatService.Pipeline, bool) {
	p, err := h.Pipeline(r)
	if err != nil {
		if errors.Is(err, ErrNoVisitor) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		h.logger.Error("failed to resolve session", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "session unavailable")
		return nil, false
	}
	return p, true
}
