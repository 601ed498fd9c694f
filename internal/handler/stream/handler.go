package stream

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/espelita/portfolio/backend/internal/service/chat"
	"github.com/espelita/portfolio/backend/pkg/utils"
)

// PipelineResolver finds the conversation behind a request.
type PipelineResolver interface {
	Pipeline(r *http.Request) (*chatService.Pipeline, error)
}

// Handler answers one question as a Server-Sent Events stream.
type Handler struct {
	resolver PipelineResolver
	logger   *zap.Logger
}

// New creates a stream handler.
func New(resolver PipelineResolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{resolver: resolver, logger: logger.Named("stream")}
}

// StreamResponse is the payload of every event.
type StreamResponse struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
	Aborted   bool   `json:"aborted,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
}

// RegisterRoutes mounts GET /stream.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	p, err := h.resolver.Pipeline(r)
	if err != nil {
		h.logger.Error("failed to resolve session", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	sessionID := p.SessionID()
	result, ok := p.TrySendMessage(r.Context(), message, func() {
		utils.SetupSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		h.send(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})
	})
	if !ok {
		utils.RespondError(w, http.StatusConflict, "a message is already being answered")
		return
	}

	switch {
	case result.Reply != nil:
		h.send(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: sessionID,
			Content:   result.Reply.Text,
			MessageID: result.Reply.ID,
		})
	case result.Error != "":
		h.send(w, flusher, StreamResponse{Event: "error", SessionID: sessionID, Error: result.Error})
	}

	h.send(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Aborted:   result.Aborted,
		Finished:  true,
	})
	h.logger.Debug("stream completed", zap.String("session_id", sessionID), zap.Bool("aborted", result.Aborted))
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, resp StreamResponse) {
	if err := utils.SendSSEEvent(w, flusher, resp.Event, resp); err != nil {
		h.logger.Debug("failed to write sse event", zap.String("event", resp.Event), zap.Error(err))
	}
}
