package hero

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/reveal"
)

const writeWait = 5 * time.Second

// Factory builds a fresh Hero for each connection.
type Factory func(clock reveal.Clock) (*reveal.Hero, error)

// Handler streams hero frames over a websocket.
type Handler struct {
	factory      Factory
	clock        reveal.Clock
	pingInterval time.Duration
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

// Option customises a Handler.
type Option func(*Handler)

// WithClock replaces the real clock, mostly for tests.
func WithClock(clock reveal.Clock) Option {
	return func(h *Handler) { h.clock = clock }
}

// New creates a hero websocket handler.
func New(factory Factory, pingInterval time.Duration, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	h := &Handler{
		factory:      factory,
		clock:        reveal.RealClock(),
		pingInterval: pingInterval,
		logger:       logger.Named("hero"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts GET /hero/ws.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/hero/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage struct {
	Type  string            `json:"type"`
	Frame *reveal.HeroFrame `json:"frame,omitempty"`
	Error string            `json:"error,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	hero, err := h.factory(h.clock)
	if err != nil {
		h.logger.Error("failed to build hero", zap.Error(err))
		http.Error(w, "hero unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	readWait := 2 * h.pingInterval
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.logger.Debug("hero stream opened", zap.String("remote", r.RemoteAddr))

	var wg conc.WaitGroup
	wg.Go(func() {
		_ = hero.Run(ctx)
	})
	wg.Go(func() {
		defer cancel()
		h.writeLoop(ctx, conn, hero)
	})
	wg.Go(func() {
		defer cancel()
		h.readLoop(conn, hero, readWait)
	})
	wg.Go(func() {
		<-ctx.Done()
		_ = conn.Close()
	})
	wg.Wait()

	h.logger.Debug("hero stream closed", zap.String("remote", r.RemoteAddr))
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, hero *reveal.Hero) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	if err := h.writeFrame(conn, hero); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-hero.Changes():
			if err := h.writeFrame(conn, hero); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeFrame(conn *websocket.Conn, hero *reveal.Hero) error {
	frame := hero.Snapshot()
	return h.write(conn, outboundMessage{Type: "frame", Frame: &frame})
}

func (h *Handler) write(conn *websocket.Conn, msg outboundMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}

// readLoop applies pause/resume commands until the peer goes away.
func (h *Handler) readLoop(conn *websocket.Conn, hero *reveal.Hero, readWait time.Duration) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("ignoring malformed message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "pause":
			hero.SetTyping(false)
		case "resume":
			hero.SetTyping(true)
		default:
			h.logger.Debug("ignoring unknown message", zap.String("type", msg.Type))
		}
	}
}
