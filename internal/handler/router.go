package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/handler/chat"
	"github.com/espelita/portfolio/backend/internal/handler/hero"
	"github.com/espelita/portfolio/backend/internal/handler/profile"
	"github.com/espelita/portfolio/backend/internal/handler/stream"
	middlewarePkg "github.com/espelita/portfolio/backend/internal/middleware"
	profileModel "github.com/espelita/portfolio/backend/internal/model/profile"
	chatService "github.com/espelita/portfolio/backend/internal/service/chat"
	"github.com/espelita/portfolio/backend/internal/service/session"
	"github.com/espelita/portfolio/backend/pkg/utils"
)

// Deps groups what the router needs.
type Deps struct {
	Profiles profileModel.Store
	Scopes   session.Scopes
	Chats    *chatService.Service
	Hero     *hero.Handler
	Logger   *zap.Logger

	// AllowedOrigins are the page origins permitted by CORS.
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	chatHandler := chat.New(deps.Scopes, deps.Chats, logger)
	streamHandler := stream.New(chatHandler, logger)
	profileHandler := profile.New(deps.Profiles)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		profileHandler.RegisterRoutes(api)

		if deps.Hero != nil {
			deps.Hero.RegisterRoutes(api)
		}

		api.Route("/chat", func(c chi.Router) {
			c.Use(middlewarePkg.Visitor)
			chatHandler.RegisterRoutes(c)
			streamHandler.RegisterRoutes(c)
		})
	})

	return r
}
