package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/config"
	"github.com/espelita/portfolio/backend/internal/handler"
	"github.com/espelita/portfolio/backend/internal/handler/hero"
	"github.com/espelita/portfolio/backend/internal/logging"
	"github.com/espelita/portfolio/backend/internal/model/profile"
	"github.com/espelita/portfolio/backend/internal/reveal"
	"github.com/espelita/portfolio/backend/internal/service/chat"
	"github.com/espelita/portfolio/backend/internal/service/flowise"
	"github.com/espelita/portfolio/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	profiles := profile.NewMemoryStore(profile.Seed())
	seed := profiles.Get()

	predictor, err := flowise.NewClient(cfg.Flowise, logger)
	if err != nil {
		return err
	}
	logger.Info("flowise client ready", zap.String("endpoint", predictor.Endpoint()))

	scopes, closeScopes, err := newScopes(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeScopes()

	chats := chat.NewService(predictor, chat.Intro{
		Greeting:    seed.Greeting,
		Suggestions: seed.SuggestedQuestions,
	}, logger)

	evictors := []evictor{chats}
	if memory, ok := scopes.(*session.MemoryScopes); ok {
		evictors = append(evictors, memory)
	}
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepIdle(sweepCtx, cfg.Session, logger, evictors...)

	heroHandler := hero.New(func(clock reveal.Clock) (*reveal.Hero, error) {
		p := profiles.Get()
		return reveal.NewHero(clock, cfg.Hero.Options(p.Name, p.Prefix, p.Roles))
	}, cfg.Hero.PingInterval, logger)

	router := handler.NewRouter(handler.Deps{
		Profiles:       profiles,
		Scopes:         scopes,
		Chats:          chats,
		Hero:           heroHandler,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("portfolio backend listening", zap.String("addr", cfg.Server.Addr))
	return runServer(ctx, srv)
}

// newScopes picks redis-backed session scopes when REDIS_ADDR is set.
func newScopes(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (session.Scopes, func(), error) {
	if !cfg.Enabled() {
		logger.Info("redis not configured, session ids are kept in memory")
		return session.NewMemoryScopes(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	logger.Info("session ids stored in redis", zap.String("addr", cfg.Addr), zap.String("prefix", cfg.KeyPrefix))
	return session.NewRedisScopes(rdb, cfg.KeyPrefix), func() { _ = rdb.Close() }, nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
