package chat

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Intro is what every new conversation starts with.
type Intro struct {
	Greeting    string
	Suggestions []string
}

// Service keeps one Pipeline per session id until Evict drops it.
type Service struct {
	predictor Predictor
	intro     Intro
	logger    *zap.Logger

	mu        sync.RWMutex
	pipelines map[string]*entry
}

type entry struct {
	pipeline *Pipeline
	lastSeen atomic.Int64
}

func (e *entry) touch() *Pipeline {
	e.lastSeen.Store(time.Now().UnixNano())
	return e.pipeline
}

// NewService bootstraps the in-memory pipeline registry.
func NewService(predictor Predictor, intro Intro, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		predictor: predictor,
		intro:     intro,
		logger:    logger.Named("chat"),
		pipelines: make(map[string]*entry),
	}
}

// Open returns the pipeline for sessionID, creating it on first use.
func (s *Service) Open(sessionID string) (*Pipeline, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	s.mu.RLock()
	e, ok := s.pipelines[sessionID]
	s.mu.RUnlock()
	if ok {
		return e.touch(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pipelines[sessionID]; ok {
		return e.touch(), nil
	}
	e = &entry{pipeline: NewPipeline(s.predictor, sessionID, s.intro.Greeting, s.logger, WithSuggestions(s.intro.Suggestions))}
	s.pipelines[sessionID] = e
	s.logger.Info("conversation opened", zap.String("session_id", sessionID))
	return e.touch(), nil
}

// Get retrieves an already opened pipeline.
func (s *Service) Get(sessionID string) (*Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.pipelines[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.touch(), nil
}

// Evict drops conversations not opened or fetched since cutoff and returns
// how many were dropped. A conversation with a request in flight is kept.
func (s *Service) Evict(cutoff time.Time) int {
	limit := cutoff.UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, e := range s.pipelines {
		if e.lastSeen.Load() >= limit || e.pipeline.IsLoading() {
			continue
		}
		delete(s.pipelines, id)
		evicted++
	}
	if evicted > 0 {
		s.logger.Info("idle conversations evicted", zap.Int("count", evicted), zap.Int("remaining", len(s.pipelines)))
	}
	return evicted
}

// Len reports how many conversations are held.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pipelines)
}
