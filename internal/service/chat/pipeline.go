package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/model/chat"
	"github.com/espelita/portfolio/backend/internal/service/flowise"
)

// Messages surfaced to the visitor when a prediction fails.
const (
	MsgGeneric      = "Something went wrong. Please try again."
	MsgConnectivity = "Unable to connect to AI service. Check your internet connection."
	MsgAuth         = "Authentication failed. Please check API credentials."
	MsgRateLimit    = "Rate limit exceeded. Please wait a moment."
)

// Predictor answers one question inside a remote conversation.
type Predictor interface {
	Predict(ctx context.Context, sessionID, question string) (string, error)
}

// Classify maps a prediction failure to the message shown to the visitor.
// It returns "" for nil and for cancellation, which is never an error.
func Classify(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}
	if errors.Is(err, flowise.ErrUnreachable) {
		return MsgConnectivity
	}

	var statusErr *flowise.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 401, 403:
			return MsgAuth
		case 429:
			return MsgRateLimit
		}
	}
	return MsgGeneric
}

// Result describes how one SendMessage call ended.
type Result struct {
	Reply   *chat.Message `json:"reply,omitempty"`
	Error   string        `json:"error,omitempty"`
	Aborted bool          `json:"aborted,omitempty"`
	Skipped bool          `json:"skipped,omitempty"`
}

// Snapshot is a point-in-time copy of the pipeline state.
type Snapshot struct {
	SessionID   string         `json:"sessionId"`
	Messages    []chat.Message `json:"messages"`
	IsLoading   bool           `json:"isLoading"`
	Error       string         `json:"error,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithSuggestions sets the starter questions offered before the first send.
func WithSuggestions(questions []string) Option {
	return func(p *Pipeline) {
		p.suggestions = append([]string(nil), questions...)
	}
}

// WithNow overrides the message timestamp source.
func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline owns one visitor conversation: the transcript, the loading flag
// and the last error.
type Pipeline struct {
	predictor   Predictor
	sessionID   string
	suggestions []string
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	messages []chat.Message
	seeded   int
	inFlight int
	errMsg   string
	nextCall uint64
	cancels  map[uint64]context.CancelFunc
}

// NewPipeline seeds the transcript with greeting (if non-empty).
func NewPipeline(predictor Predictor, sessionID, greeting string, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		predictor: predictor,
		sessionID: sessionID,
		logger:    logger.With(zap.String("session_id", sessionID)),
		now:       func() time.Time { return time.Now().UTC() },
		messages:  make([]chat.Message, 0, 16),
		cancels:   make(map[uint64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	if greeting != "" {
		p.messages = append(p.messages, p.newMessage(chat.RoleBot, greeting))
	}
	p.seeded = len(p.messages)
	return p
}

// SessionID returns the remote conversation id.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// SendMessage appends text as a user message, asks the predictor and
// appends its answer. Blank input is ignored. Calls may overlap.
func (p *Pipeline) SendMessage(ctx context.Context, text string) Result {
	res, _ := p.send(ctx, text, false, nil)
	return res
}

// TrySendMessage is SendMessage that refuses to start while another request
// is in flight; the check and the reservation happen under one lock. The
// second result is false when refused. started, if set, runs once the
// request is reserved and before the predictor is called.
func (p *Pipeline) TrySendMessage(ctx context.Context, text string, started func()) (Result, bool) {
	return p.send(ctx, text, true, started)
}

func (p *Pipeline) send(ctx context.Context, text string, exclusive bool, started func()) (Result, bool) {
	if strings.TrimSpace(text) == "" {
		return Result{Skipped: true}, true
	}

	p.mu.Lock()
	if exclusive && p.inFlight > 0 {
		p.mu.Unlock()
		return Result{}, false
	}
	ctx, cancel := context.WithCancel(ctx)
	id := p.nextCall
	p.nextCall++
	p.cancels[id] = cancel
	p.inFlight++
	p.errMsg = ""
	p.messages = append(p.messages, p.newMessage(chat.RoleUser, text))
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.cancels, id)
		p.inFlight--
		p.mu.Unlock()
	}()

	if started != nil {
		started()
	}

	answer, err := p.predictor.Predict(ctx, p.sessionID, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			p.logger.Info("prediction aborted")
			return Result{Aborted: true}, true
		}

		msg := Classify(err)
		p.logger.Warn("prediction failed", zap.Error(err), zap.String("shown", msg))
		p.mu.Lock()
		p.errMsg = msg
		p.mu.Unlock()
		return Result{Error: msg}, true
	}

	reply := p.newMessage(chat.RoleBot, answer)
	p.mu.Lock()
	p.messages = append(p.messages, reply)
	p.mu.Unlock()
	return Result{Reply: &reply}, true
}

// Abort cancels every in-flight request. The transcript keeps the user
// messages; no error is recorded.
func (p *Pipeline) Abort() int {
	p.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(p.cancels))
	for _, cancel := range p.cancels {
		cancels = append(cancels, cancel)
	}
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// IsLoading reports whether any request is in flight.
func (p *Pipeline) IsLoading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight > 0
}

// Snapshot copies the current state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	messages := make([]chat.Message, len(p.messages))
	copy(messages, p.messages)

	snap := Snapshot{
		SessionID: p.sessionID,
		Messages:  messages,
		IsLoading: p.inFlight > 0,
		Error:     p.errMsg,
	}
	if len(p.messages) == p.seeded && len(p.suggestions) > 0 {
		snap.Suggestions = append([]string(nil), p.suggestions...)
	}
	return snap
}

func (p *Pipeline) newMessage(role chat.Role, text string) chat.Message {
	return chat.Message{
		ID:        ulid.Make().String(),
		Role:      role,
		Text:      text,
		CreatedAt: p.now(),
	}
}
