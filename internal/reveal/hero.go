package reveal

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Hero stage indexes.
const (
	StageName = iota
	StagePrefix
	StageRoles
)

// HeroOptions describes the hero intro: name, then prefix, then roles.
type HeroOptions struct {
	Name        string
	Prefix      string
	Roles       []string
	NameDelay   time.Duration
	PrefixDelay time.Duration

	Tick          time.Duration
	MaxIterations int
	Rand          *rand.Rand

	TypingSpeed   time.Duration
	DeletingSpeed time.Duration
	PauseDuration time.Duration
}

// HeroFrame is what a renderer needs to draw one moment of the intro.
type HeroFrame struct {
	Stage         int             `json:"stage"`
	Name          string          `json:"name"`
	NameDone      bool            `json:"nameDone"`
	PrefixVisible bool            `json:"prefixVisible"`
	Prefix        string          `json:"prefix"`
	PrefixDone    bool            `json:"prefixDone"`
	Typing        bool            `json:"typing"`
	Role          TypewriterState `json:"role"`
	Cursor        bool            `json:"cursor"`
}

// Hero wires the name decrypt, prefix decrypt and role typewriter into one
// Sequence and coalesces their updates into a single notification channel.
type Hero struct {
	name    *Decrypt
	prefix  *Decrypt
	roles   *Typewriter
	seq     *Sequence
	changes chan struct{}

	// mu orders arming the typewriter against SetTyping.
	mu         sync.Mutex
	armed      bool
	wantTyping bool
}

// rolesStage raises the typewriter's trigger flag, honouring any SetTyping
// that arrived earlier, and never finishes.
type rolesStage struct {
	hero *Hero
}

func (s rolesStage) Begin() {
	h := s.hero
	h.mu.Lock()
	h.armed = true
	h.roles.SetActive(h.wantTyping)
	h.mu.Unlock()
}

func (s rolesStage) Done() <-chan struct{} { return nil }
func (s rolesStage) Halt()                 { s.hero.roles.Stop() }

// NewHero builds an idle Hero. Run plays it.
func NewHero(clock Clock, opts HeroOptions) (*Hero, error) {
	h := &Hero{changes: make(chan struct{}, 1), wantTyping: true}

	decryptOpts := DecryptOptions{
		Tick:          opts.Tick,
		MaxIterations: opts.MaxIterations,
		Rand:          opts.Rand,
		OnChange:      h.signal,
	}
	h.name = NewDecrypt(clock, decryptOpts)
	h.prefix = NewDecrypt(clock, decryptOpts)

	roles, err := NewTypewriter(clock, opts.Roles, TypewriterOptions{
		TypingSpeed:   opts.TypingSpeed,
		DeletingSpeed: opts.DeletingSpeed,
		PauseDuration: opts.PauseDuration,
		OnChange:      h.signal,
	})
	if err != nil {
		return nil, err
	}
	h.roles = roles

	h.seq = NewSequence(
		func(int) { h.signal() },
		DecryptStage{Decrypt: h.name, Text: opts.Name, Delay: opts.NameDelay},
		DecryptStage{Decrypt: h.prefix, Text: opts.Prefix, Delay: opts.PrefixDelay},
		rolesStage{hero: h},
	)
	return h, nil
}

// Run plays the intro until ctx ends, then tears every timer down.
func (h *Hero) Run(ctx context.Context) error {
	return h.seq.Run(ctx)
}

// Changes receives a value whenever the frame may have changed. Bursts of
// updates collapse into one pending notification.
func (h *Hero) Changes() <-chan struct{} {
	return h.changes
}

// SetTyping sets the typewriter trigger. Before the roles stage the value
// is remembered and applied when the typewriter is armed; the result
// reports whether it took effect immediately.
func (h *Hero) SetTyping(active bool) bool {
	h.mu.Lock()
	h.wantTyping = active
	armed := h.armed
	if armed {
		h.roles.SetActive(active)
	}
	h.mu.Unlock()

	if armed {
		h.signal()
	}
	return armed
}

// Snapshot renders the current frame.
func (h *Hero) Snapshot() HeroFrame {
	stage := h.seq.Stage()
	role := h.roles.State()
	typing := h.roles.Active()

	return HeroFrame{
		Stage:         stage,
		Name:          h.name.Frame(),
		NameDone:      h.name.Completed(),
		PrefixVisible: stage >= StagePrefix,
		Prefix:        h.prefix.Frame(),
		PrefixDone:    h.prefix.Completed(),
		Typing:        typing,
		Role:          role,
		Cursor:        typing && role.Typed != "",
	}
}

func (h *Hero) signal() {
	select {
	case h.changes <- struct{}{}:
	default:
	}
}
