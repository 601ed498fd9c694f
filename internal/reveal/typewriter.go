package reveal

import (
	"errors"
	"sync"
	"time"
)

const (
	DefaultTypingSpeed   = 80 * time.Millisecond
	DefaultDeletingSpeed = 40 * time.Millisecond
	DefaultPauseDuration = 1500 * time.Millisecond
)

var ErrNoRoles = errors.New("typewriter needs at least one role")

// Phase is the typewriter's current activity.
type Phase string

const (
	PhaseTyping   = Phase("typing")
	PhasePaused   = Phase("paused")
	PhaseDeleting = Phase("deleting")
)

// TypewriterState is a snapshot of the cycler.
type TypewriterState struct {
	RoleIndex int    `json:"roleIndex"`
	Typed     string `json:"typed"`
	Phase     Phase  `json:"phase"`
}

// TypewriterOptions tunes a Typewriter. Zero values fall back to the defaults.
type TypewriterOptions struct {
	TypingSpeed   time.Duration
	DeletingSpeed time.Duration
	PauseDuration time.Duration
	OnChange      func()
}

// Typewriter types each role forward, pauses, deletes it and moves to the
// next role, wrapping around forever while active.
type Typewriter struct {
	clock    Clock
	roles    [][]rune
	typing   time.Duration
	deleting time.Duration
	pause    time.Duration
	onChange func()

	mu         sync.Mutex
	roleIndex  int
	typed      int
	phase      Phase
	active     bool
	stopped    bool
	generation uint64
	timer      Timer
}

// NewTypewriter returns an inactive Typewriter over roles.
func NewTypewriter(clock Clock, roles []string, opts TypewriterOptions) (*Typewriter, error) {
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}
	if opts.TypingSpeed <= 0 {
		opts.TypingSpeed = DefaultTypingSpeed
	}
	if opts.DeletingSpeed <= 0 {
		opts.DeletingSpeed = DefaultDeletingSpeed
	}
	if opts.PauseDuration <= 0 {
		opts.PauseDuration = DefaultPauseDuration
	}

	runes := make([][]rune, len(roles))
	for i, role := range roles {
		runes[i] = []rune(role)
	}

	return &Typewriter{
		clock:    clock,
		roles:    runes,
		typing:   opts.TypingSpeed,
		deleting: opts.DeletingSpeed,
		pause:    opts.PauseDuration,
		onChange: opts.OnChange,
		phase:    PhaseTyping,
	}, nil
}

// SetActive flips the trigger flag. Turning it off clears the pending step
// but keeps progress; turning it back on resumes where it left off.
func (t *Typewriter) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.active == active {
		return
	}
	t.active = active
	t.cancelLocked()
	if active {
		t.scheduleLocked()
	}
}

// Active reports the trigger flag.
func (t *Typewriter) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Stop tears the cycler down for good.
func (t *Typewriter) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.active = false
	t.cancelLocked()
}

// State returns the current snapshot.
func (t *Typewriter) State() TypewriterState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Role returns the role at RoleIndex.
func (t *Typewriter) Role() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.roles[t.roleIndex])
}

func (t *Typewriter) stateLocked() TypewriterState {
	return TypewriterState{
		RoleIndex: t.roleIndex,
		Typed:     string(t.roles[t.roleIndex][:t.typed]),
		Phase:     t.phase,
	}
}

func (t *Typewriter) delayLocked() time.Duration {
	switch t.phase {
	case PhasePaused:
		return t.pause
	case PhaseDeleting:
		return t.deleting
	default:
		return t.typing
	}
}

func (t *Typewriter) scheduleLocked() {
	gen := t.generation
	t.timer = t.clock.AfterFunc(t.delayLocked(), func() { t.step(gen) })
}

func (t *Typewriter) step(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.active {
		t.mu.Unlock()
		return
	}
	t.timer = nil

	role := t.roles[t.roleIndex]
	switch t.phase {
	case PhaseTyping:
		if t.typed < len(role) {
			t.typed++
		} else {
			t.phase = PhasePaused
		}
	case PhasePaused:
		t.phase = PhaseDeleting
	case PhaseDeleting:
		if t.typed > 0 {
			t.typed--
		} else {
			t.phase = PhaseTyping
			t.roleIndex = (t.roleIndex + 1) % len(t.roles)
		}
	}

	t.cancelLocked()
	t.scheduleLocked()
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange()
	}
}

func (t *Typewriter) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.generation++
}
