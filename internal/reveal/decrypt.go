package reveal

import (
	"math/rand"
	"sync"
	"time"
)

const (
	// Glyphs is the alphabet shown while a character is still scrambled.
	Glyphs = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@#$%^&*"
	// Blank renders positions that have nothing to show yet, and source spaces.
	Blank = '\u00A0'

	DefaultDecryptTick   = 30 * time.Millisecond
	DefaultMaxIterations = 8
)

// RevealState is the cursor of one decrypt run.
type RevealState struct {
	Source              []rune
	RevealedIndex       int
	GlyphIterationCount int
}

// DecryptOptions tunes a Decrypt. Zero values fall back to the defaults.
type DecryptOptions struct {
	Tick          time.Duration
	MaxIterations int
	Rand          *rand.Rand
	// OnChange is called after every rendered frame, outside the lock.
	OnChange func()
}

// Decrypt scrambles each character through random glyphs before locking it,
// left to right, one tick at a time.
type Decrypt struct {
	clock         Clock
	tick          time.Duration
	maxIterations int
	onChange      func()

	mu         sync.Mutex
	rng        *rand.Rand
	state      RevealState
	display    []rune
	generation uint64
	completed  bool
	startTimer Timer
	tickTimer  Timer
	done       chan struct{}
}

// NewDecrypt builds an idle Decrypt. Call Start to play it.
func NewDecrypt(clock Clock, opts DecryptOptions) *Decrypt {
	if opts.Tick <= 0 {
		opts.Tick = DefaultDecryptTick
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(clock.Now().UnixNano()))
	}

	return &Decrypt{
		clock:         clock,
		tick:          opts.Tick,
		maxIterations: opts.MaxIterations,
		onChange:      opts.OnChange,
		rng:           opts.Rand,
		done:          make(chan struct{}),
	}
}

// Start plays text after delay. A run already in progress is discarded and
// the new one starts from index 0.
func (d *Decrypt) Start(text string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	d.mu.Lock()
	d.cancelLocked()
	gen := d.generation

	source := []rune(text)
	d.state = RevealState{Source: source}
	d.display = blankRunes(len(source))
	d.completed = false
	d.done = make(chan struct{})
	d.startTimer = d.clock.AfterFunc(delay, func() { d.begin(gen) })
	d.mu.Unlock()

	d.notify()
}

// Stop tears the run down. Pending timers are cleared and callbacks that
// already fired are ignored. Done is not closed.
func (d *Decrypt) Stop() {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
}

// Done is closed once the current run has locked every character.
func (d *Decrypt) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Completed reports whether the current run finished.
func (d *Decrypt) Completed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// Frame returns the current rendering.
func (d *Decrypt) Frame() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.display)
}

// State returns a copy of the run's cursor.
func (d *Decrypt) State() RevealState {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := d.state
	state.Source = append([]rune(nil), d.state.Source...)
	return state
}

func (d *Decrypt) begin(gen uint64) {
	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.startTimer = nil

	if len(d.state.Source) == 0 {
		d.completeLocked()
		d.mu.Unlock()
		d.notify()
		return
	}

	d.tickTimer = d.clock.AfterFunc(d.tick, func() { d.step(gen) })
	d.mu.Unlock()
}

func (d *Decrypt) step(gen uint64) {
	d.mu.Lock()
	if gen != d.generation || d.completed {
		d.mu.Unlock()
		return
	}
	d.tickTimer = nil

	d.renderLocked()

	s := &d.state
	s.GlyphIterationCount++
	if s.GlyphIterationCount > d.maxIterations {
		s.RevealedIndex++
		s.GlyphIterationCount = 0

		if s.RevealedIndex >= len(s.Source) {
			d.completeLocked()
			d.mu.Unlock()
			d.notify()
			return
		}
	}

	d.tickTimer = d.clock.AfterFunc(d.tick, func() { d.step(gen) })
	d.mu.Unlock()
	d.notify()
}

func (d *Decrypt) renderLocked() {
	s := d.state
	for i, r := range s.Source {
		switch {
		case r == ' ':
			d.display[i] = Blank
		case i < s.RevealedIndex:
			d.display[i] = r
		case i == s.RevealedIndex:
			if s.GlyphIterationCount >= d.maxIterations {
				d.display[i] = r
			} else {
				d.display[i] = rune(Glyphs[d.rng.Intn(len(Glyphs))])
			}
		default:
			d.display[i] = Blank
		}
	}
}

// completeLocked closes done exactly once per run.
func (d *Decrypt) completeLocked() {
	if d.completed {
		return
	}
	d.completed = true
	d.stopTimersLocked()
	close(d.done)
}

func (d *Decrypt) cancelLocked() {
	d.stopTimersLocked()
	d.generation++
}

func (d *Decrypt) stopTimersLocked() {
	if d.startTimer != nil {
		d.startTimer.Stop()
		d.startTimer = nil
	}
	if d.tickTimer != nil {
		d.tickTimer.Stop()
		d.tickTimer = nil
	}
}

func (d *Decrypt) notify() {
	if d.onChange != nil {
		d.onChange()
	}
}

func blankRunes(n int) []rune {
	out := make([]rune, n)
	for i := range out {
		out[i] = Blank
	}
	return out
}
