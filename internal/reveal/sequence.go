package reveal

import (
	"context"
	"sync"
	"time"
)

// Stage is one step of a Sequence. Done is closed when the next stage may
// begin; a nil channel means the stage never finishes on its own.
type Stage interface {
	Begin()
	Done() <-chan struct{}
	Halt()
}

// DecryptStage plays Text through a Decrypt after Delay.
type DecryptStage struct {
	Decrypt *Decrypt
	Text    string
	Delay   time.Duration
}

func (s DecryptStage) Begin()                { s.Decrypt.Start(s.Text, s.Delay) }
func (s DecryptStage) Done() <-chan struct{} { return s.Decrypt.Done() }
func (s DecryptStage) Halt()                 { s.Decrypt.Stop() }

// Sequence begins each stage once the previous one signals Done.
type Sequence struct {
	stages    []Stage
	onAdvance func(int)

	mu      sync.Mutex
	current int
}

// NewSequence chains stages in order. onAdvance, if set, is told the index
// of every stage as it begins.
func NewSequence(onAdvance func(int), stages ...Stage) *Sequence {
	return &Sequence{stages: stages, onAdvance: onAdvance, current: -1}
}

// Run blocks until every stage is done or ctx ends. All stages are halted
// before it returns.
func (s *Sequence) Run(ctx context.Context) error {
	defer s.halt()

	for i, stage := range s.stages {
		stage.Begin()

		s.mu.Lock()
		s.current = i
		s.mu.Unlock()

		if s.onAdvance != nil {
			s.onAdvance(i)
		}

		select {
		case <-stage.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stage returns the index of the last stage whose Begin has returned, or -1.
func (s *Sequence) Stage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Sequence) halt() {
	for _, stage := range s.stages {
		stage.Halt()
	}
}
