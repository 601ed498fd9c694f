package reveal

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventually = 2 * time.Second

func newTestHero(t *testing.T, clock Clock) *Hero {
	t.Helper()
	hero, err := NewHero(clock, HeroOptions{
		Name:          "Hi",
		Prefix:        "I'm",
		Roles:         []string{"A", "B"},
		NameDelay:     10 * time.Millisecond,
		Tick:          time.Millisecond,
		MaxIterations: 1,
		Rand:          rand.New(rand.NewSource(7)),
		TypingSpeed:   time.Millisecond,
		DeletingSpeed: time.Millisecond,
		PauseDuration: 3 * time.Millisecond,
	})
	require.NoError(t, err)
	return hero
}

func runHero(t *testing.T, hero *Hero) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hero.Run(ctx) }()
	return cancel, errCh
}

func TestHeroChainsStages(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	hero := newTestHero(t, clock)
	cancel, errCh := runHero(t, hero)

	require.Eventually(t, func() bool {
		return clock.Pending() == 1 && hero.Snapshot().Stage == StageName
	}, eventually, time.Millisecond)
	frame := hero.Snapshot()
	assert.Equal(t, StageName, frame.Stage)
	assert.False(t, frame.PrefixVisible)
	assert.False(t, frame.Typing)
	assert.False(t, hero.SetTyping(true), "typewriter is not armed yet")

	// 10ms delay, then 2 characters x 2 ticks
	clock.Advance(14 * time.Millisecond)
	assert.Equal(t, "Hi", hero.Snapshot().Name)
	assert.True(t, hero.Snapshot().NameDone)

	require.Eventually(t, func() bool {
		return hero.Snapshot().Stage == StagePrefix && clock.Pending() == 1
	}, eventually, time.Millisecond)
	assert.True(t, hero.Snapshot().PrefixVisible)

	clock.Advance(6 * time.Millisecond)
	assert.Equal(t, "I'm", hero.Snapshot().Prefix)

	require.Eventually(t, func() bool {
		return hero.Snapshot().Stage == StageRoles && clock.Pending() == 1
	}, eventually, time.Millisecond)

	clock.Advance(time.Millisecond)
	frame = hero.Snapshot()
	assert.True(t, frame.Typing)
	assert.True(t, frame.Cursor)
	assert.Equal(t, "A", frame.Role.Typed)

	cancel()
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(eventually):
		t.Fatal("hero did not stop")
	}
	assert.Equal(t, 0, clock.Pending(), "teardown leaves no timers")
}

func TestHeroSetTypingPausesRoles(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	hero := newTestHero(t, clock)
	cancel, errCh := runHero(t, hero)
	defer func() {
		cancel()
		<-errCh
	}()

	require.Eventually(t, func() bool { return clock.Pending() == 1 }, eventually, time.Millisecond)
	clock.Advance(14 * time.Millisecond)
	require.Eventually(t, func() bool { return clock.Pending() == 1 && hero.Snapshot().Stage == StagePrefix }, eventually, time.Millisecond)
	clock.Advance(6 * time.Millisecond)
	require.Eventually(t, func() bool { return clock.Pending() == 1 && hero.Snapshot().Stage == StageRoles }, eventually, time.Millisecond)

	assert.True(t, hero.SetTyping(false))
	assert.Equal(t, 0, clock.Pending())
	assert.False(t, hero.Snapshot().Cursor)

	clock.Advance(time.Second)
	assert.Equal(t, "", hero.Snapshot().Role.Typed)

	assert.True(t, hero.SetTyping(true))
	clock.Advance(time.Millisecond)
	assert.Equal(t, "A", hero.Snapshot().Role.Typed)
}

func TestHeroRemembersPauseBeforeRoles(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	hero := newTestHero(t, clock)
	cancel, errCh := runHero(t, hero)
	defer func() {
		cancel()
		<-errCh
	}()

	require.Eventually(t, func() bool { return clock.Pending() == 1 }, eventually, time.Millisecond)
	assert.False(t, hero.SetTyping(false), "applied later, not now")

	clock.Advance(14 * time.Millisecond)
	require.Eventually(t, func() bool { return clock.Pending() == 1 && hero.Snapshot().Stage == StagePrefix }, eventually, time.Millisecond)
	clock.Advance(6 * time.Millisecond)
	require.Eventually(t, func() bool { return hero.Snapshot().Stage == StageRoles }, eventually, time.Millisecond)

	assert.Equal(t, 0, clock.Pending(), "typewriter armed but paused")
	assert.False(t, hero.Snapshot().Typing)
	clock.Advance(time.Second)
	assert.Equal(t, "", hero.Snapshot().Role.Typed)

	assert.True(t, hero.SetTyping(true))
	clock.Advance(time.Millisecond)
	assert.Equal(t, "A", hero.Snapshot().Role.Typed)
}

func TestHeroChangesCoalesce(t *testing.T) {
	hero := newTestHero(t, NewManualClock(time.Unix(0, 0)))

	hero.signal()
	hero.signal()
	hero.signal()

	select {
	case <-hero.Changes():
	default:
		t.Fatal("expected a pending notification")
	}
	select {
	case <-hero.Changes():
		t.Fatal("notifications should coalesce")
	default:
	}
}

func TestHeroRequiresRoles(t *testing.T) {
	_, err := NewHero(NewManualClock(time.Unix(0, 0)), HeroOptions{Name: "x"})
	assert.ErrorIs(t, err, ErrNoRoles)
}

func TestSequenceRunsFiniteStagesToCompletion(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	first := NewDecrypt(clock, DecryptOptions{Tick: time.Millisecond, MaxIterations: 1})
	second := NewDecrypt(clock, DecryptOptions{Tick: time.Millisecond, MaxIterations: 1})

	var advanced []int
	seq := NewSequence(func(i int) { advanced = append(advanced, i) },
		DecryptStage{Decrypt: first, Text: "a"},
		DecryptStage{Decrypt: second, Text: "b"},
	)

	errCh := make(chan error, 1)
	go func() { errCh <- seq.Run(context.Background()) }()

	require.Eventually(t, func() bool { return seq.Stage() == 0 && clock.Pending() == 1 }, eventually, time.Millisecond)
	clock.Advance(2 * time.Millisecond)
	require.Eventually(t, func() bool { return seq.Stage() == 1 && clock.Pending() == 1 }, eventually, time.Millisecond)
	clock.Advance(2 * time.Millisecond)

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(eventually):
		t.Fatal("sequence did not finish")
	}
	assert.Equal(t, []int{0, 1}, advanced)
	assert.Equal(t, "a", first.Frame())
	assert.Equal(t, "b", second.Frame())
}
