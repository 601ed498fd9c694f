package chat_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/config"
	modelchat "github.com/espelita/portfolio/backend/internal/model/chat"
	chat "github.com/espelita/portfolio/backend/internal/service/chat"
	"github.com/espelita/portfolio/backend/internal/service/flowise"
)

const greeting = "Hi! Ask me anything."

type fakePredictor struct {
	mu       sync.Mutex
	calls    []string
	answer   string
	err      error
	blocking bool
}

func (f *fakePredictor) Predict(ctx context.Context, sessionID, question string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sessionID+"|"+question)
	blocking := f.blocking
	f.mu.Unlock()

	if blocking {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func (f *fakePredictor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSendMessageBlankIsNoop(t *testing.T) {
	predictor := &fakePredictor{answer: "unused"}
	p := chat.NewPipeline(predictor, "session-1", greeting, zap.NewNop())
	before := p.Snapshot()

	for _, text := range []string{"", "   ", "\n\t"} {
		res := p.SendMessage(context.Background(), text)
		assert.True(t, res.Skipped)
	}

	assert.Equal(t, before, p.Snapshot())
	assert.Equal(t, 0, predictor.callCount())
}

func TestSendMessageAppendsReply(t *testing.T) {
	predictor := &fakePredictor{answer: "hello"}
	p := chat.NewPipeline(predictor, "session-1", greeting, zap.NewNop())

	res := p.SendMessage(context.Background(), "who are you?")
	require.NotNil(t, res.Reply)
	assert.Equal(t, "hello", res.Reply.Text)

	snap := p.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, modelchat.RoleBot, snap.Messages[0].Role)
	assert.Equal(t, greeting, snap.Messages[0].Text)
	assert.Equal(t, modelchat.RoleUser, snap.Messages[1].Role)
	assert.Equal(t, "who are you?", snap.Messages[1].Text)
	assert.Equal(t, modelchat.RoleBot, snap.Messages[2].Role)
	assert.Equal(t, "hello", snap.Messages[2].Text)
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, []string{"session-1|who are you?"}, predictor.calls)

	ids := map[string]bool{}
	for _, m := range snap.Messages {
		assert.False(t, ids[m.ID], "duplicate id %s", m.ID)
		ids[m.ID] = true
	}
}

func TestSendMessageClassifiesFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "rate limit", err: &flowise.StatusError{StatusCode: 429}, want: chat.MsgRateLimit},
		{name: "unauthorized", err: &flowise.StatusError{StatusCode: 401}, want: chat.MsgAuth},
		{name: "forbidden", err: &flowise.StatusError{StatusCode: 403}, want: chat.MsgAuth},
		{name: "server error", err: &flowise.StatusError{StatusCode: 500}, want: chat.MsgGeneric},
		{name: "unreachable", err: fmt.Errorf("%w: %w", flowise.ErrUnreachable, errors.New("dial tcp: refused")), want: chat.MsgConnectivity},
		{name: "other", err: errors.New("boom"), want: chat.MsgGeneric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := chat.NewPipeline(&fakePredictor{err: tc.err}, "s", greeting, nil)

			res := p.SendMessage(context.Background(), "hi")
			assert.Nil(t, res.Reply)
			assert.Equal(t, tc.want, res.Error)

			snap := p.Snapshot()
			assert.Equal(t, tc.want, snap.Error)
			assert.False(t, snap.IsLoading)
			require.Len(t, snap.Messages, 2, "no bot message on failure")
			assert.Equal(t, modelchat.RoleUser, snap.Messages[1].Role)
		})
	}
}

func TestSendMessageClearsPreviousError(t *testing.T) {
	predictor := &fakePredictor{err: &flowise.StatusError{StatusCode: 429}}
	p := chat.NewPipeline(predictor, "s", greeting, nil)

	p.SendMessage(context.Background(), "one")
	require.Equal(t, chat.MsgRateLimit, p.Snapshot().Error)

	predictor.mu.Lock()
	predictor.err = nil
	predictor.answer = "ok"
	predictor.mu.Unlock()

	p.SendMessage(context.Background(), "two")
	assert.Empty(t, p.Snapshot().Error)
}

func TestAbortIsSilent(t *testing.T) {
	predictor := &fakePredictor{blocking: true}
	p := chat.NewPipeline(predictor, "s", greeting, nil)

	done := make(chan chat.Result, 1)
	go func() { done <- p.SendMessage(context.Background(), "wait") }()

	require.Eventually(t, func() bool { return p.IsLoading() && predictor.callCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, p.Abort())

	select {
	case res := <-done:
		assert.True(t, res.Aborted)
		assert.Empty(t, res.Error)
		assert.Nil(t, res.Reply)
	case <-time.After(time.Second):
		t.Fatal("send did not return after abort")
	}

	snap := p.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.Error)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "wait", snap.Messages[1].Text)
}

func TestAbortWithoutRequests(t *testing.T) {
	p := chat.NewPipeline(&fakePredictor{}, "s", greeting, nil)
	assert.Equal(t, 0, p.Abort())
}

func TestLoadingTracksConcurrentSends(t *testing.T) {
	predictor := &fakePredictor{blocking: true}
	p := chat.NewPipeline(predictor, "s", greeting, nil)

	var wg sync.WaitGroup
	for _, q := range []string{"a", "b"} {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			p.SendMessage(context.Background(), q)
		}(q)
	}

	require.Eventually(t, func() bool { return predictor.callCount() == 2 }, time.Second, time.Millisecond)
	assert.True(t, p.IsLoading())
	assert.Equal(t, 2, p.Abort())
	wg.Wait()
	assert.False(t, p.IsLoading())
	assert.Len(t, p.Snapshot().Messages, 3)
}

func TestTrySendMessageReservesOnce(t *testing.T) {
	predictor := &fakePredictor{blocking: true}
	p := chat.NewPipeline(predictor, "s", greeting, nil)

	const senders = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	refused := make(chan struct{}, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok := p.TrySendMessage(context.Background(), fmt.Sprintf("q%d", i), func() {
				mu.Lock()
				started++
				mu.Unlock()
			})
			if !ok {
				refused <- struct{}{}
			}
		}(i)
	}

	require.Eventually(t, func() bool { return len(refused) == senders-1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return predictor.callCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, p.Abort())
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 1, started)
	mu.Unlock()
	assert.False(t, p.IsLoading())
	assert.Len(t, p.Snapshot().Messages, 2)
}

func TestTrySendMessageBlankSkipsWithoutReserving(t *testing.T) {
	predictor := &fakePredictor{answer: "unused"}
	p := chat.NewPipeline(predictor, "s", greeting, nil)

	called := false
	res, ok := p.TrySendMessage(context.Background(), "  ", func() { called = true })
	assert.True(t, ok)
	assert.True(t, res.Skipped)
	assert.False(t, called)
	assert.Equal(t, 0, predictor.callCount())
}

func TestSuggestionsOnlyBeforeFirstSend(t *testing.T) {
	questions := []string{"What projects?", "What skills?"}
	p := chat.NewPipeline(&fakePredictor{answer: "x"}, "s", greeting, nil, chat.WithSuggestions(questions))

	assert.Equal(t, questions, p.Snapshot().Suggestions)

	p.SendMessage(context.Background(), "hi")
	assert.Empty(t, p.Snapshot().Suggestions)
}

func TestClassify(t *testing.T) {
	assert.Empty(t, chat.Classify(nil))
	assert.Empty(t, chat.Classify(context.Canceled))
	assert.Empty(t, chat.Classify(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.Equal(t, chat.MsgGeneric, chat.Classify(context.DeadlineExceeded))
}

func TestPipelineAgainstPredictionEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		wantReply string
		wantError string
	}{
		{name: "json answer", status: http.StatusOK, body: `{"answer":"hello"}`, wantReply: "hello"},
		{name: "plain text", status: http.StatusOK, body: "hi there", wantReply: "hi there"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "{}", wantError: chat.MsgRateLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := flowise.NewClient(config.FlowiseConfig{
				APIURL:     srv.URL,
				ChatflowID: "flow",
				APIKey:     "key",
				Timeout:    time.Second,
			}, zap.NewNop())
			require.NoError(t, err)

			p := chat.NewPipeline(client, "session-x", greeting, nil)
			res := p.SendMessage(context.Background(), "question")

			snap := p.Snapshot()
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, snap.Error)
				assert.Len(t, snap.Messages, 2)
				return
			}
			require.NotNil(t, res.Reply)
			assert.Equal(t, tc.wantReply, res.Reply.Text)
			assert.Len(t, snap.Messages, 3)
		})
	}
}
