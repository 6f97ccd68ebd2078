package response

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// streamLLM emits tokens, then fails with failAfter if set, or blocks until
// cancelled when hang is true.
type streamLLM struct {
	tokens    []string
	failAfter error
	hang      bool

	mu       sync.Mutex
	messages []llm.Message
	calls    int
}

func (s *streamLLM) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *streamLLM) Generate(context.Context, string, ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *streamLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenFunc, _ ...llm.Option) error {
	s.mu.Lock()
	s.calls++
	s.messages = history
	s.mu.Unlock()

	for _, tok := range s.tokens {
		if err := onToken(tok); err != nil {
			return err
		}
	}
	if s.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.failAfter
}

type recordingPersister struct {
	mu    sync.Mutex
	saved []*entity.Interaction
	ctxOK bool
}

func (r *recordingPersister) Append(ctx context.Context, query, answer string, truncated bool) (*entity.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxOK = ctx.Err() == nil
	in := &entity.Interaction{Id: uint64(len(r.saved) + 1), Query: query, Answer: answer, Truncated: truncated}
	r.saved = append(r.saved, in)
	return in, nil
}

func (r *recordingPersister) all() []*entity.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.Interaction(nil), r.saved...)
}

func newGenerator(l llm.LLMProvider, p Persister) *Generator {
	return NewGenerator(l, p, Config{Temperature: 0.3, PersistTimeout: time.Second}, logger.NewNopLogger())
}

func drain(t *testing.T, s *Stream) (string, error) {
	t.Helper()
	var out string
	for {
		tok, err := s.Recv()
		if err != nil {
			return out, err
		}
		out += tok
	}
}

func request(query string) Request {
	return Request{
		Query: query,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "sys"},
			{Role: llm.RoleUser, Content: query},
		},
	}
}

func TestStreamDeliversTokensAndPersists(t *testing.T) {
	l := &streamLLM{tokens: []string{"Use ", "a ", "mutex."}}
	p := &recordingPersister{}
	g := newGenerator(l, p)

	var notified *entity.Interaction
	g.OnPersist(func(in *entity.Interaction) { notified = in })

	s, err := g.Start(context.Background(), request("how do I guard a map?"))
	require.NoError(t, err)

	answer, err := drain(t, s)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "Use a mutex.", answer)

	saved := p.all()
	require.Len(t, saved, 1)
	assert.Equal(t, "how do I guard a map?", saved[0].Query)
	assert.Equal(t, "Use a mutex.", saved[0].Answer)
	assert.False(t, saved[0].Truncated)
	assert.Equal(t, saved[0], notified)
	assert.Equal(t, 1, l.calls)

	// Exhausted streams stay exhausted
	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, s.Close())
}

func TestStartSurfacesErrorBeforeFirstToken(t *testing.T) {
	l := &streamLLM{failAfter: errors.New("model not found")}
	p := &recordingPersister{}

	s, err := newGenerator(l, p).Start(context.Background(), request("q"))
	require.Nil(t, s)

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Error(), "model not found")
	assert.Empty(t, p.all())
}

func TestMidStreamFailurePersistsPartialAnswer(t *testing.T) {
	l := &streamLLM{tokens: []string{"partial ", "answer"}, failAfter: errors.New("connection reset")}
	p := &recordingPersister{}

	s, err := newGenerator(l, p).Start(context.Background(), request("q"))
	require.NoError(t, err)

	answer, err := drain(t, s)
	assert.Equal(t, "partial answer", answer)

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)

	saved := p.all()
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Truncated)
	assert.Equal(t, "partial answer", saved[0].Answer)
}

func TestCloseCancelsAndPersistsOnDetachedContext(t *testing.T) {
	l := &streamLLM{tokens: []string{"first"}, hang: true}
	p := &recordingPersister{}

	ctx, cancel := context.WithCancel(context.Background())
	s, err := newGenerator(l, p).Start(ctx, request("q"))
	require.NoError(t, err)

	tok, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "first", tok)

	// Client goes away
	cancel()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	saved := p.all()
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Truncated)
	assert.Equal(t, "first", saved[0].Answer)
	assert.True(t, p.ctxOK, "persistence must not inherit request cancellation")

	_, err = s.Recv()
	var gerr *GenerationError
	assert.ErrorAs(t, err, &gerr)
}

func TestEmptyAnswerIsNotPersisted(t *testing.T) {
	l := &streamLLM{}
	p := &recordingPersister{}

	s, err := newGenerator(l, p).Start(context.Background(), request("q"))
	require.NoError(t, err)

	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
	assert.Empty(t, p.all())
}

func TestStartHonorsCancelledContext(t *testing.T) {
	l := &streamLLM{hang: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newGenerator(l, &recordingPersister{}).Start(ctx, request("q"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeneratorPassesMessagesThrough(t *testing.T) {
	l := &streamLLM{tokens: []string{"ok"}}
	req := request("q")

	s, err := newGenerator(l, nil).Start(context.Background(), req)
	require.NoError(t, err)
	_, _ = drain(t, s)

	assert.Equal(t, req.Messages, l.messages)
}
