package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu      sync.Mutex
	id      string
	audio   []byte
	done    func()
	stopped bool
}

func (p *fakePlayer) Start(audio []byte, done func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audio = audio
	p.done = done
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

func (p *fakePlayer) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

type harness struct {
	mu      sync.Mutex
	players []*fakePlayer
	texts   []string
	states  []string
}

func (h *harness) factory(id string) Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := &fakePlayer{id: id}
	h.players = append(h.players, p)
	return p
}

func (h *harness) synth(ctx context.Context, text string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.texts = append(h.texts, text)
	return []byte("audio:" + text), nil
}

func (h *harness) onChange(id string, state State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, id+"="+string(state))
}

func newHarness() (*harness, *Manager) {
	h := &harness{}
	return h, NewManager(SynthesizerFunc(h.synth), h.factory, h.onChange)
}

func TestPlayTransfersOwnership(t *testing.T) {
	h, m := newHarness()
	ctx := context.Background()

	require.NoError(t, m.Play(ctx, "a", "First answer\n\nReferences:\nx.pdf"))
	require.NoError(t, m.Play(ctx, "b", "Second answer"))

	require.Len(t, h.players, 2)
	assert.True(t, h.players[0].isStopped(), "previous player is stopped")
	assert.False(t, h.players[1].isStopped())
	assert.Equal(t, []string{"First answer", "Second answer"}, h.texts)

	id, ok := m.Active()
	assert.True(t, ok)
	assert.Equal(t, "b", id)
	assert.Equal(t, StateIdle, m.State("a"))
	assert.Equal(t, StatePlaying, m.State("b"))
	assert.Equal(t, []string{"a=loading", "a=playing", "b=loading", "a=idle", "b=playing"}, h.states)
}

func TestPlayTogglesOff(t *testing.T) {
	h, m := newHarness()
	ctx := context.Background()

	require.NoError(t, m.Play(ctx, "a", "hello"))
	require.NoError(t, m.Play(ctx, "a", "hello"))

	assert.True(t, h.players[0].isStopped())
	_, ok := m.Active()
	assert.False(t, ok)
	assert.Len(t, h.texts, 1, "toggling off does not fetch audio")
}

func TestPlayerFinishingReleasesOwnership(t *testing.T) {
	h, m := newHarness()

	require.NoError(t, m.Play(context.Background(), "a", "hello"))
	h.players[0].done()

	_, ok := m.Active()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, m.State("a"))

	// a stale done from a replaced player is ignored
	require.NoError(t, m.Play(context.Background(), "b", "again"))
	h.players[0].done()
	assert.Equal(t, StatePlaying, m.State("b"))

	m.Finished("b")
	assert.Equal(t, StateIdle, m.State("b"))
}

func TestStopAbandonsLoading(t *testing.T) {
	release := make(chan struct{})
	var players []*fakePlayer
	m := NewManager(SynthesizerFunc(func(ctx context.Context, text string) ([]byte, error) {
		<-release
		return []byte("x"), nil
	}), func(id string) Player {
		p := &fakePlayer{id: id}
		players = append(players, p)
		return p
	}, nil)

	done := make(chan error, 1)
	go func() { done <- m.Play(context.Background(), "a", "hello") }()

	require.Eventually(t, func() bool { return m.State("a") == StateLoading }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, m.Play(context.Background(), "a", "hello"), ErrLoading)

	m.Stop()
	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, players, "abandoned clip never starts")
	assert.Equal(t, StateIdle, m.State("a"))
}

func TestPlayErrors(t *testing.T) {
	m := NewManager(SynthesizerFunc(func(ctx context.Context, text string) ([]byte, error) {
		return nil, errors.New("503")
	}), func(string) Player { return &fakePlayer{} }, nil)

	assert.ErrorIs(t, m.Play(context.Background(), "a", "References:\nx.pdf"), ErrEmptyContent)
	assert.Error(t, m.Play(context.Background(), "a", "hello"))
	assert.Equal(t, StateIdle, m.State("a"))
}
