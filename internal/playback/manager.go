// Package playback keeps at most one read-aloud player active per session.
// Starting playback of another message transfers ownership: the previous
// player is stopped before the new one starts.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyContent = errors.New("nothing to read aloud")
	ErrLoading      = errors.New("audio for this message is already loading")
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
)

// Synthesizer fetches audio for text
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SynthesizerFunc adapts a function to Synthesizer
type SynthesizerFunc func(ctx context.Context, text string) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

// Player plays one clip. Start must not block for the length of the clip;
// it calls done once if playback ends on its own. Stop may be called at any
// time, including after done.
type Player interface {
	Start(audio []byte, done func()) error
	Stop()
}

type PlayerFactory func(messageID string) Player

type active struct {
	messageID string
	player    Player
	seq       uint64
}

type Manager struct {
	mu       sync.Mutex
	synth    Synthesizer
	factory  PlayerFactory
	onChange func(messageID string, state State)

	active  *active
	loading string
	seq     uint64
}

// NewManager builds a manager. onChange may be nil; it is called without
// the manager lock held.
func NewManager(synth Synthesizer, factory PlayerFactory, onChange func(messageID string, state State)) *Manager {
	if onChange == nil {
		onChange = func(string, State) {}
	}
	return &Manager{
		synth:    synth,
		factory:  factory,
		onChange: onChange,
	}
}

// Play reads content aloud as messageID. Calling it for the message that is
// already playing stops that playback instead.
func (m *Manager) Play(ctx context.Context, messageID, content string) error {
	m.mu.Lock()
	if m.active != nil && m.active.messageID == messageID {
		m.mu.Unlock()
		m.Stop()
		return nil
	}
	if m.loading == messageID {
		m.mu.Unlock()
		return ErrLoading
	}

	text := chat.StripReferences(content)
	if text == "" {
		m.mu.Unlock()
		return ErrEmptyContent
	}

	m.seq++
	seq := m.seq
	superseded := m.loading
	m.loading = messageID
	m.mu.Unlock()

	if superseded != "" {
		m.onChange(superseded, StateIdle)
	}
	m.onChange(messageID, StateLoading)

	audio, err := m.synth.Synthesize(ctx, text)

	m.mu.Lock()
	if m.seq != seq {
		// another Play or a Stop took over while we were loading
		m.mu.Unlock()
		return nil
	}
	m.loading = ""

	if err != nil {
		m.mu.Unlock()
		m.onChange(messageID, StateIdle)
		return fmt.Errorf("failed to fetch audio: %w", err)
	}

	previous := m.active
	player := m.factory(messageID)
	m.active = &active{messageID: messageID, player: player, seq: seq}
	m.mu.Unlock()

	if previous != nil {
		previous.player.Stop()
		m.onChange(previous.messageID, StateIdle)
	}

	if err := player.Start(audio, func() { m.release(seq) }); err != nil {
		m.release(seq)
		return fmt.Errorf("failed to start playback: %w", err)
	}

	log.Debug().Str("message_id", messageID).Int("bytes", len(audio)).Msg("Playback started")
	m.onChange(messageID, StatePlaying)
	return nil
}

// Stop stops the active player and abandons any clip still loading
func (m *Manager) Stop() {
	m.mu.Lock()
	current := m.active
	loading := m.loading
	m.active = nil
	m.loading = ""
	m.seq++
	m.mu.Unlock()

	if loading != "" {
		m.onChange(loading, StateIdle)
	}
	if current != nil {
		current.player.Stop()
		m.onChange(current.messageID, StateIdle)
	}
}

// Finished releases ownership when the player for messageID ended on its own
func (m *Manager) Finished(messageID string) {
	m.mu.Lock()
	if m.active == nil || m.active.messageID != messageID {
		m.mu.Unlock()
		return
	}
	seq := m.active.seq
	m.mu.Unlock()

	m.release(seq)
}

func (m *Manager) release(seq uint64) {
	m.mu.Lock()
	if m.active == nil || m.active.seq != seq {
		m.mu.Unlock()
		return
	}
	id := m.active.messageID
	m.active = nil
	m.mu.Unlock()

	m.onChange(id, StateIdle)
}

// State reports the playback state of messageID
func (m *Manager) State(messageID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.loading == messageID:
		return StateLoading
	case m.active != nil && m.active.messageID == messageID:
		return StatePlaying
	default:
		return StateIdle
	}
}

// Active returns the message id currently playing, if any
func (m *Manager) Active() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return "", false
	}
	return m.active.messageID, true
}
