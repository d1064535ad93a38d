package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jyotchat/jyotchat/internal/playback"
)

// socketPlayer hands a clip to the browser: an audio_start event, one binary
// frame of MP3 data, then audio_end. The browser reports audio_ended when it
// finishes, which releases ownership through the playback manager.
type socketPlayer struct {
	mu        sync.Mutex
	session   *Session
	messageID string
	started   bool
	stopped   bool
}

func (s *Session) newPlayer(messageID string) playback.Player {
	return &socketPlayer{session: s, messageID: messageID}
}

func (p *socketPlayer) Start(audio []byte, done func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.session.send(Envelope{Type: EventAudioStart, MessageID: p.messageID}); err != nil {
		return err
	}
	if err := p.session.write(websocket.BinaryMessage, audio); err != nil {
		return err
	}
	p.started = true
	return p.session.send(Envelope{Type: EventAudioEnd, MessageID: p.messageID})
}

func (p *socketPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return
	}
	p.stopped = true
	_ = p.session.send(Envelope{Type: EventAudioStop, MessageID: p.messageID})
}
