// Package realtime serves the browser chat over a websocket. Each connection
// owns one chat controller and one read-aloud playback manager; commands
// arrive as JSON text frames and state changes go back the same way, with
// synthesized audio sent as binary frames.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/jyotchat/jyotchat/internal/api/v1/middleware"
	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/jyotchat/jyotchat/internal/connections"
	"github.com/jyotchat/jyotchat/internal/infrastructure/assistant"
	"github.com/jyotchat/jyotchat/internal/playback"
	"github.com/jyotchat/jyotchat/internal/services"
	"github.com/jyotchat/jyotchat/internal/services/speech"
	"github.com/rs/zerolog"
)

const (
	NoticeAssistantMissing   = "Please create an Assistant"
	NoticeAssistantUnreached = "Error connecting to the Assistant"

	saveTimeout = 5 * time.Second
)

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// errors a client can act on; anything else is logged only
var clientErrors = []error{
	chat.ErrStreaming,
	chat.ErrMessageNotFound,
	chat.ErrNotAssistant,
	chat.ErrMessageBusy,
	chat.ErrTranslationInFlight,
	playback.ErrLoading,
	playback.ErrEmptyContent,
	speech.ErrNotConfigured,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := config.GetAllowedOrigins()
	return len(allowed) == 0 || slices.Contains(allowed, origin)
}

// Session is one connected browser tab
type Session struct {
	id       string
	conn     *websocket.Conn
	writeMu  sync.Mutex
	timeouts connections.TimeoutConfig
	services *services.Services
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	controller *chat.Controller
	playback   *playback.Manager
}

// HandleChatSession upgrades the request and serves it until the socket
// closes. The session cookie is resumed or issued on the upgrade response.
func HandleChatSession(svcs *services.Services, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context())

	claims, err := svcs.GetSessionService().Resume(w, r)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resume session")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	history, err := svcs.GetTranscriptService().Load(r.Context(), claims.SessionID)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", claims.SessionID).Msg("Failed to load transcript, starting fresh")
		history = nil
	}

	// the upgrade hijacks the connection, so the cookie has to travel in
	// the handshake response headers
	header := http.Header{}
	for _, cookie := range w.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", cookie)
	}

	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not upgrade connection")
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	s := &Session{
		id:       claims.SessionID,
		conn:     conn,
		timeouts: manager.GetTimeouts(),
		services: svcs,
		logger:   logger.With().Str("session_id", claims.SessionID).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.controller = chat.NewController(svcs.Backend(),
		chat.WithHistory(history),
		chat.WithObserver(s),
		chat.WithLogger(s.logger),
	)
	s.playback = playback.NewManager(playback.SynthesizerFunc(s.synthesize), s.newPlayer, s.onPlaybackChange)

	manager.AddConnection(conn, s.id)
	middleware.ActiveSessions.Inc()
	s.logger.Info().Int("history", len(history)).Msg("Chat session connected")

	defer func() {
		s.close()
		manager.RemoveConnection(conn)
		middleware.ActiveSessions.Dec()
		s.logger.Info().Msg("Chat session disconnected")
	}()

	s.run(history)
}

func (s *Session) run(history []chat.Message) {
	s.conn.SetReadDeadline(time.Now().Add(s.timeouts.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.timeouts.PongWait))
	})

	go s.pingLoop()

	if err := s.send(Envelope{Type: EventSession, SessionID: s.id, Messages: history}); err != nil {
		return
	}

	s.goTrack(s.checkAssistant)

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Unexpected websocket close")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		s.conn.SetReadDeadline(time.Now().Add(s.timeouts.PongWait))
		s.handle(data)
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.timeouts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(s.timeouts.WriteWait)
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, []byte{}, deadline)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) handle(data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.sendError("Invalid command format")
		return
	}
	if err := validate.Struct(cmd); err != nil {
		s.sendError("Invalid command: " + err.Error())
		return
	}
	if cmd.needsMessage() && cmd.MessageID == "" {
		s.sendError("message_id is required")
		return
	}

	s.logger.Debug().Str("command", cmd.Type).Str("message_id", cmd.MessageID).Msg("Received command")

	switch cmd.Type {
	case CommandSubmit:
		s.goTrack(func() {
			s.report(s.controller.Submit(s.ctx, cmd.Text))
			s.save()
		})
	case CommandStop:
		s.controller.Stop()
	case CommandRegenerate:
		s.goTrack(func() {
			s.report(s.controller.Regenerate(s.ctx, cmd.MessageID))
			s.save()
		})
	case CommandTranslate:
		s.goTrack(func() {
			s.report(s.controller.ToggleTranslation(s.ctx, cmd.MessageID, s.controller.Displayed(cmd.MessageID)))
		})
	case CommandReadAloud:
		if _, ok := s.controller.Message(cmd.MessageID); !ok {
			s.report(chat.ErrMessageNotFound)
			return
		}
		s.goTrack(func() {
			s.report(s.playback.Play(s.ctx, cmd.MessageID, s.controller.Displayed(cmd.MessageID)))
		})
	case CommandStopAudio:
		s.playback.Stop()
	case CommandAudioEnded:
		s.playback.Finished(cmd.MessageID)
	}
}

// report forwards errors a client can act on and logs the rest. Stream
// failures already surfaced as notices.
func (s *Session) report(err error) {
	if err == nil {
		return
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			s.sendError(target.Error())
			return
		}
	}
	if s.ctx.Err() == nil {
		s.logger.Warn().Err(err).Msg("Command failed")
	}
}

func (s *Session) checkAssistant() {
	svc := s.services.GetAssistantService()
	if svc == nil {
		s.controller.Notify(NoticeAssistantMissing)
		return
	}

	info, err := svc.Describe(s.ctx)
	if errors.Is(err, assistant.ErrNotFound) {
		s.controller.Notify(NoticeAssistantMissing)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to check assistant")
		s.controller.Notify(NoticeAssistantUnreached)
		return
	}

	if err := s.send(Envelope{Type: EventAssistant, Assistant: &AssistantStatus{Exists: true, AssistantName: info.Name}}); err != nil {
		return
	}

	files, err := svc.ListFiles(s.ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list assistant files")
		return
	}
	_ = s.send(Envelope{Type: EventFiles, Files: files})
}

// OnEvent forwards controller state changes to the browser
func (s *Session) OnEvent(e chat.Event) {
	_ = s.send(fromEvent(e))
}

func (s *Session) synthesize(ctx context.Context, text string) ([]byte, error) {
	audio, err := s.services.GetSpeechService().ReadAloud(ctx, text)
	if err != nil {
		return nil, err
	}
	return audio.Data, nil
}

func (s *Session) onPlaybackChange(messageID string, state playback.State) {
	_ = s.send(Envelope{Type: EventAudioState, MessageID: messageID, State: string(state)})
}

func (s *Session) goTrack(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Session) save() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), saveTimeout)
	defer cancel()

	if err := s.services.GetTranscriptService().Save(ctx, s.id, s.controller.Messages()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save transcript")
	}
}

func (s *Session) close() {
	s.cancel()
	s.controller.Stop()
	s.playback.Stop()
	s.wg.Wait()
	s.controller.Wait()
	s.save()
	s.conn.Close()
}

func (s *Session) send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error().Err(err).Str("type", env.Type).Msg("Failed to encode event")
		return err
	}
	return s.write(websocket.TextMessage, data)
}

func (s *Session) sendError(message string) {
	_ = s.send(Envelope{Type: EventError, Error: message})
}

func (s *Session) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.timeouts.WriteWait))
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write to websocket")
		return err
	}
	return nil
}
