package realtime

import (
	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/internal/infrastructure/assistant"
)

// Client commands
const (
	CommandSubmit     = "submit"
	CommandStop       = "stop"
	CommandRegenerate = "regenerate"
	CommandTranslate  = "translate"
	CommandReadAloud  = "read_aloud"
	CommandStopAudio  = "stop_audio"
	CommandAudioEnded = "audio_ended"
)

// Server events besides the controller's own kinds
const (
	EventSession    = "session"
	EventAssistant  = "assistant"
	EventFiles      = "files"
	EventError      = "error"
	EventAudioState = "audio_state"
	EventAudioStart = "audio_start"
	EventAudioEnd   = "audio_end"
	EventAudioStop  = "audio_stop"
)

// Command is a JSON text frame sent by the browser
type Command struct {
	Type      string `json:"type" validate:"required,oneof=submit stop regenerate translate read_aloud stop_audio audio_ended"`
	Text      string `json:"text,omitempty" validate:"max=32000"`
	MessageID string `json:"message_id,omitempty" validate:"omitempty,uuid"`
}

// needsMessage reports whether the command targets a message
func (c Command) needsMessage() bool {
	switch c.Type {
	case CommandRegenerate, CommandTranslate, CommandReadAloud, CommandAudioEnded:
		return true
	}
	return false
}

// Envelope is a JSON text frame sent to the browser. Only the fields relevant
// to Type are set.
type Envelope struct {
	Type        string           `json:"type"`
	SessionID   string           `json:"session_id,omitempty"`
	MessageID   string           `json:"message_id,omitempty"`
	Message     *chat.Message    `json:"message,omitempty"`
	Messages    []chat.Message   `json:"messages,omitempty"`
	Displayed   string           `json:"displayed,omitempty"`
	Streaming   *bool            `json:"streaming,omitempty"`
	Busy        *bool            `json:"busy,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Notice      string           `json:"notice,omitempty"`
	Error       string           `json:"error,omitempty"`
	State       string           `json:"state,omitempty"`
	Assistant   *AssistantStatus `json:"assistant,omitempty"`
	Files       []assistant.File `json:"files,omitempty"`
}

type AssistantStatus struct {
	Exists        bool   `json:"exists"`
	AssistantName string `json:"assistant_name"`
}

func fromEvent(e chat.Event) Envelope {
	env := Envelope{
		Type:      string(e.Kind),
		MessageID: e.MessageID,
		Message:   e.Message,
		Notice:    e.Notice,
	}

	switch e.Kind {
	case chat.EventStreamingChanged:
		streaming := e.Streaming
		env.Streaming = &streaming
	case chat.EventRegeneratingChanged, chat.EventTranslatingChanged:
		busy := e.Busy
		env.Busy = &busy
	case chat.EventDisplayChanged:
		env.Displayed = e.Displayed
	case chat.EventSuggestionsChanged:
		env.Suggestions = e.Suggestions
	}

	return env
}
