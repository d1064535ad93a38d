package chat

type EventKind string

const (
	EventMessageAppended     EventKind = "message_appended"
	EventMessageUpdated      EventKind = "message_updated"
	EventStreamingChanged    EventKind = "streaming_changed"
	EventRegeneratingChanged EventKind = "regenerating_changed"
	EventDisplayChanged      EventKind = "display_changed"
	EventTranslatingChanged  EventKind = "translating_changed"
	EventSuggestionsChanged  EventKind = "suggestions_changed"
	EventNotice              EventKind = "notice"
)

// Event describes one state change. Only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind
	MessageID   string
	Message     *Message
	Displayed   string
	Streaming   bool
	Busy        bool
	Suggestions []string
	Notice      string
}

// Observer receives controller events. It is called without the controller
// lock held, possibly from several goroutines.
type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}
