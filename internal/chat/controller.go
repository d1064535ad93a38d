// Package chat holds the session state of a streamed conversation: the
// ordered messages, the active stream and its cancellation, regeneration of
// earlier replies and the translation overlay shown on top of them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRegenerateTimeout = 20 * time.Second
	suggestionTimeout        = 30 * time.Second
)

// Notices raised inline to the user
const (
	NoticeChatFailed        = "An error occurred while chatting."
	NoticeRegenerateTimeout = "Regeneration timed out"
	NoticeTranslationFailed = "Translation failed"
)

var (
	ErrStreaming           = errors.New("a reply is already streaming")
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotAssistant        = errors.New("message is not an assistant reply")
	ErrMessageBusy         = errors.New("message is streaming or being regenerated")
	ErrTranslationInFlight = errors.New("translation already in flight")
	ErrRegenerateTimeout   = errors.New("regeneration timed out")
)

// Backend is the remote side of a chat session
type Backend interface {
	// StreamChat returns raw fragments in arrival order. The channel is
	// closed when the reply is complete.
	StreamChat(ctx context.Context, history []Message) (<-chan []byte, error)
	SuggestQuestions(ctx context.Context, history []Message) ([]string, error)
	Translate(ctx context.Context, text string) (string, error)
}

type Option func(*Controller)

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

func WithRegenerateTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.regenerateTimeout = d
		}
	}
}

// WithHistory resumes a previously persisted conversation
func WithHistory(history []Message) Option {
	return func(c *Controller) {
		c.store = newStore(history)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// Controller owns one chat session. All methods are safe for concurrent use;
// Submit and Regenerate block until their stream finishes.
type Controller struct {
	mu                sync.Mutex
	backend           Backend
	log               zerolog.Logger
	observers         []Observer
	regenerateTimeout time.Duration

	store   *store
	overlay *overlay

	streaming    bool
	primary      *CancelToken
	activeID     string
	tokens       map[*CancelToken]struct{}
	regenerating map[string]*CancelToken

	suggestions []string
	suggestSeq  uint64
	notices     []string

	wg sync.WaitGroup
}

func NewController(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:           backend,
		log:               log.With().Str("component", "chat").Logger(),
		regenerateTimeout: DefaultRegenerateTimeout,
		store:             newStore(nil),
		overlay:           newOverlay(),
		tokens:            make(map[*CancelToken]struct{}),
		regenerating:      make(map[string]*CancelToken),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Submit appends a user message and streams the reply to it. Blank input is
// ignored. A cancelled stream is not an error.
func (c *Controller) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return ErrStreaming
	}

	msg := NewMessage(RoleUser, text)
	c.store.append(msg)
	snap := msg.clone()

	events := []Event{{Kind: EventMessageAppended, MessageID: msg.ID, Message: &snap}}
	if len(c.suggestions) > 0 {
		c.suggestions = nil
		events = append(events, Event{Kind: EventSuggestionsChanged, Suggestions: []string{}})
	}
	c.suggestSeq++

	token, history, started := c.beginLocked(c.store.len() - 1)
	c.mu.Unlock()

	c.emit(events...)
	c.emit(started)

	return c.stream(ctx, token, history)
}

// RunStream streams a new assistant reply to trigger, which must already be
// in the session. History up to and including trigger is sent.
func (c *Controller) RunStream(ctx context.Context, trigger Message) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return ErrStreaming
	}

	_, idx, ok := c.store.get(trigger.ID)
	if !ok {
		c.mu.Unlock()
		return ErrMessageNotFound
	}

	token, history, started := c.beginLocked(idx)
	c.mu.Unlock()

	c.emit(started)

	return c.stream(ctx, token, history)
}

func (c *Controller) beginLocked(idx int) (*CancelToken, []Message, Event) {
	token := c.trackLocked()
	c.primary = token
	c.streaming = true
	c.activeID = ""

	return token, c.store.upTo(idx), Event{Kind: EventStreamingChanged, Streaming: true}
}

func (c *Controller) stream(ctx context.Context, token *CancelToken, history []Message) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(streamCtx, token.Cancel)()

	fragments, err := c.backend.StreamChat(streamCtx, history)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to open chat stream")

		c.mu.Lock()
		c.untrackLocked(token)
		events := c.endPrimaryLocked(token)
		events = append(events, c.noticeLocked(NoticeChatFailed))
		c.mu.Unlock()

		c.emit(events...)
		return fmt.Errorf("failed to open chat stream: %w", err)
	}

	// the reply is appended even when stop raced the open; consume then
	// returns at once and the message stays empty
	c.mu.Lock()
	reply := NewMessage(RoleAssistant, "")
	c.store.append(reply)
	c.activeID = reply.ID
	snap := reply.clone()
	c.mu.Unlock()

	c.emit(Event{Kind: EventMessageAppended, MessageID: reply.ID, Message: &snap})

	c.consume(token, reply.ID, fragments)

	c.mu.Lock()
	completed := !token.IsCancelled()
	c.untrackLocked(token)

	var events []Event
	var suggestFrom []Message
	if completed {
		events = append(events, c.attachReferencesLocked(reply.ID))
		suggestFrom = c.store.snapshot()
	}
	if c.activeID == reply.ID {
		c.activeID = ""
	}
	events = append(events, c.endPrimaryLocked(token)...)
	c.mu.Unlock()

	c.emit(events...)

	if completed {
		c.log.Debug().Str("message_id", reply.ID).Msg("Chat stream completed")
		c.refreshSuggestions(ctx, suggestFrom)
	} else {
		c.log.Debug().Str("message_id", reply.ID).Msg("Chat stream cancelled")
	}

	return nil
}

// consume applies fragments to message id in arrival order until the
// channel closes or the token is cancelled
func (c *Controller) consume(token *CancelToken, id string, fragments <-chan []byte) {
	for {
		if token.IsCancelled() {
			return
		}

		select {
		case <-token.Done():
			return
		case raw, ok := <-fragments:
			if !ok {
				return
			}

			fragment, err := ParseFragment(raw)
			if err != nil {
				c.log.Warn().
					Err(err).
					Str("message_id", id).
					Str("fragment", string(raw)).
					Msg("Skipping malformed fragment")
				continue
			}

			delta, _ := fragment.Delta()
			if !c.applyDelta(token, id, delta) {
				return
			}
		}
	}
}

// applyDelta appends under the lock so nothing lands after Stop returns
func (c *Controller) applyDelta(token *CancelToken, id, delta string) bool {
	c.mu.Lock()
	if token.IsCancelled() {
		c.mu.Unlock()
		return false
	}

	msg, _, ok := c.store.get(id)
	if !ok {
		c.mu.Unlock()
		return false
	}
	msg.Content += delta
	snap := msg.clone()
	c.mu.Unlock()

	c.emit(Event{Kind: EventMessageUpdated, MessageID: id, Message: &snap})
	return true
}

// Stop cancels every live stream of the session and marks it idle at once,
// without waiting for the network
func (c *Controller) Stop() {
	c.mu.Lock()
	for token := range c.tokens {
		token.Cancel()
	}

	var events []Event
	if c.streaming {
		c.streaming = false
		c.primary = nil
		c.activeID = ""
		events = append(events, Event{Kind: EventStreamingChanged, Streaming: false})
	}
	for id := range c.regenerating {
		delete(c.regenerating, id)
		events = append(events, Event{Kind: EventRegeneratingChanged, MessageID: id, Busy: false})
	}
	c.mu.Unlock()

	c.emit(events...)
}

// Regenerate replaces the content of an assistant reply with a fresh stream
// answering the user message before it
func (c *Controller) Regenerate(ctx context.Context, messageID string) error {
	c.mu.Lock()
	msg, idx, ok := c.store.get(messageID)
	switch {
	case !ok:
		c.mu.Unlock()
		return ErrMessageNotFound
	case msg.Role != RoleAssistant:
		c.mu.Unlock()
		return ErrNotAssistant
	case c.streaming:
		c.mu.Unlock()
		return ErrStreaming
	case c.regenerating[messageID] != nil || c.overlay.inFlight[messageID]:
		c.mu.Unlock()
		return ErrMessageBusy
	}

	history := c.historyBeforeLocked(idx)
	msg.Content = ""
	msg.References = nil
	c.overlay.drop(messageID)

	token := c.trackLocked()
	c.regenerating[messageID] = token
	snap := msg.clone()
	c.mu.Unlock()

	c.emit(
		Event{Kind: EventRegeneratingChanged, MessageID: messageID, Busy: true},
		Event{Kind: EventMessageUpdated, MessageID: messageID, Message: &snap},
		Event{Kind: EventDisplayChanged, MessageID: messageID, Displayed: ""},
	)

	regenCtx, cancel := context.WithTimeout(ctx, c.regenerateTimeout)
	defer cancel()
	defer context.AfterFunc(regenCtx, token.Cancel)()

	fragments, err := c.backend.StreamChat(regenCtx, history)
	if err == nil {
		c.consume(token, messageID, fragments)
	}
	timedOut := errors.Is(regenCtx.Err(), context.DeadlineExceeded)

	c.mu.Lock()
	completed := err == nil && !token.IsCancelled()
	c.untrackLocked(token)

	var events []Event
	if c.regenerating[messageID] == token {
		delete(c.regenerating, messageID)
		events = append(events, Event{Kind: EventRegeneratingChanged, MessageID: messageID, Busy: false})
	}

	var suggestFrom []Message
	switch {
	case completed:
		events = append(events, c.attachReferencesLocked(messageID))
		suggestFrom = c.store.snapshot()
	case timedOut:
		events = append(events, c.noticeLocked(NoticeRegenerateTimeout))
	case err != nil:
		events = append(events, c.noticeLocked(NoticeChatFailed))
	}
	c.mu.Unlock()

	c.emit(events...)

	switch {
	case completed:
		c.refreshSuggestions(ctx, suggestFrom)
		return nil
	case timedOut:
		c.log.Warn().
			Str("message_id", messageID).
			Dur("timeout", c.regenerateTimeout).
			Msg("Regeneration timed out")
		return ErrRegenerateTimeout
	case err != nil:
		c.log.Error().Err(err).Str("message_id", messageID).Msg("Failed to open regeneration stream")
		return fmt.Errorf("failed to open regeneration stream: %w", err)
	}
	return nil
}

// historyBeforeLocked returns the conversation up to the last user message
// before idx
func (c *Controller) historyBeforeLocked(idx int) []Message {
	for i := idx - 1; i >= 0; i-- {
		if c.store.messages[i].Role == RoleUser {
			return c.store.upTo(i)
		}
	}
	if idx == 0 {
		return []Message{}
	}
	return c.store.upTo(idx - 1)
}

// ToggleTranslation flips the displayed side of a message between its
// original text and its translation. displayed is what the user currently
// sees. The translated side carries the references tail reformatted one
// entry per line; reverting restores the pre-toggle text exactly.
func (c *Controller) ToggleTranslation(ctx context.Context, messageID, displayed string) error {
	c.mu.Lock()
	if _, _, ok := c.store.get(messageID); !ok {
		c.mu.Unlock()
		return ErrMessageNotFound
	}
	if (c.streaming && c.activeID == messageID) || c.regenerating[messageID] != nil {
		c.mu.Unlock()
		return ErrMessageBusy
	}
	if c.overlay.inFlight[messageID] {
		c.mu.Unlock()
		return ErrTranslationInFlight
	}

	body, tail, hasTail := SplitReferences(displayed)
	references := formatReferences(tail, hasTail)

	if c.overlay.showing[messageID] {
		text := c.overlay.original[messageID]
		c.overlay.showing[messageID] = false
		c.overlay.display[messageID] = text
		c.mu.Unlock()

		c.emit(Event{Kind: EventDisplayChanged, MessageID: messageID, Displayed: text})
		return nil
	}

	c.overlay.inFlight[messageID] = true
	c.overlay.display[messageID] = TranslatingPlaceholder
	cached, hasCached := c.overlay.translated[messageID]
	c.mu.Unlock()

	c.emit(
		Event{Kind: EventTranslatingChanged, MessageID: messageID, Busy: true},
		Event{Kind: EventDisplayChanged, MessageID: messageID, Displayed: TranslatingPlaceholder},
	)

	translated := cached
	var err error
	if !hasCached {
		translated, err = c.backend.Translate(ctx, strings.TrimSpace(body))
	}

	c.mu.Lock()
	delete(c.overlay.inFlight, messageID)
	events := []Event{{Kind: EventTranslatingChanged, MessageID: messageID, Busy: false}}

	if err != nil {
		c.overlay.display[messageID] = displayed
		events = append(events,
			Event{Kind: EventDisplayChanged, MessageID: messageID, Displayed: displayed},
			c.noticeLocked(NoticeTranslationFailed),
		)
		c.mu.Unlock()

		c.emit(events...)
		c.log.Error().Err(err).Str("message_id", messageID).Msg("Translation failed")
		return fmt.Errorf("translation failed: %w", err)
	}

	c.overlay.captureOriginal(messageID, displayed)
	c.overlay.translated[messageID] = translated
	c.overlay.showing[messageID] = true

	text := translated
	if hasTail {
		text = translated + "\n\n" + references
	}
	c.overlay.display[messageID] = text
	events = append(events, Event{Kind: EventDisplayChanged, MessageID: messageID, Displayed: text})
	c.mu.Unlock()

	c.emit(events...)
	return nil
}

// Notify raises an inline notice
func (c *Controller) Notify(notice string) {
	c.mu.Lock()
	event := c.noticeLocked(notice)
	c.mu.Unlock()

	c.emit(event)
}

func (c *Controller) refreshSuggestions(ctx context.Context, history []Message) {
	c.mu.Lock()
	c.suggestSeq++
	seq := c.suggestSeq
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), suggestionTimeout)
		defer cancel()

		questions, err := c.backend.SuggestQuestions(ctx, history)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to fetch suggested questions")
			questions = nil
		}
		if questions == nil {
			questions = []string{}
		}

		c.mu.Lock()
		if seq != c.suggestSeq {
			c.mu.Unlock()
			return
		}
		c.suggestions = questions
		snap := append([]string(nil), questions...)
		c.mu.Unlock()

		c.emit(Event{Kind: EventSuggestionsChanged, Suggestions: snap})
	}()
}

// Wait blocks until background suggestion fetches have finished
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) attachReferencesLocked(id string) Event {
	msg, _, ok := c.store.get(id)
	if !ok {
		return Event{Kind: EventMessageUpdated, MessageID: id}
	}
	msg.References = ExtractReferences(msg.Content)
	snap := msg.clone()
	return Event{Kind: EventMessageUpdated, MessageID: id, Message: &snap}
}

func (c *Controller) endPrimaryLocked(token *CancelToken) []Event {
	if c.primary != token {
		return nil
	}
	c.primary = nil
	c.streaming = false
	return []Event{{Kind: EventStreamingChanged, Streaming: false}}
}

func (c *Controller) noticeLocked(notice string) Event {
	c.notices = append(c.notices, notice)
	return Event{Kind: EventNotice, Notice: notice}
}

func (c *Controller) trackLocked() *CancelToken {
	token := NewCancelToken()
	c.tokens[token] = struct{}{}
	return token
}

func (c *Controller) untrackLocked(token *CancelToken) {
	delete(c.tokens, token)
}

func (c *Controller) emit(events ...Event) {
	for _, e := range events {
		for _, o := range c.observers {
			o.OnEvent(e)
		}
	}
}

// Messages returns a snapshot of the conversation in display order
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.snapshot()
}

func (c *Controller) Message(id string) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, _, ok := c.store.get(id)
	if !ok {
		return Message{}, false
	}
	return msg.clone(), true
}

// Displayed returns the text shown for a message, which differs from its
// content while a translation overlay is active
func (c *Controller) Displayed(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if text, ok := c.overlay.displayed(id); ok {
		return text
	}
	if msg, _, ok := c.store.get(id); ok {
		return msg.Content
	}
	return ""
}

func (c *Controller) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

func (c *Controller) IsRegenerating(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regenerating[id] != nil
}

func (c *Controller) IsTranslating(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay.inFlight[id]
}

func (c *Controller) IsTranslated(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay.showing[id]
}

func (c *Controller) Suggestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.suggestions...)
}

func (c *Controller) Notices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.notices...)
}
