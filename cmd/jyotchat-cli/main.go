package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/jyotchat/jyotchat/internal/playback"
	"github.com/jyotchat/jyotchat/pkg/logger"
	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
)

const help = `Type a message to chat. Commands:
  /stop            stop the reply being streamed
  /regen [n]       regenerate reply n (default: latest)
  /translate [n]   toggle the translation of reply n
  /read [n]        read reply n aloud, again to stop
  /quiet           stop reading aloud
  /ask <n>         send suggested question n
  /files           list the assistant's documents
  /help            show this help
  /quit            exit`

func main() {
	_ = godotenv.Load()
	logger.Init()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := historyPath()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer saveHistory(line, historyFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	backend := chat.NewHTTPBackend(config.GetServerURL())
	r := newREPL(os.Stdout, backend, config.GetPlayerCommand())
	defer r.close()

	r.greet(ctx)
	fmt.Fprintln(r.out, help)

	for {
		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to read input")
			return
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if !r.handle(ctx, input) {
			return
		}
	}
}

// backend is what the REPL needs from the server
type backend interface {
	chat.Backend
	ReadAloud(ctx context.Context, text string) ([]byte, error)
	AssistantInfo(ctx context.Context) (*chat.AssistantStatus, error)
	Files(ctx context.Context) ([]chat.File, error)
}

type repl struct {
	mu      sync.Mutex
	out     io.Writer
	backend backend
	printed map[string]int

	controller *chat.Controller
	playback   *playback.Manager
	wg         sync.WaitGroup
}

func newREPL(out io.Writer, b backend, player []string) *repl {
	r := &repl{
		out:     out,
		backend: b,
		printed: make(map[string]int),
	}
	r.controller = chat.NewController(b, chat.WithObserver(chat.ObserverFunc(r.onEvent)))
	if len(player) > 0 {
		r.playback = playback.NewManager(playback.SynthesizerFunc(b.ReadAloud), playback.CommandFactory(player), r.onPlayback)
	}
	return r
}

func (r *repl) greet(ctx context.Context) {
	status, err := r.backend.AssistantInfo(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Assistant check failed")
		r.controller.Notify("Error connecting to the Assistant")
		return
	case !status.Exists:
		r.controller.Notify("Please create an Assistant")
		return
	}

	r.printf("Connected to %s\n", status.Name)
	if files, err := r.backend.Files(ctx); err == nil && len(files) > 0 {
		r.printf("%d documents available, /files to list them\n", len(files))
	}
}

// handle runs one line of input and reports whether to keep going
func (r *repl) handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	if !strings.HasPrefix(input, "/") {
		r.submit(ctx, input)
		return true
	}

	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return false
	case "/help":
		r.printf("%s\n", help)
	case "/stop":
		r.controller.Stop()
	case "/regen":
		r.withReply(arg, func(id string) {
			r.background(func() { r.report(r.controller.Regenerate(ctx, id)) })
		})
	case "/translate":
		r.withReply(arg, func(id string) {
			r.background(func() { r.report(r.controller.ToggleTranslation(ctx, id, r.controller.Displayed(id))) })
		})
	case "/read":
		if r.playback == nil {
			r.printf("Read aloud is disabled, set JYOTCHAT_PLAYER\n")
			return true
		}
		r.withReply(arg, func(id string) {
			r.background(func() { r.report(r.playback.Play(ctx, id, r.controller.Displayed(id))) })
		})
	case "/quiet":
		if r.playback != nil {
			r.playback.Stop()
		}
	case "/ask":
		suggestions := r.controller.Suggestions()
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(suggestions) {
			r.printf("No suggestion %q\n", arg)
			return true
		}
		r.submit(ctx, suggestions[n-1])
	case "/files":
		files, err := r.backend.Files(ctx)
		if err != nil {
			r.report(err)
			return true
		}
		for _, f := range files {
			r.printf("  %s\n", f.Name)
		}
	default:
		r.printf("Unknown command %s, /help lists them\n", cmd)
	}
	return true
}

func (r *repl) submit(ctx context.Context, text string) {
	if r.controller.IsStreaming() {
		r.printf("Still answering, /stop first\n")
		return
	}
	r.background(func() { r.report(r.controller.Submit(ctx, text)) })
}

// withReply resolves a 1-based reply number, defaulting to the latest reply
func (r *repl) withReply(arg string, fn func(id string)) {
	var replies []string
	for _, m := range r.controller.Messages() {
		if m.Role == chat.RoleAssistant {
			replies = append(replies, m.ID)
		}
	}
	if len(replies) == 0 {
		r.printf("No replies yet\n")
		return
	}

	n := len(replies)
	if arg != "" {
		var err error
		if n, err = strconv.Atoi(arg); err != nil || n < 1 || n > len(replies) {
			r.printf("No reply %q\n", arg)
			return
		}
	}
	fn(replies[n-1])
}

func (r *repl) replyNumber(id string) int {
	n := 0
	for _, m := range r.controller.Messages() {
		if m.Role == chat.RoleAssistant {
			n++
			if m.ID == id {
				return n
			}
		}
	}
	return n
}

func (r *repl) onEvent(e chat.Event) {
	switch e.Kind {
	case chat.EventMessageAppended:
		if e.Message.Role == chat.RoleAssistant {
			r.mu.Lock()
			r.printed[e.MessageID] = 0
			r.mu.Unlock()
			r.printf("\n[%d] ", r.replyNumber(e.MessageID))
		}
	case chat.EventMessageUpdated:
		r.printDelta(e.MessageID, e.Message.Content)
	case chat.EventStreamingChanged:
		if !e.Streaming {
			r.printf("\n")
		}
	case chat.EventRegeneratingChanged:
		if e.Busy {
			r.mu.Lock()
			r.printed[e.MessageID] = 0
			r.mu.Unlock()
			r.printf("\n[%d] ", r.replyNumber(e.MessageID))
		} else {
			r.printf("\n")
		}
	case chat.EventDisplayChanged:
		if e.Displayed != chat.TranslatingPlaceholder {
			r.printf("\n[%d] %s\n", r.replyNumber(e.MessageID), e.Displayed)
		}
	case chat.EventSuggestionsChanged:
		for i, q := range e.Suggestions {
			r.printf("  (%d) %s\n", i+1, q)
		}
	case chat.EventNotice:
		r.printf("! %s\n", e.Notice)
	}
}

func (r *repl) printDelta(id, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	done := r.printed[id]
	if done > len(content) {
		done = 0
	}
	fmt.Fprint(r.out, content[done:])
	r.printed[id] = len(content)
}

func (r *repl) onPlayback(messageID string, state playback.State) {
	if state == playback.StateLoading {
		r.printf("(fetching audio for reply %d)\n", r.replyNumber(messageID))
	}
}

func (r *repl) report(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	r.printf("! %v\n", err)
}

func (r *repl) background(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *repl) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) close() {
	r.controller.Stop()
	if r.playback != nil {
		r.playback.Stop()
	}
	r.wg.Wait()
	r.controller.Wait()
}

func historyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "jyotchat", "history")
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
