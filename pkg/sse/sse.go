// Package sse writes and reads text/event-stream bodies.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DoneMarker terminates a stream of data events.
const DoneMarker = "[DONE]"

var ErrStreamingUnsupported = errors.New("streaming not supported")

// Writer emits server-sent events and flushes after each one.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter sets the event-stream headers and returns a Writer. The status
// line is not written until the first event.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one event. An empty event name writes a bare data line.
func (s *Writer) Send(event string, data []byte) error {
	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Done writes the terminating marker.
func (s *Writer) Done() error {
	return s.Send("", []byte(DoneMarker))
}

// Read parses data lines from body into a channel. The channel is closed
// when the stream ends, the done marker arrives, or ctx is cancelled. Body
// is closed on return.
func Read(ctx context.Context, body io.ReadCloser) <-chan []byte {
	ch := make(chan []byte, 16)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()

			// Skip empty lines, comments and event names.
			if len(line) == 0 || line[0] == ':' {
				continue
			}
			if !bytes.HasPrefix(line, []byte("data:")) {
				continue
			}
			data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))

			if bytes.Equal(data, []byte(DoneMarker)) {
				return
			}

			payload := make([]byte, len(data))
			copy(payload, data)

			select {
			case ch <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
