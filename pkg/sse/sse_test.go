package sse

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan []byte) []string {
	t.Helper()
	var out []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(data))
		case <-timeout:
			t.Fatal("timed out reading stream")
			return nil
		}
	}
}

func TestWriterRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.Send("", []byte(`{"a":1}`)))
	require.NoError(t, w.Send("notice", []byte(`hello`)))
	require.NoError(t, w.Done())

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	got := collect(t, Read(context.Background(), io.NopCloser(rec.Body)))
	assert.Equal(t, []string{`{"a":1}`, "hello"}, got)
}

func TestReadSkipsNoise(t *testing.T) {
	body := strings.Join([]string{
		": keepalive",
		"",
		"event: chunk",
		"data: one",
		"id: 7",
		"data:two",
		"data: [DONE]",
		"data: after-done",
	}, "\n")

	got := collect(t, Read(context.Background(), io.NopCloser(strings.NewReader(body))))
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestReadStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	ch := Read(ctx, pr)
	go func() {
		for i := 0; i < 100; i++ {
			if _, err := pw.Write([]byte("data: x\n\n")); err != nil {
				return
			}
		}
	}()

	<-ch
	cancel()
	pw.CloseWithError(io.ErrClosedPipe)

	// drains and closes
	for range ch {
	}
}
