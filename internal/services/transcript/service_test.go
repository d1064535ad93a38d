package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptMemoryStore(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, time.Hour)

	got, err := svc.Load(ctx, "new")
	require.NoError(t, err)
	assert.Nil(t, got)

	messages := []chat.Message{
		chat.NewMessage(chat.RoleUser, "hello"),
		chat.NewMessage(chat.RoleAssistant, "hi, see a.pdf"),
	}
	require.NoError(t, svc.Save(ctx, "s1", messages))

	// later mutation of the caller's slice does not leak in
	messages[0].Content = "changed"

	got, err = svc.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hello", got[0].Content)

	require.NoError(t, svc.Delete(ctx, "s1"))
	got, err = svc.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
