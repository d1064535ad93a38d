package services

import (
	"context"

	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/internal/infrastructure/translator"
)

// backend serves a chat controller straight from the services, without a
// round trip through the HTTP routes
type backend struct {
	services *Services
}

// Backend returns a chat.Backend for server-side sessions
func (s *Services) Backend() chat.Backend {
	return &backend{services: s}
}

func (b *backend) StreamChat(ctx context.Context, history []chat.Message) (<-chan []byte, error) {
	return b.services.chatService.Stream(ctx, chat.Turns(history))
}

func (b *backend) SuggestQuestions(ctx context.Context, history []chat.Message) ([]string, error) {
	return b.services.suggestionService.Suggest(ctx, chat.Turns(history))
}

func (b *backend) Translate(ctx context.Context, text string) (string, error) {
	translations, err := b.services.translationService.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	if len(translations) == 0 {
		return "", translator.ErrNoTranslation
	}
	return translations[0].Text, nil
}
