package config

import (
	"time"

	"github.com/jyotchat/jyotchat/pkg/logger"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		"global": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_GLOBAL", 1000), // 1000 requests per minute globally
			Window:  time.Minute,
		},
		"chat_stream": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_CHAT_STREAM", 30),
			Window:  time.Minute,
		},
		"suggest_questions": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_SUGGEST_QUESTIONS", 30),
			Window:  time.Minute,
		},
		"translate": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_TRANSLATE", 60),
			Window:  time.Minute,
		},
		"read_aloud": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_READ_ALOUD", 20),
			Window:  time.Minute,
		},
		"chat_session": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_CHAT_SESSION", 10),
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	logger.Warn(logger.CONFIG, "No rate limit config found for key: %s", key)
	return RateLimitConfig{Enabled: false}
}
