package config

import "github.com/jyotchat/jyotchat/pkg/logger"

// GetOpenAIKey returns the current OpenAI key
func GetOpenAIKey() string {
	value := GetEnvOrDefault("OPENAI_KEY", "")
	if value == "" {
		logger.Warn(logger.CONFIG, "OPENAI_KEY environment variable not set - suggestions disabled")
	}
	return value
}

func GetOpenAIModel() string {
	return GetEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini")
}
