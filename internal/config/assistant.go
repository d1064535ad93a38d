package config

import "github.com/jyotchat/jyotchat/pkg/logger"

func GetAssistantBaseURL() string {
	value := GetEnvOrDefault("ASSISTANT_BASE_URL", "")
	if value == "" {
		logger.Warn(logger.CONFIG, "ASSISTANT_BASE_URL environment variable not set")
	}
	return value
}

func GetAssistantAPIKey() string {
	return GetEnvOrDefault("ASSISTANT_API_KEY", "")
}

func GetAssistantName() string {
	return GetEnvOrDefault("ASSISTANT_NAME", "jyot")
}

func GetAssistantModel() string {
	return GetEnvOrDefault("ASSISTANT_MODEL", "gpt-4o")
}
