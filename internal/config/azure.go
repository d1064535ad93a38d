package config

import (
	"time"

	"github.com/jyotchat/jyotchat/pkg/logger"
)

const defaultTranslatorEndpoint = "https://api.cognitive.microsofttranslator.com"

func GetAzureSpeechKey() string {
	value := GetEnvOrDefault("AZURE_SPEECH_KEY", "")
	if value == "" {
		logger.Warn(logger.CONFIG, "AZURE_SPEECH_KEY environment variable not set")
	}
	return value
}

func GetAzureRegion() string {
	value := GetEnvOrDefault("AZURE_REGION", "")
	if value == "" {
		logger.Warn(logger.CONFIG, "AZURE_REGION environment variable not set")
	}
	return value
}

func GetAzureTranslatorKey() string {
	value := GetEnvOrDefault("AZURE_TRANSLATOR_KEY", "")
	if value == "" {
		logger.Warn(logger.CONFIG, "AZURE_TRANSLATOR_KEY environment variable not set")
	}
	return value
}

func GetAzureTranslatorEndpoint() string {
	return GetEnvOrDefault("AZURE_TRANSLATOR_ENDPOINT", defaultTranslatorEndpoint)
}

// GetTranslateTarget returns the language every translation is made into
func GetTranslateTarget() string {
	return GetEnvOrDefault("TRANSLATE_TO", "en")
}

func GetTranslationCacheTTL() time.Duration {
	return parseEnvDuration("TRANSLATION_CACHE_TTL", 24*time.Hour)
}

func GetAudioCacheTTL() time.Duration {
	return parseEnvDuration("AUDIO_CACHE_TTL", time.Hour)
}
