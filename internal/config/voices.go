package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VoiceTable maps ISO 639-1 language codes to Azure neural voice names
type VoiceTable struct {
	Default string            `yaml:"default"`
	Voices  map[string]string `yaml:"voices"`
}

// DefaultVoiceTable covers the languages the assistant answers in
func DefaultVoiceTable() *VoiceTable {
	return &VoiceTable{
		Default: "en-IN-PrabhatNeural",
		Voices: map[string]string{
			"hi": "hi-IN-MadhurNeural",
			"gu": "gu-IN-NiranjanNeural",
		},
	}
}

// Voice returns the voice for a language, falling back to the default
func (t *VoiceTable) Voice(lang string) string {
	if v, ok := t.Voices[lang]; ok && v != "" {
		return v
	}
	return t.Default
}

// LoadVoiceTable reads a YAML voice table. Entries in the file are merged
// over the defaults.
func LoadVoiceTable(path string) (*VoiceTable, error) {
	table := DefaultVoiceTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read voices config: %w", err)
	}

	var file VoiceTable
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse voices config: %w", err)
	}

	if file.Default != "" {
		table.Default = file.Default
	}
	for lang, voice := range file.Voices {
		table.Voices[lang] = voice
	}

	return table, nil
}

// GetVoicesConfigPath returns the optional YAML voice table path
func GetVoicesConfigPath() string {
	return GetEnvOrDefault("VOICES_CONFIG", "")
}
