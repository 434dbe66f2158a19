// Package languages maps spoken-language names to the locale and voice
// settings pushed to the media layer on a language switch.
package languages

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Option describes one selectable conversation language.
type Option struct {
	LocaleCode            string `yaml:"locale_code"`
	TTSProvider           string `yaml:"tts_provider"`
	Voice                 string `yaml:"voice"`
	TranscriptionProvider string `yaml:"transcription_provider"`
	SpeechModel           string `yaml:"speech_model"`
}

// Table holds the configured languages keyed by lowercase name.
type Table struct {
	options map[string]Option
}

// Default returns the built-in english and spanish pair.
func Default() *Table {
	return &Table{options: map[string]Option{
		"english": {
			LocaleCode:            "en-US",
			TTSProvider:           "google",
			Voice:                 "en-US-Journey-O",
			TranscriptionProvider: "google",
			SpeechModel:           "telephony",
		},
		"spanish": {
			LocaleCode:            "es-US",
			TTSProvider:           "google",
			Voice:                 "es-US-Journey-F",
			TranscriptionProvider: "google",
			SpeechModel:           "telephony",
		},
	}}
}

// LoadFile reads a language table from a YAML file mapping names to
// options. The file replaces the built-in table entirely.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read languages file: %w", err)
	}
	var options map[string]Option
	if err := yaml.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("parse languages file: %w", err)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("languages file %s defines no languages", path)
	}
	normalized := make(map[string]Option, len(options))
	for name, opt := range options {
		if opt.LocaleCode == "" {
			return nil, fmt.Errorf("language %q: locale_code is required", name)
		}
		normalized[strings.ToLower(name)] = opt
	}
	return &Table{options: normalized}, nil
}

func (t *Table) Lookup(name string) (Option, bool) {
	opt, ok := t.options[strings.ToLower(strings.TrimSpace(name))]
	return opt, ok
}

// Names returns the configured language names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.options))
	for name := range t.options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
