package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SettingsSeed is the project settings document read from SETTINGS_FILE.
// It is only used to seed the settings record when the store is initialized.
type SettingsSeed struct {
	Org        string   `yaml:"org"`
	Repo       string   `yaml:"repo"`
	Branch     string   `yaml:"branch"`
	Extensions []string `yaml:"extensions"`
	Exclusions []string `yaml:"exclusions,omitempty"`
	ByteLimit  *int     `yaml:"byte_limit,omitempty"`
	ChatModel  string   `yaml:"chat_model,omitempty"`
}

// LoadSettingsSeed reads and validates a YAML settings file.
func LoadSettingsSeed(path string) (*SettingsSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var seed SettingsSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if seed.Branch == "" {
		seed.Branch = "main"
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return &seed, nil
}

// Validate checks that the fields the indexer depends on are present.
func (s *SettingsSeed) Validate() error {
	if s.Org == "" {
		return fmt.Errorf("org is required")
	}
	if s.Repo == "" {
		return fmt.Errorf("repo is required")
	}
	if len(s.Extensions) == 0 {
		return fmt.Errorf("at least one extension is required")
	}
	for _, ext := range s.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if s.ByteLimit != nil && *s.ByteLimit <= 0 {
		return fmt.Errorf("byte_limit must be greater than 0")
	}
	return nil
}
