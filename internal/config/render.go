package config

import (
	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Render returns cfg as YAML with secrets masked.
func Render(cfg *Config) ([]byte, error) {
	shown := *cfg
	if shown.Store.SecretAccessKey != "" {
		shown.Store.SecretAccessKey = redacted
	}
	return yaml.Marshal(&shown)
}
