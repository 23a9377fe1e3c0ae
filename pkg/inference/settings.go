package inference

import (
	"time"

	"github.com/pkg/errors"
)

// Defaults for chat completion requests. Temperature is kept low so the
// model sticks to the action protocol instead of narrating.
const (
	DefaultModel       = "gpt-4o"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 4096
	DefaultTimeout     = 60 * time.Second
)

// Settings holds everything needed to issue a chat completion request.
type Settings struct {
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NewSettings returns settings populated with the defaults. The API key
// is intentionally left empty; Validate catches a missing one.
func NewSettings() *Settings {
	return &Settings{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
}

func (s *Settings) Validate() error {
	if s.Model == "" {
		return errors.New("no model specified")
	}
	if s.APIKey == "" {
		return errors.New("no API key specified")
	}
	return nil
}
