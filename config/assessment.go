package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/erdispatch/auth"
	"github.com/kilianp07/erdispatch/core/factory"
)

// AssessmentConfig configures the language-model severity provider. Without
// credentials the assessor uses keywords only.
type AssessmentConfig struct {
	Enabled      bool    `json:"enabled"`
	BaseURL      string  `json:"base_url"`
	APIKey       string  `json:"api_key"`
	ClientID     string  `json:"client_id"`
	ClientSecret string  `json:"client_secret"`
	TokenURL     string  `json:"token_url"`
	Model        string  `json:"model"`
	TimeoutMS    int     `json:"timeout_ms"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
}

func (c *AssessmentConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.sambanova.ai/v1"
	}
	if c.Model == "" {
		c.Model = "Meta-Llama-3.1-8B-Instruct"
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 3000
	}
}

func (c AssessmentConfig) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0,2]", c.Temperature)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("top_p %v out of range [0,1]", c.TopP)
	}
	return nil
}

// Credentials returns the outbound auth settings.
func (c AssessmentConfig) Credentials() auth.Conf {
	return auth.Conf{APIKey: c.APIKey, ClientID: c.ClientID, ClientSecret: c.ClientSecret, TokenURL: c.TokenURL}
}

// Active reports whether the provider should be used.
func (c AssessmentConfig) Active() bool { return c.Enabled && c.Credentials().Enabled() }

func (c AssessmentConfig) Timeout() time.Duration {
	return factory.Millis(c.TimeoutMS, 3*time.Second)
}
