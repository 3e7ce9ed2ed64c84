package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/erdispatch/core/metrics"
)

type Config struct {
	Assessment AssessmentConfig `json:"assessment"`
	Routing    RoutingConfig    `json:"routing"`
	Loop       LoopConfig       `json:"loop"`
	Map        MapConfig        `json:"map"`
	Fleet      FleetConfig      `json:"fleet"`
	Events     EventsConfig     `json:"events"`
	Metrics    metrics.Config   `json:"metrics"`
	CallLog    CallLogConfig    `json:"calllog"`
	Sentry     SentryConfig     `json:"sentry"`
	Tracing    TracingConfig    `json:"tracing"`
}

// Well-known credential variables, read from the environment or a .env file
// when the configuration leaves them empty.
const (
	EnvAssessmentKey = "SAMBANOVA_API_KEY"
	EnvMapboxToken   = "MAPBOX_TOKEN"
)

// Load reads the configuration file at path, then applies a .env file found
// next to it or in the working directory, then K_ prefixed overrides
// (K_ROUTING__TOKEN sets routing.token).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if cfg.Assessment.APIKey == "" {
		cfg.Assessment.APIKey = os.Getenv(EnvAssessmentKey)
	}
	if cfg.Routing.Token == "" {
		cfg.Routing.Token = os.Getenv(EnvMapboxToken)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads the first existing file. Variables already present in the
// environment are kept.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Assessment.SetDefaults()
	c.Routing.SetDefaults()
	c.Loop.SetDefaults()
	c.Map.SetDefaults()
	c.Fleet.SetDefaults()
	c.Events.SetDefaults()
	c.CallLog.SetDefaults()
	c.Tracing.SetDefaults()
}

// Validate checks every section and prefixes errors with the section name.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"assessment", c.Assessment.Validate},
		{"routing", c.Routing.Validate},
		{"loop", c.Loop.Validate},
		{"map", c.Map.Validate},
		{"fleet", c.Fleet.Validate},
		{"events", c.Events.Validate},
		{"calllog", c.CallLog.Validate},
		{"tracing", c.Tracing.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}
