// Package config loads the configuration of the planner.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// EnvPrefix is the prefix of all environment variables read by the planner.
const EnvPrefix = "PLANNER_"

//go:embed default.yaml
var defaults []byte

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server    Server    `koanf:"server"`
	Database  Database  `koanf:"database"`
	Rules     Rules     `koanf:"rules"`
	Semantic  Semantic  `koanf:"semantic"`
	Scheduler Scheduler `koanf:"scheduler"`
	Planning  Planning  `koanf:"planning"`
}

type Server struct {
	Listen string `koanf:"listen"`
	APIURL string `koanf:"api_url"`
}

type Database struct {
	Path      string        `koanf:"path"`
	SlowQuery time.Duration `koanf:"slow_query"` // Queries taking longer are logged as warnings, 0 disables this
}

type Rules struct {
	Path string `koanf:"path"` // Replaces the built-in rules when set
}

type Semantic struct {
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	MaxTokens int64  `koanf:"max_tokens"`
}

type Scheduler struct {
	Enabled bool   `koanf:"enabled"`
	Spec    string `koanf:"spec"`
}

type Planning struct {
	FirstYear   int     `koanf:"first_year"`
	GlobalLimit float64 `koanf:"global_limit"` // Limit created for the first year when none exists
}

// Load reads the built-in defaults, then the YAML file at path (if
// path is not empty), then the environment.
//
// Environment variables are mapped by removing the prefix and splitting
// at the first underscore, e.g. PLANNER_DATABASE_PATH -> database.path
// and PLANNER_SEMANTIC_API_KEY -> semantic.api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)

	if len(parts) == 1 {
		return lower
	}

	return parts[0] + "." + parts[1]
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path must be set", ErrInvalidConfig)
	}

	if c.Database.SlowQuery < 0 {
		return fmt.Errorf("%w: database.slow_query must not be negative", ErrInvalidConfig)
	}

	if !models.ValidYear(c.Planning.FirstYear) {
		return fmt.Errorf("%w: planning.first_year must be between %d and %d", ErrInvalidConfig, models.FirstYear, models.LastYear)
	}

	if c.Planning.GlobalLimit < 0 {
		return fmt.Errorf("%w: planning.global_limit must not be negative", ErrInvalidConfig)
	}

	if c.Semantic.MaxTokens <= 0 {
		return fmt.Errorf("%w: semantic.max_tokens must be positive", ErrInvalidConfig)
	}

	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.Spec); err != nil {
			return fmt.Errorf("%w: scheduler.spec: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

// LoadRules returns the rules file configured or the built-in rules.
func (c *Config) LoadRules() (rules.Rules, error) {
	if c.Rules.Path == "" {
		return rules.Default(), nil
	}

	return rules.Load(c.Rules.Path)
}
