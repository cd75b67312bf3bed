package config

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if CHEEVO_CONFIG is set
//  3. env (prefix CHEEVO_)
//  4. STEAM_API_KEY (canonical key variable, always wins)
func Load(ctx context.Context) (*Config, error) {
	// A local .env is optional; absence is not an error.
	_ = godotenv.Load()

	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CHEEVO_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: CHEEVO_MODEL_DIR, CHEEVO_REQUESTS_PER_SECOND, ...
	// Map env keys like CHEEVO_MODEL_DIR -> model_dir (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CHEEVO_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "cheevo_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	// STEAM_API_KEY is the documented variable; it takes precedence over
	// any value arriving through the CHEEVO_ prefix or a config file.
	if key := os.Getenv("STEAM_API_KEY"); key != "" {
		cfg.SteamAPIKey = key
	}

	// Basic validation
	if cfg.SteamAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.APIBaseURL == "" {
		return nil, ErrInvalidConfig
	}
	return &cfg, nil
}
