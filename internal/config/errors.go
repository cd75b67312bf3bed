package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrMissingAPIKey = errors.New("STEAM_API_KEY is not set")
	ErrLoadConfig    = errors.New("load config failed")
)
