package store

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrModelNotFound    = errors.New("no trained model for appid")
	ErrChecksumMismatch = errors.New("model artifact checksum mismatch")
)
