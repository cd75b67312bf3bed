package sampler

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrTooFewAchievements = errors.New("game has fewer than 2 achievements")
	ErrInvalidPlayerCount = errors.New("player count must be positive")
)
