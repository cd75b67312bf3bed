package steam

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMissingAPIKey      = errors.New("steam api key is empty")
	ErrMissingBaseURL     = errors.New("steam api base url is empty")
	ErrPrivateProfile     = errors.New("player profile is private")
	ErrNoAchievementStats = errors.New("game schema has no achievements")
	ErrThrottled          = errors.New("throttled by steam api")
	ErrUnexpectedStatus   = errors.New("unexpected steam api status")
)
