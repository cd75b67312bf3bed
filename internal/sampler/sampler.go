// Package sampler discovers a pool of candidate players for a game by
// walking achievement unlocker listings until the deduplicated pool is
// large enough or every achievement has been exhausted.
package sampler

import (
	"context"
	"fmt"

	"github.com/okian/cheevo/internal/steam"
	"github.com/okian/cheevo/pkg/logger"
	"github.com/okian/cheevo/pkg/metrics"
)

// API is the slice of the Steam client the sampler needs.
type API interface {
	GetGameSchema(ctx context.Context, appID string) ([]steam.AchievementSchema, error)
	ListAchievementUnlockers(ctx context.Context, appID, achievementAPIName, cursor string) ([]string, string, error)
}

// Sampler discovers candidate player ids.
type Sampler struct {
	api API
	log logger.Logger
}

// New creates a Sampler over the given API client.
func New(api API, log logger.Logger) *Sampler {
	return &Sampler{api: api, log: log}
}

// SamplePlayers returns a deduplicated set of player ids for the game, of
// size n, or the maximum obtainable when the unlocker population is
// smaller. Discovery order is preserved so repeated runs against identical
// listings produce identical pools.
//
// A game with fewer than 2 achievements cannot produce a sequence model,
// so sampling refuses before issuing any listing request.
func (s *Sampler) SamplePlayers(ctx context.Context, appID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("player count %d: %w", n, ErrInvalidPlayerCount)
	}

	schema, err := s.api.GetGameSchema(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("fetch game schema: %w", err)
	}
	if len(schema) < minAchievements {
		return nil, fmt.Errorf("appid %s has %d achievements: %w", appID, len(schema), ErrTooFewAchievements)
	}

	seen := make(map[string]struct{}, n)
	pool := make([]string, 0, n)

	for _, ach := range schema {
		if len(pool) >= n {
			break
		}

		cursor := ""
		for {
			ids, next, err := s.api.ListAchievementUnlockers(ctx, appID, ach.APIName, cursor)
			if err != nil {
				return nil, fmt.Errorf("list unlockers for %s: %w", ach.APIName, err)
			}
			if len(ids) == 0 {
				// An empty page means this listing is exhausted even when
				// the API still hands back a cursor; chasing it would loop
				// forever.
				break
			}

			for _, id := range ids {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				pool = append(pool, id)
				if len(pool) >= n {
					break
				}
			}
			metrics.UpdatePlayersSampled(len(pool))

			if len(pool) >= n || next == "" {
				break
			}
			cursor = next
		}
	}

	if len(pool) < n {
		s.log.Warn(ctx, "unlocker population smaller than requested sample",
			logger.String("appid", appID),
			logger.Int("requested", n),
			logger.Int("obtained", len(pool)))
	}

	return pool, nil
}

// minAchievements is the hard precondition for a meaningful sequence model.
const minAchievements = 2
