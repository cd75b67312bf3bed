// Package driver wires the pipeline together: the training driver turns a
// sampled player population into a persisted model, the scoring driver
// turns a persisted model into a ranked achievement table for one player.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/cheevo/internal/domain/sequence"
	"github.com/okian/cheevo/internal/model"
	"github.com/okian/cheevo/internal/model/store"
	"github.com/okian/cheevo/internal/steam"
	"github.com/okian/cheevo/pkg/logger"
	"github.com/okian/cheevo/pkg/metrics"
)

// PlayerAPI is the slice of the Steam client the drivers need.
type PlayerAPI interface {
	GetGameSchema(ctx context.Context, appID string) ([]steam.AchievementSchema, error)
	GetPlayerAchievements(ctx context.Context, steamID, appID string) ([]steam.UnlockRecord, error)
}

// PlayerSampler discovers candidate players for a game.
type PlayerSampler interface {
	SamplePlayers(ctx context.Context, appID string, n int) ([]string, error)
}

// Archiver caches fetched unlock events locally. Optional.
type Archiver interface {
	PutUnlocks(ctx context.Context, steamID, appID string, unlocks []sequence.Unlock) error
	GetUnlocks(ctx context.Context, steamID, appID string) ([]sequence.Unlock, error)
	HasPlayer(ctx context.Context, steamID, appID string) (bool, error)
}

// Training assembles sequences from a sampled population and trains a model.
type Training struct {
	api     PlayerAPI
	sampler PlayerSampler
	trainer model.Trainer
	store   *store.Store
	archive Archiver
	log     logger.Logger
}

// TrainingOption applies a configuration option to the Training driver.
type TrainingOption func(*Training)

// WithArchive enables the local unlock archive.
func WithArchive(a Archiver) TrainingOption {
	return func(t *Training) {
		if a != nil {
			t.archive = a
		}
	}
}

// NewTraining creates a training driver.
func NewTraining(api PlayerAPI, s PlayerSampler, trainer model.Trainer, st *store.Store, log logger.Logger, opts ...TrainingOption) *Training {
	t := &Training{
		api:     api,
		sampler: s,
		trainer: trainer,
		store:   st,
		log:     log,
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Run executes one training pass: sample players, fetch their unlock
// histories, build sequences, fit the model, and persist the artifact.
// Training is a one-shot batch operation; every failure is fatal and there
// is no retry beyond the API client's throttling handling.
func (t *Training) Run(ctx context.Context, appID string, nPlayers int) (store.Metadata, error) {
	players, err := t.sampler.SamplePlayers(ctx, appID, nPlayers)
	if err != nil {
		return store.Metadata{}, fmt.Errorf("sample players: %w", err)
	}

	t.log.Info(ctx, "sampled player pool",
		logger.String("appid", appID),
		logger.Int("players", len(players)))

	var sequences [][]string
	for _, steamID := range players {
		unlocks, err := t.fetchUnlocks(ctx, steamID, appID)
		if err != nil {
			if errors.Is(err, steam.ErrPrivateProfile) {
				// Private profiles carry no data; documented non-fatal case.
				metrics.RecordPrivateProfile()
				t.log.Debug(ctx, "skipping private profile", logger.String("steamid", steamID))
				continue
			}
			return store.Metadata{}, fmt.Errorf("fetch unlocks for %s: %w", steamID, err)
		}

		seq := sequence.Build(unlocks)
		if len(seq) == 0 {
			metrics.RecordEmptySequence()
			continue
		}
		metrics.RecordSequenceBuilt()
		sequences = append(sequences, seq)
	}

	t.log.Info(ctx, "built training sequences",
		logger.Int("sequences", len(sequences)),
		logger.Int("players", len(players)))

	start := time.Now()
	m, err := t.trainer.Fit(ctx, sequences)
	if err != nil {
		return store.Metadata{}, fmt.Errorf("train model: %w", err)
	}
	metrics.RecordTrainingDuration(time.Since(start).Seconds())

	meta, err := t.store.Save(ctx, appID, m, store.Metadata{
		PlayerCount:   len(players),
		SequenceCount: len(sequences),
	})
	if err != nil {
		return store.Metadata{}, fmt.Errorf("persist model: %w", err)
	}

	t.log.Info(ctx, "model trained and persisted",
		logger.String("appid", appID),
		logger.Int("version", meta.Version),
		logger.Int("vocabulary", meta.ItemCount),
		logger.String("run_id", meta.RunID))

	return meta, nil
}

// fetchUnlocks returns a player's earned unlocks, preferring the archive
// over the API when the player was fetched before.
func (t *Training) fetchUnlocks(ctx context.Context, steamID, appID string) ([]sequence.Unlock, error) {
	if t.archive != nil {
		cached, err := t.archive.HasPlayer(ctx, steamID, appID)
		if err != nil {
			return nil, err
		}
		if cached {
			return t.archive.GetUnlocks(ctx, steamID, appID)
		}
	}

	records, err := t.api.GetPlayerAchievements(ctx, steamID, appID)
	if err != nil {
		return nil, err
	}

	unlocks := toUnlocks(records)
	earned := 0
	for _, u := range unlocks {
		if u.UnlockTime != 0 {
			earned++
		}
	}
	metrics.RecordUnlocksFetched(earned)

	if t.archive != nil {
		if err := t.archive.PutUnlocks(ctx, steamID, appID, unlocks); err != nil {
			return nil, err
		}
	}
	return unlocks, nil
}

// toUnlocks converts API records to domain unlocks, dropping rows where the
// achieved flag and timestamp disagree.
func toUnlocks(records []steam.UnlockRecord) []sequence.Unlock {
	out := make([]sequence.Unlock, 0, len(records))
	for _, r := range records {
		ut := r.UnlockTime
		if !r.Achieved {
			ut = 0
		}
		out = append(out, sequence.Unlock{APIName: r.APIName, UnlockTime: ut})
	}
	return out
}
