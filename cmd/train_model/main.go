// Command train_model samples players of a Steam game, fetches their
// achievement unlock histories, trains a sequence model on them, and
// persists the model artifact for later scoring.
//
// Usage:
//
//	train_model <appid> <n_steam_ids>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/okian/cheevo/internal/archive"
	"github.com/okian/cheevo/internal/config"
	"github.com/okian/cheevo/internal/driver"
	"github.com/okian/cheevo/internal/model"
	"github.com/okian/cheevo/internal/model/store"
	"github.com/okian/cheevo/internal/sampler"
	"github.com/okian/cheevo/internal/steam"
	"github.com/okian/cheevo/pkg/logger"
	"github.com/okian/cheevo/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <appid> <n_steam_ids>\n", os.Args[0])
		return 2
	}
	appID := os.Args[1]
	nPlayers, err := strconv.Atoi(os.Args[2])
	if err != nil || nPlayers <= 0 {
		fmt.Fprintln(os.Stderr, "n_steam_ids must be a positive integer")
		return 2
	}

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	client, err := steam.NewClient(steam.Config{
		APIKey:            cfg.SteamAPIKey,
		BaseURL:           cfg.APIBaseURL,
		Timeout:           time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxRetries:        cfg.MaxRetries,
	})
	if err != nil {
		log.Error(ctx, "failed to create API client", logger.Error(err))
		return 1
	}

	st, err := store.New(cfg.ModelDir)
	if err != nil {
		log.Error(ctx, "failed to open model store", logger.Error(err))
		return 1
	}

	trainer := model.NewSequenceTrainer(
		model.WithEmbeddingDim(cfg.EmbeddingDim),
		model.WithIterations(cfg.TrainIterations),
		model.WithLearningRate(cfg.LearningRate),
	)

	opts := []driver.TrainingOption{}
	if cfg.ArchivePath != "" {
		arch, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			log.Error(ctx, "failed to open unlock archive", logger.Error(err))
			return 1
		}
		defer func() {
			if err := arch.Close(); err != nil {
				log.Warn(ctx, "failed to close unlock archive", logger.Error(err))
			}
		}()
		opts = append(opts, driver.WithArchive(arch))
	}

	training := driver.NewTraining(client, sampler.New(client, log), trainer, st, log, opts...)

	meta, err := training.Run(ctx, appID, nPlayers)
	if err != nil {
		log.Error(ctx, "training run failed", logger.Error(err))
		return 1
	}

	logRunSummary(ctx, log)

	log.Info(ctx, "training complete",
		logger.String("appid", appID),
		logger.Int("version", meta.Version),
		logger.Int("players", meta.PlayerCount),
		logger.Int("sequences", meta.SequenceCount),
		logger.Int("vocabulary", meta.ItemCount),
		logger.String("run_id", meta.RunID))
	return 0
}

// logRunSummary dumps the run's counters. A batch process has no scrape
// endpoint, so the end-of-run snapshot is the observable record.
func logRunSummary(ctx context.Context, log logger.Logger) {
	snap, err := metrics.Snapshot()
	if err != nil {
		log.Warn(ctx, "failed to gather run metrics", logger.Error(err))
		return
	}
	fields := make([]logger.Field, 0, len(snap))
	for name, value := range snap {
		fields = append(fields, logger.Float64(name, value))
	}
	log.Info(ctx, "run metrics", fields...)
}
