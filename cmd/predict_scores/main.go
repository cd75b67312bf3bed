// Command predict_scores ranks the achievements of a Steam game for one
// player using a previously trained model. The ranked table goes to
// stdout; logs go to stderr.
//
// Usage:
//
//	predict_scores <steam_id> <appid>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/cheevo/internal/config"
	"github.com/okian/cheevo/internal/driver"
	"github.com/okian/cheevo/internal/model/store"
	"github.com/okian/cheevo/internal/steam"
	"github.com/okian/cheevo/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <steam_id> <appid>\n", os.Args[0])
		return 2
	}
	steamID := os.Args[1]
	appID := os.Args[2]

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

	scoring := driver.NewScoring(client, st, log)

	res, err := scoring.Run(ctx, steamID, appID)
	if err != nil {
		if errors.Is(err, store.ErrModelNotFound) {
			fmt.Fprintf(os.Stderr, "no trained model for appid %s; run train_model first\n", appID)
			return 1
		}
		log.Error(ctx, "scoring run failed", logger.Error(err))
		return 1
	}

	if err := res.Render(os.Stdout); err != nil {
		log.Error(ctx, "failed to write score table", logger.Error(err))
		return 1
	}

	log.Info(ctx, "scoring complete",
		logger.String("steamid", steamID),
		logger.String("appid", appID),
		logger.Int("ranked", len(res.Rows)),
		logger.Int("unscored", len(res.Unscored)),
		logger.Int("model_version", res.Meta.Version))
	return 0
}
