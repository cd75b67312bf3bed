package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/cheevo/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with only the API key set", func() {
			clearConfigEnvVars()
			_ = os.Setenv("STEAM_API_KEY", "test-key")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.SteamAPIKey, convey.ShouldEqual, "test-key")
				convey.So(cfg.APIBaseURL, convey.ShouldEqual, "https://api.steampowered.com")
				convey.So(cfg.ModelDir, convey.ShouldEqual, "models")
				convey.So(cfg.ArchivePath, convey.ShouldEqual, "achievements.db")
				convey.So(cfg.HTTPTimeoutSeconds, convey.ShouldEqual, 30)
				convey.So(cfg.MaxRetries, convey.ShouldEqual, 5)
				convey.So(cfg.EmbeddingDim, convey.ShouldEqual, 32)
				convey.So(cfg.TrainIterations, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When the API key is missing", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails with the sentinel error", func() {
				convey.So(err, convey.ShouldEqual, config.ErrMissingAPIKey)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars()
			_ = os.Setenv("STEAM_API_KEY", "test-key")
			_ = os.Setenv("CHEEVO_MODEL_DIR", "/tmp/cheevo-models")
			_ = os.Setenv("CHEEVO_MAX_RETRIES", "2")
			_ = os.Setenv("CHEEVO_TRAIN_ITERATIONS", "25")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ModelDir, convey.ShouldEqual, "/tmp/cheevo-models")
				convey.So(cfg.MaxRetries, convey.ShouldEqual, 2)
				convey.So(cfg.TrainIterations, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()
			yamlContent := `
log_level: "debug"
model_dir: "artifacts"
requests_per_second: 2
embedding_dim: 64
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("CHEEVO_CONFIG", tmpFile)
			_ = os.Setenv("STEAM_API_KEY", "test-key")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.ModelDir, convey.ShouldEqual, "artifacts")
				convey.So(cfg.RequestsPerSecond, convey.ShouldEqual, 2)
				convey.So(cfg.EmbeddingDim, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When STEAM_API_KEY and CHEEVO_STEAM_API_KEY disagree", func() {
			clearConfigEnvVars()
			_ = os.Setenv("CHEEVO_STEAM_API_KEY", "prefixed-key")
			_ = os.Setenv("STEAM_API_KEY", "canonical-key")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the canonical variable wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SteamAPIKey, convey.ShouldEqual, "canonical-key")
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"STEAM_API_KEY",
		"CHEEVO_CONFIG",
		"CHEEVO_STEAM_API_KEY",
		"CHEEVO_LOG_LEVEL",
		"CHEEVO_MODEL_DIR",
		"CHEEVO_ARCHIVE_PATH",
		"CHEEVO_MAX_RETRIES",
		"CHEEVO_TRAIN_ITERATIONS",
		"CHEEVO_REQUESTS_PER_SECOND",
		"CHEEVO_EMBEDDING_DIM",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
