// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New() initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// SteamAPIKey authenticates calls to the Steam Web API.
	// Populated from the STEAM_API_KEY environment variable.
	SteamAPIKey string `koanf:"steam_api_key"`

	// APIBaseURL is the Steam Web API root, e.g. "https://api.steampowered.com".
	APIBaseURL string `koanf:"api_base_url"`

	// HTTPTimeoutSeconds bounds every outbound API request.
	HTTPTimeoutSeconds int `koanf:"http_timeout_seconds"`

	// RequestsPerSecond caps the client-side request rate.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// MaxRetries bounds retries after throttling responses.
	MaxRetries int `koanf:"max_retries"`

	// ModelDir is where trained model artifacts are persisted.
	ModelDir string `koanf:"model_dir"`

	// ArchivePath is the sqlite database caching fetched unlock events.
	ArchivePath string `koanf:"archive_path"`

	// EmbeddingDim is the latent factor dimension of the sequence model.
	EmbeddingDim int `koanf:"embedding_dim"`

	// TrainIterations is the number of training epochs.
	TrainIterations int `koanf:"train_iterations"`

	// LearningRate is the SGD learning rate used during training.
	LearningRate float64 `koanf:"learning_rate"`
}

// New creates a Config populated with defaults. Callers normally go through
// Load, which layers file and environment overrides on top of these.
func New() *Config {
	c := &Config{
		LogLevel:           "info",
		APIBaseURL:         "https://api.steampowered.com",
		HTTPTimeoutSeconds: 30,
		RequestsPerSecond:  4,
		MaxRetries:         5,
		ModelDir:           "models",
		ArchivePath:        "achievements.db",
		EmbeddingDim:       32,
		TrainIterations:    10,
		LearningRate:       0.01,
	}
	return c
}
