// Package metrics provides Prometheus metrics for the cheevo pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the cheevo pipeline.
//
// Both commands are short-lived batch processes, so metrics are not served
// over HTTP; callers read them back through Snapshot at the end of a run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Steam API client metrics
	apiRequests        *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
	apiRetries         prometheus.Counter
	privateProfiles    prometheus.Counter

	// Acquisition metrics
	playersSampled  prometheus.Gauge
	unlocksFetched  prometheus.Counter
	archivedUnlocks prometheus.Counter

	// Model metrics
	trainingDuration prometheus.Histogram
	scoringDuration  prometheus.Histogram
	sequencesBuilt   prometheus.Counter
	emptySequences   prometheus.Counter
	modelsSaved      prometheus.Counter
	modelsLoaded     prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cheevo",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.apiRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "api_requests_total",
		Help:      "Steam Web API requests by endpoint and status code",
	}, []string{"endpoint", "status"})

	m.apiRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "api_request_duration_seconds",
		Help:      "Steam Web API request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})

	m.apiRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "api_retries_total",
		Help:      "Requests retried after a throttling response",
	})

	m.privateProfiles = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "private_profiles_total",
		Help:      "Players skipped because their profile is private",
	})

	m.playersSampled = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "players_sampled",
		Help:      "Distinct players discovered by the sampler",
	})

	m.unlocksFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "unlocks_fetched_total",
		Help:      "Achievement unlock events fetched from the API",
	})

	m.archivedUnlocks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "archived_unlocks_total",
		Help:      "Unlock events written to the local archive",
	})

	m.trainingDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "training_duration_seconds",
		Help:      "Model training duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.scoringDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "scoring_duration_seconds",
		Help:      "Full-vocabulary scoring duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.sequencesBuilt = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "sequences_built_total",
		Help:      "Interaction sequences produced by the sequence builder",
	})

	m.emptySequences = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "empty_sequences_total",
		Help:      "Players excluded from training for having zero unlocks",
	})

	m.modelsSaved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "models_saved_total",
		Help:      "Model artifacts persisted to disk",
	})

	m.modelsLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "models_loaded_total",
		Help:      "Model artifacts loaded from disk",
	})
}

// Package-level helpers backed by the global manager.

// RecordAPIRequest records one completed Steam API request.
func RecordAPIRequest(endpoint, status string) {
	globalManager.apiRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordAPIRequestDuration records the duration of a Steam API request.
func RecordAPIRequestDuration(endpoint string, seconds float64) {
	globalManager.apiRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

// RecordAPIRetry records a retry triggered by throttling.
func RecordAPIRetry() {
	globalManager.apiRetries.Inc()
}

// RecordPrivateProfile records a player skipped for having a private profile.
func RecordPrivateProfile() {
	globalManager.privateProfiles.Inc()
}

// UpdatePlayersSampled sets the current sampler pool size.
func UpdatePlayersSampled(count int) {
	globalManager.playersSampled.Set(float64(count))
}

// RecordUnlocksFetched records unlock events fetched from the API.
func RecordUnlocksFetched(count int) {
	globalManager.unlocksFetched.Add(float64(count))
}

// RecordArchivedUnlocks records unlock events written to the archive.
func RecordArchivedUnlocks(count int) {
	globalManager.archivedUnlocks.Add(float64(count))
}

// RecordTrainingDuration records one training run's duration.
func RecordTrainingDuration(seconds float64) {
	globalManager.trainingDuration.Observe(seconds)
}

// RecordScoringDuration records one scoring run's duration.
func RecordScoringDuration(seconds float64) {
	globalManager.scoringDuration.Observe(seconds)
}

// RecordSequenceBuilt records a non-empty interaction sequence.
func RecordSequenceBuilt() {
	globalManager.sequencesBuilt.Inc()
}

// RecordEmptySequence records a player excluded for having zero unlocks.
func RecordEmptySequence() {
	globalManager.emptySequences.Inc()
}

// RecordModelSaved records a persisted model artifact.
func RecordModelSaved() {
	globalManager.modelsSaved.Inc()
}

// RecordModelLoaded records a loaded model artifact.
func RecordModelLoaded() {
	globalManager.modelsLoaded.Inc()
}

// GetRegistry returns the custom registry for metrics collection.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Snapshot gathers the current metric families from the custom registry.
// Batch commands log this at the end of a run instead of serving /metrics.
func Snapshot() (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrObserveFailed, err)
	}

	out := make(map[string]float64, len(families))
	for _, fam := range families {
		var total float64
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[fam.GetName()] = total
	}
	return out, nil
}
