package config

import "time"

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// BackoffConfig controls the wait between attempts of a single enrichment call.
type BackoffConfig struct {
	InitialIntervalMs int     `yaml:"initial_interval_ms"` // InitialIntervalMs is the wait after the first transient failure.
	MaxIntervalMs     int     `yaml:"max_interval_ms"`     // MaxIntervalMs caps the exponential growth.
	Factor            float64 `yaml:"factor"`              // Factor multiplies the interval after each transient failure.
}

// BatchConfig holds the Batch Driver's run parameters.
type BatchConfig struct {
	// BatchSize is the default number of items taken per run. 0 or less means all.
	BatchSize int `yaml:"batch_size"`
	// MaxRetries is the per-item failure budget across runs before the item is skipped.
	MaxRetries int `yaml:"max_retries"`
	// PacingDelayMs is the courtesy delay between consecutive enrichment calls.
	PacingDelayMs int `yaml:"pacing_delay_ms"`
	// CallTimeoutMs is the hard timeout of one enrichment call (all stages of one item).
	CallTimeoutMs int `yaml:"call_timeout_ms"`
	// CallAttempts is the number of attempts made within one enrichment call.
	CallAttempts int `yaml:"call_attempts"`
	// Backoff configures waits between attempts after transient failures.
	Backoff BackoffConfig `yaml:"backoff"`
	// PermanentBackoffMs is the flat wait between attempts after permanent failures.
	PermanentBackoffMs int `yaml:"permanent_backoff_ms"`
	// MaxDuration bounds the wall time of a run (Go duration string, empty for unlimited).
	MaxDuration string `yaml:"max_duration"`
	// ProgressEvery emits a progress report after this many items. 0 disables reports.
	ProgressEvery int `yaml:"progress_every"`
	// RetryPass enables the bounded retry pass over the failure ledger.
	RetryPass *bool `yaml:"retry_pass"`
}

// SourceConfig locates the work item dataset.
type SourceConfig struct {
	Path       string `yaml:"path"`        // Path is a file path, or an object name when StorageRef is set.
	StorageRef string `yaml:"storage_ref"` // StorageRef names an adapter.storage connection to read Path from.
	TopN       int    `yaml:"top_n"`       // TopN keeps only the first N items by rank. 0 keeps all.
}

// StateConfig selects the backend for durable pipeline state.
type StateConfig struct {
	// Backend is "document" (object storage), "database" (gorm) or "memory".
	Backend     string `yaml:"backend"`
	StorageRef  string `yaml:"storage_ref"`
	Prefix      string `yaml:"prefix"`
	DatabaseRef string `yaml:"database_ref"`
}

// StageConfig describes one named enrichment stage.
type StageConfig struct {
	Name           string   `yaml:"name"`
	Optional       bool     `yaml:"optional"`
	TimeoutMs      int      `yaml:"timeout_ms"`
	PromptTemplate string   `yaml:"prompt_template"`
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
}

// EnrichmentConfig configures the Enrichment Client.
type EnrichmentConfig struct {
	// Client is "llm" or "command".
	Client         string              `yaml:"client"`
	Provider       string              `yaml:"provider"`
	Model          string              `yaml:"model"`
	APIKey         string              `yaml:"api_key"`
	ServerURL      string              `yaml:"server_url"`
	SystemPrompt   string              `yaml:"system_prompt"`
	PromptTemplate string              `yaml:"prompt_template"`
	Command        string              `yaml:"command"`
	Args           []string            `yaml:"args"`
	RequiredFields []string            `yaml:"required_fields"`
	SchemaPath     string              `yaml:"schema_path"`
	Stages         []StageConfig       `yaml:"stages"`
	MergeVersion   string              `yaml:"merge_version"`
	Dedup          map[string][]string `yaml:"dedup"`
}

// MetricsConfig configures metrics export. Prometheus writes a node_exporter textfile;
// when OTLPEndpoint is set the same metrics are also pushed over OTLP.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TextfilePath string `yaml:"textfile_path"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// OTLPProtocol is "grpc" (default) or "http".
	OTLPProtocol string `yaml:"otlp_protocol"`
	Insecure     bool   `yaml:"insecure"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Protocol is "grpc" (default) or "http".
	Protocol    string `yaml:"protocol"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// NotificationConfig configures the run summary notification.
type NotificationConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File is the append-only run log. Empty logs to the console only.
	File string `yaml:"file"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// AdapterConfig holds raw adapter connection settings, decoded by each adapter with mapstructure.
type AdapterConfig struct {
	Storage  map[string]interface{} `yaml:"storage"`
	Database map[string]interface{} `yaml:"database"`
}

// NameforgeConfig holds all configuration under the "nameforge" top-level key.
type NameforgeConfig struct {
	Batch        BatchConfig        `yaml:"batch"`
	Source       SourceConfig       `yaml:"source"`
	State        StateConfig        `yaml:"state"`
	Enrichment   EnrichmentConfig   `yaml:"enrichment"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Notification NotificationConfig `yaml:"notification"`
	System       SystemConfig       `yaml:"system"`
	Adapter      AdapterConfig      `yaml:"adapter"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Nameforge NameforgeConfig `yaml:"nameforge"`
}

// DefaultDedupRules are the list fields deduplicated when stage outputs are merged.
func DefaultDedupRules() map[string][]string {
	return map[string][]string{
		"historicFigures": {"fullName"},
		"famousPeople":    {"name"},
		"songs":           {"title", "artist"},
		"categories":      {"tag"},
		"translations":    {"language", "scriptName"},
	}
}

// NewConfig returns a new Config with default values.
func NewConfig() *Config {
	retryPass := true
	return &Config{
		Nameforge: NameforgeConfig{
			Batch: BatchConfig{
				BatchSize:     50,
				MaxRetries:    3,
				PacingDelayMs: 2000,
				CallTimeoutMs: 120000,
				CallAttempts:  1,
				Backoff: BackoffConfig{
					InitialIntervalMs: 2000,
					MaxIntervalMs:     60000,
					Factor:            2.0,
				},
				PermanentBackoffMs: 2000,
				ProgressEvery:      10,
				RetryPass:          &retryPass,
			},
			State: StateConfig{
				Backend:    "document",
				StorageRef: "state",
			},
			Enrichment: EnrichmentConfig{
				Client:         "llm",
				Provider:       "openai",
				Model:          "gpt-4o-mini",
				RequiredFields: []string{"name", "origin", "meaning"},
				MergeVersion:   "v13",
				Dedup:          DefaultDedupRules(),
			},
			Tracing: TracingConfig{
				ServiceName: "nameforge",
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Adapter: AdapterConfig{
				Storage:  map[string]interface{}{},
				Database: map[string]interface{}{},
			},
		},
	}
}

// PacingDelay returns the pacing delay as a duration.
func (b BatchConfig) PacingDelay() time.Duration {
	return time.Duration(b.PacingDelayMs) * time.Millisecond
}

// CallTimeout returns the enrichment call timeout as a duration.
func (b BatchConfig) CallTimeout() time.Duration {
	return time.Duration(b.CallTimeoutMs) * time.Millisecond
}

// RetryPassEnabled reports whether the retry pass runs after the primary pass.
func (b BatchConfig) RetryPassEnabled() bool {
	return b.RetryPass == nil || *b.RetryPass
}

// MaxRunDuration parses MaxDuration. An empty value yields 0 (unlimited).
func (b BatchConfig) MaxRunDuration() (time.Duration, error) {
	if b.MaxDuration == "" {
		return 0, nil
	}
	return time.ParseDuration(b.MaxDuration)
}
