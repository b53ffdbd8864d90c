package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

const moduleName = "config"

// LoadConfig loads configuration in this order: defaults, the given YAML document (with ${VAR}
// placeholders expanded), then environment variables derived from yaml tags. A .env file is loaded
// first so its values take part in both expansion and overrides.
//
// Parameters:
//
//	envFilePath: The path to the .env file. Empty tries ".env" in the working directory.
//	rawConfig: The YAML configuration bytes (embedded or read from --config).
func LoadConfig(envFilePath string, rawConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	expanded, err := NewOsEnvironmentExpander().Expand(rawConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal config", err, false, false)
	}
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads path and loads it like LoadConfig.
func LoadConfigFile(envFilePath, path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read config file %s", path), err, false, false)
	}
	return LoadConfig(envFilePath, raw)
}

// Validate checks the loaded configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var result *multierror.Error
	nf := cfg.Nameforge

	if nf.Batch.MaxRetries < 1 {
		result = multierror.Append(result, fmt.Errorf("batch.max_retries must be >= 1, got %d", nf.Batch.MaxRetries))
	}
	if nf.Batch.PacingDelayMs < 0 {
		result = multierror.Append(result, fmt.Errorf("batch.pacing_delay_ms must be >= 0, got %d", nf.Batch.PacingDelayMs))
	}
	if nf.Batch.CallTimeoutMs <= 0 {
		result = multierror.Append(result, fmt.Errorf("batch.call_timeout_ms must be > 0, got %d", nf.Batch.CallTimeoutMs))
	}
	if nf.Batch.CallAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("batch.call_attempts must be >= 1, got %d", nf.Batch.CallAttempts))
	}
	if nf.Batch.Backoff.Factor < 1 {
		result = multierror.Append(result, fmt.Errorf("batch.backoff.factor must be >= 1, got %v", nf.Batch.Backoff.Factor))
	}
	if _, err := nf.Batch.MaxRunDuration(); err != nil {
		result = multierror.Append(result, fmt.Errorf("batch.max_duration: %w", err))
	}

	switch nf.State.Backend {
	case "document":
		if nf.State.StorageRef == "" {
			result = multierror.Append(result, fmt.Errorf("state.storage_ref is required for the document backend"))
		}
	case "database":
		if nf.State.DatabaseRef == "" {
			result = multierror.Append(result, fmt.Errorf("state.database_ref is required for the database backend"))
		}
	case "memory":
	default:
		result = multierror.Append(result, fmt.Errorf("state.backend must be one of document, database, memory; got %q", nf.State.Backend))
	}

	switch nf.Enrichment.Client {
	case "llm", "command":
	default:
		result = multierror.Append(result, fmt.Errorf("enrichment.client must be llm or command; got %q", nf.Enrichment.Client))
	}
	if !validOTLPProtocol(nf.Metrics.OTLPProtocol) {
		result = multierror.Append(result, fmt.Errorf("metrics.otlp_protocol must be grpc or http; got %q", nf.Metrics.OTLPProtocol))
	}
	if !validOTLPProtocol(nf.Tracing.Protocol) {
		result = multierror.Append(result, fmt.Errorf("tracing.protocol must be grpc or http; got %q", nf.Tracing.Protocol))
	}

	seen := make(map[string]bool)
	for i, st := range nf.Enrichment.Stages {
		if st.Name == "" {
			result = multierror.Append(result, fmt.Errorf("enrichment.stages[%d].name is required", i))
			continue
		}
		if seen[st.Name] {
			result = multierror.Append(result, fmt.Errorf("enrichment.stages[%d]: duplicate stage name %q", i, st.Name))
		}
		seen[st.Name] = true
	}

	if err := result.ErrorOrNil(); err != nil {
		return exception.NewBatchError(moduleName, "invalid configuration", err, false, false)
	}
	return nil
}

func validOTLPProtocol(p string) bool {
	return p == "" || p == "grpc" || p == "http"
}

// mergeConfig merges non-zero values of source into dest.
func mergeConfig(dest, source *Config) {
	d, s := &dest.Nameforge, &source.Nameforge

	mergeBatchConfig(&d.Batch, &s.Batch)

	if s.Source.Path != "" {
		d.Source.Path = s.Source.Path
	}
	if s.Source.StorageRef != "" {
		d.Source.StorageRef = s.Source.StorageRef
	}
	if s.Source.TopN != 0 {
		d.Source.TopN = s.Source.TopN
	}

	if s.State.Backend != "" {
		d.State.Backend = s.State.Backend
	}
	if s.State.StorageRef != "" {
		d.State.StorageRef = s.State.StorageRef
	}
	if s.State.Prefix != "" {
		d.State.Prefix = s.State.Prefix
	}
	if s.State.DatabaseRef != "" {
		d.State.DatabaseRef = s.State.DatabaseRef
	}

	mergeEnrichmentConfig(&d.Enrichment, &s.Enrichment)

	if s.Metrics.Enabled {
		d.Metrics.Enabled = true
	}
	if s.Metrics.TextfilePath != "" {
		d.Metrics.TextfilePath = s.Metrics.TextfilePath
	}
	if s.Metrics.OTLPEndpoint != "" {
		d.Metrics.OTLPEndpoint = s.Metrics.OTLPEndpoint
	}
	if s.Metrics.OTLPProtocol != "" {
		d.Metrics.OTLPProtocol = s.Metrics.OTLPProtocol
	}
	if s.Metrics.Insecure {
		d.Metrics.Insecure = true
	}

	if s.Tracing.Enabled {
		d.Tracing.Enabled = true
	}
	if s.Tracing.OTLPEndpoint != "" {
		d.Tracing.OTLPEndpoint = s.Tracing.OTLPEndpoint
	}
	if s.Tracing.Protocol != "" {
		d.Tracing.Protocol = s.Tracing.Protocol
	}
	if s.Tracing.Insecure {
		d.Tracing.Insecure = true
	}
	if s.Tracing.ServiceName != "" {
		d.Tracing.ServiceName = s.Tracing.ServiceName
	}

	if s.Notification.WebhookURL != "" {
		d.Notification.WebhookURL = s.Notification.WebhookURL
	}

	if s.System.Timezone != "" {
		d.System.Timezone = s.System.Timezone
	}
	if s.System.Logging.Level != "" {
		d.System.Logging.Level = s.System.Logging.Level
	}
	if s.System.Logging.File != "" {
		d.System.Logging.File = s.System.Logging.File
	}

	for key, value := range s.Adapter.Storage {
		d.Adapter.Storage[key] = value
	}
	for key, value := range s.Adapter.Database {
		d.Adapter.Database[key] = value
	}
}

func mergeBatchConfig(dest, source *BatchConfig) {
	if source.BatchSize != 0 {
		dest.BatchSize = source.BatchSize
	}
	if source.MaxRetries != 0 {
		dest.MaxRetries = source.MaxRetries
	}
	if source.PacingDelayMs != 0 {
		dest.PacingDelayMs = source.PacingDelayMs
	}
	if source.CallTimeoutMs != 0 {
		dest.CallTimeoutMs = source.CallTimeoutMs
	}
	if source.CallAttempts != 0 {
		dest.CallAttempts = source.CallAttempts
	}
	if source.Backoff.InitialIntervalMs != 0 {
		dest.Backoff.InitialIntervalMs = source.Backoff.InitialIntervalMs
	}
	if source.Backoff.MaxIntervalMs != 0 {
		dest.Backoff.MaxIntervalMs = source.Backoff.MaxIntervalMs
	}
	if source.Backoff.Factor != 0 {
		dest.Backoff.Factor = source.Backoff.Factor
	}
	if source.PermanentBackoffMs != 0 {
		dest.PermanentBackoffMs = source.PermanentBackoffMs
	}
	if source.MaxDuration != "" {
		dest.MaxDuration = source.MaxDuration
	}
	if source.ProgressEvery != 0 {
		dest.ProgressEvery = source.ProgressEvery
	}
	if source.RetryPass != nil {
		dest.RetryPass = source.RetryPass
	}
}

func mergeEnrichmentConfig(dest, source *EnrichmentConfig) {
	if source.Client != "" {
		dest.Client = source.Client
	}
	if source.Provider != "" {
		dest.Provider = source.Provider
	}
	if source.Model != "" {
		dest.Model = source.Model
	}
	if source.APIKey != "" {
		dest.APIKey = source.APIKey
	}
	if source.ServerURL != "" {
		dest.ServerURL = source.ServerURL
	}
	if source.SystemPrompt != "" {
		dest.SystemPrompt = source.SystemPrompt
	}
	if source.PromptTemplate != "" {
		dest.PromptTemplate = source.PromptTemplate
	}
	if source.Command != "" {
		dest.Command = source.Command
	}
	if source.Args != nil {
		dest.Args = source.Args
	}
	if source.RequiredFields != nil {
		dest.RequiredFields = source.RequiredFields
	}
	if source.SchemaPath != "" {
		dest.SchemaPath = source.SchemaPath
	}
	if source.Stages != nil {
		dest.Stages = source.Stages
	}
	if source.MergeVersion != "" {
		dest.MergeVersion = source.MergeVersion
	}
	// A configured dedup map replaces the defaults wholesale so rules can be removed.
	if source.Dedup != nil {
		dest.Dedup = source.Dedup
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// The variable name is the upper-cased yaml tag path joined with underscores,
// e.g. NAMEFORGE_BATCH_BATCH_SIZE overrides nameforge.batch.batch_size.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets a scalar, *bool or []string field from its string form.
// Slices are comma-separated. Maps and other kinds are left untouched.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Ptr:
		elem := reflect.New(field.Type().Elem())
		if err := setField(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		var parts []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}
