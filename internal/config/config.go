// Package config loads configuration from environment variables, with an optional
// YAML overlay for the operator CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Field extraction backends.
const (
	BackendBedrock   = "bedrock"
	BackendAnthropic = "anthropic"
)

// Re-ingest policies for an object location that already has a record.
const (
	ReingestReject    = "reject"
	ReingestOverwrite = "overwrite"
)

// Env holds the configuration values for the application.
type Env struct {
	Region        string        `yaml:"region"`
	Bucket        string        `yaml:"bucket"`
	Table         string        `yaml:"table"`
	UploadPrefix  string        `yaml:"upload_prefix"`
	PresignTTL    time.Duration `yaml:"presign_ttl"`
	DevBypassAuth bool          `yaml:"dev_bypass_auth"`

	FieldBackend    string `yaml:"field_backend"`
	FieldModelID    string `yaml:"field_model_id"`
	AnthropicAPIKey string `yaml:"-"` // env only
	AnthropicModel  string `yaml:"anthropic_model"`
	SuggestModelID  string `yaml:"suggest_model_id"`

	EmbedEnabled  bool   `yaml:"embed_enabled"`
	EmbedModelID  string `yaml:"embed_model_id"`
	EmbedMaxChars int    `yaml:"embed_max_chars"`

	DedupThreshold float64 `yaml:"dedup_threshold"`
	ReingestPolicy string  `yaml:"reingest_policy"`

	NotifyBackend  string   `yaml:"notify_backend"` // sns, sqs, kafka; empty disables
	NotifyTopicARN string   `yaml:"notify_topic_arn"`
	NotifyQueueURL string   `yaml:"notify_queue_url"`
	KafkaBrokers   []string `yaml:"kafka_brokers"`
	KafkaTopic     string   `yaml:"kafka_topic"`

	HealthLakeEndpoint string `yaml:"healthlake_endpoint"` // empty disables patient matching
	PollyVoice         string `yaml:"polly_voice"`
	LogLevel           string `yaml:"log_level"`
}

// Load reads the environment variables and returns a validated Env.
func Load() (Env, error) {
	e := Env{
		Region:          get("AWS_REGION", "us-east-1"),
		Bucket:          get("S3_BUCKET", ""),
		Table:           get("DDB_TABLE", "prior_auth_requests"),
		UploadPrefix:    get("UPLOAD_PREFIX", "uploads/"),
		PresignTTL:      300 * time.Second,
		DevBypassAuth:   get("DEV_BYPASS_AUTH", "") == "true",
		FieldBackend:    get("FIELD_BACKEND", BackendBedrock),
		FieldModelID:    get("FIELD_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
		AnthropicAPIKey: get("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  get("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		SuggestModelID:  get("SUGGEST_MODEL_ID", "amazon.titan-text-lite-v1"),
		EmbedEnabled:    true,
		EmbedModelID:    get("EMBED_MODEL_ID", "amazon.titan-embed-text-v1"),
		EmbedMaxChars:   25000,
		DedupThreshold:  0.9,
		ReingestPolicy:  get("REINGEST_POLICY", ReingestReject),
		NotifyBackend:   get("NOTIFY_BACKEND", ""),
		NotifyTopicARN:  get("NOTIFY_TOPIC_ARN", ""),
		NotifyQueueURL:  get("NOTIFY_QUEUE_URL", ""),
		KafkaBrokers:    splitList(get("KAFKA_BROKERS", "")),
		KafkaTopic:      get("KAFKA_TOPIC", "prior-auth-alerts"),

		HealthLakeEndpoint: strings.TrimRight(get("HEALTHLAKE_ENDPOINT", ""), "/"),
		PollyVoice:         get("POLLY_VOICE", "Joanna"),
		LogLevel:           get("LOG_LEVEL", "info"),
	}

	if err := parseEnvSeconds("PRESIGN_TTL_SECONDS", &e.PresignTTL); err != nil {
		return e, err
	}
	if err := parseEnvBool("EMBED_ENABLED", &e.EmbedEnabled); err != nil {
		return e, err
	}
	if err := parseEnvInt("EMBED_MAX_CHARS", &e.EmbedMaxChars); err != nil {
		return e, err
	}
	if err := parseEnvFloat("DEDUP_SIMILARITY_THRESHOLD", &e.DedupThreshold); err != nil {
		return e, err
	}

	if err := e.Validate(); err != nil {
		return e, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return e, nil
}

// MustLoad is Load for Lambda entry points: it panics on invalid configuration.
func MustLoad() Env {
	e, err := Load()
	if err != nil {
		panic(err)
	}
	return e
}

// LoadFile loads the environment and then overlays the YAML file at path.
// An empty path is the same as Load.
func LoadFile(path string) (Env, error) {
	e, err := Load()
	if err != nil || path == "" {
		return e, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return e, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("parse config %s: %w", path, err)
	}
	e.HealthLakeEndpoint = strings.TrimRight(e.HealthLakeEndpoint, "/")
	if err := e.Validate(); err != nil {
		return e, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return e, nil
}

// Validate checks value ranges and enumerations.
func (e Env) Validate() error {
	if e.Table == "" {
		return fmt.Errorf("table must be set")
	}
	switch e.FieldBackend {
	case BackendBedrock, BackendAnthropic:
	default:
		return fmt.Errorf("field_backend must be %q or %q (got %q)", BackendBedrock, BackendAnthropic, e.FieldBackend)
	}
	if e.FieldBackend == BackendAnthropic && e.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	switch e.ReingestPolicy {
	case ReingestReject, ReingestOverwrite:
	default:
		return fmt.Errorf("reingest_policy must be %q or %q (got %q)", ReingestReject, ReingestOverwrite, e.ReingestPolicy)
	}
	if e.DedupThreshold <= 0 || e.DedupThreshold > 1 {
		return fmt.Errorf("dedup_threshold must be in (0, 1] (got %.2f)", e.DedupThreshold)
	}
	if e.EmbedMaxChars <= 0 {
		return fmt.Errorf("embed_max_chars must be positive (got %d)", e.EmbedMaxChars)
	}
	if e.PresignTTL <= 0 {
		return fmt.Errorf("presign_ttl must be positive (got %v)", e.PresignTTL)
	}
	switch e.NotifyBackend {
	case "":
	case "sns":
		if e.NotifyTopicARN == "" {
			return fmt.Errorf("notify_topic_arn required for sns notifications")
		}
	case "sqs":
		if e.NotifyQueueURL == "" {
			return fmt.Errorf("notify_queue_url required for sqs notifications")
		}
	case "kafka":
		if len(e.KafkaBrokers) == 0 || e.KafkaTopic == "" {
			return fmt.Errorf("kafka_brokers and kafka_topic required for kafka notifications")
		}
	default:
		return fmt.Errorf("unknown notify_backend %q", e.NotifyBackend)
	}
	return nil
}

// Overwrite reports whether re-ingesting an existing object replaces its record.
func (e Env) Overwrite() bool { return e.ReingestPolicy == ReingestOverwrite }

// RequireBucket returns the upload bucket or an error when it is not configured.
func (e Env) RequireBucket() (string, error) {
	if e.Bucket == "" {
		return "", fmt.Errorf("missing env S3_BUCKET")
	}
	return e.Bucket, nil
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvSeconds(key string, dest *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * time.Second
	return nil
}
