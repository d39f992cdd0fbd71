package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all worker configuration, loaded from the environment.
type Config struct {
	Service       ServiceConfig
	Whisper       WhisperConfig
	Align         SidecarConfig
	Diarize       SidecarConfig
	Kafka         KafkaConfig
	S3            S3Config
	Store         StoreConfig
	Correction    CorrectionConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

// WhisperConfig selects the transcription model and pipeline shape.
// Mode is one of basic, aligned, diarized.
type WhisperConfig struct {
	Model      string
	Device     string
	Language   string
	Mode       string
	SidecarURL string
	Timeout    time.Duration
}

// SidecarConfig points at an optional HTTP stage service.
type SidecarConfig struct {
	URL     string
	Timeout time.Duration
}

type KafkaConfig struct {
	Brokers         []string
	JobsTopic       string
	ProgressTopic   string
	GroupID         string
	ProgressEnabled bool
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// StoreConfig selects the object store driver: s3 or filesystem.
type StoreConfig struct {
	Driver  string
	RootDir string
}

type CorrectionConfig struct {
	DictionaryPath string
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

func Load() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: envOrDefault("SERVICE_NAME", "transcription-worker"),
		},
		Whisper: WhisperConfig{
			Model:      envOrDefault("WHISPER_MODEL", "large-v3"),
			Device:     envOrDefault("WHISPER_DEVICE", "auto"),
			Language:   envOrDefault("TRANSCRIPTION_LANGUAGE", "ja"),
			Mode:       envOrDefault("TRANSCRIPTION_MODE", "basic"),
			SidecarURL: envOrDefault("WHISPER_SERVICE_URL", "http://localhost:8390"),
			Timeout:    envOrDefaultDuration("WHISPER_TIMEOUT", 30*time.Minute),
		},
		Align: SidecarConfig{
			URL:     envOrDefault("ALIGN_SERVICE_URL", "http://localhost:8389"),
			Timeout: envOrDefaultDuration("ALIGN_TIMEOUT", 5*time.Minute),
		},
		Diarize: SidecarConfig{
			URL:     envOrDefault("PYANNOTE_SERVICE_URL", "http://localhost:8388"),
			Timeout: envOrDefaultDuration("PYANNOTE_TIMEOUT", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:         splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
			JobsTopic:       envOrDefault("KAFKA_JOBS_TOPIC", "jobs.new"),
			ProgressTopic:   envOrDefault("KAFKA_PROGRESS_TOPIC", "jobs.progress"),
			GroupID:         envOrDefault("KAFKA_GROUP_ID", "transcription-worker"),
			ProgressEnabled: envOrDefaultBool("KAFKA_PROGRESS_ENABLED", true),
		},
		S3: S3Config{
			Endpoint:  envOrDefault("S3_ENDPOINT", "http://localhost:9000"),
			AccessKey: envOrDefault("S3_ACCESS_KEY", "minioadmin"),
			SecretKey: envOrDefault("S3_SECRET_KEY", "minioadmin"),
			Bucket:    envOrDefault("S3_BUCKET", "audio"),
			Region:    envOrDefault("S3_REGION", "us-east-1"),
			UseSSL:    envOrDefaultBool("S3_USE_SSL", false),
		},
		Store: StoreConfig{
			Driver:  envOrDefault("STORE_DRIVER", "s3"),
			RootDir: envOrDefault("STORE_ROOT_DIR", "./data"),
		},
		Correction: CorrectionConfig{
			DictionaryPath: envOrDefault("CORRECTION_DICTIONARY", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
