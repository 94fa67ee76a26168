package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/envutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

const DefaultUploaderURL = "http://uploader:8000"

// Config is loaded once at start and passed down to constructors.
// Precedence: process env, then .env, then CONFIG_FILE (YAML), then defaults.
type Config struct {
	Port    int    `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	DatabaseURL string `yaml:"database_url"`

	OpenAIAPIKey     string        `yaml:"openai_api_key"`
	OpenAIBaseURL    string        `yaml:"openai_base_url"`
	OpenAITimeout    time.Duration `yaml:"openai_timeout"`
	OpenAIMaxRetries int           `yaml:"openai_max_retries"`

	ChatModel       string        `yaml:"chat_model"`
	ChatMaxDuration time.Duration `yaml:"chat_max_duration"`
	ChatMaxSteps    int           `yaml:"chat_max_steps"`
	ToolTimeout     time.Duration `yaml:"tool_timeout"`

	EmbedModel       string  `yaml:"embed_model"`
	EmbedDimensions  int     `yaml:"embed_dimensions"`
	EmbedBatchSize   int     `yaml:"embed_batch_size"`
	EmbedConcurrency int     `yaml:"embed_concurrency"`
	EmbedRatePerSec  float64 `yaml:"embed_rate_per_sec"`

	FileStoreMode       string `yaml:"file_store_mode"`
	RecipesDir          string `yaml:"recipes_dir"`
	ObjectStorageMode   string `yaml:"object_storage_mode"`
	StorageEmulatorHost string `yaml:"storage_emulator_host"`
	GCSBucket           string `yaml:"gcs_bucket"`
	GCPCredentials      string `yaml:"gcp_credentials"`
	MaxUploadBytes      int64  `yaml:"max_upload_bytes"`

	ConverterMode   string        `yaml:"converter_mode"`
	UploaderURL     string        `yaml:"uploader_url"`
	UploaderTimeout time.Duration `yaml:"uploader_timeout"`

	DocumentAIProject   string `yaml:"documentai_project"`
	DocumentAILocation  string `yaml:"documentai_location"`
	DocumentAIProcessor string `yaml:"documentai_processor"`
	DocumentAIVersion   string `yaml:"documentai_processor_version"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	MetricsEnabled  bool          `yaml:"metrics_enabled"`
	DBStatsInterval time.Duration `yaml:"db_stats_interval"`

	OTelEnabled     bool    `yaml:"otel_enabled"`
	OTelServiceName string  `yaml:"otel_service_name"`
	OTelEnvironment string  `yaml:"otel_environment"`
	OTelEndpoint    string  `yaml:"otel_endpoint"`
	OTelHeaders     string  `yaml:"otel_headers"`
	OTelInsecure    bool    `yaml:"otel_insecure"`
	OTelSampleRatio float64 `yaml:"otel_sample_ratio"`
	OTelStdout      bool    `yaml:"otel_stdout"`
}

func defaultConfig() Config {
	return Config{
		Port:               8080,
		LogMode:            "development",
		OpenAITimeout:      60 * time.Second,
		ChatModel:          "gpt-4o-mini",
		ChatMaxDuration:    30 * time.Second,
		ChatMaxSteps:       5,
		ToolTimeout:        60 * time.Second,
		EmbedModel:         "text-embedding-3-small",
		EmbedDimensions:    1536,
		EmbedBatchSize:     96,
		EmbedConcurrency:   4,
		EmbedRatePerSec:    20,
		FileStoreMode:      filestore.ModeLocal,
		RecipesDir:         "./recipes",
		MaxUploadBytes:     32 << 20,
		ConverterMode:      services.ConverterModeUploader,
		UploaderURL:        DefaultUploaderURL,
		UploaderTimeout:    120 * time.Second,
		DocumentAILocation: "us",
		MetricsEnabled:     true,
		DBStatsInterval:    15 * time.Second,
		OTelServiceName:    "recipes-assistant",
		OTelSampleRatio:    1,
	}
}

// LoadConfig reads .env (if present), then CONFIG_FILE, then the process env.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeYAMLFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) mergeYAMLFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envutil.Int("PORT", c.Port)
	c.LogMode = envutil.String("LOG_MODE", c.LogMode)
	c.DatabaseURL = envutil.String("DATABASE_URL", c.DatabaseURL)

	c.OpenAIAPIKey = envutil.String("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = envutil.String("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAITimeout = envutil.Duration("OPENAI_TIMEOUT", c.OpenAITimeout)
	c.OpenAIMaxRetries = envutil.Int("OPENAI_MAX_RETRIES", c.OpenAIMaxRetries)

	c.ChatModel = envutil.String("CHAT_MODEL", c.ChatModel)
	c.ChatMaxDuration = envutil.Duration("CHAT_MAX_DURATION", c.ChatMaxDuration)
	c.ChatMaxSteps = envutil.Int("CHAT_MAX_STEPS", c.ChatMaxSteps)
	c.ToolTimeout = envutil.Duration("CHAT_TOOL_TIMEOUT", c.ToolTimeout)

	c.EmbedModel = envutil.String("EMBED_MODEL", c.EmbedModel)
	c.EmbedDimensions = envutil.Int("EMBED_DIMENSIONS", c.EmbedDimensions)
	c.EmbedBatchSize = envutil.Int("EMBED_BATCH_SIZE", c.EmbedBatchSize)
	c.EmbedConcurrency = envutil.Int("EMBED_CONCURRENCY", c.EmbedConcurrency)
	c.EmbedRatePerSec = envutil.Float("EMBED_RATE_PER_SEC", c.EmbedRatePerSec)

	c.FileStoreMode = envutil.String("FILE_STORE_MODE", c.FileStoreMode)
	c.RecipesDir = envutil.String("RECIPES_DIR", c.RecipesDir)
	c.ObjectStorageMode = envutil.String("OBJECT_STORAGE_MODE", c.ObjectStorageMode)
	c.StorageEmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", c.StorageEmulatorHost)
	c.GCSBucket = envutil.String("RECIPES_GCS_BUCKET_NAME", c.GCSBucket)
	c.GCPCredentials = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", c.GCPCredentials)
	c.MaxUploadBytes = int64(envutil.Int("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))

	c.ConverterMode = envutil.String("CONVERTER_MODE", c.ConverterMode)
	c.UploaderURL = envutil.String("UPLOADER_URL", c.UploaderURL)
	c.UploaderTimeout = envutil.Duration("UPLOADER_TIMEOUT", c.UploaderTimeout)

	c.DocumentAIProject = envutil.String("DOCUMENTAI_PROJECT_ID", c.DocumentAIProject)
	c.DocumentAILocation = envutil.String("DOCUMENTAI_LOCATION", c.DocumentAILocation)
	c.DocumentAIProcessor = envutil.String("DOCUMENTAI_PROCESSOR_ID", c.DocumentAIProcessor)
	c.DocumentAIVersion = envutil.String("DOCUMENTAI_PROCESSOR_VERSION", c.DocumentAIVersion)

	if origins := envutil.List("CORS_ALLOWED_ORIGINS"); len(origins) > 0 {
		c.CORSAllowedOrigins = origins
	}

	c.MetricsEnabled = envutil.Bool("METRICS_ENABLED", c.MetricsEnabled)
	c.DBStatsInterval = envutil.Duration("DB_STATS_INTERVAL", c.DBStatsInterval)

	c.OTelEnabled = envutil.Bool("OTEL_ENABLED", c.OTelEnabled)
	c.OTelServiceName = envutil.String("OTEL_SERVICE_NAME", c.OTelServiceName)
	c.OTelEnvironment = envutil.String("OTEL_ENVIRONMENT", c.OTelEnvironment)
	c.OTelEndpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTelEndpoint)
	c.OTelHeaders = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", c.OTelHeaders)
	c.OTelInsecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", c.OTelInsecure)
	c.OTelSampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", c.OTelSampleRatio)
	c.OTelStdout = envutil.Bool("OTEL_STDOUT", c.OTelStdout)
}

func (c *Config) normalize() {
	c.FileStoreMode = strings.ToLower(strings.TrimSpace(c.FileStoreMode))
	c.ObjectStorageMode = strings.ToLower(strings.TrimSpace(c.ObjectStorageMode))
	c.ConverterMode = strings.ToLower(strings.TrimSpace(c.ConverterMode))
	c.UploaderURL = strings.TrimRight(strings.TrimSpace(c.UploaderURL), "/")
}

// StorageMode is the effective file store mode: OBJECT_STORAGE_MODE when
// set, else FILE_STORE_MODE.
func (c Config) StorageMode() string {
	if c.ObjectStorageMode != "" {
		return c.ObjectStorageMode
	}
	return c.FileStoreMode
}

// ValidateDatabase checks only what the database commands need.
func (c Config) ValidateDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// Validate checks everything serving needs, failing on the first problem.
func (c Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.EmbedDimensions <= 0 {
		return fmt.Errorf("EMBED_DIMENSIONS must be positive, got %d", c.EmbedDimensions)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	switch mode := c.StorageMode(); mode {
	case filestore.ModeLocal:
		if strings.TrimSpace(c.RecipesDir) == "" {
			return errors.New("RECIPES_DIR is required for the local file store")
		}
	case filestore.ModeGCS, filestore.ModeGCSEmulator:
		if strings.TrimSpace(c.GCSBucket) == "" {
			return errors.New("RECIPES_GCS_BUCKET_NAME is required for the gcs file store")
		}
	default:
		return fmt.Errorf("invalid FILE_STORE_MODE=%q (allowed: %q, %q, %q)", mode, filestore.ModeLocal, filestore.ModeGCS, filestore.ModeGCSEmulator)
	}
	switch c.ConverterMode {
	case services.ConverterModeUploader:
		u, err := url.Parse(c.UploaderURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("UPLOADER_URL must be an absolute URL, got %q", c.UploaderURL)
		}
	case services.ConverterModeDocumentAI:
		if c.DocumentAIProject == "" || c.DocumentAIProcessor == "" {
			return errors.New("DOCUMENTAI_PROJECT_ID and DOCUMENTAI_PROCESSOR_ID are required for the documentai converter")
		}
	default:
		return fmt.Errorf("invalid CONVERTER_MODE=%q (allowed: %q, %q)", c.ConverterMode, services.ConverterModeUploader, services.ConverterModeDocumentAI)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}
