package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.DatabaseURL = "sqlite://" + filepath.Join(os.TempDir(), "recipes.db")
	cfg.OpenAIAPIKey = "sk-test"
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/recipes")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, 30*time.Second, cfg.ChatMaxDuration)
	assert.Equal(t, 1536, cfg.EmbedDimensions)
	assert.Equal(t, filestore.ModeLocal, cfg.FileStoreMode)
	assert.Equal(t, services.ConverterModeUploader, cfg.ConverterMode)
	assert.Equal(t, DefaultUploaderURL, cfg.UploaderURL)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Address())
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
chat_model: gpt-4o
chat_max_duration: 45s
converter_mode: DocumentAI
cors_allowed_origins:
  - https://recipes.example.com
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHAT_MODEL", "gpt-4.1-mini")
	t.Setenv("UPLOADER_URL", "http://uploader:8000/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "gpt-4.1-mini", cfg.ChatModel, "env wins over the file")
	assert.Equal(t, 45*time.Second, cfg.ChatMaxDuration)
	assert.Equal(t, services.ConverterModeDocumentAI, cfg.ConverterMode)
	assert.Equal(t, []string{"https://recipes.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "http://uploader:8000", cfg.UploaderURL)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [nope"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, false},
		{"missing api key", func(c *Config) { c.OpenAIAPIKey = "" }, false},
		{"zero dims", func(c *Config) { c.EmbedDimensions = 0 }, false},
		{"relative uploader", func(c *Config) { c.UploaderURL = "uploader:8000/x" }, false},
		{"bad file store", func(c *Config) { c.FileStoreMode = "s3" }, false},
		{"gcs without bucket", func(c *Config) { c.FileStoreMode = filestore.ModeGCS }, false},
		{"gcs with bucket", func(c *Config) { c.FileStoreMode = filestore.ModeGCS; c.GCSBucket = "recipes" }, true},
		{"object storage overrides local without bucket", func(c *Config) { c.ObjectStorageMode = filestore.ModeGCS }, false},
		{"object storage overrides local", func(c *Config) { c.ObjectStorageMode = filestore.ModeGCS; c.GCSBucket = "recipes" }, true},
		{"bad converter", func(c *Config) { c.ConverterMode = "pandoc" }, false},
		{"documentai without processor", func(c *Config) { c.ConverterMode = services.ConverterModeDocumentAI }, false},
		{"documentai", func(c *Config) {
			c.ConverterMode = services.ConverterModeDocumentAI
			c.DocumentAIProject = "p"
			c.DocumentAIProcessor = "proc"
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStorageModePrefersObjectStorageMode(t *testing.T) {
	assert.Equal(t, filestore.ModeLocal, Config{FileStoreMode: filestore.ModeLocal}.StorageMode())
	assert.Equal(t, filestore.ModeGCSEmulator, Config{FileStoreMode: filestore.ModeLocal, ObjectStorageMode: filestore.ModeGCSEmulator}.StorageMode())
}

func TestValidateDatabaseOnlyNeedsURL(t *testing.T) {
	cfg := Config{DatabaseURL: "sqlite://recipes.db"}
	assert.NoError(t, cfg.ValidateDatabase())
	assert.Error(t, cfg.Validate())
}
