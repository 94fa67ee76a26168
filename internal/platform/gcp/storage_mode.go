package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

type StorageConfig struct {
	Mode         StorageMode
	EmulatorHost string
	Bucket       string
	Credentials  string
	// Inferred is set when the mode was derived from STORAGE_EMULATOR_HOST.
	Inferred bool
}

func (cfg StorageConfig) IsEmulator() bool { return cfg.Mode == StorageModeGCSEmulator }

type StorageConfigError struct {
	Field string
	Value string
	Cause error
}

func (e *StorageConfigError) Error() string {
	switch e.Field {
	case "mode":
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", e.Value, StorageModeGCS, StorageModeGCSEmulator)
	case "emulator_host":
		if e.Value == "" {
			return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST to be set", StorageModeGCSEmulator)
		}
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", e.Value)
	case "bucket":
		return "missing RECIPES_GCS_BUCKET_NAME"
	default:
		return "invalid object storage config"
	}
}

func (e *StorageConfigError) Unwrap() error { return e.Cause }

// ResolveStorageConfig picks the storage mode. An empty mode means gcs,
// unless an emulator host is configured.
func ResolveStorageConfig(rawMode, emulatorHost, bucket, credentials string) (StorageConfig, error) {
	cfg := StorageConfig{
		EmulatorHost: strings.TrimRight(strings.TrimSpace(emulatorHost), "/"),
		Bucket:       strings.TrimSpace(bucket),
		Credentials:  credentials,
	}
	switch mode := StorageMode(strings.ToLower(strings.TrimSpace(rawMode))); mode {
	case "":
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeGCSEmulator
			cfg.Inferred = true
		}
	case StorageModeGCS, StorageModeGCSEmulator:
		cfg.Mode = mode
	default:
		return cfg, &StorageConfigError{Field: "mode", Value: rawMode}
	}
	return cfg, cfg.Validate()
}

func (cfg StorageConfig) Validate() error {
	if cfg.Mode != StorageModeGCS && cfg.Mode != StorageModeGCSEmulator {
		return &StorageConfigError{Field: "mode", Value: string(cfg.Mode)}
	}
	if cfg.Bucket == "" {
		return &StorageConfigError{Field: "bucket"}
	}
	if !cfg.IsEmulator() {
		return nil
	}
	if cfg.EmulatorHost == "" {
		return &StorageConfigError{Field: "emulator_host"}
	}
	u, err := url.Parse(cfg.EmulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &StorageConfigError{Field: "emulator_host", Value: cfg.EmulatorHost, Cause: err}
	}
	return nil
}
