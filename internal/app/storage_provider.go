package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/gcp"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

var (
	newBucket     = gcp.NewBucket
	newLocalStore = filestore.NewLocal
)

type StorageBootstrapErrorCode string

const (
	StorageBootstrapErrorInvalidMode         StorageBootstrapErrorCode = "invalid_mode"
	StorageBootstrapErrorMissingEmulatorHost StorageBootstrapErrorCode = "missing_emulator_host"
	StorageBootstrapErrorInvalidEmulatorHost StorageBootstrapErrorCode = "invalid_emulator_host"
	StorageBootstrapErrorMissingBucket       StorageBootstrapErrorCode = "missing_bucket"
	StorageBootstrapErrorConnectFailed       StorageBootstrapErrorCode = "connect_failed"
)

type StorageBootstrapError struct {
	Code         StorageBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageBootstrapError) Error() string {
	if e == nil {
		return "file store bootstrap failed"
	}
	return fmt.Sprintf(
		"file store bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveFileStore builds the store uploads land in. The returned close
// func releases the bucket client, if any.
func resolveFileStore(log *logger.Logger, cfg Config) (filestore.FileStore, func() error, error) {
	noop := func() error { return nil }

	rawMode := cfg.StorageMode()
	if rawMode == filestore.ModeLocal || rawMode == "" {
		log.Info("Selecting file store", "mode", filestore.ModeLocal, "dir", cfg.RecipesDir)
		fs, err := newLocalStore(log, cfg.RecipesDir)
		if err != nil {
			return nil, noop, &StorageBootstrapError{Code: StorageBootstrapErrorConnectFailed, Mode: filestore.ModeLocal, Cause: err}
		}
		return fs, noop, nil
	}

	storageCfg, err := gcp.ResolveStorageConfig(rawMode, cfg.StorageEmulatorHost, cfg.GCSBucket, cfg.GCPCredentials)
	if err != nil {
		classified := classifyStorageBootstrapError(storageCfg, rawMode, err)
		log.Error(
			"File store selection failed",
			"mode", rawMode,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", classified.Code,
			"error", err,
		)
		return nil, noop, classified
	}

	log.Info(
		"Selecting file store",
		"mode", storageCfg.Mode,
		"inferred", storageCfg.Inferred,
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", storageCfg.Bucket,
	)
	bucket, err := newBucket(log, storageCfg)
	if err != nil {
		classified := classifyStorageBootstrapError(storageCfg, rawMode, err)
		log.Error(
			"File store bootstrap failed",
			"mode", storageCfg.Mode,
			"error_code", classified.Code,
			"error", err,
		)
		return nil, noop, classified
	}
	return filestore.NewBucket(log, bucket), bucket.Close, nil
}

func classifyStorageBootstrapError(storageCfg gcp.StorageConfig, rawMode string, err error) *StorageBootstrapError {
	out := &StorageBootstrapError{
		Code:         StorageBootstrapErrorConnectFailed,
		Mode:         rawMode,
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
	var cfgErr *gcp.StorageConfigError
	if !errors.As(err, &cfgErr) {
		return out
	}
	switch cfgErr.Field {
	case "mode":
		out.Code = StorageBootstrapErrorInvalidMode
	case "bucket":
		out.Code = StorageBootstrapErrorMissingBucket
	case "emulator_host":
		if cfgErr.Value == "" {
			out.Code = StorageBootstrapErrorMissingEmulatorHost
		} else {
			out.Code = StorageBootstrapErrorInvalidEmulatorHost
		}
	}
	return out
}
