package app

import (
	"fmt"

	"github.com/yungbote/recipes-assistant-backend/internal/clients/uploader"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/gcp"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

var newDocumentParser = gcp.NewDocumentParser

// resolveConverter picks how uploaded files become chunks. The uploader
// client is returned only in uploader mode.
func resolveConverter(log *logger.Logger, cfg Config, files filestore.FileStore, ingestion services.IngestionService) (services.Converter, uploader.Client, func() error, error) {
	noop := func() error { return nil }
	switch cfg.ConverterMode {
	case services.ConverterModeUploader, "":
		log.Info("Selecting converter", "mode", services.ConverterModeUploader, "uploader_url", cfg.UploaderURL)
		client := uploader.New(log, cfg.UploaderURL, cfg.UploaderTimeout)
		return services.NewUploaderConverter(log, client), client, noop, nil
	case services.ConverterModeDocumentAI:
		log.Info("Selecting converter", "mode", services.ConverterModeDocumentAI, "processor", cfg.DocumentAIProcessor, "location", cfg.DocumentAILocation)
		parser, err := newDocumentParser(log, gcp.DocumentConfig{
			ProjectID:        cfg.DocumentAIProject,
			Location:         cfg.DocumentAILocation,
			ProcessorID:      cfg.DocumentAIProcessor,
			ProcessorVersion: cfg.DocumentAIVersion,
			Credentials:      cfg.GCPCredentials,
		})
		if err != nil {
			return nil, nil, noop, fmt.Errorf("init document parser: %w", err)
		}
		return services.NewDocumentConverter(log, files, parser, ingestion), nil, parser.Close, nil
	default:
		return nil, nil, noop, fmt.Errorf("unsupported CONVERTER_MODE %q", cfg.ConverterMode)
	}
}
