package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yungbote/recipes-assistant-backend/internal/clients/uploader"
	"github.com/yungbote/recipes-assistant-backend/internal/ingestion/chunker"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/gcp"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/httpx"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const (
	ConverterModeUploader   = "uploader"
	ConverterModeDocumentAI = "documentai"

	// Matches the external uploader's chunking.
	ConvertChunkMaxChars = 500
	ConvertChunkOverlap  = 50

	maxConvertBytes = 20 << 20
)

type ConversionResult struct {
	ProcessedChunks []string `json:"processed_chunks"`
	Processed       int      `json:"processed"`
}

// Converter turns a stored recipe file into embedded chunks.
type Converter interface {
	ProcessFile(ctx context.Context, filename string) (ConversionResult, error)
}

type uploaderConverter struct {
	log    *logger.Logger
	client uploader.Client
}

// NewUploaderConverter delegates to the external conversion service, which
// posts the chunks back through the pre-chunked ingestion route.
func NewUploaderConverter(baseLog *logger.Logger, client uploader.Client) Converter {
	return &uploaderConverter{log: baseLog.With("service", "UploaderConverter"), client: client}
}

func (c *uploaderConverter) ProcessFile(ctx context.Context, filename string) (ConversionResult, error) {
	res, err := c.client.ProcessFile(ctx, filename)
	if err != nil {
		return ConversionResult{}, &CollaboratorError{Service: "uploader", Status: httpx.StatusCodeOf(err), Err: err}
	}
	return ConversionResult{ProcessedChunks: res.ProcessedChunks, Processed: res.Processed}, nil
}

type documentConverter struct {
	log       *logger.Logger
	files     filestore.FileStore
	parser    gcp.DocumentParser
	ingestion IngestionService
}

// NewDocumentConverter converts in process: Document AI for binary formats,
// blank-line paragraphs for plain text and markdown.
func NewDocumentConverter(baseLog *logger.Logger, files filestore.FileStore, parser gcp.DocumentParser, ingestion IngestionService) Converter {
	return &documentConverter{
		log:       baseLog.With("service", "DocumentConverter"),
		files:     files,
		parser:    parser,
		ingestion: ingestion,
	}
}

func (c *documentConverter) ProcessFile(ctx context.Context, filename string) (ConversionResult, error) {
	rc, err := c.files.Open(ctx, filename)
	if err != nil {
		return ConversionResult{}, fmt.Errorf("open %s: %w", filename, err)
	}
	data, err := io.ReadAll(io.LimitReader(rc, maxConvertBytes+1))
	_ = rc.Close()
	if err != nil {
		return ConversionResult{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(data) > maxConvertBytes {
		return ConversionResult{}, &ValidationError{Reason: fmt.Sprintf("%s exceeds %d bytes", filename, maxConvertBytes)}
	}

	paragraphs, err := c.paragraphs(ctx, filename, data)
	if err != nil {
		return ConversionResult{}, err
	}
	chunks := chunker.Pack(paragraphs, ConvertChunkMaxChars, ConvertChunkOverlap)
	if len(chunks) == 0 {
		c.log.Info("no chunks extracted", "filename", filename)
		return ConversionResult{ProcessedChunks: []string{}}, nil
	}

	if _, _, err := c.ingestion.IngestChunks(ctx, chunks); err != nil {
		return ConversionResult{}, err
	}
	c.log.Info("file processed", "filename", filename, "processed", len(chunks))
	return ConversionResult{ProcessedChunks: chunks, Processed: len(chunks)}, nil
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

var documentMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".html": "text/html",
	".htm":  "text/html",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

func (c *documentConverter) paragraphs(ctx context.Context, filename string, data []byte) ([]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".md", ".txt":
		out := []string{}
		for _, p := range blankLines.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), -1) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		mimeType, ok := documentMimeTypes[ext]
		if !ok {
			return nil, &ValidationError{Reason: fmt.Sprintf("Unsupported file type: %s", ext)}
		}
		paras, err := c.parser.Paragraphs(ctx, data, mimeType)
		if err != nil {
			return nil, &CollaboratorError{Service: "documentai", Err: err}
		}
		return paras, nil
	}
}
