package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recipes-assistant-backend/internal/http/response"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/ctxutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

var (
	errChunksRequired = errors.New(`Provide non-empty "chunks" array`)
	errUploadTooLarge = errors.New("File too large")
)

type IngestHandler struct {
	log       *logger.Logger
	ingestion services.IngestionService
	files     filestore.FileStore
	converter services.Converter
	maxUpload int64
}

func NewIngestHandler(baseLog *logger.Logger, ingestion services.IngestionService, files filestore.FileStore, converter services.Converter) *IngestHandler {
	return &IngestHandler{
		log:       baseLog.With("handler", "IngestHandler"),
		ingestion: ingestion,
		files:     files,
		converter: converter,
	}
}

// LimitUploads caps the /api/upload request body at n bytes. n <= 0 means
// no cap.
func (h *IngestHandler) LimitUploads(n int64) *IngestHandler {
	h.maxUpload = n
	return h
}

// POST /api/upload-chunks
//
// Ingestion failures are reported in message with a 200, the same as the
// chat tool sees them.
func (h *IngestHandler) UploadChunks(c *gin.Context) {
	var body any
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	chunks, ok := chunksOf(body)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, errChunksRequired)
		return
	}

	ctx := c.Request.Context()
	msg, res, err := h.ingestion.IngestChunks(ctx, chunks)
	if err != nil {
		h.log.Warn("upload-chunks ingestion failed", append([]interface{}{"chunks", len(chunks), "error", err}, ctxutil.LogFields(ctx)...)...)
	} else {
		h.log.Info("upload-chunks ingested", append([]interface{}{"resource_id", res.ResourceID, "chunks", res.Chunks}, ctxutil.LogFields(ctx)...)...)
	}
	response.RespondOK(c, gin.H{"status": "ok", "message": msg, "processed": len(chunks)})
}

// chunksOf accepts only an object whose "chunks" is a non-empty array of
// strings.
func chunksOf(body any) ([]string, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, false
	}
	items, ok := obj["chunks"].([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	chunks := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		chunks[i] = s
	}
	return chunks, true
}

// POST /api/upload (multipart, field "file")
func (h *IngestHandler) Upload(c *gin.Context) {
	if h.maxUpload > 0 {
		if c.Request.ContentLength > h.maxUpload {
			response.RespondError(c, http.StatusRequestEntityTooLarge, errUploadTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	fh, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.RespondError(c, http.StatusRequestEntityTooLarge, errUploadTooLarge)
		return
	}
	if err != nil || fh == nil {
		response.RespondError(c, http.StatusBadRequest, errors.New("No file provided"))
		return
	}
	ctx := c.Request.Context()

	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	name, err := h.files.Save(ctx, fh.Filename, f)
	if err != nil {
		response.RespondAPIError(c, classify(err, http.StatusInternalServerError))
		return
	}

	res, err := h.converter.ProcessFile(ctx, name)
	if err != nil {
		h.log.Warn("upload processing failed", append([]interface{}{"filename", name, "error", err}, ctxutil.LogFields(ctx)...)...)
		response.RespondAPIError(c, classify(err, http.StatusInternalServerError))
		return
	}
	h.log.Info("upload processed", append([]interface{}{"filename", name, "processed", res.Processed}, ctxutil.LogFields(ctx)...)...)
	response.RespondOK(c, gin.H{"status": "saved+processed", "filename": name, "processed": res.Processed})
}
