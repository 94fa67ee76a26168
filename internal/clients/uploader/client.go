package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/httpx"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const DefaultURL = "http://uploader:8000"

// Client talks to the document-conversion service. The service reads the
// file from the shared recipes volume and posts its chunks back to
// /api/upload-chunks before it answers.
type Client interface {
	ProcessFile(ctx context.Context, filename string) (Result, error)
	ProcessAll(ctx context.Context) ([]FileSummary, error)
}

type Result struct {
	ProcessedChunks []string
	Processed       int
}

type FileSummary struct {
	File      string `json:"file"`
	Processed int    `json:"processed"`
	Error     string `json:"error,omitempty"`
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func New(log *logger.Logger, baseURL string, timeout time.Duration) Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &client{
		log:        log.With("client", "Uploader"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type processFileResponse struct {
	ProcessedChunks *[]string `json:"processed_chunks"`
	Processed       *int      `json:"processed"`
}

// ProcessFile converts one stored file. The count is the length of
// processed_chunks when present, else processed, else zero.
func (c *client) ProcessFile(ctx context.Context, filename string) (Result, error) {
	var resp processFileResponse
	if err := c.post(ctx, "/process-file", map[string]string{"filename": filename}, &resp); err != nil {
		return Result{}, err
	}
	var out Result
	switch {
	case resp.ProcessedChunks != nil:
		out.ProcessedChunks = *resp.ProcessedChunks
		out.Processed = len(*resp.ProcessedChunks)
	case resp.Processed != nil:
		out.Processed = *resp.Processed
	}
	c.log.Info("file processed", "filename", filename, "processed", out.Processed)
	return out, nil
}

func (c *client) ProcessAll(ctx context.Context) ([]FileSummary, error) {
	var resp struct {
		Processed []FileSummary `json:"processed"`
	}
	if err := c.post(ctx, "/process", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Processed, nil
}

func (c *client) post(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploader %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpx.StatusError{Service: "uploader", StatusCode: resp.StatusCode, Body: httpx.Snippet(resp.Body, 512)}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("uploader %s: read body: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("uploader %s: decode response: %w", path, err)
	}
	return nil
}
