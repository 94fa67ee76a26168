package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/httpx"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultEmbedModel = "text-embedding-3-small"
	DefaultChatModel  = "gpt-4o-mini"

	embeddingsPath = "/v1/embeddings"
	maxRetryWait   = 10 * time.Second
)

type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration
	// MaxRetries is the transport retry budget. Zero means a single attempt.
	MaxRetries int
}

func (c Config) withDefaults() Config {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.EmbedModel) == "" {
		c.EmbedModel = DefaultEmbedModel
	}
	if strings.TrimSpace(c.ChatModel) == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	c.MaxRetries = max(c.MaxRetries, 0)
	return c
}

// Client is the embeddings transport.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	EmbedModel() string
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg = cfg.withDefaults()
	return &client{
		log:  log.With("service", "OpenAIClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *client) EmbedModel() string { return c.cfg.EmbedModel }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

// Embed returns one vector per input, in input order. Inputs are sent
// verbatim; callers normalise them.
func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	model := c.cfg.EmbedModel
	start := time.Now()

	var resp embeddingsResponse
	err := c.withRetry(ctx, func() (*http.Response, error) {
		return c.postJSON(ctx, embeddingsPath, embeddingsRequest{Model: model, Input: inputs}, &resp)
	})
	if err != nil {
		observability.Current().ObserveLLMRequest(model, embeddingsPath, statusLabel(err), time.Since(start), 0, 0)
		return nil, err
	}
	observability.Current().ObserveLLMRequest(model, embeddingsPath, "200", time.Since(start), resp.Usage.PromptTokens, 0)

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("openai embeddings count mismatch: requested=%d returned=%d model=%s", len(inputs), len(resp.Data), model)
	}
	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai embeddings missing index %d: model=%s", i, model)
		}
	}
	return out, nil
}

// postJSON performs one request. Non-2xx answers become *httpx.StatusError.
func (c *client) postJSON(ctx context.Context, path string, body, out any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &httpx.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: httpx.Snippet(resp.Body, 512)}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp, fmt.Errorf("openai decode error: %w", err)
	}
	return resp, nil
}

// withRetry re-runs call on retryable failures, doubling the wait each time
// unless the server sent Retry-After.
func (c *client) withRetry(ctx context.Context, call func() (*http.Response, error)) error {
	wait := time.Second
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := call()
		if err == nil {
			return nil
		}
		if attempt >= c.cfg.MaxRetries || !httpx.IsRetryableError(err) {
			return err
		}
		sleep := httpx.JitterSleep(httpx.RetryAfterDuration(resp, wait, maxRetryWait))
		c.log.Warn("embedding request retrying", "attempt", attempt+1, "max_retries", c.cfg.MaxRetries, "sleep", sleep.String(), "error", err)
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
}

// statusLabel maps a provider failure onto the metrics status label.
func statusLabel(err error) string {
	switch {
	case err == nil:
		return "200"
	case httpx.StatusCodeOf(err) != 0:
		return strconv.Itoa(httpx.StatusCodeOf(err))
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}
