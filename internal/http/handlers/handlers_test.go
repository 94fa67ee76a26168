package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

type fakeIngestion struct {
	chunks [][]string
	err    error
}

func (f *fakeIngestion) IngestRaw(ctx context.Context, content string) (string, services.IngestResult, error) {
	return f.IngestChunks(ctx, []string{content})
}

func (f *fakeIngestion) IngestChunks(ctx context.Context, chunks []string) (string, services.IngestResult, error) {
	f.chunks = append(f.chunks, chunks)
	if f.err != nil {
		return services.FailureMessage(f.err), services.IngestResult{}, f.err
	}
	return services.SuccessMessage, services.IngestResult{ResourceID: "r1", Chunks: len(chunks)}, nil
}

type fakeFiles struct {
	saved map[string]string
	err   error
}

func (f *fakeFiles) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	clean, err := filestore.CleanName(name)
	if err != nil {
		return "", err
	}
	b, _ := io.ReadAll(r)
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[clean] = string(b)
	return clean, nil
}

func (f *fakeFiles) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.saved[name])), nil
}

func (f *fakeFiles) List(ctx context.Context) ([]string, error) { return nil, nil }

type fakeConverter struct {
	got []string
	res services.ConversionResult
	err error
}

func (f *fakeConverter) ProcessFile(ctx context.Context, filename string) (services.ConversionResult, error) {
	f.got = append(f.got, filename)
	return f.res, f.err
}

type fakeResources struct {
	deleted []string
	err     error
}

func (f *fakeResources) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeResources) List(ctx context.Context, limit int) ([]services.ResourceSummary, error) {
	return []services.ResourceSummary{{ID: "r1", Embeddings: 2}}, nil
}

type fakeRetriever struct {
	matches []domain.Match
	err     error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) ([]domain.Match, error) {
	return f.matches, f.err
}

type fakeChat struct {
	got    []services.ChatTurn
	events []services.ChatEvent
	err    error
}

func (f *fakeChat) Respond(ctx context.Context, turns []services.ChatTurn, onEvent func(services.ChatEvent)) error {
	f.got = turns
	for _, ev := range f.events {
		onEvent(ev)
	}
	return f.err
}

func serve(t *testing.T, method, path string, register func(r *gin.Engine), body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(nil)
	rec := serve(t, http.MethodGet, "/healthcheck", func(r *gin.Engine) {
		r.GET("/healthcheck", h.HealthCheck)
		r.GET("/metrics", h.Metrics)
	}, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestUploadChunks(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{name: "ok", body: `{"chunks":["Step 1: chop onions","Step 2: saute"]}`, status: 200, message: services.SuccessMessage},
		{name: "empty", body: `{"chunks":[]}`, status: 400},
		{name: "missing", body: `{}`, status: 400},
		{name: "not array", body: `{"chunks":"Step 1"}`, status: 400},
		{name: "non-string chunk", body: `{"chunks":["a",1]}`, status: 400},
		{name: "top-level array", body: `[]`, status: 400},
		{name: "top-level string", body: `"x"`, status: 400},
		{name: "null body", body: `null`, status: 400},
		{name: "bad json", body: `{"chunks":`, status: 500},
		{name: "ingest failure", body: `{"chunks":["a"]}`, err: errors.New("db down"), status: 200, message: "db down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ing := &fakeIngestion{err: tc.err}
			h := NewIngestHandler(logger.NewNop(), ing, &fakeFiles{}, &fakeConverter{})
			rec := serve(t, http.MethodPost, "/api/upload-chunks", func(r *gin.Engine) {
				r.POST("/api/upload-chunks", h.UploadChunks)
			}, strings.NewReader(tc.body), "application/json")

			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			out := decode(t, rec)
			switch tc.status {
			case 200:
				assert.Equal(t, "ok", out["status"])
				assert.Equal(t, tc.message, out["message"])
				assert.EqualValues(t, len(ing.chunks[0]), out["processed"])
			case 400:
				assert.Equal(t, `Provide non-empty "chunks" array`, out["error"])
				assert.Empty(t, ing.chunks)
			default:
				assert.NotEmpty(t, out["error"])
			}
		})
	}
}

func multipartBody(t *testing.T, field, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("other", "x"))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadSavesAndProcesses(t *testing.T) {
	files := &fakeFiles{}
	conv := &fakeConverter{res: services.ConversionResult{Processed: 3}}
	h := NewIngestHandler(logger.NewNop(), &fakeIngestion{}, files, conv)
	body, ct := multipartBody(t, "file", "soup.md", "# Soup")

	rec := serve(t, http.MethodPost, "/api/upload", func(r *gin.Engine) {
		r.POST("/api/upload", h.Upload)
	}, body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "saved+processed", out["status"])
	assert.Equal(t, "soup.md", out["filename"])
	assert.EqualValues(t, 3, out["processed"])
	assert.Equal(t, "# Soup", files.saved["soup.md"])
	assert.Equal(t, []string{"soup.md"}, conv.got)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	t.Run("declared length", func(t *testing.T) {
		files := &fakeFiles{}
		h := NewIngestHandler(logger.NewNop(), &fakeIngestion{}, files, &fakeConverter{}).LimitUploads(256)
		body, ct := multipartBody(t, "file", "big.md", strings.Repeat("stir ", 200))
		rec := serve(t, http.MethodPost, "/api/upload", func(r *gin.Engine) { r.POST("/api/upload", h.Upload) }, body, ct)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "File too large", decode(t, rec)["error"])
		assert.Empty(t, files.saved)
	})
	t.Run("streamed body", func(t *testing.T) {
		files := &fakeFiles{}
		h := NewIngestHandler(logger.NewNop(), &fakeIngestion{}, files, &fakeConverter{}).LimitUploads(256)
		body, ct := multipartBody(t, "file", "big.md", strings.Repeat("stir ", 200))
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.POST("/api/upload", h.Upload)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", io.MultiReader(body))
		req.ContentLength = -1
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
		assert.Empty(t, files.saved)
	})
	t.Run("under the cap", func(t *testing.T) {
		files := &fakeFiles{}
		h := NewIngestHandler(logger.NewNop(), &fakeIngestion{}, files, &fakeConverter{}).LimitUploads(4096)
		body, ct := multipartBody(t, "file", "soup.md", "# Soup")
		rec := serve(t, http.MethodPost, "/api/upload", func(r *gin.Engine) { r.POST("/api/upload", h.Upload) }, body, ct)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "# Soup", files.saved["soup.md"])
	})
}

func TestUploadErrors(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		h := NewIngestHandler(logger.NewNop(), &fakeIngestion{}, &fakeFiles{}, &fakeConverter{})
		body, ct := multipartBody(t, "", "", "")
		rec := serve(t, http.MethodPost, "/api/upload", func(r *gin.Engine) { r.POST("/api/upload", h.Upload) }, body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No file provided", decode(t, rec)["error"])
	})
	t.Run("bad name", func(t *testing.T) {
		h := NewIngestHandler(logger.NewNop(), &fakeIngestion{}, &fakeFiles{}, &fakeConverter{})
		body, ct := multipartBody(t, "file", "..", "x")
		rec := serve(t, http.MethodPost, "/api/upload", func(r *gin.Engine) { r.POST("/api/upload", h.Upload) }, body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("collaborator", func(t *testing.T) {
		conv := &fakeConverter{err: &services.CollaboratorError{Service: "uploader", Status: 502, Err: errors.New("bad gateway")}}
		h := NewIngestHandler(logger.NewNop(), &fakeIngestion{}, &fakeFiles{}, conv)
		body, ct := multipartBody(t, "file", "soup.pdf", "%PDF")
		rec := serve(t, http.MethodPost, "/api/upload", func(r *gin.Engine) { r.POST("/api/upload", h.Upload) }, body, ct)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotEmpty(t, decode(t, rec)["error"])
	})
	t.Run("save", func(t *testing.T) {
		h := NewIngestHandler(logger.NewNop(), &fakeIngestion{}, &fakeFiles{err: errors.New("disk full")}, &fakeConverter{})
		body, ct := multipartBody(t, "file", "soup.md", "x")
		rec := serve(t, http.MethodPost, "/api/upload", func(r *gin.Engine) { r.POST("/api/upload", h.Upload) }, body, ct)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "disk full", decode(t, rec)["error"])
	})
}

func TestDeleteResource(t *testing.T) {
	res := &fakeResources{}
	h := NewResourceHandler(res, &fakeRetriever{})
	rec := serve(t, http.MethodDelete, "/api/resources/abc", func(r *gin.Engine) {
		r.DELETE("/api/resources/:id", h.Delete)
	}, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "deleted", out["status"])
	assert.Equal(t, "abc", out["id"])
	assert.Equal(t, []string{"abc"}, res.deleted)

	h = NewResourceHandler(&fakeResources{err: services.ErrResourceNotFound}, &fakeRetriever{})
	rec = serve(t, http.MethodDelete, "/api/resources/abc", func(r *gin.Engine) {
		r.DELETE("/api/resources/:id", h.Delete)
	}, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "resource not found", decode(t, rec)["error"])
}

func TestSearchResources(t *testing.T) {
	register := func(h *ResourceHandler) func(r *gin.Engine) {
		return func(r *gin.Engine) { r.GET("/api/resources/search", h.Search) }
	}

	h := NewResourceHandler(&fakeResources{}, &fakeRetriever{matches: []domain.Match{{Content: "Cook for 8 minutes", Similarity: 0.9}}})
	rec := serve(t, http.MethodGet, "/api/resources/search?q=pasta", register(h), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decode(t, rec)["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, "Cook for 8 minutes", matches[0].(map[string]any)["content"])

	rec = serve(t, http.MethodGet, "/api/resources/search?q=%20", register(h), nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h = NewResourceHandler(&fakeResources{}, &fakeRetriever{})
	rec = serve(t, http.MethodGet, "/api/resources/search?q=nothing", register(h), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["matches"])

	h = NewResourceHandler(&fakeResources{}, &fakeRetriever{err: &services.EmbeddingProviderError{Op: "embed", Err: errors.New("429")}})
	rec = serve(t, http.MethodGet, "/api/resources/search?q=pasta", register(h), nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatStreamsEvents(t *testing.T) {
	chat := &fakeChat{events: []services.ChatEvent{
		{Type: services.EventToolCall, Name: services.ToolGetInformation, Arguments: `{"question":"pasta"}`},
		{Type: services.EventToolResult, Name: services.ToolGetInformation, Result: `[]`},
		{Type: services.EventTextDelta, Delta: "Sorry, I don't know."},
	}}
	h := NewChatHandler(logger.NewNop(), chat)
	body := `{"messages":[{"role":"user","parts":[{"type":"text","text":"how long to cook pasta"}]}]}`
	rec := serve(t, http.MethodPost, "/api/chat", func(r *gin.Engine) { r.POST("/api/chat", h.Chat) }, strings.NewReader(body), "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Len(t, chat.got, 1)
	assert.Equal(t, services.ChatTurn{Role: "user", Content: "how long to cook pasta"}, chat.got[0])

	out := rec.Body.String()
	call := strings.Index(out, "event: tool.call\n")
	result := strings.Index(out, "event: tool.result\n")
	delta := strings.Index(out, "event: text.delta\ndata: {\"delta\":\"Sorry, I don't know.\"}\n\n")
	done := strings.Index(out, "data: [DONE]\n\n")
	assert.True(t, call >= 0 && call < result && result < delta && delta < done, out)
}

func TestChatErrorEvent(t *testing.T) {
	chat := &fakeChat{err: &services.CollaboratorError{Service: "chat model", Err: errors.New("upstream unavailable")}}
	h := NewChatHandler(logger.NewNop(), chat)
	body := `{"messages":[{"role":"user","content":"hi"}]}`
	rec := serve(t, http.MethodPost, "/api/chat", func(r *gin.Engine) { r.POST("/api/chat", h.Chat) }, strings.NewReader(body), "application/json")

	out := rec.Body.String()
	assert.Contains(t, out, "event: error\n")
	assert.True(t, strings.HasSuffix(out, "data: [DONE]\n\n"), out)
}

func TestChatRejectsBadBodies(t *testing.T) {
	for _, body := range []string{
		`{"messages":[]}`,
		`{}`,
		`{"messages":"hi"}`,
		`{"messages":[{"role":"robot","content":"hi"}]}`,
		`{"messages":[{"role":"user","content":"  "}]}`,
	} {
		h := NewChatHandler(logger.NewNop(), &fakeChat{})
		rec := serve(t, http.MethodPost, "/api/chat", func(r *gin.Engine) { r.POST("/api/chat", h.Chat) }, strings.NewReader(body), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, decode(t, rec)["error"], body)
	}
}
