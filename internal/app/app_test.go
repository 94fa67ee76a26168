package app

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

// fakeOpenAI returns a one-hot vector per distinct input, so only identical
// texts are similar.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i, in := range req.Input {
			h := fnv.New32a()
			_, _ = h.Write([]byte(in))
			vec := make([]float32, 1536)
			vec[h.Sum32()%1536] = 1
			data[i] = item{Index: i, Embedding: vec}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.DatabaseURL = "sqlite://" + filepath.Join(dir, "recipes.db")
	cfg.OpenAIAPIKey = "sk-test"
	cfg.OpenAIBaseURL = fakeOpenAI(t).URL
	cfg.RecipesDir = filepath.Join(dir, "recipes")
	cfg.EmbedRatePerSec = 0

	a, err := New(context.Background(), logger.NewNop(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestAppIngestSearchDelete(t *testing.T) {
	a := newTestApp(t)
	require.NotNil(t, a.Clients.Uploader)

	code, out := do(t, a.Router, http.MethodGet, "/healthcheck", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])

	code, out = do(t, a.Router, http.MethodPost, "/api/upload-chunks", `{"chunks":["Step 1: chop onions","Step 2: saute"]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Resource successfully created and embedded.", out["message"])
	assert.EqualValues(t, 2, out["processed"])

	code, out = do(t, a.Router, http.MethodGet, "/api/resources/search?q=Step%201:%20chop%20onions", "")
	require.Equal(t, http.StatusOK, code)
	matches := out["matches"].([]any)
	require.NotEmpty(t, matches)
	top := matches[0].(map[string]any)
	assert.Equal(t, "Step 1: chop onions", top["content"])
	assert.InDelta(t, 1.0, top["similarity"].(float64), 1e-6)

	code, out = do(t, a.Router, http.MethodGet, "/api/resources", "")
	require.Equal(t, http.StatusOK, code)
	list := out["resources"].([]any)
	require.Len(t, list, 1)
	id := list[0].(map[string]any)["id"].(string)

	code, out = do(t, a.Router, http.MethodDelete, "/api/resources/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "deleted", out["status"])

	code, out = do(t, a.Router, http.MethodDelete, "/api/resources/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "resource not found", out["error"])

	code, out = do(t, a.Router, http.MethodGet, "/api/resources/search?q=Step%201:%20chop%20onions", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, out["matches"])
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), logger.NewNop(), Config{})
	assert.Error(t, err)
}
