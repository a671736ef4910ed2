package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpandit/newswindow"
	"github.com/rpandit/newswindow/embedding"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeEmbedder returns a fixed vector, or fails, without a real backend.
type fakeEmbedder struct {
	vector    []float64
	err       error
	block     bool // wait for ctx cancellation, like a hung backend
	calls     int
	lastModel string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text, model string) ([]float64, error) {
	f.calls++
	f.lastModel = model
	if f.block {
		<-ctx.Done()
		return nil, fmt.Errorf("embed request failed: %w", ctx.Err())
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func testArticles() []newswindow.Article {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	articles := make([]newswindow.Article, 5)
	for i := range articles {
		category := "world"
		if i%2 == 1 {
			category = "business"
		}
		articles[i] = newswindow.Article{
			Source:        "timesofindia",
			Category:      category,
			URL:           fmt.Sprintf("https://example.com/articleshow/%d.cms", i),
			PublishedTime: base.Add(time.Duration(i) * time.Hour),
			Content:       fmt.Sprintf("content of article %d", i),
		}
	}
	return articles
}

func setupServer(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	if opts.Articles == nil {
		opts.Articles = testArticles()
		opts.Loaded = true
	}
	if opts.Embedder == nil {
		opts.Embedder = &fakeEmbedder{vector: []float64{1, 2, 3}}
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "nomic-embed-text"
	}
	return NewServer(opts).Router()
}

func doGET(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func doEmbed(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/embed", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// TestHealth verifies liveness reporting including the load status.
func TestHealth(t *testing.T) {
	router := setupServer(t, Options{})

	w := doGET(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Loaded)
	assert.Equal(t, 5, resp.Count)
}

// TestHealthUnloaded verifies a failed table load is reported, not hidden.
func TestHealthUnloaded(t *testing.T) {
	router := setupServer(t, Options{
		Articles: []newswindow.Article{},
		Loaded:   false,
		Embedder: &fakeEmbedder{},
	})

	w := doGET(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Loaded)
	assert.Equal(t, 0, resp.Count)
}

func TestListArticles(t *testing.T) {
	router := setupServer(t, Options{})

	t.Run("limit returns the most recent", func(t *testing.T) {
		w := doGET(router, "/articles?limit=2")
		require.Equal(t, http.StatusOK, w.Code)

		var got []newswindow.Article
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "https://example.com/articleshow/4.cms", got[0].URL)
		assert.Equal(t, "https://example.com/articleshow/3.cms", got[1].URL)
	})

	t.Run("default limit capped at table size", func(t *testing.T) {
		w := doGET(router, "/articles")
		require.Equal(t, http.StatusOK, w.Code)

		var got []newswindow.Article
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got, 5)
	})

	t.Run("category filter", func(t *testing.T) {
		w := doGET(router, "/articles?category=business")
		require.Equal(t, http.StatusOK, w.Code)

		var got []newswindow.Article
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 2)
		for _, a := range got {
			assert.Equal(t, "business", a.Category)
		}
	})

	t.Run("unknown category yields empty list not error", func(t *testing.T) {
		w := doGET(router, "/articles?category=unknownvalue")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("bad limit is a client error", func(t *testing.T) {
		for _, limit := range []string{"abc", "0", "-3"} {
			w := doGET(router, "/articles?limit="+limit)
			assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
		}
	})
}

func TestEmbedValidation(t *testing.T) {
	router := setupServer(t, Options{})

	t.Run("neither url nor text", func(t *testing.T) {
		w := doEmbed(router, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "error")
	})

	t.Run("unknown url", func(t *testing.T) {
		w := doEmbed(router, `{"url":"https://example.com/not-in-table"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "not found")
	})

	t.Run("malformed body", func(t *testing.T) {
		w := doEmbed(router, `{not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestEmbedText verifies embedding of supplied text, including the default
// model fallback and the declared dimensionality.
func TestEmbedText(t *testing.T) {
	emb := &fakeEmbedder{vector: []float64{0.1, 0.2, 0.3, 0.4}}
	router := setupServer(t, Options{Embedder: emb})

	w := doEmbed(router, `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp EmbedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Vector, 4)
	assert.Equal(t, 4, resp.Dim)
	assert.Equal(t, "nomic-embed-text", resp.Model)
	assert.False(t, resp.Cached)
	assert.Equal(t, "nomic-embed-text", emb.lastModel, "default model should reach the backend")
}

// TestEmbedUpstreamFailure verifies backend errors map to 502 and a timeout
// maps to 504, never a hang or a fabricated vector.
func TestEmbedUpstreamFailure(t *testing.T) {
	t.Run("backend error is 502", func(t *testing.T) {
		emb := &fakeEmbedder{err: fmt.Errorf("%w: status 500", embedding.ErrUpstream)}
		router := setupServer(t, Options{Embedder: emb})

		w := doEmbed(router, `{"text":"hello"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "error")
	})

	t.Run("backend timeout is 504", func(t *testing.T) {
		emb := &fakeEmbedder{block: true}
		router := setupServer(t, Options{Embedder: emb, EmbedTimeout: 20 * time.Millisecond})

		w := doEmbed(router, `{"text":"hello"}`)
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	})

	t.Run("a failed request does not poison later ones", func(t *testing.T) {
		emb := &fakeEmbedder{vector: []float64{1}}
		router := setupServer(t, Options{Embedder: emb})

		assert.Equal(t, http.StatusBadRequest, doEmbed(router, `{}`).Code)
		assert.Equal(t, http.StatusOK, doEmbed(router, `{"text":"hello"}`).Code)
	})
}

// TestEmbedCaching verifies url-keyed requests hit the cache on repeat and
// force bypasses it; text requests are never cached.
func TestEmbedCaching(t *testing.T) {
	cache, err := embedding.OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	emb := &fakeEmbedder{vector: []float64{1, 2}}
	router := setupServer(t, Options{Embedder: emb, Cache: cache})

	url := testArticles()[0].URL
	body := fmt.Sprintf(`{"url":%q}`, url)

	w := doEmbed(router, body)
	require.Equal(t, http.StatusOK, w.Code)
	var first EmbedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.False(t, first.Cached)
	assert.Equal(t, 1, emb.calls)

	w = doEmbed(router, body)
	require.Equal(t, http.StatusOK, w.Code)
	var second EmbedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(t, second.Cached)
	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, 1, emb.calls, "cache hit should skip the backend")

	w = doEmbed(router, fmt.Sprintf(`{"url":%q,"force":true}`, url))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, emb.calls, "force should bypass the cache")

	doEmbed(router, `{"text":"hello"}`)
	doEmbed(router, `{"text":"hello"}`)
	assert.Equal(t, 4, emb.calls, "text requests are never cached")
}
