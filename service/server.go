// Package service exposes the article table and the embedding backend over
// HTTP: a health check, filtered article reads, and on-demand embedding of
// stored or supplied text.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rpandit/newswindow"
	"github.com/rpandit/newswindow/embedding"
)

// DefaultLimit is how many articles a list request returns when no limit is
// given.
const DefaultLimit = 20

// Options configures a Server.
type Options struct {
	Articles     []newswindow.Article
	Loaded       bool
	Embedder     embedding.Embedder
	Cache        *embedding.Cache // nil disables caching
	DefaultModel string
	EmbedTimeout time.Duration
	Log          *slog.Logger
}

// Server holds the in-memory article table and its handlers. The table is
// read-only after construction, so handlers need no locking.
type Server struct {
	articles     []newswindow.Article
	byURL        map[string]int
	loaded       bool
	embedder     embedding.Embedder
	cache        *embedding.Cache
	defaultModel string
	embedTimeout time.Duration
	log          *slog.Logger
}

// NewServer creates a server over a loaded article table. Articles are
// sorted most-recent-first once here and never mutated afterwards.
func NewServer(opts Options) *Server {
	articles := make([]newswindow.Article, len(opts.Articles))
	copy(articles, opts.Articles)
	newswindow.SortByPublished(articles)

	byURL := make(map[string]int, len(articles))
	for i, a := range articles {
		if _, ok := byURL[a.URL]; !ok {
			byURL[a.URL] = i
		}
	}

	timeout := opts.EmbedTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	return &Server{
		articles:     articles,
		byURL:        byURL,
		loaded:       opts.Loaded,
		embedder:     opts.Embedder,
		cache:        opts.Cache,
		defaultModel: opts.DefaultModel,
		embedTimeout: timeout,
		log:          log,
	}
}

// Router configures the gin router with all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", s.handleHealth)
	router.GET("/articles", s.handleArticles)
	router.POST("/embed", s.handleEmbed)

	return router
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Loaded bool   `json:"loaded"`
	Count  int    `json:"count"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Loaded: s.loaded,
		Count:  len(s.articles),
	})
}

func (s *Server) handleArticles(c *gin.Context) {
	limit := DefaultLimit
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			s.writeError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	articles := s.articles
	if category := c.Query("category"); category != "" {
		articles = newswindow.FilterCategory(articles, category)
	}

	if limit > len(articles) {
		limit = len(articles)
	}

	// Keep the empty case a JSON [] rather than null.
	result := articles[:limit]
	if result == nil {
		result = []newswindow.Article{}
	}
	c.JSON(http.StatusOK, result)
}

// EmbedRequest is the body of POST /embed. Exactly one of URL and Text must
// carry the input; Model falls back to the configured default.
type EmbedRequest struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Model string `json:"model"`
	Force bool   `json:"force"`
}

// EmbedResponse is the success body of POST /embed.
type EmbedResponse struct {
	Vector []float64 `json:"vector"`
	Dim    int       `json:"dim"`
	Model  string    `json:"model"`
	Cached bool      `json:"cached"`
}

func (s *Server) handleEmbed(c *gin.Context) {
	var req EmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	text := req.Text
	if text == "" {
		if req.URL == "" {
			s.writeError(c, http.StatusBadRequest, "provide either 'text' or 'url'")
			return
		}
		idx, ok := s.byURL[req.URL]
		if !ok {
			s.writeError(c, http.StatusBadRequest, "url not found in table: "+req.URL)
			return
		}
		text = s.articles[idx].Content
	}

	// Only url-keyed requests are cacheable; arbitrary text is not.
	var cacheKey string
	if req.URL != "" && s.cache != nil {
		cacheKey = embedding.Key(model, req.URL)
		if !req.Force {
			entry, err := s.cache.Get(cacheKey)
			if err != nil {
				s.log.Warn("cache lookup failed", "key", cacheKey, "error", err)
			} else if entry != nil {
				c.JSON(http.StatusOK, EmbedResponse{
					Vector: entry.Vector,
					Dim:    len(entry.Vector),
					Model:  entry.Model,
					Cached: true,
				})
				return
			}
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.embedTimeout)
	defer cancel()

	vector, err := s.embedder.Embed(ctx, text, model)
	if err != nil {
		s.log.Error("embedding failed", "model", model, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			s.writeError(c, http.StatusGatewayTimeout, "embedding backend timed out")
			return
		}
		s.writeError(c, http.StatusBadGateway, "embedding backend error: "+err.Error())
		return
	}

	if cacheKey != "" {
		entry := embedding.CachedEmbedding{
			Key:    cacheKey,
			URL:    req.URL,
			Model:  model,
			Vector: vector,
		}
		if err := s.cache.Put(entry); err != nil {
			s.log.Warn("cache write failed", "key", cacheKey, "error", err)
		}
	}

	c.JSON(http.StatusOK, EmbedResponse{
		Vector: vector,
		Dim:    len(vector),
		Model:  model,
		Cached: false,
	})
}

// writeError sends the uniform error body used by every failing response.
func (s *Server) writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
