package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/rpandit/newswindow"
	"github.com/rpandit/newswindow/config"
	"github.com/rpandit/newswindow/embedding"
	"github.com/rpandit/newswindow/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}
	cfg := config.ServiceFromEnv()

	// A missing or malformed table isn't fatal: the service comes up with
	// an empty table and reports loaded=false on /health.
	articles, err := newswindow.LoadTable(cfg.TablePath)
	loaded := err == nil
	if err != nil {
		log.Printf("Warning: failed to load article table from %s: %v", cfg.TablePath, err)
	} else {
		log.Printf("Loaded %d articles from %s", len(articles), cfg.TablePath)
	}

	var cache *embedding.Cache
	if cfg.CachePath != "" {
		cache, err = embedding.OpenCache(cfg.CachePath)
		if err != nil {
			log.Printf("Warning: embedding cache disabled: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	server := service.NewServer(service.Options{
		Articles:     articles,
		Loaded:       loaded,
		Embedder:     embedding.NewOllamaClient(cfg.BackendURL),
		Cache:        cache,
		DefaultModel: cfg.DefaultModel,
		EmbedTimeout: cfg.EmbedTimeout,
	})

	addr := ":" + cfg.Port
	log.Printf("Starting query service on %s (backend: %s, model: %s)", addr, cfg.BackendURL, cfg.DefaultModel)
	if err := server.Router().Run(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
