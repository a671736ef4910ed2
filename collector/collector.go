// Package collector scrapes a news site's category pages through a rendered
// browser view, filters articles by publish-time window, and produces a
// deduplicated set of article records.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/rpandit/newswindow"
	"github.com/rpandit/newswindow/config"
)

// Collector runs one scraping pass over the configured site.
type Collector struct {
	renderer Renderer
	feeds    FeedFetcher
	cfg      config.Collector
	window   newswindow.Window

	// Log receives per-URL progress and skip diagnostics.
	Log *slog.Logger
}

// New creates a collector over the given renderer. feeds may be nil when no
// category carries a feed URL.
func New(renderer Renderer, feeds FeedFetcher, cfg config.Collector, window newswindow.Window) *Collector {
	return &Collector{
		renderer: renderer,
		feeds:    feeds,
		cfg:      cfg,
		window:   window,
		Log:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

// Run scrapes every reachable category and returns the qualifying articles.
// Per-article failures are logged and skipped; Run only fails when no
// listing page could be reached at all.
func (c *Collector) Run(ctx context.Context) ([]newswindow.Article, error) {
	log := c.Log.With("run_id", uuid.New().String())
	log.Info("starting collection",
		"source", c.cfg.Source,
		"window_start", c.window.Start.Format(time.RFC3339),
		"window_end", c.window.End.Format(time.RFC3339))

	categories := c.discoverCategories(ctx, log)

	reached := 0
	seen := make(map[string]bool)
	var articles []newswindow.Article

	for _, categoryURL := range categories {
		slug := slugFromCategoryURL(categoryURL, c.cfg.BaseURL)
		category := NormalizeCategory(slug)
		catLog := log.With("category", category)

		listing, err := c.renderer.HTML(ctx, categoryURL)
		if err != nil {
			catLog.Warn("failed to fetch listing", "url", categoryURL, "error", err)
			continue
		}
		reached++

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(listing))
		if err != nil {
			catLog.Warn("failed to parse listing", "url", categoryURL, "error", err)
			continue
		}

		links := articleLinks(doc, c.cfg.BaseURL)
		if len(links) == 0 {
			links = c.feedLinks(ctx, slug, catLog)
		}
		catLog.Info("found candidate links", "count", len(links))

		count := 0
		for _, url := range links {
			if count >= c.cfg.MaxPerCategory {
				break
			}
			if seen[url] {
				continue
			}
			// Cross-section noise guard: listing pages surface stories
			// from other sections too.
			path := strings.TrimPrefix(url, c.cfg.BaseURL)
			if !strings.HasPrefix(path, "/"+slug+"/") {
				continue
			}
			seen[url] = true

			article, ok := c.scrapeArticle(ctx, url, category, catLog)
			if !ok {
				continue
			}
			articles = append(articles, article)
			count++

			if err := c.pause(ctx); err != nil {
				return articles, err
			}
		}
	}

	if reached == 0 {
		return nil, fmt.Errorf("no listing pages reachable for %s", c.cfg.Source)
	}

	log.Info("collection finished", "articles", len(articles), "categories_reached", reached)
	return articles, nil
}

// discoverCategories harvests category URLs from the rendered homepage nav.
// When the nav yields nothing, category URLs are constructed directly from
// the configured slugs.
func (c *Collector) discoverCategories(ctx context.Context, log *slog.Logger) []string {
	allowed := make(map[string]bool, len(c.cfg.Categories))
	for _, slug := range c.cfg.Categories {
		allowed[strings.ToLower(slug)] = true
	}

	var categories []string
	home, err := c.renderer.HTML(ctx, c.cfg.BaseURL)
	if err != nil {
		log.Warn("failed to fetch homepage, falling back to configured slugs", "error", err)
	} else if doc, err := goquery.NewDocumentFromReader(strings.NewReader(home)); err == nil {
		categories = categoryLinks(doc, c.cfg.BaseURL, allowed)
	}

	if len(categories) == 0 {
		for _, slug := range c.cfg.Categories {
			categories = append(categories, c.cfg.BaseURL+"/"+slug)
		}
	}

	log.Info("using categories", "count", len(categories))
	return categories
}

// feedLinks pulls candidate links from the category's configured feed.
func (c *Collector) feedLinks(ctx context.Context, slug string, log *slog.Logger) []string {
	feedURL := c.cfg.Feeds[slug]
	if feedURL == "" || c.feeds == nil {
		return nil
	}

	links, err := c.feeds.Links(ctx, feedURL)
	if err != nil {
		log.Warn("feed fallback failed", "feed", feedURL, "error", err)
		return nil
	}
	log.Info("using feed fallback", "feed", feedURL, "count", len(links))
	return links
}

// scrapeArticle fetches one article page and applies the window, timestamp
// and length filters. A false return means the record was skipped.
func (c *Collector) scrapeArticle(ctx context.Context, url, category string, log *slog.Logger) (newswindow.Article, bool) {
	html, err := c.renderer.HTML(ctx, url)
	if err != nil {
		log.Warn("failed to fetch article", "url", url, "stage", "fetch", "error", err)
		return newswindow.Article{}, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn("failed to parse article", "url", url, "stage", "parse", "error", err)
		return newswindow.Article{}, false
	}

	published, err := extractPublished(doc)
	if err != nil {
		log.Debug("dropping article without timestamp", "url", url, "stage", "timestamp", "error", err)
		return newswindow.Article{}, false
	}
	if !c.window.Contains(published) {
		return newswindow.Article{}, false
	}

	content := extractContent(doc)
	if len(content) < c.cfg.MinChars {
		log.Debug("dropping short article", "url", url, "chars", len(content))
		return newswindow.Article{}, false
	}

	log.Info("saved article", "url", url, "published", published.Format(time.RFC3339))
	return newswindow.Article{
		Source:        c.cfg.Source,
		Category:      category,
		URL:           url,
		PublishedTime: published,
		Content:       content,
	}, true
}

// pause waits the configured delay between article fetches, bailing out
// early if the run is cancelled.
func (c *Collector) pause(ctx context.Context) error {
	delay := c.cfg.Delay()
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
