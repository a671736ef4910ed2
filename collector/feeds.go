package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedFetcher pulls candidate article links from an RSS or Atom feed. It
// backs up the rendered-listing extraction for categories that publish a
// feed, covering the case where the listing renders without usable links.
type FeedFetcher interface {
	Links(ctx context.Context, feedURL string) ([]string, error)
}

// NewFeedFetcher returns a gofeed-backed FeedFetcher.
func NewFeedFetcher() FeedFetcher {
	return &gofeedFetcher{parser: gofeed.NewParser()}
}

type gofeedFetcher struct {
	parser *gofeed.Parser
}

func (f *gofeedFetcher) Links(ctx context.Context, feedURL string) ([]string, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	seen := make(map[string]bool)
	var links []string
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		url := strings.SplitN(item.Link, "?", 2)[0]
		if !seen[url] {
			seen[url] = true
			links = append(links, url)
		}
	}

	return links, nil
}
