package newswindow

import (
	"sort"
	"strings"
	"time"
)

// Article represents a single scraped news article row.
type Article struct {
	Source        string    `json:"source"`
	Category      string    `json:"category"`
	URL           string    `json:"url"`
	PublishedTime time.Time `json:"published_time"`
	Content       string    `json:"content"`
}

// SortByPublished orders articles most-recent-first by publish time.
func SortByPublished(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedTime.After(articles[j].PublishedTime)
	})
}

// FilterCategory returns the articles whose category matches, ignoring case.
// An unknown category yields an empty slice rather than an error.
func FilterCategory(articles []Article, category string) []Article {
	out := []Article{}
	for _, a := range articles {
		if strings.EqualFold(a.Category, category) {
			out = append(out, a)
		}
	}
	return out
}

// Window is the cutoff time range [Start, End] used to filter articles by
// publish time.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window covering the given duration ending at now.
func NewWindow(now time.Time, cutoff time.Duration) Window {
	return Window{Start: now.Add(-cutoff), End: now}
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
