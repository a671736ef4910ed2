package collector

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}

// categoryLinks harvests top-level section URLs from a rendered homepage.
// Only clean single-segment paths whose slug appears in allowed are kept, so
// random site links don't become categories.
func categoryLinks(doc *goquery.Document, baseURL string, allowed map[string]bool) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href^='/']").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "/" {
			return
		}
		for _, bad := range []string{"/topic/", "/search", "/videos", "/photos", "?utm", "#"} {
			if strings.Contains(href, bad) {
				return
			}
		}
		if strings.Count(href, "/") != 1 {
			return
		}

		slug := strings.ToLower(strings.Trim(href, "/"))
		if len(allowed) > 0 && !allowed["*"] && !allowed[slug] {
			return
		}

		url := baseURL + href
		if !seen[url] {
			seen[url] = true
			links = append(links, url)
		}
	})

	return links
}

// articleLinks extracts candidate article URLs from a rendered listing page.
// Relative links are absolutized against baseURL and query strings are
// stripped so the same story isn't counted twice under tracking parameters.
func articleLinks(doc *goquery.Document, baseURL string) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href*='/articleshow/']").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}

		var url string
		switch {
		case strings.HasPrefix(href, "/"):
			url = baseURL + strings.SplitN(href, "?", 2)[0]
		case strings.HasPrefix(href, "http"):
			url = strings.SplitN(href, "?", 2)[0]
		default:
			return
		}

		if !seen[url] {
			seen[url] = true
			links = append(links, url)
		}
	})

	return links
}

// newsArticleLD finds the JSON-LD NewsArticle object on a page, if any.
// It handles objects, arrays, and objects wrapped in @graph, and skips
// invalid JSON-LD blocks quietly since sites frequently ship broken ones.
func newsArticleLD(doc *goquery.Document) map[string]any {
	var found map[string]any

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return true
		}

		for _, obj := range ldObjects(data) {
			if isNewsArticle(obj) {
				found = obj
				return false
			}
			if graph, ok := obj["@graph"].([]any); ok {
				for _, g := range graph {
					if gm, ok := g.(map[string]any); ok && isNewsArticle(gm) {
						found = gm
						return false
					}
				}
			}
		}
		return true
	})

	return found
}

// ldObjects flattens a decoded JSON-LD payload into its top-level objects.
func ldObjects(data any) []map[string]any {
	switch v := data.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		var out []map[string]any
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// isNewsArticle reports whether a JSON-LD object declares the NewsArticle
// type, either as a plain string or as one entry of a type list.
func isNewsArticle(obj map[string]any) bool {
	switch t := obj["@type"].(type) {
	case string:
		return t == "NewsArticle"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "NewsArticle" {
				return true
			}
		}
	}
	return false
}

var publishedTextRE = regexp.MustCompile(`(Updated|Published):\s*(.*?IST)`)

const publishedTextLayout = "Jan 2, 2006, 15:04 IST"

// extractPublished returns the publish timestamp of a rendered article page.
// JSON-LD datePublished is preferred, then dateModified, then the visible
// "Updated:/Published:" byline text.
func extractPublished(doc *goquery.Document) (time.Time, error) {
	ld := newsArticleLD(doc)
	for _, key := range []string{"datePublished", "dateModified"} {
		if ld == nil {
			break
		}
		raw, ok := ld[key].(string)
		if !ok || raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC(), nil
		}
	}

	body := doc.Find("body").Text()
	m := publishedTextRE.FindStringSubmatch(body)
	if m == nil {
		return time.Time{}, fmt.Errorf("no publish timestamp found")
	}

	t, err := time.Parse(publishedTextLayout, strings.TrimSpace(m[2]))
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable byline timestamp %q: %w", m[2], err)
	}
	return t.UTC(), nil
}

// extractContent returns the article body text of a rendered page. JSON-LD
// articleBody is preferred; otherwise the DOM paragraphs are joined.
func extractContent(doc *goquery.Document) string {
	if ld := newsArticleLD(doc); ld != nil {
		if body, ok := ld["articleBody"].(string); ok && strings.TrimSpace(body) != "" {
			return cleanText(body)
		}
	}

	var paragraphs []string
	doc.Find("article p").Each(func(i int, s *goquery.Selection) {
		paragraphs = append(paragraphs, s.Text())
	})
	if len(paragraphs) == 0 {
		doc.Find("div p").Each(func(i int, s *goquery.Selection) {
			paragraphs = append(paragraphs, s.Text())
		})
	}

	return cleanText(strings.Join(paragraphs, " "))
}

// slugFromCategoryURL derives the section slug from a category URL.
func slugFromCategoryURL(categoryURL, baseURL string) string {
	path := strings.Trim(strings.TrimPrefix(categoryURL, baseURL), "/")
	slug := strings.ToLower(strings.SplitN(path, "/", 2)[0])
	if slug == "" {
		return "unknown"
	}
	return slug
}

// NormalizeCategory maps site section slugs into stable category buckets.
func NormalizeCategory(slug string) string {
	switch s := strings.ToLower(slug); s {
	case "world":
		return "world"
	case "business":
		return "business"
	case "sports":
		return "sports"
	case "technology", "tech", "science":
		return "technology"
	case "health", "health-fitness":
		return "health"
	case "india", "politics":
		return "politics"
	case "":
		return "unknown"
	default:
		return s
	}
}
