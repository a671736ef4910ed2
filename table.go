package newswindow

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"
)

// TableColumns is the fixed column order of the article table.
var TableColumns = []string{"source", "category", "url", "published_time", "content"}

// WriteTable writes articles to a CSV file at path, overwriting any prior
// file. Each run produces a complete, self-contained table; a run with zero
// articles still produces a valid header-only file.
func WriteTable(path string, articles []Article) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(TableColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, a := range articles {
		row := []string{
			a.Source,
			a.Category,
			a.URL,
			a.PublishedTime.UTC().Format(time.RFC3339),
			a.Content,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", a.URL, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}
	return nil
}

// LoadTable reads an article table from the CSV file at path. Rows with an
// unparseable timestamp are dropped, and when the same URL appears more than
// once only the first row is kept.
func LoadTable(path string) ([]Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) != len(TableColumns) {
		return nil, fmt.Errorf("unexpected header with %d columns (want %d)", len(header), len(TableColumns))
	}
	for i, col := range TableColumns {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected header column %q (want %q)", header[i], col)
		}
	}

	var articles []Article
	seen := make(map[string]bool)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		published, err := time.Parse(time.RFC3339, row[3])
		if err != nil {
			continue
		}
		if seen[row[2]] {
			continue
		}
		seen[row[2]] = true

		articles = append(articles, Article{
			Source:        row[0],
			Category:      row[1],
			URL:           row[2],
			PublishedTime: published,
			Content:       row[4],
		})
	}

	return articles, nil
}
