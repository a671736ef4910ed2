package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpandit/newswindow"
	"github.com/rpandit/newswindow/collector"
	"github.com/rpandit/newswindow/config"
)

func main() {
	os.Exit(run())
}

// run is separated from main so the browser's deferred Close fires on every
// exit path, including fatal errors.
func run() int {
	lastHours := flag.Int("last-hours", 0, "Only keep articles from the last N hours")
	lastDays := flag.Int("last-days", 0, "Only keep articles from the last N days (default: 7)")
	out := flag.String("out", "news.csv", "Output table path")
	headless := flag.Bool("headless", false, "Run the browser without a visible window")
	configPath := flag.String("config", "", "Optional YAML config overriding the built-in site settings")
	flag.Parse()

	if *lastHours > 0 && *lastDays > 0 {
		log.Printf("Error: --last-hours and --last-days are mutually exclusive")
		return 2
	}

	var cutoff time.Duration
	switch {
	case *lastHours > 0:
		cutoff = time.Duration(*lastHours) * time.Hour
	case *lastDays > 0:
		cutoff = time.Duration(*lastDays) * 24 * time.Hour
	default:
		cutoff = 7 * 24 * time.Hour
	}
	window := newswindow.NewWindow(time.Now().UTC(), cutoff)

	cfg := config.DefaultCollector()
	if *configPath != "" {
		loaded, err := config.LoadCollector(*configPath)
		if err != nil {
			log.Printf("Error: failed to load config: %v", err)
			return 2
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting browser (headless=%v)", *headless)
	browser, err := collector.NewBrowser(*headless)
	if err != nil {
		log.Printf("Error: failed to start browser: %v", err)
		return 1
	}
	defer browser.Close()

	c := collector.New(browser, collector.NewFeedFetcher(), cfg, window)
	articles, err := c.Run(ctx)
	if err != nil {
		log.Printf("Error: collection failed: %v", err)
		return 1
	}

	if err := newswindow.WriteTable(*out, articles); err != nil {
		log.Printf("Error: failed to write table: %v", err)
		return 1
	}

	log.Printf("Wrote %d articles to %s", len(articles), *out)
	return 0
}
