package scrape

import (
	"fmt"
	"log/slog"
)

// NewSiteScraper constructs the site adapter registered under kind.
// Known kinds are "frankfurt", "wiesbaden" and "tourismus".
func NewSiteScraper(kind string, cfg SiteConfig, logger *slog.Logger) (Scraper, error) {
	switch kind {
	case "frankfurt":
		return NewFrankfurtScraper(cfg, logger), nil
	case "wiesbaden":
		return NewWiesbadenScraper(cfg, logger), nil
	case "tourismus":
		return NewTourismusScraper(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown scraper kind %q", kind)
	}
}
