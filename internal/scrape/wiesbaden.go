package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gocolly/colly/v2"

	"github.com/festcal/festcal/internal/models"
)

// WiesbadenScraper extracts listings from wiesbaden.de. The event
// calendar there renders one teaser per event with an explicit date
// column, so each teaser usually expands to a single occurrence.
type WiesbadenScraper struct {
	cfg    SiteConfig
	logger *slog.Logger
}

// NewWiesbadenScraper builds the scraper from its site configuration.
func NewWiesbadenScraper(cfg SiteConfig, logger *slog.Logger) *WiesbadenScraper {
	cfg.Normalize()
	if cfg.Name == "" {
		cfg.Name = "Wiesbaden Marketing"
	}
	if cfg.City == "" {
		cfg.City = "Wiesbaden"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.wiesbaden.de"
	}
	return &WiesbadenScraper{cfg: cfg, logger: logger}
}

// Name returns the source name.
func (s *WiesbadenScraper) Name() string { return s.cfg.Name }

// Scrape fetches the event calendar and expands the teasers.
func (s *WiesbadenScraper) Scrape(ctx context.Context) ([]models.Event, error) {
	base, err := s.cfg.baseURL()
	if err != nil {
		return nil, err
	}

	c, err := newCollector(s.cfg)
	if err != nil {
		return nil, err
	}

	var events []models.Event

	c.OnHTML("article.event-teaser", func(e *colly.HTMLElement) {
		listing := Listing{
			Title:       e.ChildText("h2, h3"),
			Text:        e.ChildText("span.event-date") + " " + e.Text,
			Location:    e.ChildText("span.event-location"),
			City:        s.cfg.City,
			Description: e.ChildText("p.teaser-text"),
			Category:    e.ChildText("span.event-kind"),
			URL:         e.ChildAttr("a", "href"),
			ImageURL:    e.ChildAttr("img", "src"),
		}

		expanded := ExpandListing(s.cfg.Name, base, listing)
		if len(expanded) == 0 {
			s.logger.Debug("listing yielded no occurrences", "source", s.cfg.Name, "title", listing.Title)
			return
		}
		events = append(events, expanded...)
	})

	listURL := base.JoinPath("veranstaltungskalender").String()
	if err := visit(ctx, c, s.cfg, listURL); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", listURL, err)
	}
	c.Wait()

	return events, nil
}
