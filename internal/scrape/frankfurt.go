package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gocolly/colly/v2"

	"github.com/festcal/festcal/internal/models"
)

// FrankfurtScraper extracts listings from frankfurter-stadtevents.de.
// Cards carry a badge-decorated title, a "Termine in <Ort>:" line with
// one or more D(D).M(M).YY tokens, and relative detail/image links.
type FrankfurtScraper struct {
	cfg    SiteConfig
	logger *slog.Logger
}

// NewFrankfurtScraper builds the scraper from its site configuration.
func NewFrankfurtScraper(cfg SiteConfig, logger *slog.Logger) *FrankfurtScraper {
	cfg.Normalize()
	if cfg.Name == "" {
		cfg.Name = "Frankfurter Stadtevents"
	}
	if cfg.City == "" {
		cfg.City = "Frankfurt am Main"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.frankfurter-stadtevents.de"
	}
	return &FrankfurtScraper{cfg: cfg, logger: logger}
}

// Name returns the source name.
func (s *FrankfurtScraper) Name() string { return s.cfg.Name }

// Scrape fetches the event listing page and expands every card into
// per-date occurrences.
func (s *FrankfurtScraper) Scrape(ctx context.Context) ([]models.Event, error) {
	base, err := s.cfg.baseURL()
	if err != nil {
		return nil, err
	}

	c, err := newCollector(s.cfg)
	if err != nil {
		return nil, err
	}

	var events []models.Event

	c.OnHTML("div.event-card", func(e *colly.HTMLElement) {
		listing := Listing{
			Title:       e.ChildText("h3.event-title"),
			Text:        e.Text,
			Location:    ExtractLocation(e.Text),
			City:        s.cfg.City,
			Description: e.ChildText("p.event-description"),
			Category:    e.ChildText("span.event-category"),
			Price:       e.ChildText("span.event-price"),
			URL:         e.ChildAttr("a.event-link", "href"),
			ImageURL:    e.ChildAttr("img", "src"),
		}

		expanded := ExpandListing(s.cfg.Name, base, listing)
		if len(expanded) == 0 {
			s.logger.Debug("listing yielded no occurrences", "source", s.cfg.Name, "title", listing.Title)
			return
		}
		events = append(events, expanded...)
	})

	listURL := base.JoinPath("veranstaltungen").String()
	if err := visit(ctx, c, s.cfg, listURL); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", listURL, err)
	}
	c.Wait()

	return events, nil
}
