package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gocolly/colly/v2"

	"github.com/festcal/festcal/internal/models"
)

// TourismusScraper handles the family of regional tourism sites that
// share the same listing markup. Everything site-specific comes from the
// configuration: name, base URL and default city.
type TourismusScraper struct {
	cfg    SiteConfig
	logger *slog.Logger
}

// NewTourismusScraper builds a generic tourism-site scraper.
func NewTourismusScraper(cfg SiteConfig, logger *slog.Logger) *TourismusScraper {
	cfg.Normalize()
	return &TourismusScraper{cfg: cfg, logger: logger}
}

// Name returns the source name.
func (s *TourismusScraper) Name() string { return s.cfg.Name }

// Scrape walks the paginated event list up to the configured page bound.
func (s *TourismusScraper) Scrape(ctx context.Context) ([]models.Event, error) {
	if s.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s: base URL is required", s.cfg.Name)
	}

	base, err := s.cfg.baseURL()
	if err != nil {
		return nil, err
	}

	c, err := newCollector(s.cfg)
	if err != nil {
		return nil, err
	}

	var events []models.Event

	c.OnHTML("div.event-item, article.event", func(e *colly.HTMLElement) {
		listing := Listing{
			Title:       e.ChildText("h2, h3, .title"),
			Text:        e.Text,
			Location:    ExtractLocation(e.Text),
			City:        s.cfg.City,
			Description: e.ChildText("p, .description"),
			Category:    e.ChildText(".category"),
			Organizer:   e.ChildText(".organizer"),
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

	for page := 1; page <= s.cfg.MaxPages; page++ {
		pageURL := base.JoinPath("events").String()
		if page > 1 {
			pageURL = fmt.Sprintf("%s?page=%d", pageURL, page)
		}
		if err := visit(ctx, c, s.cfg, pageURL); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
			}
			// Later pages failing is a truncated result, not a dead run.
			s.logger.Warn("pagination stopped early", "source", s.cfg.Name, "page", page, "error", err)
			break
		}
	}
	c.Wait()

	return events, nil
}
