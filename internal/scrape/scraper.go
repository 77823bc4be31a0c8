package scrape

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/festcal/festcal/internal/models"
)

// Scraper turns one source website into a batch of raw event
// occurrences. Implementations are data-in/data-out: all state lives in
// the site configuration, so a scraper can run concurrently with others.
type Scraper interface {
	// Name returns the source name recorded on every produced event.
	Name() string

	// Scrape fetches the source's listing pages and returns the extracted
	// occurrences in page order.
	Scrape(ctx context.Context) ([]models.Event, error)
}

// SiteConfig holds the per-source settings shared by all scrapers.
type SiteConfig struct {
	Name       string
	BaseURL    string
	City       string
	UserAgent  string
	Delay      time.Duration
	MaxPages   int
	MaxRetries int
}

// DefaultUserAgent identifies the crawler to scraped sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; FestCalBot/1.0)"

// Normalize fills zero values with the defaults every site starts from.
func (c *SiteConfig) Normalize() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Delay <= 0 {
		c.Delay = 2 * time.Second
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 1
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
}

// baseURL parses the configured base URL for resource resolution.
func (c *SiteConfig) baseURL() (*url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base URL %q is not absolute", c.BaseURL)
	}
	return u, nil
}

// newCollector builds a colly collector honoring the site's user agent
// and rate-limit delay. Revisits are allowed so a retried fetch is not
// rejected by the URL cache.
func newCollector(cfg SiteConfig) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(30 * time.Second)

	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       cfg.Delay,
		Parallelism: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure rate limit: %w", err)
	}
	return c, nil
}

// visit fetches one page through the collector, retrying transient
// failures with the site's retry budget.
func visit(ctx context.Context, c *colly.Collector, cfg SiteConfig, pageURL string) error {
	policy := Policy{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.Delay,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
	return Retry(ctx, policy, func() error {
		return c.Visit(pageURL)
	})
}
