package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/festcal/festcal/internal/models"
)

// FloorDate discards date tokens clearly belonging to stale listings.
// Two-digit years map to 2000+YY with no further century inference, so
// anything the pattern can express before this floor is scraping debris.
var FloorDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	dateTokenRE  = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2})\b`)
	badgeRE      = regexp.MustCompile(`(?i)^\s*(NEU|TIPP|TOP|PREMIERE|AUSVERKAUFT)\b[\s:!\-]*`)
	whitespaceRE = regexp.MustCompile(`\s+`)
	locationRE   = regexp.MustCompile(`(?i)Termine in ([^:]{1,80}):`)
)

// NormalizeTitle strips badge markers, collapses internal whitespace and
// trims. Titles feed the identity hash, so the same listing must always
// normalize to the same byte sequence.
func NormalizeTitle(raw string) string {
	title := badgeRE.ReplaceAllString(raw, "")
	title = whitespaceRE.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

// ParseDates extracts every D(D).M(M).YY token from the flattened text of
// a listing fragment. Tokens that do not form a valid calendar date, or
// fall before FloorDate, are silently dropped; the rest of the listing is
// still processed. Order follows the text.
func ParseDates(text string) []time.Time {
	matches := dateTokenRE.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	dates := make([]time.Time, 0, len(matches))
	for _, m := range matches {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		yy, _ := strconv.Atoi(m[3])
		year := 2000 + yy

		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes overflow (30.2 becomes 1.3 or 2.3), so a
		// roundtrip mismatch means the token was not a real calendar date.
		if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
			continue
		}
		if d.Before(FloorDate) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// ExtractLocation pulls the location name out of a "Termine in X:" marker.
// Returns the empty string when no marker is present.
func ExtractLocation(text string) string {
	m := locationRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ResolveURL resolves a possibly relative resource reference against the
// source's base URL. Absolute references pass through unchanged; garbage
// resolves to the empty string.
func ResolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// Listing is the raw per-card fragment a site scraper hands to the
// expansion step: one title, shared detail fields, and a flattened text
// blob that may carry any number of date tokens and per-segment location
// markers.
type Listing struct {
	Title       string
	Text        string
	Location    string
	Address     string
	City        string
	PostalCode  string
	Description string
	Category    string
	Organizer   string
	Price       string
	URL         string
	ImageURL    string
}

// datedSegment pairs a run of text with the location marker governing it.
type datedSegment struct {
	location string
	text     string
}

// segments splits the flattened text at "Termine in X:" markers so each
// run of date tokens resolves against its own location override. Text
// before the first marker keeps the listing's base location.
func segments(text string) []datedSegment {
	locs := locationRE.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []datedSegment{{text: text}}
	}

	var segs []datedSegment
	if lead := text[:locs[0][0]]; strings.TrimSpace(lead) != "" {
		segs = append(segs, datedSegment{text: lead})
	}
	for i, m := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segs = append(segs, datedSegment{
			location: strings.TrimSpace(text[m[2]:m[3]]),
			text:     text[m[1]:end],
		})
	}
	return segs
}

// ExpandListing turns one scraped listing fragment into zero or more
// canonical event occurrences, one per surviving date token. All
// occurrences share the non-date fields; each gets its own identity from
// (normalized title, start instant, source). A listing with no title or
// no valid dates yields nothing.
func ExpandListing(source string, base *url.URL, l Listing) []models.Event {
	title := NormalizeTitle(l.Title)
	if title == "" {
		return nil
	}

	var events []models.Event
	for _, seg := range segments(l.Text) {
		location := seg.location
		if location == "" {
			location = l.Location
		}
		for _, d := range ParseDates(seg.text) {
			ev := models.Event{
				Title:         title,
				StartDateTime: d,
				Location:      location,
				Address:       l.Address,
				City:          l.City,
				PostalCode:    l.PostalCode,
				Description:   l.Description,
				Category:      l.Category,
				Organizer:     l.Organizer,
				Price:         l.Price,
				URL:           ResolveURL(base, l.URL),
				ImageURL:      ResolveURL(base, l.ImageURL),
				Source:        source,
			}
			if ev.City == "" {
				ev.City = location
			}
			ev.ID = models.EventID(title, ev.StartISO(), source)
			events = append(events, ev)
		}
	}
	return events
}
