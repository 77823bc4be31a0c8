package scrape

import (
	"net/url"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDates_Single(t *testing.T) {
	dates := ParseDates("Termine in Frankfurt: 18.1.26")
	if len(dates) != 1 {
		t.Fatalf("expected 1 date, got %d", len(dates))
	}
	if !dates[0].Equal(date(2026, time.January, 18)) {
		t.Errorf("expected 2026-01-18, got %s", dates[0])
	}
}

func TestParseDates_Multiple(t *testing.T) {
	dates := ParseDates("Termine: 18.1.26 | 23.1.26 | 24.1.26")
	if len(dates) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(dates))
	}
	want := []time.Time{
		date(2026, time.January, 18),
		date(2026, time.January, 23),
		date(2026, time.January, 24),
	}
	for i, w := range want {
		if !dates[i].Equal(w) {
			t.Errorf("date %d: expected %s, got %s", i, w, dates[i])
		}
	}
}

func TestParseDates_DoubleDigits(t *testing.T) {
	dates := ParseDates("10.12.26")
	if len(dates) != 1 || !dates[0].Equal(date(2026, time.December, 10)) {
		t.Errorf("expected 2026-12-10, got %v", dates)
	}
}

func TestParseDates_InvalidDaySkipped(t *testing.T) {
	if dates := ParseDates("30.2.26"); len(dates) != 0 {
		t.Errorf("February 30th should be dropped, got %v", dates)
	}
}

func TestParseDates_InvalidMonthSkipped(t *testing.T) {
	if dates := ParseDates("15.13.26"); len(dates) != 0 {
		t.Errorf("month 13 should be dropped, got %v", dates)
	}
}

func TestParseDates_MixedValidInvalid(t *testing.T) {
	dates := ParseDates("18.1.26 | 30.2.26 | 25.3.26")
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d: %v", len(dates), dates)
	}
	if !dates[0].Equal(date(2026, time.January, 18)) || !dates[1].Equal(date(2026, time.March, 25)) {
		t.Errorf("expected Jan 18 and Mar 25 2026, got %v", dates)
	}
}

func TestParseDates_FloorCutoff(t *testing.T) {
	dates := ParseDates("1.1.19 | 18.1.26")
	if len(dates) != 1 || !dates[0].Equal(date(2026, time.January, 18)) {
		t.Errorf("dates before the floor should be dropped, got %v", dates)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "Jazz im Palmengarten", "Jazz im Palmengarten"},
		{"badge prefix", "TIPP: Jazz im Palmengarten", "Jazz im Palmengarten"},
		{"badge without colon", "NEU Jazz im Palmengarten", "Jazz im Palmengarten"},
		{"internal whitespace", "Jazz  im\n\tPalmengarten", "Jazz im Palmengarten"},
		{"surrounding whitespace", "  Jazz im Palmengarten  ", "Jazz im Palmengarten"},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractLocation(t *testing.T) {
	if got := ExtractLocation("Termine in Frankfurt am Main: 18.1.26"); got != "Frankfurt am Main" {
		t.Errorf("expected Frankfurt am Main, got %q", got)
	}
	if got := ExtractLocation("Termine in Hanau: 20.2.26"); got != "Hanau" {
		t.Errorf("expected Hanau, got %q", got)
	}
	if got := ExtractLocation("Some random text without location"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://www.frankfurter-stadtevents.de/veranstaltungen")

	tests := []struct {
		name, ref, want string
	}{
		{"relative path", "/bilder/jazz.jpg", "https://www.frankfurter-stadtevents.de/bilder/jazz.jpg"},
		{"relative sibling", "jazz-im-palmengarten", "https://www.frankfurter-stadtevents.de/jazz-im-palmengarten"},
		{"absolute passthrough", "https://cdn.example.com/jazz.jpg", "https://cdn.example.com/jazz.jpg"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(base, tt.ref); got != tt.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestExpandListing_MultiDate(t *testing.T) {
	base, _ := url.Parse("https://www.frankfurter-stadtevents.de")
	listing := Listing{
		Title:    "TIPP: Jazz im Palmengarten",
		Text:     "Termine in Frankfurt am Main: 18.1.26 | 23.1.26 | 24.1.26",
		Location: "Frankfurt am Main",
		URL:      "/jazz-im-palmengarten",
	}

	events := ExpandListing("Frankfurter Stadtevents", base, listing)
	if len(events) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(events))
	}

	ids := map[string]bool{}
	for _, ev := range events {
		if ev.Title != "Jazz im Palmengarten" {
			t.Errorf("expected normalized title, got %q", ev.Title)
		}
		if ev.Location != "Frankfurt am Main" {
			t.Errorf("expected shared location, got %q", ev.Location)
		}
		if ev.Source != "Frankfurter Stadtevents" {
			t.Errorf("expected shared source, got %q", ev.Source)
		}
		if ev.URL != "https://www.frankfurter-stadtevents.de/jazz-im-palmengarten" {
			t.Errorf("expected resolved URL, got %q", ev.URL)
		}
		ids[ev.ID] = true
	}
	if len(ids) != 3 {
		t.Errorf("expected 3 distinct IDs, got %d", len(ids))
	}
}

func TestExpandListing_PerDateLocationOverride(t *testing.T) {
	base, _ := url.Parse("https://www.example.de")
	listing := Listing{
		Title: "Weihnachtsmarkt",
		Text:  "Termine in Frankfurt am Main: 18.1.26 Termine in Hanau: 20.2.26",
	}

	events := ExpandListing("Tourismus", base, listing)
	if len(events) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(events))
	}
	if events[0].Location != "Frankfurt am Main" || events[1].Location != "Hanau" {
		t.Errorf("expected per-segment locations, got %q and %q", events[0].Location, events[1].Location)
	}
}

func TestExpandListing_NoTitle(t *testing.T) {
	listing := Listing{Text: "18.1.26"}
	if events := ExpandListing("Tourismus", nil, listing); len(events) != 0 {
		t.Errorf("titleless listing should yield nothing, got %d", len(events))
	}
}

func TestExpandListing_NoValidDates(t *testing.T) {
	listing := Listing{Title: "Jazz im Palmengarten", Text: "30.2.26"}
	if events := ExpandListing("Tourismus", nil, listing); len(events) != 0 {
		t.Errorf("dateless listing should yield nothing, got %d", len(events))
	}
}
