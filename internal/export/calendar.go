// Package export serializes stored events into iCalendar feeds.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/festcal/festcal/internal/models"
)

const (
	prodID       = "-//FestCal//Rhein-Main Events//DE"
	uidDomain    = "festcal.local"
	calTimezone  = "Europe/Berlin"
	defaultTitle = "Rhein-Main Events"
)

// EventSource is the query surface the generator reads from.
type EventSource interface {
	Query(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

// Generator builds iCalendar documents from stored events.
type Generator struct {
	source EventSource
	name   string
}

// NewGenerator creates a generator reading from the given source. An
// empty calendar name falls back to the default.
func NewGenerator(source EventSource, name string) *Generator {
	if name == "" {
		name = defaultTitle
	}
	return &Generator{source: source, name: name}
}

// Calendar builds a VCALENDAR document for the events matching the
// filter.
func (g *Generator) Calendar(ctx context.Context, filter models.EventFilter) (*ics.Calendar, int, error) {
	events, err := g.source.Query(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load events: %w", err)
	}

	cal := BuildCalendar(events, g.name)
	return cal, len(events), nil
}

// Bytes renders the filtered calendar to its wire form.
func (g *Generator) Bytes(ctx context.Context, filter models.EventFilter) ([]byte, int, error) {
	cal, count, err := g.Calendar(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return []byte(cal.Serialize()), count, nil
}

// ExportToFile writes the filtered calendar to an .ics file, creating
// parent directories as needed. Returns the number of exported events.
func (g *Generator) ExportToFile(ctx context.Context, path string, filter models.EventFilter) (int, error) {
	data, count, err := g.Bytes(ctx, filter)
	if err != nil {
		return 0, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write calendar: %w", err)
	}
	return count, nil
}

// BuildCalendar assembles a VCALENDAR from the given events. Every field
// a calendar client needs is mapped when present: summary, start/end,
// description, composed location, url, category, organizer, geo and the
// store-managed timestamps.
func BuildCalendar(events []models.Event, name string) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetVersion("2.0")
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(calTimezone)

	now := time.Now().UTC()
	for i := range events {
		addEvent(cal, &events[i], now)
	}
	return cal
}

func addEvent(cal *ics.Calendar, event *models.Event, stamp time.Time) {
	ve := cal.AddEvent(fmt.Sprintf("%s@%s", event.ID, uidDomain))
	ve.SetDtStampTime(stamp)
	ve.SetSummary(event.Title)
	ve.SetStartAt(event.StartDateTime)

	if event.EndDateTime != nil {
		ve.SetEndAt(*event.EndDateTime)
	}
	if event.Description != "" {
		ve.SetDescription(event.Description)
	}
	if loc := ComposeLocation(event); loc != "" {
		ve.SetLocation(loc)
	}
	if event.URL != "" {
		ve.SetURL(event.URL)
	}
	if event.Category != "" {
		ve.SetProperty(ics.ComponentPropertyCategories, event.Category)
	}
	if event.Organizer != "" {
		ve.SetOrganizer(event.Organizer)
	}
	if event.Latitude != nil && event.Longitude != nil {
		ve.SetGeo(*event.Latitude, *event.Longitude)
	}
	if !event.CreatedAt.IsZero() {
		ve.SetCreatedTime(event.CreatedAt)
	}
	if !event.UpdatedAt.IsZero() {
		ve.SetModifiedAt(event.UpdatedAt)
	}
}

// ComposeLocation joins location, address and city into the single
// LOCATION line calendar clients expect.
func ComposeLocation(event *models.Event) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{event.Location, event.Address, event.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
