package models

import (
	"fmt"
	"time"
)

// EventFilter represents the optional filters for retrieving events.
// All set filters compose by logical AND; results are always ordered by
// start datetime ascending.
type EventFilter struct {
	// City filters by exact city match.
	City string `json:"city,omitempty"`

	// Category filters by exact category match.
	Category string `json:"category,omitempty"`

	// From is the inclusive lower bound on the start datetime.
	From *time.Time `json:"from,omitempty"`

	// To is the inclusive upper bound on the start datetime.
	To *time.Time `json:"to,omitempty"`

	// Limit caps the number of results; zero means no limit.
	Limit int `json:"limit,omitempty"`
}

// Validate checks the filter for inconsistencies.
func (f *EventFilter) Validate() error {
	if f.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", f.Limit)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("time range is inverted: from %s, to %s", f.From, f.To)
	}
	return nil
}

// StoreStats summarizes the contents of the event store.
type StoreStats struct {
	TotalEvents int `json:"total_events"`
	Cities      int `json:"cities"`
	Categories  int `json:"categories"`
	Sources     int `json:"sources"`
}
