package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Event represents one date/time occurrence of a regional event listing,
// normalized into the canonical shape shared by the scrapers, the store
// and the calendar export. A listing spanning several dates expands into
// several independent events, one per date, each with its own ID.
type Event struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	StartDateTime time.Time  `json:"start_datetime"`
	EndDateTime   *time.Time `json:"end_datetime,omitempty"`
	Location      string     `json:"location,omitempty"`
	Address       string     `json:"address,omitempty"`
	City          string     `json:"city,omitempty"`
	PostalCode    string     `json:"postal_code,omitempty"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
	Category      string     `json:"category,omitempty"`
	Organizer     string     `json:"organizer,omitempty"`
	URL           string     `json:"url,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	Price         string     `json:"price,omitempty"`
	Source        string     `json:"source"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// EventIDLength is the number of hex characters in a generated event ID.
const EventIDLength = 16

// EventID derives the deterministic identity of an event occurrence from
// its title, start instant (RFC 3339) and source name. The same three
// inputs always produce the same ID, which is what makes re-scrapes
// idempotent: mutable content such as description or price never feeds
// the hash. Callers must normalize the title before hashing, since any
// whitespace difference changes the identity.
func EventID(title, startISO, source string) string {
	combined := strings.Join([]string{title, startISO, source}, "-")
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])[:EventIDLength]
}

// StartISO returns the start instant in the RFC 3339 form used for
// identity derivation and storage.
func (e *Event) StartISO() string {
	return e.StartDateTime.UTC().Format(time.RFC3339)
}

// EffectiveEnd returns the end instant, falling back to the start instant
// when no end is set. The retention sweep keys off this value.
func (e *Event) EffectiveEnd() time.Time {
	if e.EndDateTime != nil {
		return *e.EndDateTime
	}
	return e.StartDateTime
}
