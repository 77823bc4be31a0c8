package models

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError describes a single validation violation on a named field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks an event for structural problems and returns every
// violation found, not just the first. The event is valid iff the
// returned slice is empty. Validation never mutates the event.
//
// In strict mode the optional fields are checked too: URL-shaped fields
// must parse as absolute URLs with a scheme and host, and the postal
// code, when present, must be exactly five digits.
func Validate(e Event, strict bool) []FieldError {
	var errs []FieldError

	if e.ID == "" {
		errs = append(errs, FieldError{"id", "event ID is required"})
	}
	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, FieldError{"title", "event title is required"})
	}
	if e.StartDateTime.IsZero() {
		errs = append(errs, FieldError{"start_datetime", "start datetime is required"})
	}
	if e.Source == "" {
		errs = append(errs, FieldError{"source", "event source is required"})
	}

	if !e.StartDateTime.IsZero() && e.EndDateTime != nil {
		if e.EndDateTime.Before(e.StartDateTime) {
			errs = append(errs, FieldError{"end_datetime", "end datetime must not precede start datetime"})
		}
	}

	if strict {
		if e.URL != "" && !isAbsoluteURL(e.URL) {
			errs = append(errs, FieldError{"url", "invalid URL format"})
		}
		if e.ImageURL != "" && !isAbsoluteURL(e.ImageURL) {
			errs = append(errs, FieldError{"image_url", "invalid image URL format"})
		}
		if e.PostalCode != "" && !isPostalCode(e.PostalCode) {
			errs = append(errs, FieldError{"postal_code", "invalid postal code format (expected 5 digits)"})
		}
	}

	return errs
}

// IsValid reports whether the event passes Validate without violations.
func IsValid(e Event, strict bool) bool {
	return len(Validate(e, strict)) == 0
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// isPostalCode matches the German five-digit format.
func isPostalCode(s string) bool {
	if len(s) != 5 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
