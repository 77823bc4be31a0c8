package scrape

import (
	"strings"
	"time"

	"github.com/festcal/festcal/internal/models"
)

const (
	// DefaultTitleThreshold is the minimum title similarity for two
	// occurrences to be considered the same real-world event.
	DefaultTitleThreshold = 0.85

	// DefaultTimeWindow is how far apart two start instants may be while
	// still describing the same occurrence.
	DefaultTimeWindow = 60 * time.Minute
)

// Deduplicator collapses near-duplicate event occurrences produced by
// independent sources or re-scrapes of the same source. Matching is
// fuzzy: identical IDs are a fast path, otherwise title similarity, time
// proximity and city agreement decide.
type Deduplicator struct {
	TitleThreshold float64
	TimeWindow     time.Duration
}

// NewDeduplicator returns a deduplicator with the default threshold and
// time window.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		TitleThreshold: DefaultTitleThreshold,
		TimeWindow:     DefaultTimeWindow,
	}
}

// Similarity computes a case-insensitive longest-common-subsequence
// ratio between two titles in [0.0, 1.0]. Identical strings score 1.0;
// an empty string on either side scores 0.0.
func (d *Deduplicator) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	common := lcsLength(ra, rb)
	return 2.0 * float64(common) / float64(len(ra)+len(rb))
}

// lcsLength computes the longest common subsequence length with a
// two-row dynamic program.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// IsDuplicate decides whether two occurrences describe the same
// real-world event. The checks run cheapest-first and short-circuit:
// identical extraction keys always match; a title similarity below the
// threshold never matches; start instants further apart than the window
// disqualify (skipped when either side lacks one); differing cities
// disqualify (skipped when either side lacks one).
func (d *Deduplicator) IsDuplicate(a, b models.Event) bool {
	if a.ID == b.ID {
		return true
	}

	if d.Similarity(a.Title, b.Title) < d.TitleThreshold {
		return false
	}

	if !a.StartDateTime.IsZero() && !b.StartDateTime.IsZero() {
		diff := a.StartDateTime.Sub(b.StartDateTime)
		if diff < 0 {
			diff = -diff
		}
		if diff > d.TimeWindow {
			return false
		}
	}

	if a.City != "" && b.City != "" {
		if !strings.EqualFold(a.City, b.City) {
			return false
		}
	}

	return true
}

// Deduplicate collapses a batch into one representative per real-world
// occurrence. First occurrence wins: each incoming event is tested
// against everything already accepted, in input order, and is dropped on
// the first match. The O(n²) pass is intentional; batches are bounded to
// a single run's output.
func (d *Deduplicator) Deduplicate(events []models.Event) []models.Event {
	unique := make([]models.Event, 0, len(events))

	for _, ev := range events {
		dup := false
		for _, kept := range unique {
			if d.IsDuplicate(ev, kept) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, ev)
		}
	}
	return unique
}

// DuplicatePair records one detected duplicate relation for review.
type DuplicatePair struct {
	A models.Event
	B models.Event
}

// FindDuplicates returns every duplicate pair in the batch, not just one
// representative. Diagnostic only; Deduplicate does the filtering.
func (d *Deduplicator) FindDuplicates(events []models.Event) []DuplicatePair {
	var pairs []DuplicatePair

	for i, a := range events {
		for _, b := range events[i+1:] {
			if d.IsDuplicate(a, b) {
				pairs = append(pairs, DuplicatePair{A: a, B: b})
			}
		}
	}
	return pairs
}
