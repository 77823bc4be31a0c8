package scrape

import (
	"log/slog"
	"time"
)

// RunMetrics records the outcome of one extraction run over one source:
// fetch through persistence. The pipeline produces the values; how they
// are formatted or transmitted is up to the collaborator consuming them.
type RunMetrics struct {
	Source     string    `json:"source"`
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Found      int       `json:"events_found"`
	Valid      int       `json:"events_valid"`
	Unique     int       `json:"events_unique"`
	Stored     int       `json:"events_stored"`
	Errors     []string  `json:"errors"`
	Warnings   []string  `json:"warnings"`
}

// Duration returns how long the run took.
func (m *RunMetrics) Duration() time.Duration {
	if m.StartedAt.IsZero() || m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// SuccessRate is the share of found occurrences that survived validation.
func (m *RunMetrics) SuccessRate() float64 {
	if m.Found == 0 {
		return 0.0
	}
	return float64(m.Valid) / float64(m.Found)
}

// HasErrors reports whether the run recorded any errors.
func (m *RunMetrics) HasErrors() bool {
	return len(m.Errors) > 0
}

// AddError records a run-level error.
func (m *RunMetrics) AddError(msg string) {
	m.Errors = append(m.Errors, msg)
}

// AddWarning records a per-occurrence warning.
func (m *RunMetrics) AddWarning(msg string) {
	m.Warnings = append(m.Warnings, msg)
}

// LogSummary emits the run outcome on the given logger.
func (m *RunMetrics) LogSummary(logger *slog.Logger) {
	logger.Info("scrape run complete",
		"source", m.Source,
		"run_id", m.RunID,
		"found", m.Found,
		"valid", m.Valid,
		"unique", m.Unique,
		"stored", m.Stored,
		"duration", m.Duration(),
		"errors", len(m.Errors),
		"warnings", len(m.Warnings),
	)
}

// AggregateMetrics collects the run metrics of one pipeline pass across
// all sources.
type AggregateMetrics struct {
	Runs       []RunMetrics `json:"runs"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Purged     int64        `json:"events_purged"`
}

// Duration returns how long the whole pass took.
func (a *AggregateMetrics) Duration() time.Duration {
	if a.StartedAt.IsZero() || a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// TotalFound sums found occurrences across all runs.
func (a *AggregateMetrics) TotalFound() int {
	n := 0
	for i := range a.Runs {
		n += a.Runs[i].Found
	}
	return n
}

// TotalStored sums newly stored events across all runs.
func (a *AggregateMetrics) TotalStored() int {
	n := 0
	for i := range a.Runs {
		n += a.Runs[i].Stored
	}
	return n
}

// SourcesFailed counts runs that recorded at least one error.
func (a *AggregateMetrics) SourcesFailed() int {
	n := 0
	for i := range a.Runs {
		if a.Runs[i].HasErrors() {
			n++
		}
	}
	return n
}

// LogSummary emits the aggregate outcome on the given logger.
func (a *AggregateMetrics) LogSummary(logger *slog.Logger) {
	logger.Info("scraping complete",
		"sources", len(a.Runs),
		"failed", a.SourcesFailed(),
		"found", a.TotalFound(),
		"stored", a.TotalStored(),
		"purged", a.Purged,
		"duration", a.Duration(),
	)
}
