package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/festcal/festcal/internal/models"
)

// Store is the persistence surface the pipeline needs: transactional
// batch upsert plus the retention sweep. The event repository implements
// it.
type Store interface {
	// UpsertBatch persists a batch as one transaction and returns how
	// many rows were newly created (as opposed to updated in place).
	UpsertBatch(ctx context.Context, events []models.Event) (int, error)

	// PurgeBefore deletes every event whose effective end is strictly
	// before cutoff and returns the count deleted.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunRecorder receives per-run counters for export. The prometheus
// collector implements it; a nil recorder disables export.
type RunRecorder interface {
	RecordRun(source string, found, valid, unique, stored, errors int, duration time.Duration)
}

// PipelineConfig tunes one pipeline pass.
type PipelineConfig struct {
	// ConcurrentRuns bounds how many sources scrape at once.
	ConcurrentRuns int

	// StrictValidation also checks URL and postal code shapes.
	StrictValidation bool

	// Retention, when positive, purges events whose effective end is
	// older than now minus this duration after each pass.
	Retention time.Duration

	// TitleThreshold and TimeWindow tune the deduplicator; zero values
	// fall back to the defaults.
	TitleThreshold float64
	TimeWindow     time.Duration
}

// DefaultPipelineConfig returns sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ConcurrentRuns:   3,
		StrictValidation: false,
		Retention:        0,
		TitleThreshold:   DefaultTitleThreshold,
		TimeWindow:       DefaultTimeWindow,
	}
}

// Pipeline runs each source's extraction as an isolated unit of work:
// scrape, validate, deduplicate within the run's batch, persist. Failed
// sources contribute an empty batch and never disturb the others; the
// store and the run recorder are the only shared state.
type Pipeline struct {
	scrapers []Scraper
	store    Store
	dedup    *Deduplicator
	recorder RunRecorder
	logger   *slog.Logger
	config   PipelineConfig
}

// NewPipeline creates a pipeline over the given scrapers and store.
func NewPipeline(scrapers []Scraper, store Store, recorder RunRecorder, logger *slog.Logger, config PipelineConfig) *Pipeline {
	dedup := NewDeduplicator()
	if config.TitleThreshold > 0 {
		dedup.TitleThreshold = config.TitleThreshold
	}
	if config.TimeWindow > 0 {
		dedup.TimeWindow = config.TimeWindow
	}
	if config.ConcurrentRuns <= 0 {
		config.ConcurrentRuns = 1
	}

	return &Pipeline{
		scrapers: scrapers,
		store:    store,
		dedup:    dedup,
		recorder: recorder,
		logger:   logger,
		config:   config,
	}
}

// Run executes one pass over all sources, concurrently up to the
// configured bound, and returns the aggregate metrics. Run never fails
// as a whole because of a single source; per-source errors live in the
// run metrics.
func (p *Pipeline) Run(ctx context.Context) *AggregateMetrics {
	agg := &AggregateMetrics{
		StartedAt: time.Now().UTC(),
		Runs:      make([]RunMetrics, len(p.scrapers)),
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.config.ConcurrentRuns)

	for i, scraper := range p.scrapers {
		wg.Add(1)

		go func(i int, s Scraper) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			agg.Runs[i] = p.runOne(ctx, s)
		}(i, scraper)
	}

	wg.Wait()

	if p.config.Retention > 0 {
		cutoff := time.Now().UTC().Add(-p.config.Retention)
		purged, err := p.store.PurgeBefore(ctx, cutoff)
		if err != nil {
			p.logger.Error("retention sweep failed", "error", err)
		} else {
			agg.Purged = purged
		}
	}

	agg.FinishedAt = time.Now().UTC()
	agg.LogSummary(p.logger)
	return agg
}

// RunOne executes a single source's run by name.
func (p *Pipeline) RunOne(ctx context.Context, name string) (RunMetrics, error) {
	for _, s := range p.scrapers {
		if s.Name() == name {
			return p.runOne(ctx, s), nil
		}
	}
	return RunMetrics{}, fmt.Errorf("unknown source: %s", name)
}

func (p *Pipeline) runOne(ctx context.Context, s Scraper) RunMetrics {
	m := RunMetrics{
		Source:    s.Name(),
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With("source", m.Source, "run_id", m.RunID)

	defer func() {
		m.FinishedAt = time.Now().UTC()
		m.LogSummary(p.logger)
		if p.recorder != nil {
			p.recorder.RecordRun(m.Source, m.Found, m.Valid, m.Unique, m.Stored, len(m.Errors), m.Duration())
		}
	}()

	logger.Info("scrape run starting")

	found, err := s.Scrape(ctx)
	if err != nil {
		// A failed fetch is an empty batch for this source; other
		// sources carry on untouched.
		m.AddError(fmt.Sprintf("scrape failed: %v", err))
		logger.Error("scrape failed", "error", err)
		return m
	}
	m.Found = len(found)

	valid := make([]models.Event, 0, len(found))
	for _, ev := range found {
		if violations := models.Validate(ev, p.config.StrictValidation); len(violations) > 0 {
			for _, v := range violations {
				m.AddWarning(fmt.Sprintf("invalid occurrence %q: %s", ev.Title, v))
			}
			logger.Warn("occurrence rejected", "title", ev.Title, "violations", len(violations))
			continue
		}
		valid = append(valid, ev)
	}
	m.Valid = len(valid)

	unique := p.dedup.Deduplicate(valid)
	m.Unique = len(unique)
	if dropped := m.Valid - m.Unique; dropped > 0 {
		logger.Info("deduplication complete", "duplicates", dropped, "unique", m.Unique)
	}

	if len(unique) == 0 {
		return m
	}

	created, err := p.store.UpsertBatch(ctx, unique)
	if err != nil {
		// Fatal for this run's persistence step only; the batch boundary
		// is transactional so nothing partial was applied.
		m.AddError(fmt.Sprintf("store failed: %v", err))
		logger.Error("failed to store events", "error", err)
		return m
	}
	m.Stored = created

	return m
}
