package scrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/festcal/festcal/internal/models"
)

type fakeScraper struct {
	name   string
	events []models.Event
	err    error
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) Scrape(ctx context.Context) ([]models.Event, error) {
	return f.events, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	events  map[string]models.Event
	batches int
	failing bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[string]models.Event)}
}

func (s *fakeStore) UpsertBatch(ctx context.Context, events []models.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errors.New("disk full")
	}
	s.batches++
	created := 0
	for _, ev := range events {
		if _, ok := s.events[ev.ID]; !ok {
			created++
		}
		s.events[ev.ID] = ev
	}
	return created, nil
}

func (s *fakeStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, ev := range s.events {
		if ev.EffectiveEnd().Before(cutoff) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipeline_Run(t *testing.T) {
	start := date(2026, time.January, 18)
	good := &fakeScraper{
		name: "good-source",
		events: []models.Event{
			occurrence("Jazz im Palmengarten", start, "Frankfurt am Main"),
			occurrence("Weihnachtsmarkt Wiesbaden", start, "Wiesbaden"),
		},
	}
	store := newFakeStore()

	p := NewPipeline([]Scraper{good}, store, nil, testLogger(), DefaultPipelineConfig())
	agg := p.Run(context.Background())

	if len(agg.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(agg.Runs))
	}
	m := agg.Runs[0]
	if m.Found != 2 || m.Valid != 2 || m.Unique != 2 || m.Stored != 2 {
		t.Errorf("unexpected counts: %+v", m)
	}
	if m.RunID == "" {
		t.Error("run should carry an ID")
	}
	if len(store.events) != 2 {
		t.Errorf("expected 2 stored events, got %d", len(store.events))
	}
}

func TestPipeline_FailedSourceIsIsolated(t *testing.T) {
	start := date(2026, time.January, 18)
	good := &fakeScraper{
		name:   "good-source",
		events: []models.Event{occurrence("Jazz im Palmengarten", start, "Frankfurt am Main")},
	}
	bad := &fakeScraper{
		name: "bad-source",
		err:  errors.New("connection refused"),
	}
	store := newFakeStore()

	p := NewPipeline([]Scraper{bad, good}, store, nil, testLogger(), DefaultPipelineConfig())
	agg := p.Run(context.Background())

	if agg.SourcesFailed() != 1 {
		t.Errorf("expected 1 failed source, got %d", agg.SourcesFailed())
	}
	if len(store.events) != 1 {
		t.Errorf("the healthy source's events must still be stored, got %d", len(store.events))
	}

	for _, m := range agg.Runs {
		if m.Source == "bad-source" {
			if !m.HasErrors() || m.Found != 0 {
				t.Errorf("failed source should contribute an empty batch with errors: %+v", m)
			}
		}
	}
}

func TestPipeline_InvalidOccurrencesRejected(t *testing.T) {
	start := date(2026, time.January, 18)
	noTitle := occurrence("", start, "Frankfurt am Main")
	s := &fakeScraper{
		name: "source",
		events: []models.Event{
			occurrence("Jazz im Palmengarten", start, "Frankfurt am Main"),
			noTitle,
		},
	}
	store := newFakeStore()

	p := NewPipeline([]Scraper{s}, store, nil, testLogger(), DefaultPipelineConfig())
	agg := p.Run(context.Background())

	m := agg.Runs[0]
	if m.Found != 2 || m.Valid != 1 {
		t.Errorf("expected 2 found / 1 valid, got %+v", m)
	}
	if len(m.Warnings) == 0 {
		t.Error("rejection should leave a warning in the run metrics")
	}
	if len(store.events) != 1 {
		t.Errorf("invalid occurrence must not reach the store, got %d", len(store.events))
	}
}

func TestPipeline_DedupWithinRun(t *testing.T) {
	start := date(2026, time.January, 18)
	a := occurrence("Jazz im Palmengarten", start, "Frankfurt am Main")
	rescrape := a
	s := &fakeScraper{name: "source", events: []models.Event{a, rescrape}}
	store := newFakeStore()

	p := NewPipeline([]Scraper{s}, store, nil, testLogger(), DefaultPipelineConfig())
	agg := p.Run(context.Background())

	m := agg.Runs[0]
	if m.Unique != 1 || m.Stored != 1 {
		t.Errorf("duplicate should collapse before storing: %+v", m)
	}
}

func TestPipeline_StoreFailureIsRunLocal(t *testing.T) {
	start := date(2026, time.January, 18)
	s := &fakeScraper{
		name:   "source",
		events: []models.Event{occurrence("Jazz im Palmengarten", start, "Frankfurt am Main")},
	}
	store := newFakeStore()
	store.failing = true

	p := NewPipeline([]Scraper{s}, store, nil, testLogger(), DefaultPipelineConfig())
	agg := p.Run(context.Background())

	m := agg.Runs[0]
	if !m.HasErrors() || m.Stored != 0 {
		t.Errorf("store failure should be recorded on the run: %+v", m)
	}
}

func TestPipeline_RetentionSweep(t *testing.T) {
	old := occurrence("Altes Konzert", date(2024, time.March, 1), "Frankfurt am Main")
	upcoming := occurrence("Jazz im Palmengarten", time.Now().UTC().Add(24*time.Hour), "Frankfurt am Main")
	s := &fakeScraper{name: "source", events: []models.Event{old, upcoming}}
	store := newFakeStore()

	cfg := DefaultPipelineConfig()
	cfg.Retention = 30 * 24 * time.Hour

	p := NewPipeline([]Scraper{s}, store, nil, testLogger(), cfg)
	agg := p.Run(context.Background())

	if agg.Purged != 1 {
		t.Errorf("expected 1 purged event, got %d", agg.Purged)
	}
	if len(store.events) != 1 {
		t.Errorf("expected only the upcoming event to remain, got %d", len(store.events))
	}
}

func TestPipeline_RunOneUnknownSource(t *testing.T) {
	p := NewPipeline(nil, newFakeStore(), nil, testLogger(), DefaultPipelineConfig())
	if _, err := p.RunOne(context.Background(), "nope"); err == nil {
		t.Error("expected an error for an unknown source")
	}
}
