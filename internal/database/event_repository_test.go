package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/festcal/festcal/internal/models"
)

var memCounter int

func testRepo(t *testing.T) *EventRepository {
	t.Helper()
	ctx := context.Background()

	memCounter++
	cfg := DefaultConfig()
	cfg.Path = fmt.Sprintf("file:repo%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", memCounter)

	db, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewEventRepository(db)
}

func storedEvent(title string, start time.Time, city, category string) models.Event {
	ev := models.Event{
		Title:         title,
		StartDateTime: start,
		City:          city,
		Category:      category,
		Source:        "test-source",
	}
	ev.ID = models.EventID(title, ev.StartISO(), ev.Source)
	return ev
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 18, 20, 0, 0, 0, time.UTC)

	ev := storedEvent("Jazz im Palmengarten", start, "Frankfurt am Main", "Musik")
	ev.Price = "25 EUR"

	created, err := repo.Upsert(ctx, ev)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if !created {
		t.Error("first upsert should create the row")
	}

	first, err := repo.GetByID(ctx, ev.ID)
	if err != nil || first == nil {
		t.Fatalf("expected stored event, got %v, err %v", first, err)
	}

	// Re-scrape with changed mutable fields.
	ev.Price = "30 EUR"
	ev.Description = "Open-Air-Konzertreihe"
	created, err = repo.Upsert(ctx, ev)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if created {
		t.Error("second upsert must update in place, not create")
	}

	second, err := repo.GetByID(ctx, ev.ID)
	if err != nil || second == nil {
		t.Fatalf("expected stored event, got %v, err %v", second, err)
	}
	if second.Price != "30 EUR" || second.Description != "Open-Air-Konzertreihe" {
		t.Errorf("mutable fields not overwritten: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("created_at must be untouched on update")
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Error("updated_at must not move backwards")
	}
}

func TestUpsertBatch_Idempotent(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)

	batch := []models.Event{
		storedEvent("Jazz im Palmengarten", start, "Frankfurt am Main", "Musik"),
		storedEvent("Weihnachtsmarkt", start.AddDate(0, 1, 0), "Wiesbaden", "Markt"),
		storedEvent("Museumsuferfest", start.AddDate(0, 2, 0), "Frankfurt am Main", "Fest"),
	}

	created, err := repo.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if created != 3 {
		t.Errorf("expected 3 created, got %d", created)
	}

	created, err = repo.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	if created != 0 {
		t.Errorf("re-running the same batch must create 0 rows, got %d", created)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("row count must equal distinct-id count, got %d", count)
	}
}

func TestQuery_FilterComposition(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	events := []models.Event{
		storedEvent("Konzert A", base.AddDate(0, 0, 4), "Frankfurt am Main", "Musik"),
		storedEvent("Konzert B", base.AddDate(0, 0, 1), "Frankfurt am Main", "Musik"),
		storedEvent("Theater C", base.AddDate(0, 0, 2), "Frankfurt am Main", "Theater"),
		storedEvent("Konzert D", base.AddDate(0, 0, 3), "Wiesbaden", "Musik"),
		storedEvent("Markt E", base.AddDate(0, 0, 5), "Wiesbaden", "Markt"),
	}
	if _, err := repo.UpsertBatch(ctx, events); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	got, err := repo.Query(ctx, models.EventFilter{City: "Frankfurt am Main", Category: "Musik"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the 2-event intersection, got %d", len(got))
	}
	// Ascending by start: Konzert B (day 1) before Konzert A (day 4).
	if got[0].Title != "Konzert B" || got[1].Title != "Konzert A" {
		t.Errorf("wrong order: %s, %s", got[0].Title, got[1].Title)
	}
}

func TestQuery_TimeBoundsInclusive(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var batch []models.Event
	for i := 0; i < 5; i++ {
		batch = append(batch, storedEvent(fmt.Sprintf("Event %d", i), base.AddDate(0, 0, i), "Hanau", "Musik"))
	}
	if _, err := repo.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 3)
	got, err := repo.Query(ctx, models.EventFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("bounds are inclusive, expected 3, got %d", len(got))
	}
}

func TestQuery_Limit(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var batch []models.Event
	for i := 0; i < 5; i++ {
		batch = append(batch, storedEvent(fmt.Sprintf("Event %d", i), base.AddDate(0, 0, i), "Hanau", "Musik"))
	}
	if _, err := repo.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	got, err := repo.Query(ctx, models.EventFilter{Limit: 2})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected limit of 2, got %d", len(got))
	}
	if got[0].Title != "Event 0" {
		t.Errorf("limit must apply after ordering, got %s first", got[0].Title)
	}
}

func TestDistinctValues(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	noCity := storedEvent("Ohne Stadt", base, "", "Musik")
	batch := []models.Event{
		storedEvent("A", base, "Frankfurt am Main", "Musik"),
		storedEvent("B", base.AddDate(0, 0, 1), "Wiesbaden", "Theater"),
		storedEvent("C", base.AddDate(0, 0, 2), "Wiesbaden", "Musik"),
		noCity,
	}
	if _, err := repo.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	cities, err := repo.Cities(ctx)
	if err != nil {
		t.Fatalf("cities failed: %v", err)
	}
	if len(cities) != 2 || cities[0] != "Frankfurt am Main" || cities[1] != "Wiesbaden" {
		t.Errorf("unexpected cities: %v", cities)
	}

	categories, err := repo.Categories(ctx)
	if err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	if len(categories) != 2 {
		t.Errorf("unexpected categories: %v", categories)
	}
}

func TestPurgeBefore_Boundary(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	before := storedEvent("Vorbei", cutoff.Add(-time.Hour), "Hanau", "Musik")
	atCutoff := storedEvent("Genau", cutoff, "Hanau", "Musik")
	after := storedEvent("Demnaechst", cutoff.Add(time.Hour), "Hanau", "Musik")

	// An event whose end, not start, decides retention.
	endsBefore := storedEvent("Lange vorbei", cutoff.Add(-48*time.Hour), "Hanau", "Musik")
	end := cutoff.Add(-24 * time.Hour)
	endsBefore.EndDateTime = &end

	if _, err := repo.UpsertBatch(ctx, []models.Event{before, atCutoff, after, endsBefore}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	deleted, err := repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	if ev, _ := repo.GetByID(ctx, atCutoff.ID); ev == nil {
		t.Error("row ending exactly at cutoff must stay")
	}
	if ev, _ := repo.GetByID(ctx, after.ID); ev == nil {
		t.Error("future row must stay")
	}
	if ev, _ := repo.GetByID(ctx, before.ID); ev != nil {
		t.Error("row before cutoff must be deleted")
	}
}

func TestStats(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	other := storedEvent("B", base.AddDate(0, 0, 1), "Wiesbaden", "Theater")
	other.Source = "another-source"
	other.ID = models.EventID(other.Title, other.StartISO(), other.Source)

	batch := []models.Event{
		storedEvent("A", base, "Frankfurt am Main", "Musik"),
		other,
	}
	if _, err := repo.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalEvents != 2 || stats.Cities != 2 || stats.Categories != 2 || stats.Sources != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := testRepo(t)

	ev, err := repo.GetByID(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Errorf("expected nil for an unknown id, got %+v", ev)
	}
}
