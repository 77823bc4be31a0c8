package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/festcal/festcal/internal/models"
)

// Timestamps are stored as RFC 3339 text in UTC at second precision:
// fixed width, so string comparison matches chronological comparison.
const timeFormat = time.RFC3339

// EventRepository persists canonical events in SQLite, keyed by their
// deterministic identity. It is the single source of truth for "is this
// occurrence already known".
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a repository over an open database handle.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func encodeTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeFormat)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// Upsert inserts the event if its ID is unseen, otherwise overwrites
// every mutable field in place and refreshes updated_at; id and
// created_at are never touched on update. Returns whether a new row was
// created. The existence check and the write run inside one transaction
// so concurrent batches targeting the same identity cannot interleave.
func (r *EventRepository) Upsert(ctx context.Context, event models.Event) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := upsertTx(ctx, tx, event, time.Now())
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return created, nil
}

// UpsertBatch applies Upsert to every event as one transaction: the
// batch is all-or-nothing. Returns the count of newly created rows,
// which is zero when the same extraction is re-run against an already
// populated store.
func (r *EventRepository) UpsertBatch(ctx context.Context, events []models.Event) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	count := 0
	for _, event := range events {
		created, err := upsertTx(ctx, tx, event, now)
		if err != nil {
			return 0, err
		}
		if created {
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return count, nil
}

func upsertTx(ctx context.Context, tx *sql.Tx, event models.Event, now time.Time) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id = ?", event.ID).Scan(&exists)
	switch {
	case err == sql.ErrNoRows:
		return true, insertTx(ctx, tx, event, now)
	case err != nil:
		return false, fmt.Errorf("failed to check event %s: %w", event.ID, err)
	default:
		return false, updateTx(ctx, tx, event, now)
	}
}

func insertTx(ctx context.Context, tx *sql.Tx, event models.Event, now time.Time) error {
	query := `
		INSERT INTO events (
			id, title, description, start_datetime, end_datetime,
			location, address, city, postal_code, latitude, longitude,
			category, organizer, url, image_url, price, source,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		event.ID,
		event.Title,
		nullString(event.Description),
		encodeTime(event.StartDateTime),
		nullTime(event.EndDateTime),
		nullString(event.Location),
		nullString(event.Address),
		nullString(event.City),
		nullString(event.PostalCode),
		event.Latitude,
		event.Longitude,
		nullString(event.Category),
		nullString(event.Organizer),
		nullString(event.URL),
		nullString(event.ImageURL),
		nullString(event.Price),
		event.Source,
		encodeTime(now),
		encodeTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
	}
	return nil
}

func updateTx(ctx context.Context, tx *sql.Tx, event models.Event, now time.Time) error {
	query := `
		UPDATE events SET
			title = ?, description = ?, start_datetime = ?, end_datetime = ?,
			location = ?, address = ?, city = ?, postal_code = ?,
			latitude = ?, longitude = ?, category = ?, organizer = ?,
			url = ?, image_url = ?, price = ?, source = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := tx.ExecContext(ctx, query,
		event.Title,
		nullString(event.Description),
		encodeTime(event.StartDateTime),
		nullTime(event.EndDateTime),
		nullString(event.Location),
		nullString(event.Address),
		nullString(event.City),
		nullString(event.PostalCode),
		event.Latitude,
		event.Longitude,
		nullString(event.Category),
		nullString(event.Organizer),
		nullString(event.URL),
		nullString(event.ImageURL),
		nullString(event.Price),
		event.Source,
		encodeTime(now),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event %s: %w", event.ID, err)
	}
	return nil
}

const selectColumns = `
	id, title, description, start_datetime, end_datetime,
	location, address, city, postal_code, latitude, longitude,
	category, organizer, url, image_url, price, source,
	created_at, updated_at
`

// GetByID retrieves an event by its ID; nil when not found.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM events WHERE id = ?", id)

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	return event, nil
}

// Query retrieves events matching the filter, ordered by start datetime
// ascending. All set filters compose by logical AND.
func (r *EventRepository) Query(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var conditions []string
	var args []interface{}

	if filter.City != "" {
		conditions = append(conditions, "city = ?")
		args = append(args, filter.City)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		conditions = append(conditions, "start_datetime >= ?")
		args = append(args, encodeTime(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "start_datetime <= ?")
		args = append(args, encodeTime(*filter.To))
	}

	query := "SELECT " + selectColumns + " FROM events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_datetime ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

// Cities returns the distinct non-empty city values, sorted.
func (r *EventRepository) Cities(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "city")
}

// Categories returns the distinct non-empty category values, sorted.
func (r *EventRepository) Categories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "category")
}

// distinct enumerates the non-null distinct values of an indexed column.
func (r *EventRepository) distinct(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM events WHERE %s IS NOT NULL AND %s != '' ORDER BY %s",
		column, column, column, column,
	)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Stats returns summary counts over the store.
func (r *EventRepository) Stats(ctx context.Context) (models.StoreStats, error) {
	var stats models.StoreStats

	query := `
		SELECT COUNT(*),
		       COUNT(DISTINCT city),
		       COUNT(DISTINCT category),
		       COUNT(DISTINCT source)
		FROM events
	`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalEvents,
		&stats.Cities,
		&stats.Categories,
		&stats.Sources,
	)
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// PurgeBefore deletes every event whose effective end (end datetime,
// falling back to start) is strictly before cutoff. Rows ending exactly
// at the cutoff stay. Returns the count deleted.
func (r *EventRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM events WHERE COALESCE(end_datetime, start_datetime) < ?",
		encodeTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the total number of stored events.
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (*models.Event, error) {
	var event models.Event
	var description, endDatetime, location, address, city sql.NullString
	var postalCode, category, organizer, eventURL, imageURL, price sql.NullString
	var latitude, longitude sql.NullFloat64
	var start, createdAt, updatedAt string

	err := row.Scan(
		&event.ID,
		&event.Title,
		&description,
		&start,
		&endDatetime,
		&location,
		&address,
		&city,
		&postalCode,
		&latitude,
		&longitude,
		&category,
		&organizer,
		&eventURL,
		&imageURL,
		&price,
		&event.Source,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if event.StartDateTime, err = decodeTime(start); err != nil {
		return nil, fmt.Errorf("bad start datetime for %s: %w", event.ID, err)
	}
	if endDatetime.Valid {
		end, err := decodeTime(endDatetime.String)
		if err != nil {
			return nil, fmt.Errorf("bad end datetime for %s: %w", event.ID, err)
		}
		event.EndDateTime = &end
	}
	if event.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for %s: %w", event.ID, err)
	}
	if event.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for %s: %w", event.ID, err)
	}

	event.Description = description.String
	event.Location = location.String
	event.Address = address.String
	event.City = city.String
	event.PostalCode = postalCode.String
	event.Category = category.String
	event.Organizer = organizer.String
	event.URL = eventURL.String
	event.ImageURL = imageURL.String
	event.Price = price.String
	if latitude.Valid {
		event.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		event.Longitude = &longitude.Float64
	}

	return &event, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(*t), Valid: true}
}
