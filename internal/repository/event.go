package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

const eventColumns = `id, title, description, location, capacity, registered_count,
	start_date, end_date, is_active, organizer_id, created_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	conn
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(pool *pgxpool.Pool, timeout time.Duration) *EventRepository {
	return &EventRepository{conn{pool: pool, timeout: timeout}}
}

// Create inserts a new event. registered_count always starts at zero.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	e.RegisteredCount = 0
	_, err := db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, $10)`,
		e.ID, e.Title, e.Description, e.Location, e.Capacity,
		e.StartDate, e.EndDate, e.IsActive, e.OrganizerID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns all events ordered by start date.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	rows, err := db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY start_date ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

// GetForUpdate returns the event and holds an exclusive row lock on it until
// the surrounding transaction ends. Concurrent registrations for the same
// event queue behind the lock, so the capacity check and the ledger increment
// that follow it cannot interleave with another registration.
// Outside a transaction the lock is released immediately.
func (r *EventRepository) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (r *EventRepository) get(ctx context.Context, query, id string) (*model.Event, error) {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	var e model.Event
	if err := scanEvent(db.QueryRow(ctx, query, id), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

func scanEvent(row pgx.Row, e *model.Event) error {
	return row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Capacity, &e.RegisteredCount,
		&e.StartDate, &e.EndDate, &e.IsActive, &e.OrganizerID, &e.CreatedAt,
	)
}
